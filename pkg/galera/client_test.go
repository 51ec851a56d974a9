package galera

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func newTestClient(t *testing.T, seeds []NodeID, handles map[NodeID]*fakeHandle) *Client {
	t.Helper()
	opts := newTestOptions(seeds, handles)
	opts.RetriesToGetConnection = 3
	if err := opts.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	m, err := NewMembership(opts)
	if err != nil {
		t.Fatalf("NewMembership: %v", err)
	}
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return &Client{opts: opts, membership: m}
}

func TestClientGetConnectionReturnsFromActiveNode(t *testing.T) {
	a := newFakeHandle("a").queue(primaryStatus("a"), nil)
	c := newTestClient(t, []NodeID{"a"}, map[NodeID]*fakeHandle{"a": a})

	conn, err := c.GetConnection(context.Background())
	if err != nil {
		t.Fatalf("GetConnection: %v", err)
	}
	if conn == nil {
		t.Fatalf("expected non-nil connection")
	}
}

func TestClientElectionExhaustionReturnsNoHostAvailable(t *testing.T) {
	opts := Options{
		Seeds:                  []NodeID{"a"},
		RetriesToGetConnection: 2,
		NewNodeHandle:          func(NodeID) (NodeHandle, error) { return nil, errors.New("unreachable") },
	}
	if err := opts.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	m, err := NewMembership(opts)
	if err != nil {
		t.Fatalf("NewMembership: %v", err)
	}
	_ = m.Register(context.Background())
	c := &Client{opts: opts, membership: m}

	_, err = c.GetConnection(context.Background())
	if !errors.Is(err, ErrNoHostAvailable) {
		t.Fatalf("expected ErrNoHostAvailable, got %v", err)
	}
}

func TestClientShutdownRejectsFurtherRequests(t *testing.T) {
	a := newFakeHandle("a").queue(primaryStatus("a"), nil)
	c := newTestClient(t, []NodeID{"a"}, map[NodeID]*fakeHandle{"a": a})

	if err := c.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := c.Shutdown(); err != nil {
		t.Fatalf("second Shutdown should be a no-op, got %v", err)
	}
	if _, err := c.GetConnection(context.Background()); !errors.Is(err, ErrShutdown) {
		t.Fatalf("expected ErrShutdown after Shutdown, got %v", err)
	}
	if a.shutdown != 1 {
		t.Fatalf("expected node handle shut down once, got %d", a.shutdown)
	}
}

func TestClientGetConnectionWithOverridesPolicyAndConsistency(t *testing.T) {
	a := newFakeHandle("a").queue(primaryStatus("a", "b"), nil)
	b := newFakeHandle("b").queue(primaryStatus("a", "b"), nil)
	c := newTestClient(t, []NodeID{"a", "b"}, map[NodeID]*fakeHandle{"a": a, "b": b})

	fixed := fixedPolicy{id: "b"}
	conn, err := c.GetConnectionWith(context.Background(), fixed, "strict")
	if err != nil {
		t.Fatalf("GetConnectionWith: %v", err)
	}
	if conn == nil {
		t.Fatalf("expected non-nil connection")
	}
}

func TestClientElectionRetriesExactlyConfiguredCount(t *testing.T) {
	var calls int
	policy := countingPolicy{n: &calls}
	opts := Options{
		Seeds:                  []NodeID{"a"},
		RetriesToGetConnection: 3,
		NewNodeHandle:          func(NodeID) (NodeHandle, error) { return nil, errors.New("unreachable") },
	}
	if err := opts.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	m, err := NewMembership(opts)
	if err != nil {
		t.Fatalf("NewMembership: %v", err)
	}
	_ = m.Register(context.Background())
	c := &Client{opts: opts, membership: m}

	_, err = c.GetConnectionWith(context.Background(), policy, "")
	if !errors.Is(err, ErrNoHostAvailable) {
		t.Fatalf("expected ErrNoHostAvailable, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected exactly 3 policy invocations, got %d", calls)
	}
}

type countingPolicy struct{ n *int }

func (countingPolicy) Name() string { return "counting" }
func (p countingPolicy) ChooseNode(active []NodeID) (NodeID, error) {
	*p.n++
	return "", ErrEmptyActiveSet
}

func TestClientLogWriterDelegatesToNodes(t *testing.T) {
	a := newFakeHandle("a")
	b := newFakeHandle("b")
	c := newTestClient(t, []NodeID{"a", "b"}, map[NodeID]*fakeHandle{"a": a, "b": b})

	if w := c.GetLogWriter(); w != nil {
		t.Fatalf("expected nil log writer before any is set, got %v", w)
	}

	var buf bytes.Buffer
	c.SetLogWriter(&buf)
	if a.LogWriter() != &buf || b.LogWriter() != &buf {
		t.Fatalf("expected SetLogWriter to fan out to every node handle")
	}
	if got := c.GetLogWriter(); got != &buf {
		t.Fatalf("expected GetLogWriter to return the fanned-out writer, got %v", got)
	}
}

type fixedPolicy struct{ id NodeID }

func (fixedPolicy) Name() string { return "fixed" }
func (p fixedPolicy) ChooseNode(active []NodeID) (NodeID, error) {
	for _, n := range active {
		if n == p.id {
			return p.id, nil
		}
	}
	return "", ErrEmptyActiveSet
}
