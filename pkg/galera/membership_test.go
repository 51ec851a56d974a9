package galera

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
)

// fakeHandle is a controllable NodeHandle for membership tests. It lets a
// test script a sequence of statuses/errors per RefreshStatus call.
type fakeHandle struct {
	id NodeID

	mu        sync.Mutex
	statuses  []Status
	errs      []error
	callCount int

	activated int
	downed    int
	shutdown  int

	log io.Writer
}

func newFakeHandle(id NodeID) *fakeHandle { return &fakeHandle{id: id} }

func (h *fakeHandle) ID() NodeID { return h.id }

func (h *fakeHandle) queue(s Status, err error) *fakeHandle {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statuses = append(h.statuses, s)
	h.errs = append(h.errs, err)
	return h
}

func (h *fakeHandle) RefreshStatus(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.callCount >= len(h.errs) {
		// repeat last scripted response
		if len(h.errs) == 0 {
			return nil
		}
		return h.errs[len(h.errs)-1]
	}
	err := h.errs[h.callCount]
	h.callCount++
	return err
}

func (h *fakeHandle) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	idx := h.callCount - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(h.statuses) {
		if len(h.statuses) == 0 {
			return Status{}
		}
		idx = len(h.statuses) - 1
	}
	return h.statuses[idx]
}

func (h *fakeHandle) GetConnection(_ context.Context, _ string) (Connection, error) {
	return noopConnection{}, nil
}

func (h *fakeHandle) OnActivate() { h.mu.Lock(); h.activated++; h.mu.Unlock() }
func (h *fakeHandle) OnDown()     { h.mu.Lock(); h.downed++; h.mu.Unlock() }
func (h *fakeHandle) Shutdown() error {
	h.mu.Lock()
	h.shutdown++
	h.mu.Unlock()
	return nil
}

func (h *fakeHandle) LogWriter() io.Writer {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.log
}

func (h *fakeHandle) SetLogWriter(w io.Writer) {
	h.mu.Lock()
	h.log = w
	h.mu.Unlock()
}

func primaryStatus(members ...NodeID) Status {
	cn := make(map[NodeID]struct{}, len(members))
	for _, m := range members {
		cn[m] = struct{}{}
	}
	return Status{State: StateSynced, IsPrimary: true, IsSynced: true, ClusterNodes: cn}
}

func nonPrimaryStatus() Status {
	return Status{State: StateError, IsPrimary: false}
}

func donorStatus(members ...NodeID) Status {
	cn := make(map[NodeID]struct{}, len(members))
	for _, m := range members {
		cn[m] = struct{}{}
	}
	return Status{State: StateDonor, IsPrimary: true, IsDonor: true, IsSynced: false, ClusterNodes: cn}
}

func newTestOptions(seeds []NodeID, handles map[NodeID]*fakeHandle) Options {
	return Options{
		Seeds:       seeds,
		IgnoreDonor: true,
		NewNodeHandle: func(n NodeID) (NodeHandle, error) {
			h, ok := handles[n]
			if !ok {
				return nil, errors.New("no fake handle registered for " + string(n))
			}
			return h, nil
		},
	}
}

func TestRegisterColdStart(t *testing.T) {
	a := newFakeHandle("a").queue(primaryStatus("a", "b"), nil)
	b := newFakeHandle("b").queue(primaryStatus("a", "b"), nil)
	opts := newTestOptions([]NodeID{"a", "b"}, map[NodeID]*fakeHandle{"a": a, "b": b})
	m, err := NewMembership(opts)
	if err != nil {
		t.Fatalf("NewMembership: %v", err)
	}
	if err := m.Register(context.Background()); err != nil {
		t.Fatalf("Register: %v", err)
	}
	active := m.ActiveSnapshot()
	if len(active) != 2 {
		t.Fatalf("expected 2 active nodes, got %v", active)
	}
	if a.activated != 1 || b.activated != 1 {
		t.Fatalf("expected both nodes activated once, got a=%d b=%d", a.activated, b.activated)
	}
}

func TestDiscoverNonPrimaryGoesDown(t *testing.T) {
	a := newFakeHandle("a").queue(primaryStatus("a"), nil)
	opts := newTestOptions([]NodeID{"a"}, map[NodeID]*fakeHandle{"a": a})
	m, _ := NewMembership(opts)
	_ = m.Register(context.Background())
	if len(m.ActiveSnapshot()) != 1 {
		t.Fatalf("expected a active after register")
	}

	a.queue(nonPrimaryStatus(), nil)
	m.Tick(context.Background())

	if len(m.ActiveSnapshot()) != 0 {
		t.Fatalf("expected a downed after non-primary status")
	}
	if len(m.DownedSnapshot()) != 1 {
		t.Fatalf("expected a in downed set")
	}
	if a.downed != 1 {
		t.Fatalf("expected OnDown called once, got %d", a.downed)
	}
}

func TestDonorIgnoredWhenIgnoreDonorTrue(t *testing.T) {
	a := newFakeHandle("a").queue(primaryStatus("a"), nil)
	opts := newTestOptions([]NodeID{"a"}, map[NodeID]*fakeHandle{"a": a})
	opts.IgnoreDonor = true
	m, _ := NewMembership(opts)
	_ = m.Register(context.Background())

	a.queue(donorStatus("a"), nil)
	m.Tick(context.Background())

	if len(m.ActiveSnapshot()) != 1 {
		t.Fatalf("expected donor node to remain active when IgnoreDonor=true, active=%v", m.ActiveSnapshot())
	}
}

func TestDonorNotReadyWhenIgnoreDonorFalse(t *testing.T) {
	a := newFakeHandle("a").queue(primaryStatus("a"), nil)
	opts := newTestOptions([]NodeID{"a"}, map[NodeID]*fakeHandle{"a": a})
	opts.IgnoreDonor = false
	m, _ := NewMembership(opts)
	_ = m.Register(context.Background())

	a.queue(donorStatus("a"), nil)
	m.Tick(context.Background())

	if len(m.ActiveSnapshot()) != 0 {
		t.Fatalf("expected donor node downed when IgnoreDonor=false, active=%v", m.ActiveSnapshot())
	}
}

func TestVanishedMemberIsRemoved(t *testing.T) {
	a := newFakeHandle("a").queue(primaryStatus("a", "b"), nil)
	b := newFakeHandle("b").queue(primaryStatus("a", "b"), nil)
	opts := newTestOptions([]NodeID{"a", "b"}, map[NodeID]*fakeHandle{"a": a, "b": b})
	m, _ := NewMembership(opts)
	_ = m.Register(context.Background())

	// a's view no longer includes itself: cluster kicked it out, and b's
	// view agrees.
	a.queue(primaryStatus("b"), nil)
	b.queue(primaryStatus("b"), nil)
	m.Tick(context.Background())

	if _, ok := m.Get("a"); ok {
		t.Fatalf("expected node a to be fully removed")
	}
	if a.shutdown != 1 {
		t.Fatalf("expected handle a shut down once, got %d", a.shutdown)
	}
}

func TestRecoveryFromDowned(t *testing.T) {
	a := newFakeHandle("a").queue(nonPrimaryStatus(), nil)
	opts := newTestOptions([]NodeID{"a"}, map[NodeID]*fakeHandle{"a": a})
	m, _ := NewMembership(opts)
	_ = m.Register(context.Background())
	if len(m.ActiveSnapshot()) != 0 {
		t.Fatalf("expected a to start downed")
	}

	a.queue(primaryStatus("a"), nil)
	m.Tick(context.Background())

	if len(m.ActiveSnapshot()) != 1 {
		t.Fatalf("expected a to recover to active, active=%v downed=%v", m.ActiveSnapshot(), m.DownedSnapshot())
	}
}

func TestProbeErrorMovesActiveNodeDown(t *testing.T) {
	a := newFakeHandle("a").queue(primaryStatus("a"), nil)
	opts := newTestOptions([]NodeID{"a"}, map[NodeID]*fakeHandle{"a": a})
	m, _ := NewMembership(opts)
	_ = m.Register(context.Background())

	a.queue(Status{}, errors.New("connection refused"))
	m.Tick(context.Background())

	if len(m.ActiveSnapshot()) != 0 {
		t.Fatalf("expected a downed after probe error")
	}
}

func TestNewlyDiscoveredPeerIsRegistered(t *testing.T) {
	a := newFakeHandle("a").queue(primaryStatus("a", "b"), nil)
	b := newFakeHandle("b").queue(primaryStatus("a", "b"), nil)
	opts := newTestOptions([]NodeID{"a"}, map[NodeID]*fakeHandle{"a": a, "b": b})
	m, _ := NewMembership(opts)
	if err := m.Register(context.Background()); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, ok := m.Get("b"); !ok {
		t.Fatalf("expected b to be discovered via a's cluster view")
	}
}

func TestIdempotentActivateAndDown(t *testing.T) {
	a := newFakeHandle("a").queue(primaryStatus("a"), nil)
	opts := newTestOptions([]NodeID{"a"}, map[NodeID]*fakeHandle{"a": a})
	m, _ := NewMembership(opts)
	_ = m.Register(context.Background())
	if a.activated != 1 {
		t.Fatalf("expected 1 activation, got %d", a.activated)
	}

	m.activate("a")
	m.activate("a")
	if a.activated != 1 {
		t.Fatalf("expected activate to be a no-op when already active, got %d calls", a.activated)
	}

	m.down("a", "test")
	m.down("a", "test")
	if a.downed != 1 {
		t.Fatalf("expected down to be a no-op when already downed, got %d calls", a.downed)
	}
}
