package galera

import (
	"context"
	"io"
)

// testNodeHandle is the synthetic NodeHandle used when Options.TestMode is
// set. Its status is never consulted directly by discover (which shortcuts
// to testStatusOK), so it only needs to satisfy the interface.
type testNodeHandle struct {
	id  NodeID
	log io.Writer
}

func newTestNodeHandle(id NodeID) *testNodeHandle { return &testNodeHandle{id: id} }

func (h *testNodeHandle) ID() NodeID { return h.id }

func (h *testNodeHandle) RefreshStatus(ctx context.Context) error { return nil }

func (h *testNodeHandle) Status() Status { return testStatusOK(h.id) }

func (h *testNodeHandle) GetConnection(ctx context.Context, consistency string) (Connection, error) {
	return noopConnection{}, nil
}

func (h *testNodeHandle) OnActivate()     {}
func (h *testNodeHandle) OnDown()         {}
func (h *testNodeHandle) Shutdown() error { return nil }

func (h *testNodeHandle) LogWriter() io.Writer     { return h.log }
func (h *testNodeHandle) SetLogWriter(w io.Writer) { h.log = w }

type noopConnection struct{}

func (noopConnection) Close() error { return nil }
