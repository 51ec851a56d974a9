package galera

import "context"

// NodeStatusProbe issues a status query against one node and returns a
// structured Status. Concrete implementations (e.g. mysqlpool.Probe) are
// external collaborators.
type NodeStatusProbe interface {
	Probe(ctx context.Context, node NodeID) (Status, error)
}

// TestModeProbe synthesizes a healthy status for every node without any
// network activity. It backs Options.TestMode, the seam spec'd for unit
// tests (see original_source's GaleraStatus.buildTestStatusOk).
type TestModeProbe struct{}

// Probe always succeeds and reports the queried node as primary and synced,
// with itself as the sole cluster member.
func (TestModeProbe) Probe(_ context.Context, node NodeID) (Status, error) {
	return testStatusOK(node), nil
}
