// Package galera implements the client-side membership and election core of
// a connection router for a Galera-style synchronously replicated MySQL
// cluster.
package galera

import "fmt"

// NodeID identifies a cluster member, typically "host:port". It is unique
// within a single Client.
type NodeID string

// State is the replication state reported by a node's wsrep status.
type State int

const (
	// StateUnknown is the zero value: no status has been observed yet.
	StateUnknown State = iota
	// StateSynced indicates the node is caught up and serving.
	StateSynced
	// StateDonor indicates the node is streaming state to a joiner.
	StateDonor
	// StateJoining indicates the node is receiving a state transfer.
	StateJoining
	// StateJoined indicates the node finished receiving state but has not
	// caught up to the cluster yet.
	StateJoined
	// StateDesynced indicates the node desynced itself (e.g. for a backup).
	StateDesynced
	// StateError indicates the node reported a wsrep error state.
	StateError
)

func (s State) String() string {
	switch s {
	case StateSynced:
		return "Synced"
	case StateDonor:
		return "Donor"
	case StateJoining:
		return "Joining"
	case StateJoined:
		return "Joined"
	case StateDesynced:
		return "Desynced"
	case StateError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Status is an immutable snapshot of one node's replication health, as
// reported by a NodeStatusProbe.
type Status struct {
	State        State
	IsPrimary    bool
	IsDonor      bool
	IsSynced     bool
	ClusterNodes map[NodeID]struct{}
}

// HasClusterNode reports whether n is present in the reported member list.
func (s Status) HasClusterNode(n NodeID) bool {
	_, ok := s.ClusterNodes[n]
	return ok
}

func (s Status) String() string {
	return fmt.Sprintf("Status{state=%s primary=%t donor=%t synced=%t members=%d}",
		s.State, s.IsPrimary, s.IsDonor, s.IsSynced, len(s.ClusterNodes))
}

// testStatusOK synthesizes a healthy status for testMode, mirroring the Java
// source's GaleraStatus.buildTestStatusOk seam.
func testStatusOK(self NodeID) Status {
	return Status{
		State:        StateSynced,
		IsPrimary:    true,
		IsDonor:      false,
		IsSynced:     true,
		ClusterNodes: map[NodeID]struct{}{self: {}},
	}
}
