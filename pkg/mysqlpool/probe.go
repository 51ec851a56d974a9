package mysqlpool

import (
	"context"
	"database/sql"
	"strings"

	"github.com/despegar/galera-go-client/pkg/galera"
)

// Probe implements galera.NodeStatusProbe against a live wsrep status table.
// It is grounded in the actual Galera status variables original_source's
// GaleraNode/GaleraStatus are built around: wsrep_cluster_status,
// wsrep_local_state_comment, wsrep_incoming_addresses.
type Probe struct {
	db *sql.DB
}

// NewProbe builds a standalone Probe against db, for callers that want to
// probe without going through a full Pool (e.g. a status CLI subcommand).
func NewProbe(db *sql.DB) *Probe { return &Probe{db: db} }

func (p *Probe) Probe(ctx context.Context, node galera.NodeID) (galera.Status, error) {
	rows, err := p.db.QueryContext(ctx, "SHOW STATUS LIKE 'wsrep_%'")
	if err != nil {
		return galera.Status{}, err
	}
	defer rows.Close()

	vars := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return galera.Status{}, err
		}
		vars[k] = v
	}
	if err := rows.Err(); err != nil {
		return galera.Status{}, err
	}

	state := parseState(vars["wsrep_local_state_comment"])
	status := galera.Status{
		State:        state,
		IsPrimary:    vars["wsrep_cluster_status"] == "Primary",
		IsDonor:      state == galera.StateDonor,
		IsSynced:     state == galera.StateSynced,
		ClusterNodes: map[galera.NodeID]struct{}{},
	}
	for _, addr := range strings.Split(vars["wsrep_incoming_addresses"], ",") {
		addr = strings.TrimSpace(addr)
		if addr == "" || addr == "unspecified" {
			continue
		}
		status.ClusterNodes[galera.NodeID(addr)] = struct{}{}
	}
	return status, nil
}

// parseState maps wsrep_local_state_comment's textual value onto a
// galera.State, tolerating the "Donor/Desynced" form a node reports while
// acting as a state-transfer donor.
func parseState(comment string) galera.State {
	switch comment {
	case "Synced":
		return galera.StateSynced
	case "Donor", "Donor/Desynced":
		return galera.StateDonor
	case "Joining", "Joining: receiving State Transfer":
		return galera.StateJoining
	case "Joined":
		return galera.StateJoined
	case "Desynced":
		return galera.StateDesynced
	default:
		return galera.StateError
	}
}

var _ galera.NodeStatusProbe = (*Probe)(nil)
