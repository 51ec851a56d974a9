package bootstrap

import (
	"context"
	"encoding/json"

	"github.com/despegar/galera-go-client/pkg/galera"
	"github.com/despegar/galera-go-client/pkg/transport"
)

// routerStatus is the JSON payload served at the management /status
// endpoint, describing the router's current view of cluster health.
type routerStatus struct {
	Active []nodeStatus `json:"active"`
	Downed []nodeStatus `json:"downed"`
}

type nodeStatus struct {
	ID     galera.NodeID `json:"id"`
	State  string        `json:"state"`
	Primary bool         `json:"primary"`
	Donor   bool         `json:"donor"`
	Synced  bool         `json:"synced"`
}

func describe(m *galera.Membership, ids []galera.NodeID) []nodeStatus {
	out := make([]nodeStatus, 0, len(ids))
	for _, id := range ids {
		h, ok := m.Get(id)
		if !ok {
			continue
		}
		st := h.Status()
		out = append(out, nodeStatus{
			ID:      id,
			State:   st.State.String(),
			Primary: st.IsPrimary,
			Donor:   st.IsDonor,
			Synced:  st.IsSynced,
		})
	}
	return out
}

// statusFunc adapts a galera.Client into a transport.StatusFunc for the
// management API's read-only /status endpoint.
func statusFunc(c *galera.Client) transport.StatusFunc {
	return func(ctx context.Context) ([]byte, error) {
		m := c.Membership()
		payload := routerStatus{
			Active: describe(m, m.ActiveSnapshot()),
			Downed: describe(m, m.DownedSnapshot()),
		}
		return json.Marshal(payload)
	}
}
