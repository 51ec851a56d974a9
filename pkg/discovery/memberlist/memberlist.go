// Package memberlist bootstraps a router process's Galera node seed list by
// gossiping with peer router processes over HashiCorp memberlist. Each
// router advertises its own locally configured seed list as node metadata;
// Seeds() returns the union of the local list and every gossiped peer's
// list. This coordinates *seed discovery* between router processes only —
// it never influences an individual router's election or health decisions,
// which stay entirely local (spec.md §1's cross-process-coordination
// Non-goal).
package memberlist

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/despegar/galera-go-client/pkg/discovery"
	hml "github.com/hashicorp/memberlist"
)

// Options configures the gossip-backed discovery source.
type Options struct {
	// NodeID uniquely identifies this router process in the gossip cluster.
	NodeID string

	// Bind is this process's gossip bind address (host:port).
	Bind string

	// Advertise is the address peers should use to reach this process. If
	// empty, memberlist derives it from Bind.
	Advertise string

	// Peers are other router processes' gossip addresses to join at
	// startup. A join failure is logged and non-fatal: Seeds() still
	// returns LocalSeeds.
	Peers []string

	// LocalSeeds is this router's own configured Galera node seed list,
	// gossiped to peers as node metadata.
	LocalSeeds []string

	Logger *log.Logger

	ProbeInterval time.Duration
	ProbeTimeout  time.Duration
	SuspicionMult int
}

type impl struct {
	mu   sync.RWMutex
	opts Options
	ml   *hml.Memberlist
}

// New starts a memberlist instance bound to opts.Bind, best-effort joins
// opts.Peers, and returns a discovery.Discovery backed by the gossiped seed
// union.
func New(opts Options) (discovery.Discovery, error) {
	if opts.NodeID == "" {
		return nil, fmt.Errorf("memberlist: empty NodeID")
	}
	if opts.Bind == "" {
		return nil, fmt.Errorf("memberlist: empty Bind address")
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	cfg := hml.DefaultLANConfig()
	cfg.Name = opts.NodeID
	host, portStr, err := net.SplitHostPort(opts.Bind)
	if err != nil {
		return nil, fmt.Errorf("memberlist: invalid bind address %q: %w", opts.Bind, err)
	}
	port, err := parsePort(portStr)
	if err != nil {
		return nil, err
	}
	cfg.BindAddr = host
	cfg.BindPort = port

	if opts.Advertise != "" {
		ahost, aportStr, err := net.SplitHostPort(opts.Advertise)
		if err != nil {
			return nil, fmt.Errorf("memberlist: invalid advertise address %q: %w", opts.Advertise, err)
		}
		aport, err := parsePort(aportStr)
		if err != nil {
			return nil, err
		}
		cfg.AdvertiseAddr = ahost
		cfg.AdvertisePort = aport
	}
	if opts.ProbeInterval > 0 {
		cfg.ProbeInterval = opts.ProbeInterval
	}
	if opts.ProbeTimeout > 0 {
		cfg.ProbeTimeout = opts.ProbeTimeout
	}
	if opts.SuspicionMult > 0 {
		cfg.SuspicionMult = opts.SuspicionMult
	}

	metaBytes, err := json.Marshal(opts.LocalSeeds)
	if err != nil {
		return nil, fmt.Errorf("memberlist: encode local seeds: %w", err)
	}
	cfg.Delegate = &seedDelegate{meta: metaBytes}

	ml, err := hml.Create(cfg)
	if err != nil {
		return nil, err
	}

	m := &impl{opts: opts, ml: ml}
	if len(opts.Peers) > 0 {
		if _, err := ml.Join(opts.Peers); err != nil {
			opts.Logger.Printf("memberlist: join failed, falling back to local seeds only: %v", err)
		}
	}
	return m, nil
}

// Seeds returns the union of this router's local seeds and every gossiped
// peer's advertised seed list, deduplicated and sorted for determinism.
func (m *impl) Seeds() []string {
	m.mu.RLock()
	ml := m.ml
	local := append([]string(nil), m.opts.LocalSeeds...)
	m.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []string
	add := func(list []string) {
		for _, s := range list {
			if s == "" {
				continue
			}
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	add(local)
	if ml != nil {
		for _, n := range ml.Members() {
			if len(n.Meta) == 0 {
				continue
			}
			var peerSeeds []string
			if err := json.Unmarshal(n.Meta, &peerSeeds); err == nil {
				add(peerSeeds)
			}
		}
	}
	sort.Strings(out)
	return out
}

// Close leaves the gossip cluster and shuts down the underlying memberlist
// instance. Idempotent.
func (m *impl) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ml == nil {
		return nil
	}
	_ = m.ml.Leave(time.Second)
	err := m.ml.Shutdown()
	m.ml = nil
	return err
}

// seedDelegate propagates LocalSeeds as gossiped node metadata. The other
// memberlist.Delegate hooks are unused.
type seedDelegate struct{ meta []byte }

func (d *seedDelegate) NodeMeta(limit int) []byte {
	if len(d.meta) <= limit {
		return d.meta
	}
	if limit <= 0 {
		return nil
	}
	return d.meta[:limit]
}

func (d *seedDelegate) NotifyMsg([]byte)                       {}
func (d *seedDelegate) GetBroadcasts(int, int) [][]byte        { return nil }
func (d *seedDelegate) LocalState(join bool) []byte            { return nil }
func (d *seedDelegate) MergeRemoteState(buf []byte, join bool) {}

func parsePort(s string) (int, error) {
	var p int
	_, err := fmt.Sscanf(s, "%d", &p)
	if err != nil || p < 0 || p > 65535 {
		return 0, fmt.Errorf("invalid port: %q", s)
	}
	return p, nil
}
