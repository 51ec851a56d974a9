package galera

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/despegar/galera-go-client/pkg/internal/logutil"
	"github.com/despegar/galera-go-client/pkg/observability/metrics"
	"github.com/despegar/galera-go-client/pkg/observability/tracing"
)

// Membership is the Membership Manager (spec.md §4.1): it owns the
// authoritative nodes map and the active/downed lists, and drives the
// periodic discovery pass. It is the core of this repository.
//
// nodes is guarded by mu (written by Register and the discovery pass's probe
// goroutines, safe concurrent readers). active and downed are copy-on-write snapshots swapped
// atomically so the election hot path never blocks on the discovery
// goroutine.
type Membership struct {
	opts Options

	mu    sync.RWMutex
	nodes map[NodeID]NodeHandle

	active atomic.Pointer[[]NodeID]
	downed atomic.Pointer[[]NodeID]

	// mutateMu serializes activate/down/removeNode read-modify-write of the
	// active/downed snapshots when probes within a phase run concurrently.
	mutateMu sync.Mutex

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewMembership validates opts and constructs an idle Membership. Call Start
// to register seeds and (unless TestMode) launch the discovery scheduler.
func NewMembership(opts Options) (*Membership, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	m := &Membership{opts: opts, nodes: make(map[NodeID]NodeHandle)}
	empty := []NodeID{}
	m.active.Store(&empty)
	downedEmpty := []NodeID{}
	m.downed.Store(&downedEmpty)
	return m, nil
}

// Start registers the configured seeds and, unless TestMode is set, launches
// the periodic discovery scheduler at opts.DiscoverPeriod.
func (m *Membership) Start(ctx context.Context) error {
	if err := m.Register(ctx); err != nil {
		return err
	}
	if m.opts.TestMode {
		return nil
	}
	m.stopCh = make(chan struct{})
	ticker := time.NewTicker(m.opts.DiscoverPeriod)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-m.stopCh:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.safeTick(ctx)
			}
		}
	}()
	return nil
}

// Shutdown stops future discovery ticks. It does not interrupt an in-flight
// tick and does not affect already-open connections; getConnection continues
// to operate on the last committed snapshot (best-effort).
func (m *Membership) Shutdown() error {
	m.stopOnce.Do(func() {
		if m.stopCh != nil {
			close(m.stopCh)
		}
	})
	return nil
}

// Register allocates a NodeHandle for each seed not already known and
// attempts an immediate discover; a seed whose handle allocation or initial
// probe fails is moved to downed with the failure as cause. Repeated seeds
// yield one handle per unique id (registration dedup law, spec.md §8).
func (m *Membership) Register(ctx context.Context) error {
	if len(m.opts.Seeds) == 0 {
		return ErrNoSeeds
	}
	for _, seed := range m.opts.Seeds {
		m.registerNode(ctx, seed)
	}
	return nil
}

// Tick runs one discovery pass: active-node probes complete before
// downed-node probes begin (spec.md §5's ordering guarantee), matching the
// Java source's discoverActiveNodes() then testDownedNodes(). A failing tick
// is caught and logged; it never stops the scheduler.
func (m *Membership) Tick(ctx context.Context) {
	m.safeTick(ctx)
}

func (m *Membership) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			logutil.Errorf(m.opts.Logger, "galera discovery pass panicked: %v", r)
		}
	}()
	ctx, end := tracing.StartSpan(ctx, "galera.discovery_tick")
	defer end()
	start := time.Now()
	m.discoverActiveNodes(ctx)
	m.testDownedNodes(ctx)
	metrics.DiscoveryTickDuration.Observe(time.Since(start).Seconds())
	metrics.ActiveNodes.Set(float64(len(m.ActiveSnapshot())))
	metrics.DownedNodes.Set(float64(len(m.DownedSnapshot())))
}

func (m *Membership) discoverActiveNodes(ctx context.Context) {
	snap := m.ActiveSnapshot()
	var wg sync.WaitGroup
	for _, n := range snap {
		n := n
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := m.discover(ctx, n); err != nil {
				m.down(n, "failure in connection. "+err.Error())
			}
		}()
	}
	wg.Wait()
}

func (m *Membership) testDownedNodes(ctx context.Context) {
	snap := m.DownedSnapshot()
	var wg sync.WaitGroup
	for _, n := range snap {
		n := n
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := m.discover(ctx, n); err != nil {
				m.down(n, err.Error())
				return
			}
			handle, ok := m.getHandle(n)
			if !ok {
				return
			}
			st := handle.Status()
			if st.IsPrimary && !(st.IsDonor && m.opts.IgnoreDonor) {
				m.activate(n)
			}
		}()
	}
	wg.Wait()
}

// discover is the classification function (spec.md §4.1, steps 1-6). It
// returns an error only for a probe/transport failure; classification
// demotions (non-primary, not-ready) are handled internally via down() and
// return nil.
func (m *Membership) discover(ctx context.Context, n NodeID) error {
	ctx, end := tracing.StartSpan(ctx, "galera.probe")
	defer end()
	probeStart := time.Now()

	var status Status
	if m.opts.TestMode {
		status = testStatusOK(n)
	} else {
		handle, ok := m.getHandle(n)
		if !ok {
			return ErrUnknownNode
		}
		if err := handle.RefreshStatus(ctx); err != nil {
			metrics.ProbeDuration.Observe(time.Since(probeStart).Seconds())
			return err
		}
		status = handle.Status()
	}
	metrics.ProbeDuration.Observe(time.Since(probeStart).Seconds())

	if !status.IsPrimary {
		m.down(n, "non Primary")
		return nil
	}
	if !status.IsSynced && (m.opts.IgnoreDonor || !status.IsDonor) {
		m.down(n, fmt.Sprintf("state not ready: %s", status.State))
		return nil
	}

	// Step 4: register unseen peers reported in this node's cluster view.
	// Each newly registered peer is discovered once, inline, within this
	// tick. This recurses (registerNode calls discover, which may register
	// further peers); depth is bounded by cluster size because registerNode
	// returns early for a node already in nodes.
	var unseen []NodeID
	m.mu.RLock()
	for peer := range status.ClusterNodes {
		if _, known := m.nodes[peer]; !known {
			unseen = append(unseen, peer)
		}
	}
	m.mu.RUnlock()
	for _, peer := range unseen {
		m.registerNode(ctx, peer)
	}

	// Step 5/6: vanished member removal or activation.
	if !status.HasClusterNode(n) {
		m.removeNode(n)
		return nil
	}
	if !m.isActive(n) && !(status.IsDonor && m.opts.IgnoreDonor) {
		m.activate(n)
	}
	return nil
}

// registerNode allocates a handle for node if it is new, then attempts an
// immediate discover. Any failure (handle allocation or probe) moves the
// node to downed with the failure as cause. Guards re-registration of an
// in-flight node per spec.md §5's re-entrancy rule.
func (m *Membership) registerNode(ctx context.Context, node NodeID) {
	m.mu.Lock()
	if _, exists := m.nodes[node]; exists {
		m.mu.Unlock()
		return
	}
	handle, err := m.newHandle(node)
	if err != nil {
		m.mu.Unlock()
		m.down(node, "failure in connection. "+err.Error())
		return
	}
	m.nodes[node] = handle
	m.mu.Unlock()

	logutil.Infof(m.opts.Logger, "registering galera node: %s", node)
	if err := m.discover(ctx, node); err != nil {
		m.down(node, "failure in connection. "+err.Error())
	}
}

func (m *Membership) newHandle(node NodeID) (NodeHandle, error) {
	if m.opts.TestMode {
		return newTestNodeHandle(node), nil
	}
	return m.opts.NewNodeHandle(node)
}

// activate moves node from downed to active, idempotently (spec.md §8's
// idempotence law).
func (m *Membership) activate(n NodeID) {
	m.mutateMu.Lock()
	defer m.mutateMu.Unlock()
	if m.containsActive(n) {
		return
	}
	handle, ok := m.getHandle(n)
	if !ok {
		return
	}
	handle.OnActivate()
	m.addActive(n)
	m.removeDowned(n)
	m.opts.Listener.OnActivatingNode(n)
	metrics.ActivateEvents.WithLabelValues(string(n)).Inc()
}

// down moves node from active to downed, idempotently.
func (m *Membership) down(n NodeID, cause string) {
	m.mutateMu.Lock()
	defer m.mutateMu.Unlock()
	if m.containsDowned(n) {
		return
	}
	m.removeActive(n)
	m.addDowned(n)
	if handle, ok := m.getHandle(n); ok {
		handle.OnDown()
	}
	m.opts.Listener.OnMarkingNodeAsDown(n, cause)
	metrics.DownEvents.WithLabelValues(string(n)).Inc()
}

// removeNode drops n from all three collections in one logical step
// (invariant 5, spec.md §3) and shuts down its handle.
func (m *Membership) removeNode(n NodeID) {
	m.mutateMu.Lock()
	m.removeActive(n)
	m.removeDowned(n)
	m.mutateMu.Unlock()

	m.mu.Lock()
	handle, ok := m.nodes[n]
	delete(m.nodes, n)
	m.mu.Unlock()

	if ok {
		_ = handle.Shutdown()
	}
	m.opts.Listener.OnRemovingNode(n)
	metrics.RemoveEvents.WithLabelValues(string(n)).Inc()
}

// ActiveSnapshot returns the current active list. The returned slice must
// not be mutated; callers observing it concurrently with a mutation see
// either the old or the new slice, never a partial one.
func (m *Membership) ActiveSnapshot() []NodeID {
	p := m.active.Load()
	if p == nil {
		return nil
	}
	return *p
}

// DownedSnapshot returns the current downed list.
func (m *Membership) DownedSnapshot() []NodeID {
	p := m.downed.Load()
	if p == nil {
		return nil
	}
	return *p
}

// Get returns the handle for node, if known.
func (m *Membership) Get(node NodeID) (NodeHandle, bool) {
	return m.getHandle(node)
}

// AllNodes returns every known node id, active or downed, for callers (e.g.
// Client.GetLogWriter/SetLogWriter) that must reach every registered handle
// rather than just the active set.
func (m *Membership) AllNodes() []NodeID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]NodeID, 0, len(m.nodes))
	for id := range m.nodes {
		out = append(out, id)
	}
	return out
}

func (m *Membership) getHandle(n NodeID) (NodeHandle, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.nodes[n]
	return h, ok
}

func (m *Membership) isActive(n NodeID) bool { return m.containsActive(n) }

func (m *Membership) containsActive(n NodeID) bool { return contains(m.ActiveSnapshot(), n) }
func (m *Membership) containsDowned(n NodeID) bool { return contains(m.DownedSnapshot(), n) }

func (m *Membership) addActive(n NodeID) {
	cur := m.ActiveSnapshot()
	if contains(cur, n) {
		return
	}
	next := make([]NodeID, 0, len(cur)+1)
	next = append(next, cur...)
	next = append(next, n)
	m.active.Store(&next)
}

func (m *Membership) removeActive(n NodeID) {
	cur := m.ActiveSnapshot()
	if !contains(cur, n) {
		return
	}
	next := removeFrom(cur, n)
	m.active.Store(&next)
}

func (m *Membership) addDowned(n NodeID) {
	cur := m.DownedSnapshot()
	if contains(cur, n) {
		return
	}
	next := make([]NodeID, 0, len(cur)+1)
	next = append(next, cur...)
	next = append(next, n)
	m.downed.Store(&next)
}

func (m *Membership) removeDowned(n NodeID) {
	cur := m.DownedSnapshot()
	if !contains(cur, n) {
		return
	}
	next := removeFrom(cur, n)
	m.downed.Store(&next)
}

func contains(list []NodeID, n NodeID) bool {
	for _, v := range list {
		if v == n {
			return true
		}
	}
	return false
}

func removeFrom(list []NodeID, n NodeID) []NodeID {
	out := make([]NodeID, 0, len(list))
	for _, v := range list {
		if v != n {
			out = append(out, v)
		}
	}
	return out
}
