package galera

import (
	"context"
	"io"
	"sync"

	"github.com/despegar/galera-go-client/pkg/observability/metrics"
)

// Client is the Client Facade (spec.md §4.2): the entry point application
// code uses to obtain a Connection from a healthy node, hiding Membership
// bookkeeping and the election policy behind a single call.
type Client struct {
	opts       Options
	membership *Membership

	mu       sync.RWMutex
	shutdown bool
}

// New builds and starts a Client: it validates opts, constructs the
// Membership Manager, registers the seed list and (unless TestMode) launches
// the discovery scheduler.
func New(ctx context.Context, opts Options) (*Client, error) {
	// Validate here (not just inside NewMembership) so the Client's own
	// opts carries the same filled-in defaults (DefaultPolicy, Listener,
	// ...) that Membership validates into its own copy.
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	m, err := NewMembership(opts)
	if err != nil {
		return nil, err
	}
	if err := m.Start(ctx); err != nil {
		return nil, err
	}
	metrics.Register()
	return &Client{opts: opts, membership: m}, nil
}

// Membership exposes the underlying Membership Manager, e.g. for a status
// endpoint or manual Tick in tests.
func (c *Client) Membership() *Membership { return c.membership }

// GetConnection elects an active node using the client's DefaultPolicy and
// ConsistencyLevel, and returns a Connection from it.
func (c *Client) GetConnection(ctx context.Context) (Connection, error) {
	return c.GetConnectionWith(ctx, c.opts.DefaultPolicy, c.opts.ConsistencyLevel)
}

// GetConnectionWith elects a node using policy (nil falls back to
// DefaultPolicy) and requests a connection with the given consistency
// directive (empty falls back to the configured ConsistencyLevel).
func (c *Client) GetConnectionWith(ctx context.Context, policy ElectionPolicy, consistency string) (Connection, error) {
	c.mu.RLock()
	if c.shutdown {
		c.mu.RUnlock()
		return nil, ErrShutdown
	}
	c.mu.RUnlock()

	if policy == nil {
		policy = c.opts.DefaultPolicy
	}
	if consistency == "" {
		consistency = c.opts.ConsistencyLevel
	}

	handle, err := c.selectNode(policy)
	if err != nil {
		return nil, err
	}
	return handle.GetConnection(ctx, consistency)
}

// selectNode mirrors original_source's getActiveGaleraNode: it makes exactly
// RetriesToGetConnection policy invocations, tolerating a policy that
// returns a node id which has since been removed from the authoritative map
// (a race between election and a concurrent removeNode), before giving up
// with ErrNoHostAvailable — a bounded loop, not the Java source's recursion.
func (c *Client) selectNode(policy ElectionPolicy) (NodeHandle, error) {
	for retry := 1; retry <= c.opts.RetriesToGetConnection; retry++ {
		active := c.membership.ActiveSnapshot()
		id, err := policy.ChooseNode(active)
		if err != nil {
			metrics.ElectionRetries.Inc()
			continue
		}
		handle, ok := c.membership.Get(id)
		if !ok {
			metrics.ElectionRetries.Inc()
			continue
		}
		return handle, nil
	}
	metrics.NoHostAvailable.Inc()
	return nil, ErrNoHostAvailable
}

// GetLogWriter returns the first non-nil log writer found among all known
// node handles (active or downed), mirroring original_source's
// GaleraClient.getLogWriter.
func (c *Client) GetLogWriter() io.Writer {
	for _, id := range c.membership.AllNodes() {
		h, ok := c.membership.Get(id)
		if !ok {
			continue
		}
		if w := h.LogWriter(); w != nil {
			return w
		}
	}
	return nil
}

// SetLogWriter fans w out to every known node handle (active or downed),
// mirroring original_source's GaleraClient.setLogWriter.
func (c *Client) SetLogWriter(w io.Writer) {
	for _, id := range c.membership.AllNodes() {
		if h, ok := c.membership.Get(id); ok {
			h.SetLogWriter(w)
		}
	}
}

// Shutdown stops the discovery scheduler and shuts down every known node
// handle. It is idempotent.
func (c *Client) Shutdown() error {
	c.mu.Lock()
	if c.shutdown {
		c.mu.Unlock()
		return nil
	}
	c.shutdown = true
	c.mu.Unlock()

	if err := c.membership.Shutdown(); err != nil {
		return err
	}
	for _, n := range c.membership.ActiveSnapshot() {
		if h, ok := c.membership.Get(n); ok {
			_ = h.Shutdown()
		}
	}
	for _, n := range c.membership.DownedSnapshot() {
		if h, ok := c.membership.Get(n); ok {
			_ = h.Shutdown()
		}
	}
	return nil
}
