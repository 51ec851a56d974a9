package galera

import (
	"errors"
	"log"
	"time"
)

// Options carries the operator-configured knobs for a Client, generalizing
// spec.md §6's configuration table and original_source's Builder.
type Options struct {
	// Seeds is the initial NodeID list; bootstrap for discovery.
	Seeds []NodeID

	// Logger receives operational log lines. Defaults to log.Default().
	Logger *log.Logger

	// DiscoverPeriod is the interval between discovery ticks.
	DiscoverPeriod time.Duration

	// IgnoreDonor controls the donor rule (spec.md §4.1). When true, an
	// unsynced donor-state node is moved to downed and never activated;
	// when false, a donor-state node is treated as ready.
	IgnoreDonor bool

	// RetriesToGetConnection bounds the election retry loop.
	RetriesToGetConnection int

	// DefaultPolicy is used when GetConnection is called without an
	// override. Defaults to a fresh RoundRobinPolicy.
	DefaultPolicy ElectionPolicy

	// Listener receives lifecycle events. Defaults to a LoggingListener.
	Listener Listener

	// TestMode suppresses the scheduler and substitutes a synthetic OK
	// status for every probe, per spec.md §6/§9.
	TestMode bool

	// NewNodeHandle constructs the NodeHandle for a newly discovered or
	// registered node. Required unless TestMode is set, in which case a
	// no-op handle is synthesized internally.
	NewNodeHandle func(node NodeID) (NodeHandle, error)

	// ConsistencyLevel is the default per-request consistency directive,
	// forwarded opaquely to NodeHandle.GetConnection when the caller does
	// not specify one.
	ConsistencyLevel string
}

// Validate performs minimal validation and fills in defaults, mirroring the
// teacher's pkg/cluster/options.go Validate() (a struct method, not
// panicking constructor chain).
func (o *Options) Validate() error {
	if len(o.Seeds) == 0 {
		return errors.New("galera: empty Seeds")
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	if o.DiscoverPeriod <= 0 {
		o.DiscoverPeriod = 30 * time.Second
	}
	if o.RetriesToGetConnection <= 0 {
		o.RetriesToGetConnection = 3
	}
	if o.DefaultPolicy == nil {
		o.DefaultPolicy = NewRoundRobinPolicy()
	}
	if o.Listener == nil {
		o.Listener = NewLoggingListener(o.Logger)
	}
	if !o.TestMode && o.NewNodeHandle == nil {
		return errors.New("galera: nil NewNodeHandle (required unless TestMode)")
	}
	return nil
}
