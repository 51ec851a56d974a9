package galera

import "errors"

var (
	// ErrNoHostAvailable is returned when selectNode exhausts its retry
	// budget without finding a usable node.
	ErrNoHostAvailable = errors.New("galera: no host available")
	// ErrEmptyActiveSet is returned by an ElectionPolicy when there are no
	// active nodes to choose from. The Client treats this as retryable.
	ErrEmptyActiveSet = errors.New("galera: active set is empty")
	// ErrShutdown is returned by Client operations after Shutdown has been
	// called.
	ErrShutdown = errors.New("galera: client is shut down")
	// ErrUnknownNode is returned when a NodeID is not present in the
	// authoritative node map.
	ErrUnknownNode = errors.New("galera: unknown node")
	// ErrNoSeeds is returned by Register when called with an empty seed
	// list.
	ErrNoSeeds = errors.New("galera: no seeds configured")
)
