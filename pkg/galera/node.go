package galera

import (
	"context"
	"io"
)

// NodeHandle owns one node's connection pool(s) and its last-known Status.
// Concrete implementations (e.g. mysqlpool.Pool) are external collaborators;
// the core only depends on this interface.
type NodeHandle interface {
	// ID returns the node identifier this handle was created for.
	ID() NodeID

	// RefreshStatus blocks on a probe against the node's internal pool and
	// updates the cached Status. It returns an error if the node is
	// unreachable or the probe query fails.
	RefreshStatus(ctx context.Context) error

	// Status returns the last-known Status without probing.
	Status() Status

	// GetConnection blocks up to the pool's configured timeout waiting for a
	// slot on the application pool. consistency is opaque to the core and is
	// forwarded to the pool implementation.
	GetConnection(ctx context.Context, consistency string) (Connection, error)

	// OnActivate re-enables the application pool after a period of being
	// down. Idempotent.
	OnActivate()

	// OnDown quiesces the application pool so it stops dispensing new
	// connections. Idempotent.
	OnDown()

	// Shutdown terminates both pools. Idempotent.
	Shutdown() error

	// LogWriter returns the pool's debug log writer, or nil if unset.
	LogWriter() io.Writer

	// SetLogWriter sets the pool's debug log writer.
	SetLogWriter(w io.Writer)
}

// Connection is the minimal handle returned to application code. Concrete
// implementations wrap a *sql.Conn (see mysqlpool) but the core never
// depends on database/sql directly.
type Connection interface {
	Close() error
}
