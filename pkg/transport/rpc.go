package transport

import "context"

// StatusFunc returns a JSON-encoded status payload describing the router's
// current active/downed sets, for the management /status endpoint. Using
// []byte avoids an import cycle on galera types.
type StatusFunc func(ctx context.Context) ([]byte, error)

// RPCServer exposes a read-only status endpoint for intra-fleet inspection.
// This is an operator convenience, not part of the routing path: Galera
// cluster membership is sourced from wsrep state, never from peer routers.
type RPCServer interface {
	Start(ctx context.Context, status StatusFunc) error
	Addr() string
	Stop(ctx context.Context) error
}

// RPCClient performs a status call to another router instance using the
// chosen management protocol (HTTP/JSON or gRPC JSON codec).
type RPCClient interface {
	GetStatus(ctx context.Context, addr string) ([]byte, error)
}
