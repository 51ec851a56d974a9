package mysqlpool

import "errors"

// errDowned is returned by GetConnection while OnDown has quiesced the pool.
var errDowned = errors.New("mysqlpool: pool is quiesced")

// ErrConnectionTimeout is returned by GetConnection when no pool slot frees
// up within Options.ConnectionTimeout. spec.md's pool borrow budget treats
// this as a plain connection error at the NodeHandle boundary: the Client
// does not catch it and re-elect another node.
var ErrConnectionTimeout = errors.New("mysqlpool: timed out waiting for a pool connection")
