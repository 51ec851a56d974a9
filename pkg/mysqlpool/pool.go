// Package mysqlpool is the shipped default galera.NodeHandle: two
// database/sql pools per node (application traffic, internal status
// queries) backed by github.com/go-sql-driver/mysql. spec.md §1 scopes the
// physical pool and SQL driver out of the router core as interfaces; this
// package is the concrete default, the way the teacher ships
// pkg/membership/memberlist as the default Membership behind its own
// interface.
package mysqlpool

import (
	"context"
	"crypto/tls"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"

	"github.com/despegar/galera-go-client/pkg/galera"
)

// Options configures a Pool. DSN, if set, is a github.com/go-sql-driver/mysql
// data source name with a "%s" placeholder for the node's host:port — an
// escape hatch for callers who need a hand-built DSN. When DSN is empty, the
// pool builds one per node from Database/User/Password/DSNPrefix/
// DSNSeparator, mirroring original_source's Builder fields
// (database/user/password/jdbcUrlPrefix/jdbcUrlSeparator): the equivalent of
// a JDBC URL's "prefix://host:port<separator>database" shape, translated to
// go-sql-driver/mysql's "user:pass@prefixtcp(host:port)separatordatabase".
type Options struct {
	DSN string

	// Discrete credential/target fields used to build the per-node DSN when
	// DSN is empty.
	Database       string
	User           string
	Password       string
	DSNPrefix      string // e.g. "" or a custom net prefix before "tcp(host)"
	DSNSeparator   string // separator between the host segment and Database; defaults to "/"
	IsolationLevel string // e.g. "READ COMMITTED", "REPEATABLE READ"; empty leaves the server default

	// Application pool sizing (spec.md §6). ConnectTimeout bounds dialing a
	// new MySQL connection (applied via the driver's DSN timeout= param and
	// used directly for the internal status probe). ConnectionTimeout is the
	// separate pool-borrow budget spec.md's "Pool borrow budget" names:
	// GetConnection blocks up to ConnectionTimeout waiting for a free slot
	// in the app pool before failing with ErrConnectionTimeout, without
	// re-electing another node. ReadTimeout is applied via the driver's DSN
	// readTimeout= param (a per-read-operation network deadline the driver
	// itself enforces, distinct from ConnectionTimeout's pool-borrow wait).
	MaxConnectionsPerHost     int
	MinConnectionsIdlePerHost int
	ConnectTimeout            time.Duration
	ConnectionTimeout         time.Duration
	ReadTimeout               time.Duration
	IdleTimeout               time.Duration
	AutoCommit                bool
	ReadOnly                  bool

	// InternalMaxOpen/InternalMaxIdle size the status-probe pool; zero values
	// fall back to 8 max / 4 idle. The status-probe pool is opened with the
	// same DSN as the application pool and is not set read-only.
	InternalMaxOpen int
	InternalMaxIdle int

	// TLS, when non-nil, encrypts the MySQL wire connection. It is
	// registered with the driver under a name derived from the node id, so
	// distinct nodes (and distinct Pool instances in tests) never collide.
	TLS *tls.Config
}

func (o *Options) setDefaults() {
	if o.MaxConnectionsPerHost <= 0 {
		o.MaxConnectionsPerHost = 20
	}
	if o.MinConnectionsIdlePerHost <= 0 {
		o.MinConnectionsIdlePerHost = 5
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 5 * time.Second
	}
	if o.ConnectionTimeout <= 0 {
		o.ConnectionTimeout = 5 * time.Second
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = 5 * time.Minute
	}
	if o.InternalMaxOpen <= 0 {
		o.InternalMaxOpen = 8
	}
	if o.InternalMaxIdle <= 0 {
		o.InternalMaxIdle = 4
	}
	if o.DSNSeparator == "" {
		o.DSNSeparator = "/"
	}
}

// dsnTemplate returns the "%s"-templated DSN used to build each node's
// connection string: either the caller-supplied override, or one assembled
// from the discrete Database/User/Password/DSNPrefix/DSNSeparator fields.
func (o *Options) dsnTemplate() string {
	if o.DSN != "" {
		return o.DSN
	}
	return fmt.Sprintf("%s:%s@%stcp(%%s)%s%s", o.User, o.Password, o.DSNPrefix, o.DSNSeparator, o.Database)
}

// Pool implements galera.NodeHandle against one MySQL node.
type Pool struct {
	node galera.NodeID
	opts Options

	app      *sql.DB
	internal *sql.DB
	probe    *Probe

	statusMu sync.RWMutex
	status   galera.Status

	down atomic.Bool

	logMu     sync.RWMutex
	logWriter io.Writer
}

// New opens both pools for node and returns a Pool. It matches the
// signature expected by galera.Options.NewNodeHandle once bound to a fixed
// Options via a closure (see pkg/bootstrap's Build).
func New(node galera.NodeID, opts Options) (*Pool, error) {
	opts.setDefaults()
	tmpl := opts.dsnTemplate()

	params := []string{"timeout=" + opts.ConnectTimeout.String()}
	if opts.ReadTimeout > 0 {
		params = append(params, "readTimeout="+opts.ReadTimeout.String())
	}
	if opts.TLS != nil {
		tlsName := "galera-" + string(node)
		if err := mysqldriver.RegisterTLSConfig(tlsName, opts.TLS); err != nil {
			return nil, fmt.Errorf("mysqlpool: register tls config for %s: %w", node, err)
		}
		params = append(params, "tls="+tlsName)
	}
	dsnSuffix := dsnQueryParams(tmpl, params)

	appDSN := fmt.Sprintf(tmpl, string(node)) + dsnSuffix
	app, err := sql.Open("mysql", appDSN)
	if err != nil {
		return nil, fmt.Errorf("mysqlpool: open app pool for %s: %w", node, err)
	}
	app.SetMaxOpenConns(opts.MaxConnectionsPerHost)
	app.SetMaxIdleConns(opts.MinConnectionsIdlePerHost)
	app.SetConnMaxIdleTime(opts.IdleTimeout)

	internalDSN := fmt.Sprintf(tmpl, string(node)) + dsnSuffix
	internal, err := sql.Open("mysql", internalDSN)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("mysqlpool: open internal pool for %s: %w", node, err)
	}
	internal.SetMaxOpenConns(opts.InternalMaxOpen)
	internal.SetMaxIdleConns(opts.InternalMaxIdle)

	p := &Pool{node: node, opts: opts, app: app, internal: internal}
	p.probe = &Probe{db: internal}
	return p, nil
}

func (p *Pool) ID() galera.NodeID { return p.node }

// RefreshStatus queries wsrep status through the internal pool and caches
// the result for the next Status() call.
func (p *Pool) RefreshStatus(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.opts.ConnectTimeout)
	defer cancel()
	st, err := p.probe.Probe(ctx, p.node)
	if err != nil {
		return err
	}
	p.statusMu.Lock()
	p.status = st
	p.statusMu.Unlock()
	return nil
}

func (p *Pool) Status() galera.Status {
	p.statusMu.RLock()
	defer p.statusMu.RUnlock()
	return p.status
}

// GetConnection borrows a *sql.Conn from the app pool, waiting up to
// Options.ConnectionTimeout for a free slot before returning
// ErrConnectionTimeout — a plain connection error the Client does not
// catch to re-elect another node (spec.md's pool borrow budget).
// consistency, if non-empty, is translated into a session-scoped
// wsrep_sync_wait directive before the connection is handed back,
// implementing spec.md §4.2's opaque per-request consistency hint.
func (p *Pool) GetConnection(ctx context.Context, consistency string) (galera.Connection, error) {
	if p.down.Load() {
		return nil, errDowned
	}
	borrowCtx, cancel := context.WithTimeout(ctx, p.opts.ConnectionTimeout)
	defer cancel()
	conn, err := p.app.Conn(borrowCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("mysqlpool: %s: %w", p.node, ErrConnectionTimeout)
		}
		return nil, fmt.Errorf("mysqlpool: acquire connection from %s: %w", p.node, err)
	}
	if wait, ok := wsrepSyncWait(consistency); ok {
		if _, err := conn.ExecContext(ctx, fmt.Sprintf("SET SESSION wsrep_sync_wait = %d", wait)); err != nil {
			conn.Close()
			return nil, fmt.Errorf("mysqlpool: set wsrep_sync_wait on %s: %w", p.node, err)
		}
	}
	if !p.opts.AutoCommit {
		if _, err := conn.ExecContext(ctx, "SET SESSION autocommit = 0"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("mysqlpool: set autocommit on %s: %w", p.node, err)
		}
	}
	if p.opts.IsolationLevel != "" {
		stmt := fmt.Sprintf("SET SESSION TRANSACTION ISOLATION LEVEL %s", p.opts.IsolationLevel)
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			conn.Close()
			return nil, fmt.Errorf("mysqlpool: set isolation level on %s: %w", p.node, err)
		}
	}
	if p.opts.ReadOnly {
		if _, err := conn.ExecContext(ctx, "SET SESSION TRANSACTION READ ONLY"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("mysqlpool: set read only on %s: %w", p.node, err)
		}
	}
	return &connection{c: conn}, nil
}

// OnActivate clears the quiesce flag so GetConnection dispenses connections
// again.
func (p *Pool) OnActivate() { p.down.Store(false) }

// OnDown sets the quiesce flag. Mutating pool limits (e.g. SetMaxOpenConns(0))
// mid-flight is unsafe with database/sql's connection reaper, so quiescing
// is a guarded flag checked in GetConnection instead.
func (p *Pool) OnDown() { p.down.Store(true) }

func (p *Pool) Shutdown() error {
	appErr := p.app.Close()
	internalErr := p.internal.Close()
	if appErr != nil {
		return appErr
	}
	return internalErr
}

// LogWriter returns this node's debug log writer, or nil if unset.
func (p *Pool) LogWriter() io.Writer {
	p.logMu.RLock()
	defer p.logMu.RUnlock()
	return p.logWriter
}

// SetLogWriter sets this node's debug log writer.
func (p *Pool) SetLogWriter(w io.Writer) {
	p.logMu.Lock()
	p.logWriter = w
	p.logMu.Unlock()
}

type connection struct{ c *sql.Conn }

func (c *connection) Close() error { return c.c.Close() }

// dsnQueryParams joins params onto dsn's query string, using "?" or "&"
// depending on whether dsn already carries one, so options like readTimeout
// and tls can be layered onto a DSN template the caller doesn't control the
// shape of. Returns "" if params is empty.
func dsnQueryParams(dsn string, params []string) string {
	if len(params) == 0 {
		return ""
	}
	sep := "?"
	for i := 0; i < len(dsn); i++ {
		if dsn[i] == '?' {
			sep = "&"
			break
		}
	}
	out := sep + params[0]
	for _, p := range params[1:] {
		out += "&" + p
	}
	return out
}

// wsrepSyncWait maps an opaque consistency directive onto the bitmask
// values wsrep_sync_wait accepts (READ:1, UPDATE:2, INSERT/REPLACE:4,
// ALL:7). Empty or unrecognized consistency levels leave the session
// default untouched.
func wsrepSyncWait(consistency string) (int, bool) {
	switch consistency {
	case "":
		return 0, false
	case "read":
		return 1, true
	case "write":
		return 6, true
	case "strict":
		return 7, true
	default:
		return 0, false
	}
}
