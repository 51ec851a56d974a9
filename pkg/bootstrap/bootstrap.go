// Package bootstrap assembles a galera.Client from flat configuration, the
// way an application or the galeractl CLI would, mirroring the shape of the
// teacher's own pkg/bootstrap for a Raft cluster node.
package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"time"

	"github.com/despegar/galera-go-client/pkg/discovery"
	dDNS "github.com/despegar/galera-go-client/pkg/discovery/dns"
	dFile "github.com/despegar/galera-go-client/pkg/discovery/file"
	ml "github.com/despegar/galera-go-client/pkg/discovery/memberlist"
	dStatic "github.com/despegar/galera-go-client/pkg/discovery/static"
	"github.com/despegar/galera-go-client/pkg/galera"
	"github.com/despegar/galera-go-client/pkg/mysqlpool"
	tlsx "github.com/despegar/galera-go-client/pkg/security/tlsconfig"
	"github.com/despegar/galera-go-client/pkg/transport"
	mgmtgrpc "github.com/despegar/galera-go-client/pkg/transport/grpc"
	"github.com/despegar/galera-go-client/pkg/transport/httpjson"
)

// Config defines high-level inputs to assemble a running router with
// sensible defaults. Applications embed the router by providing this
// structure and calling Build or Run.
type Config struct {
	// Discovery settings, resolving the initial seed list.
	DiscoveryKind string        // "static" (default), "dns", "file", or "memberlist"
	SeedsCSV      string        // used when DiscoveryKind=static
	DNSNamesCSV   string        // used when kind=dns
	DNSPort       int           // used when kind=dns (A/AAAA)
	DiscRefresh   time.Duration // cache/refresh duration for dns/file discovery
	FilePath      string        // used when kind=file
	FileEnv       string        // used when kind=file

	// Memberlist gossip, used only to bootstrap seed lists between router
	// processes (kind=memberlist); never influences election or health.
	MemNodeID    string
	MemBind      string
	MemAdvertise string
	MemPeersCSV  string

	// MySQL pool settings, forwarded to mysqlpool.Options. DSN is an escape
	// hatch for a hand-built template; when empty, Database/User/Password/
	// DSNPrefix/DSNSeparator assemble one per node.
	DSN                       string
	Database                  string
	User                      string
	Password                  string
	DSNPrefix                 string
	DSNSeparator              string
	IsolationLevel            string
	MaxConnectionsPerHost     int
	MinConnectionsIdlePerHost int
	ConnectTimeout            time.Duration
	ConnectionTimeout         time.Duration
	ReadTimeout               time.Duration
	IdleTimeout               time.Duration
	AutoCommit                bool
	ReadOnly                  bool

	// Membership Manager tuning (galera.Options).
	DiscoverPeriod         time.Duration
	IgnoreDonor            bool
	RetriesToGetConnection int
	ConsistencyLevel       string

	// TestMode suppresses the discovery scheduler and synthesizes healthy
	// status for every seed, bypassing mysqlpool entirely. Intended for
	// integration tests that exercise the management API without a real
	// MySQL cluster.
	TestMode bool

	// Management API (read-only /status), optional: MgmtAddr empty skips it.
	MgmtAddr  string
	MgmtProto string // "http" (default) or "grpc"

	// TLS for the management transport. MySQL wire TLS is configured via
	// the DSN's own tls= parameter, registered separately against
	// go-sql-driver/mysql.
	TLSEnable     bool
	TLSCA         string
	TLSCert       string
	TLSKey        string
	TLSServerName string
	TLSSkipVerify bool

	// DBTLSEnable encrypts the MySQL wire connection using the same
	// certificate material as the management transport above.
	DBTLSEnable bool

	// Logger is used for membership lifecycle events. Defaults to
	// log.Default().
	Logger *log.Logger
}

// Router bundles a running galera.Client with its optional management
// server, so callers have a single handle to shut down.
type Router struct {
	Client *galera.Client
	mgmt   transport.RPCServer
}

// Close shuts down the management server (if any) and the underlying
// galera.Client. Idempotent.
func (r *Router) Close() error {
	if r.mgmt != nil {
		_ = r.mgmt.Stop(context.Background())
	}
	return r.Client.Shutdown()
}

// Build resolves discovery, constructs the galera.Client with a
// mysqlpool-backed NewNodeHandle, and starts it, but does not start the
// management API (see Run).
func Build(ctx context.Context, cfg Config) (*galera.Client, error) {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}

	disc, err := buildDiscovery(cfg)
	if err != nil {
		return nil, err
	}
	seeds := disc.Seeds()
	if len(seeds) == 0 {
		return nil, fmt.Errorf("bootstrap: discovery %q returned no seeds", cfg.DiscoveryKind)
	}
	nodeIDs := make([]galera.NodeID, 0, len(seeds))
	for _, s := range seeds {
		nodeIDs = append(nodeIDs, galera.NodeID(s))
	}

	poolOpts := mysqlpool.Options{
		DSN:                       cfg.DSN,
		Database:                  cfg.Database,
		User:                      cfg.User,
		Password:                  cfg.Password,
		DSNPrefix:                 cfg.DSNPrefix,
		DSNSeparator:              cfg.DSNSeparator,
		IsolationLevel:            cfg.IsolationLevel,
		MaxConnectionsPerHost:     cfg.MaxConnectionsPerHost,
		MinConnectionsIdlePerHost: cfg.MinConnectionsIdlePerHost,
		ConnectTimeout:            cfg.ConnectTimeout,
		ConnectionTimeout:         cfg.ConnectionTimeout,
		ReadTimeout:               cfg.ReadTimeout,
		IdleTimeout:               cfg.IdleTimeout,
		AutoCommit:                cfg.AutoCommit,
		ReadOnly:                  cfg.ReadOnly,
	}
	if cfg.DBTLSEnable {
		topts := tlsx.Options{Enable: true, CAFile: cfg.TLSCA, CertFile: cfg.TLSCert, KeyFile: cfg.TLSKey, InsecureSkipVerify: cfg.TLSSkipVerify, ServerName: cfg.TLSServerName}
		dbTLS, err := topts.Client()
		if err != nil {
			return nil, fmt.Errorf("bootstrap: db tls config: %w", err)
		}
		poolOpts.TLS = dbTLS
	}

	opts := galera.Options{
		Seeds:                  nodeIDs,
		Logger:                 cfg.Logger,
		DiscoverPeriod:         cfg.DiscoverPeriod,
		IgnoreDonor:            cfg.IgnoreDonor,
		RetriesToGetConnection: cfg.RetriesToGetConnection,
		ConsistencyLevel:       cfg.ConsistencyLevel,
		TestMode:               cfg.TestMode,
	}
	if !cfg.TestMode {
		opts.NewNodeHandle = func(node galera.NodeID) (galera.NodeHandle, error) {
			return mysqlpool.New(node, poolOpts)
		}
	}
	return galera.New(ctx, opts)
}

// Run builds a Client and, if MgmtAddr is set, a read-only status server
// alongside it. The caller is responsible for calling Close when finished.
func Run(ctx context.Context, cfg Config) (*Router, error) {
	client, err := Build(ctx, cfg)
	if err != nil {
		return nil, err
	}

	r := &Router{Client: client}
	if cfg.MgmtAddr == "" {
		return r, nil
	}

	var srvTLS *tls.Config
	if cfg.TLSEnable {
		topts := tlsx.Options{Enable: true, CAFile: cfg.TLSCA, CertFile: cfg.TLSCert, KeyFile: cfg.TLSKey, InsecureSkipVerify: cfg.TLSSkipVerify, ServerName: cfg.TLSServerName}
		s, err := topts.ServerHotReload()
		if err != nil {
			return nil, fmt.Errorf("bootstrap: tls server config: %w", err)
		}
		srvTLS = s
	}

	var srv transport.RPCServer
	switch cfg.MgmtProto {
	case "grpc":
		s := mgmtgrpc.NewServer(cfg.MgmtAddr)
		if srvTLS != nil {
			s.UseTLS(srvTLS)
		}
		srv = s
	default:
		s := httpjson.NewServer(cfg.MgmtAddr, cfg.Logger)
		if srvTLS != nil {
			s.UseTLS(srvTLS)
		}
		srv = s
	}

	if err := srv.Start(ctx, statusFunc(client)); err != nil {
		_ = client.Shutdown()
		return nil, err
	}
	r.mgmt = srv
	return r, nil
}

func buildDiscovery(cfg Config) (discovery.Discovery, error) {
	switch cfg.DiscoveryKind {
	case "dns":
		names := dStatic.Parse(cfg.DNSNamesCSV)
		dopts := dDNS.Options{Names: names, Port: cfg.DNSPort, Logger: cfg.Logger}
		if cfg.DiscRefresh > 0 {
			dopts.Refresh = cfg.DiscRefresh
		}
		return dDNS.New(dopts), nil
	case "file":
		fopts := dFile.Options{Path: cfg.FilePath, Env: cfg.FileEnv}
		if cfg.DiscRefresh > 0 {
			fopts.Refresh = cfg.DiscRefresh
		}
		return dFile.New(fopts), nil
	case "memberlist":
		localSeeds := dStatic.Parse(cfg.SeedsCSV)
		peers := dStatic.Parse(cfg.MemPeersCSV)
		return ml.New(ml.Options{
			NodeID:     cfg.MemNodeID,
			Bind:       cfg.MemBind,
			Advertise:  cfg.MemAdvertise,
			Peers:      peers,
			LocalSeeds: localSeeds,
			Logger:     cfg.Logger,
		})
	default:
		seeds := dStatic.Parse(cfg.SeedsCSV)
		return dStatic.New(seeds...), nil
	}
}
