// Package cli exposes cobra subcommands for running a router process and
// querying its status, wrapping pkg/bootstrap the way the teacher's own CLI
// wraps its cluster bootstrap.
package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/despegar/galera-go-client/pkg/bootstrap"
	tracing "github.com/despegar/galera-go-client/pkg/observability/tracing"
	httpjson "github.com/despegar/galera-go-client/pkg/transport/httpjson"
)

// AddAll attaches the router subcommands (run/status) to the provided root
// command.
func AddAll(root *cobra.Command) {
	root.AddCommand(NewRunCmd())
	root.AddCommand(NewStatusCmd())
}

// NewRouterCommand returns a parent command "router" containing run/status
// as subcommands, for embedding into a larger CLI.
func NewRouterCommand() *cobra.Command {
	parent := &cobra.Command{Use: "router", Short: "galera router commands"}
	parent.AddCommand(NewRunCmd())
	parent.AddCommand(NewStatusCmd())
	return parent
}

// NewRunCmd returns the "run" command used to start a router process.
func NewRunCmd() *cobra.Command {
	var (
		dsn, discoveryKind, seedsCSV, dnsNames, filePath, fileEnv string
		database, dbUser, dbPassword, dsnPrefix, dsnSeparator     string
		isolationLevel                                            string
		memNodeID, memBind, memAdvertise, memPeersCSV             string
		mgmtAddr, mgmtProto                                       string
		dnsPort                                                   int
		discRefresh, discoverPeriod                               time.Duration
		connectTimeout, connectionTimeout, readTimeout, idleTimeout time.Duration
		maxConns, minIdle, retries                                int
		autoCommit, readOnly, ignoreDonor, traceEnable            bool
		consistency                                               string
		tlsEnable, tlsSkip, dbTLSEnable                            bool
		tlsCA, tlsCert, tlsKey, tlsServerName                      string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a galera router process",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dsn == "" && dbUser == "" {
				return fmt.Errorf("missing --dsn or --db-user/--database")
			}
			ctx, cancel := signalContext()
			defer cancel()

			if traceEnable {
				shutdown, err := tracing.Setup(true)
				if err != nil {
					log.Printf("tracing setup error: %v", err)
				} else {
					defer func() { _ = shutdown(context.Background()) }()
				}
			}

			cfg := bootstrap.Config{
				DiscoveryKind:             discoveryKind,
				SeedsCSV:                  seedsCSV,
				DNSNamesCSV:               dnsNames,
				DNSPort:                   dnsPort,
				DiscRefresh:               discRefresh,
				FilePath:                  filePath,
				FileEnv:                   fileEnv,
				MemNodeID:                 memNodeID,
				MemBind:                   memBind,
				MemAdvertise:              memAdvertise,
				MemPeersCSV:               memPeersCSV,
				DSN:                       dsn,
				Database:                  database,
				User:                      dbUser,
				Password:                  dbPassword,
				DSNPrefix:                 dsnPrefix,
				DSNSeparator:              dsnSeparator,
				IsolationLevel:            isolationLevel,
				MaxConnectionsPerHost:     maxConns,
				MinConnectionsIdlePerHost: minIdle,
				ConnectTimeout:            connectTimeout,
				ConnectionTimeout:         connectionTimeout,
				ReadTimeout:               readTimeout,
				IdleTimeout:               idleTimeout,
				AutoCommit:                autoCommit,
				ReadOnly:                  readOnly,
				DiscoverPeriod:            discoverPeriod,
				IgnoreDonor:               ignoreDonor,
				RetriesToGetConnection:    retries,
				ConsistencyLevel:          consistency,
				MgmtAddr:                  mgmtAddr,
				MgmtProto:                 mgmtProto,
				DBTLSEnable:               dbTLSEnable,
				TLSEnable:                 tlsEnable,
				TLSCA:                     tlsCA,
				TLSCert:                   tlsCert,
				TLSKey:                    tlsKey,
				TLSServerName:             tlsServerName,
				TLSSkipVerify:             tlsSkip,
				Logger:                    log.Default(),
			}
			router, err := bootstrap.Run(ctx, cfg)
			if err != nil {
				return err
			}
			defer router.Close()

			fmt.Println("router running. Press Ctrl+C to exit.")
			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().StringVar(&dsn, "dsn", "", "MySQL DSN with a %s placeholder for the node host:port; overrides --database/--db-user/--db-password when set")
	cmd.Flags().StringVar(&database, "database", "", "database name — used to build the DSN when --dsn is unset")
	cmd.Flags().StringVar(&dbUser, "db-user", "", "MySQL user — used to build the DSN when --dsn is unset")
	cmd.Flags().StringVar(&dbPassword, "db-password", "", "MySQL password — used to build the DSN when --dsn is unset")
	cmd.Flags().StringVar(&dsnPrefix, "dsn-prefix", "", "prefix inserted before tcp(host:port) in the built DSN, e.g. a custom net protocol")
	cmd.Flags().StringVar(&dsnSeparator, "dsn-separator", "/", "separator between the host segment and database name in the built DSN")
	cmd.Flags().StringVar(&isolationLevel, "isolation-level", "", "session transaction isolation level, e.g. \"READ COMMITTED\", \"REPEATABLE READ\"")
	cmd.Flags().StringVar(&discoveryKind, "discovery", "static", "discovery backend: static|dns|file|memberlist")
	cmd.Flags().StringVar(&seedsCSV, "seeds", "", "comma-separated seed nodes (host:port) — used by discovery=static or memberlist")
	cmd.Flags().StringVar(&dnsNames, "dns-names", "", "comma-separated DNS names or SRV records — used by discovery=dns")
	cmd.Flags().IntVar(&dnsPort, "dns-port", 3306, "port used for A/AAAA lookups")
	cmd.Flags().DurationVar(&discRefresh, "disc-refresh", 5*time.Second, "discovery refresh/cache duration")
	cmd.Flags().StringVar(&filePath, "file-path", "", "path to a file with seeds (one per line or CSV) — used by discovery=file")
	cmd.Flags().StringVar(&fileEnv, "file-env", "", "ENV var name containing CSV seeds; overrides file when set")
	cmd.Flags().StringVar(&memNodeID, "mem-node-id", "", "this process's id in the seed-gossip mesh — used by discovery=memberlist")
	cmd.Flags().StringVar(&memBind, "mem-bind", ":7946", "seed-gossip bind addr (host:port)")
	cmd.Flags().StringVar(&memAdvertise, "mem-advertise", "", "seed-gossip advertise addr (host:port, optional)")
	cmd.Flags().StringVar(&memPeersCSV, "mem-peers", "", "comma-separated seed-gossip peer addresses to join")
	cmd.Flags().IntVar(&maxConns, "max-conns-per-host", 20, "max application connections per node")
	cmd.Flags().IntVar(&minIdle, "min-idle-per-host", 5, "min idle application connections per node")
	cmd.Flags().DurationVar(&connectTimeout, "connect-timeout", 5*time.Second, "MySQL connect timeout")
	cmd.Flags().DurationVar(&connectionTimeout, "connection-timeout", 5*time.Second, "pool borrow budget: how long GetConnection waits for a free pool slot before failing")
	cmd.Flags().DurationVar(&readTimeout, "read-timeout", 0, "MySQL read timeout (0 = driver default)")
	cmd.Flags().DurationVar(&idleTimeout, "idle-timeout", 5*time.Minute, "idle connection eviction timeout")
	cmd.Flags().BoolVar(&autoCommit, "autocommit", true, "enable autocommit on application connections")
	cmd.Flags().BoolVar(&readOnly, "read-only", false, "mark application connections read-only")
	cmd.Flags().DurationVar(&discoverPeriod, "discover-period", 30*time.Second, "interval between discovery ticks")
	cmd.Flags().BoolVar(&ignoreDonor, "ignore-donor", true, "keep unsynced donor-state nodes out of the active set (matches original_source's Builder default)")
	cmd.Flags().IntVar(&retries, "retries", 3, "election retry attempts before ErrNoHostAvailable")
	cmd.Flags().StringVar(&consistency, "consistency", "", "default per-request consistency directive (empty|read|write|strict)")
	cmd.Flags().StringVar(&mgmtAddr, "mgmt-addr", "", "management address (host:port); empty disables the status API")
	cmd.Flags().StringVar(&mgmtProto, "mgmt-proto", "http", "management RPC protocol: http|grpc")
	cmd.Flags().BoolVar(&tlsEnable, "tls-enable", false, "enable mTLS for management transport")
	cmd.Flags().StringVar(&tlsCA, "tls-ca", "", "path to CA cert (PEM)")
	cmd.Flags().StringVar(&tlsCert, "tls-cert", "", "path to node certificate (PEM)")
	cmd.Flags().StringVar(&tlsKey, "tls-key", "", "path to node private key (PEM)")
	cmd.Flags().BoolVar(&tlsSkip, "tls-skip-verify", false, "skip server cert verification (DEV ONLY)")
	cmd.Flags().BoolVar(&dbTLSEnable, "db-tls-enable", false, "encrypt the MySQL wire connection using the --tls-* certificate material")
	cmd.Flags().StringVar(&tlsServerName, "tls-server-name", "", "expected server name (for TLS validation)")
	cmd.Flags().BoolVar(&traceEnable, "trace", false, "enable OpenTelemetry stdout tracing (dev)")
	return cmd
}

// NewStatusCmd returns the "status" command, querying a running router's
// management /status endpoint over plain HTTP.
func NewStatusCmd() *cobra.Command {
	var (
		addr    string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Fetch a router's active/downed node status as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			client := httpjson.NewClient(timeout)
			data, err := client.GetStatus(ctx, addr)
			if err != nil {
				return fmt.Errorf("status error: %w", err)
			}
			os.Stdout.Write(data)
			if len(data) == 0 || data[len(data)-1] != '\n' {
				os.Stdout.Write([]byte("\n"))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:17946", "management HTTP address of a router (host:port)")
	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Second, "request timeout")
	return cmd
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		cancel()
	}()
	return ctx, cancel
}
