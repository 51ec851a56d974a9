package metrics

import (
    "sync"

    "github.com/prometheus/client_golang/prometheus"
)

var (
    once sync.Once

    ActiveNodes = prometheus.NewGauge(prometheus.GaugeOpts{
        Namespace: "galera_router",
        Name:      "active_nodes",
        Help:      "Current number of nodes in the active set",
    })

    DownedNodes = prometheus.NewGauge(prometheus.GaugeOpts{
        Namespace: "galera_router",
        Name:      "downed_nodes",
        Help:      "Current number of nodes in the downed set",
    })

    DiscoveryTickDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
        Namespace: "galera_router",
        Name:      "discovery_tick_seconds",
        Help:      "Duration of a full discovery pass (active phase plus downed phase)",
        Buckets:   prometheus.DefBuckets,
    })

    ProbeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
        Namespace: "galera_router",
        Name:      "probe_seconds",
        Help:      "Duration of a single node status probe",
        Buckets:   prometheus.DefBuckets,
    })

    ActivateEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
        Namespace: "galera_router",
        Name:      "activate_events_total",
        Help:      "Total number of node activations",
    }, []string{"node"})

    DownEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
        Namespace: "galera_router",
        Name:      "down_events_total",
        Help:      "Total number of node down transitions",
    }, []string{"node"})

    RemoveEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
        Namespace: "galera_router",
        Name:      "remove_events_total",
        Help:      "Total number of node removals",
    }, []string{"node"})

    ElectionRetries = prometheus.NewCounter(prometheus.CounterOpts{
        Namespace: "galera_router",
        Name:      "election_retries_total",
        Help:      "Total number of election retry attempts",
    })

    NoHostAvailable = prometheus.NewCounter(prometheus.CounterOpts{
        Namespace: "galera_router",
        Name:      "no_host_available_total",
        Help:      "Total number of times the election loop exhausted its retry budget",
    })

    // GRPCConn* instrument the admin transport's connection cache
    // (pkg/transport/grpc), unchanged in shape from the teacher.
    GRPCConnDials = prometheus.NewCounter(prometheus.CounterOpts{
        Namespace: "galera_router",
        Subsystem: "grpc_conn",
        Name:      "dials_total",
        Help:      "Total number of new gRPC connections dialed",
    })
    GRPCConnReuse = prometheus.NewCounter(prometheus.CounterOpts{
        Namespace: "galera_router",
        Subsystem: "grpc_conn",
        Name:      "reuse_total",
        Help:      "Total number of gRPC connection reuses from cache",
    })
    GRPCConnEvictions = prometheus.NewCounter(prometheus.CounterOpts{
        Namespace: "galera_router",
        Subsystem: "grpc_conn",
        Name:      "evictions_total",
        Help:      "Total number of cached gRPC connections evicted",
    })
    GRPCConnActive = prometheus.NewGauge(prometheus.GaugeOpts{
        Namespace: "galera_router",
        Subsystem: "grpc_conn",
        Name:      "active",
        Help:      "Number of active cached gRPC connections",
    })
)

// Register registers metrics into the default Prometheus registry (idempotent).
func Register() {
    once.Do(func() {
        prometheus.MustRegister(ActiveNodes)
        prometheus.MustRegister(DownedNodes)
        prometheus.MustRegister(DiscoveryTickDuration)
        prometheus.MustRegister(ProbeDuration)
        prometheus.MustRegister(ActivateEvents)
        prometheus.MustRegister(DownEvents)
        prometheus.MustRegister(RemoveEvents)
        prometheus.MustRegister(ElectionRetries)
        prometheus.MustRegister(NoHostAvailable)
        prometheus.MustRegister(GRPCConnDials)
        prometheus.MustRegister(GRPCConnReuse)
        prometheus.MustRegister(GRPCConnEvictions)
        prometheus.MustRegister(GRPCConnActive)
    })
}
