package galera

import (
	"log"

	"github.com/despegar/galera-go-client/pkg/internal/logutil"
)

// Listener receives synchronous notifications of membership state
// transitions. Implementations must not block: they are called directly
// from the discovery goroutine, and a slow listener stalls the next tick.
type Listener interface {
	OnActivatingNode(node NodeID)
	OnMarkingNodeAsDown(node NodeID, cause string)
	OnRemovingNode(node NodeID)
}

// LoggingListener is the default Listener, logging transitions through
// pkg/internal/logutil. It mirrors original_source's
// GaleraClientLoggingListener.
type LoggingListener struct {
	Logger *log.Logger
}

// NewLoggingListener returns a LoggingListener writing through l. A nil l
// falls back to log.Default() at call time.
func NewLoggingListener(l *log.Logger) *LoggingListener {
	return &LoggingListener{Logger: l}
}

func (ll *LoggingListener) OnActivatingNode(node NodeID) {
	logutil.Infof(ll.Logger, "activating node: %s", node)
}

func (ll *LoggingListener) OnMarkingNodeAsDown(node NodeID, cause string) {
	logutil.Warnf(ll.Logger, "marking node as down: %s (%s)", node, cause)
}

func (ll *LoggingListener) OnRemovingNode(node NodeID) {
	logutil.Infof(ll.Logger, "removing node: %s", node)
}

var _ Listener = (*LoggingListener)(nil)
