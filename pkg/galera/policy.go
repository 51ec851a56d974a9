package galera

import (
	"math/rand"
	"sync/atomic"
)

// ElectionPolicy maps the current active-node snapshot to one chosen NodeID.
// Implementations must be side-effect-free with respect to membership state
// and must fail when the active set is empty (interpreted by the Client as
// a retryable condition).
type ElectionPolicy interface {
	Name() string
	ChooseNode(active []NodeID) (NodeID, error)
}

// RoundRobinPolicy cycles through the active snapshot in order. It is the
// default policy, matching original_source's Builder default
// (new RoundRobinPolicy()).
type RoundRobinPolicy struct {
	cursor uint64
}

// NewRoundRobinPolicy returns a fresh round-robin policy starting at index 0.
func NewRoundRobinPolicy() *RoundRobinPolicy { return &RoundRobinPolicy{} }

func (p *RoundRobinPolicy) Name() string { return "round-robin" }

func (p *RoundRobinPolicy) ChooseNode(active []NodeID) (NodeID, error) {
	if len(active) == 0 {
		return "", ErrEmptyActiveSet
	}
	i := atomic.AddUint64(&p.cursor, 1) - 1
	return active[i%uint64(len(active))], nil
}

// RandomPolicy picks a uniformly random node from the active snapshot.
type RandomPolicy struct{}

func (RandomPolicy) Name() string { return "random" }

func (RandomPolicy) ChooseNode(active []NodeID) (NodeID, error) {
	if len(active) == 0 {
		return "", ErrEmptyActiveSet
	}
	return active[rand.Intn(len(active))], nil
}
