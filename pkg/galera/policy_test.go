package galera

import (
	"errors"
	"testing"
)

func TestRoundRobinPolicyCyclesInOrder(t *testing.T) {
	p := NewRoundRobinPolicy()
	active := []NodeID{"a", "b", "c"}
	want := []NodeID{"a", "b", "c", "a", "b"}
	for i, w := range want {
		got, err := p.ChooseNode(active)
		if err != nil {
			t.Fatalf("ChooseNode[%d]: %v", i, err)
		}
		if got != w {
			t.Fatalf("ChooseNode[%d] = %s, want %s", i, got, w)
		}
	}
}

func TestRoundRobinPolicyEmptyActiveSet(t *testing.T) {
	p := NewRoundRobinPolicy()
	_, err := p.ChooseNode(nil)
	if !errors.Is(err, ErrEmptyActiveSet) {
		t.Fatalf("expected ErrEmptyActiveSet, got %v", err)
	}
}

func TestRandomPolicyEmptyActiveSet(t *testing.T) {
	var p RandomPolicy
	_, err := p.ChooseNode(nil)
	if !errors.Is(err, ErrEmptyActiveSet) {
		t.Fatalf("expected ErrEmptyActiveSet, got %v", err)
	}
}

func TestRandomPolicyReturnsMember(t *testing.T) {
	var p RandomPolicy
	active := []NodeID{"a", "b", "c"}
	got, err := p.ChooseNode(active)
	if err != nil {
		t.Fatalf("ChooseNode: %v", err)
	}
	if !contains(active, got) {
		t.Fatalf("ChooseNode returned %s not in active set", got)
	}
}
