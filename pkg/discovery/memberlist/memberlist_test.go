package memberlist

import (
	"log"
	"net"
	"strconv"
	"testing"
	"time"
)

func freePort(t *testing.T) int {
	t.Helper()
	a, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("freePort: %v", err)
	}
	defer a.Close()
	return a.LocalAddr().(*net.UDPAddr).Port
}

func TestParsePort(t *testing.T) {
	if p, err := parsePort("7946"); err != nil || p != 7946 {
		t.Fatalf("parsePort(7946) = (%d, %v)", p, err)
	}
	if _, err := parsePort("not-a-port"); err == nil {
		t.Fatalf("expected error for non-numeric port")
	}
	if _, err := parsePort("99999"); err == nil {
		t.Fatalf("expected error for out-of-range port")
	}
}

func TestSeedsUnionsLocalOnlyWhenNoPeers(t *testing.T) {
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(freePort(t)))
	d, err := New(Options{
		NodeID:        "r1",
		Bind:          addr,
		LocalSeeds:    []string{"db1:3306", "db2:3306"},
		Logger:        log.Default(),
		ProbeInterval: 50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.(*impl).Close()

	got := d.Seeds()
	want := []string{"db1:3306", "db2:3306"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("Seeds() = %v, want %v", got, want)
	}
}

func TestSeedsUnionAcrossGossipedPeers(t *testing.T) {
	addr1 := net.JoinHostPort("127.0.0.1", strconv.Itoa(freePort(t)))
	r1, err := New(Options{
		NodeID:        "r1",
		Bind:          addr1,
		LocalSeeds:    []string{"db1:3306"},
		Logger:        log.Default(),
		ProbeInterval: 50 * time.Millisecond,
		SuspicionMult: 2,
	})
	if err != nil {
		t.Fatalf("new r1: %v", err)
	}
	defer r1.(*impl).Close()

	addr2 := net.JoinHostPort("127.0.0.1", strconv.Itoa(freePort(t)))
	r2, err := New(Options{
		NodeID:        "r2",
		Bind:          addr2,
		Peers:         []string{addr1},
		LocalSeeds:    []string{"db2:3306"},
		Logger:        log.Default(),
		ProbeInterval: 50 * time.Millisecond,
		SuspicionMult: 2,
	})
	if err != nil {
		t.Fatalf("new r2: %v", err)
	}
	defer r2.(*impl).Close()

	deadline := time.Now().Add(5 * time.Second)
	for {
		got := r2.Seeds()
		if len(got) == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for gossiped union, last=%v", got)
		}
		time.Sleep(100 * time.Millisecond)
	}
}
