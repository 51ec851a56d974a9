//go:build integration

// Package integration exercises pkg/bootstrap end to end: a TestMode router
// (synthetic healthy status, no real MySQL) serving its management /status
// endpoint over HTTP, and a client obtaining connections through it.
package integration

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/despegar/galera-go-client/pkg/bootstrap"
	httpjson "github.com/despegar/galera-go-client/pkg/transport/httpjson"
)

type statusPayload struct {
	Active []nodeEntry `json:"active"`
	Downed []nodeEntry `json:"downed"`
}

type nodeEntry struct {
	ID      string `json:"id"`
	State   string `json:"state"`
	Primary bool   `json:"primary"`
	Synced  bool   `json:"synced"`
}

func TestRouterStatusEndpointReportsActiveSeeds(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	const mgmtAddr = "127.0.0.1:18946"
	router, err := bootstrap.Run(ctx, bootstrap.Config{
		DiscoveryKind: "static",
		SeedsCSV:      "n1:3306,n2:3306,n3:3306",
		MgmtAddr:      mgmtAddr,
		TestMode:      true,
	})
	if err != nil {
		t.Fatalf("bootstrap.Run: %v", err)
	}
	defer router.Close()

	cli := httpjson.NewClient(2 * time.Second)
	var payload statusPayload
	deadline := time.Now().Add(3 * time.Second)
	for {
		data, err := cli.GetStatus(ctx, mgmtAddr)
		if err == nil {
			if uerr := json.Unmarshal(data, &payload); uerr != nil {
				t.Fatalf("unmarshal status: %v", uerr)
			}
			if len(payload.Active) == 3 {
				break
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("status endpoint did not converge: last err=%v payload=%+v", err, payload)
		}
		time.Sleep(50 * time.Millisecond)
	}

	for _, n := range payload.Active {
		if !n.Primary || !n.Synced {
			t.Errorf("node %s expected primary+synced in TestMode, got %+v", n.ID, n)
		}
	}

	conn, err := router.Client.GetConnection(ctx)
	if err != nil {
		t.Fatalf("GetConnection: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Errorf("Connection.Close: %v", err)
	}
}
