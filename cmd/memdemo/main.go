// memdemo starts a bare pkg/discovery/memberlist instance and prints the
// union of local and gossiped Galera seed lists, useful for exercising the
// seed-bootstrap gossip mesh in isolation from a full router process.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	ml "github.com/despegar/galera-go-client/pkg/discovery/memberlist"
)

func main() {
	var (
		id       = flag.String("id", "node-1", "gossip node id")
		bind     = flag.String("bind", ":7946", "gossip bind host:port")
		advertise = flag.String("advertise", "", "gossip advertise host:port (optional)")
		peersCSV = flag.String("peers", "", "comma-separated gossip peer addresses to join")
		seedsCSV = flag.String("seeds", "", "comma-separated Galera node seeds owned by this process")
	)
	flag.Parse()

	ctx, cancel := signalContext()
	defer cancel()

	d, err := ml.New(ml.Options{
		NodeID:     *id,
		Bind:       *bind,
		Advertise:  *advertise,
		Peers:      splitCSV(*peersCSV),
		LocalSeeds: splitCSV(*seedsCSV),
		Logger:     log.Default(),
	})
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		if closer, ok := d.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
	}()

	fmt.Println("memdemo started. Press Ctrl+C to exit.")
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fmt.Printf("seeds: %v\n", d.Seeds())
		}
	}
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
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
