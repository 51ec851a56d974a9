package main

import (
	"log"

	"github.com/spf13/cobra"

	routercli "github.com/despegar/galera-go-client/pkg/cli"
)

func main() {
	if err := newRoot().Execute(); err != nil {
		log.Fatal(err)
	}
}

func newRoot() *cobra.Command {
	root := &cobra.Command{
		Use:           "galeractl",
		Short:         "galera-go-client router CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	routercli.AddAll(root)
	return root
}
