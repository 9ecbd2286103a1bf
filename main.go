package main

import (
	"fmt"
	"os"

	"ledgerpipe/cmd/export"
	"ledgerpipe/cmd/ingest"
	"ledgerpipe/cmd/quota"
	"ledgerpipe/cmd/reconcile"
	"ledgerpipe/cmd/root"
	"ledgerpipe/cmd/rules"
	synccmd "ledgerpipe/cmd/sync"
)

func init() {
	root.Init()

	root.Cmd.AddCommand(ingest.Cmd)
	root.Cmd.AddCommand(synccmd.Cmd)
	root.Cmd.AddCommand(reconcile.Cmd)
	root.Cmd.AddCommand(quota.Cmd)
	root.Cmd.AddCommand(export.Cmd)
	root.Cmd.AddCommand(rules.Cmd)
}

func main() {
	if err := root.Cmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
