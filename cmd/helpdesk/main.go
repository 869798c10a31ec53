package main

import (
	"os"

	"github.com/arturoeanton/helpdesk-rag/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
