package main

import (
	"os"

	"github.com/tracelight-labs/tracelight/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
