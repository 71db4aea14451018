// Package main checks player health and exits non-zero when it is not serving.
package main

import (
	"context"
	"flag"
	"os"

	probecmd "github.com/louisbranch/stories/internal/cmd/probe"
	"github.com/louisbranch/stories/internal/platform/config"
)

func main() {
	cfg, err := probecmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("Error: %v", err)
	}

	if err := probecmd.Run(context.Background(), cfg, os.Stdout); err != nil {
		config.Exitf("Error: %v", err)
	}
}
