package main

import (
	"context"
	"flag"
	"os"

	catalogcmd "github.com/louisbranch/stories/internal/cmd/catalog"
	"github.com/louisbranch/stories/internal/platform/config"
)

func main() {
	cfg, err := catalogcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("Error: %v", err)
	}

	if err := catalogcmd.Run(context.Background(), cfg, os.Stdout); err != nil {
		config.Exitf("Error: %v", err)
	}
}
