package main

import (
	"flag"
	"fmt"
	"os"
	"snapfeed/internal/di"
	"snapfeed/internal/structures"
)

func main() {
	flags := &structures.CliFlags{}
	flag.StringVar(&flags.ConfigPath, "config", "config.yaml", "path to the configuration file")
	flag.BoolVar(&flags.DebugMode, "debug", false, "mirror logs to stderr")
	flag.Parse()

	_, err := di.InitApp(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "snapfeed: %v\n", err)
		os.Exit(1)
	}
}
