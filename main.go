// Package main is the entry point for the H3 content scheduler.
package main

import (
	"fmt"
	"os"
)

// version can be set at build time via -ldflags
var version = "dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	command := "api"
	if len(args) > 0 {
		command = args[0]
	}

	switch command {
	case "api":
		return runAPIServer()
	case "scheduler":
		return runScheduler()
	case "sweep":
		return runSweepOnce()
	case "version":
		fmt.Printf("H3 scheduler version %s\n", version)
		return 0
	case "help", "-h", "--help":
		printUsage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		return 1
	}
}

func printUsage() {
	fmt.Println(`H3 content scheduler

Usage:
  h3-scheduler [command]

Commands:
  api        Serve the scheduling HTTP API (default)
  scheduler  Run the publish sweep on its cron schedule
  sweep      Run a single publish sweep and exit
  version    Print version information
  help       Show this help

Environment:
  CONFIG_PATH  Path to the YAML config file (default: config.yml)`)
}
