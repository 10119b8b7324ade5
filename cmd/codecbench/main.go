// Command codecbench is the CLI entrypoint for the codec benchmark
// harness. It hands the arguments to the command tree and exits with its
// status.
package main

import (
	"os"

	"github.com/backmassage/codecbench/internal/cli"
)

// version and commit are injected at build time via -ldflags.
var (
	version = "0.1.0"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	return cli.Execute(version, commit, os.Args[1:])
}
