// Package cli is the codecbench command tree. Every subcommand shares the
// persistent flags registered by config.RegisterFlags; configuration and the
// logger are built once in the root's pre-run hook.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/backmassage/codecbench/internal/config"
	"github.com/backmassage/codecbench/internal/logging"
)

// errFailed marks a command whose failure has already been logged.
var errFailed = errors.New("failed")

// app is the state shared by the subcommands of one invocation.
type app struct {
	version string
	commit  string

	cfg    config.Config
	log    *logging.Logger
	out    io.Writer
	errOut io.Writer
}

// NewRootCommand builds the command tree.
func NewRootCommand(version, commit string) *cobra.Command {
	root, _ := newRoot(version, commit)
	return root
}

func newRoot(version, commit string) (*cobra.Command, *app) {
	a := &app{version: version, commit: commit, out: os.Stdout, errOut: os.Stderr}

	root := &cobra.Command{
		Use:   "codecbench",
		Short: "Codec conformance and benchmark harness",
		Long: `codecbench runs a fixed matrix of decode, encode and extraction cases
against the local ffmpeg build and records per-run timing statistics
as CSV.`,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		newSuiteCommand(a, suiteDecode),
		newSuiteCommand(a, suiteEncode),
		newSuiteCommand(a, suiteExtract),
		newListCommand(a),
		newCheckCommand(a),
		newProbeCommand(a),
		newResultsCommand(a),
		newVersionCommand(a),
	)
	return root, a
}

// Execute runs the command tree with args and returns the process exit
// code.
func Execute(version, commit string, args []string) int {
	root, a := newRoot(version, commit)
	return run(root, a, args)
}

// run executes root and closes the log on every path. Cobra skips
// post-run hooks when a command fails.
func run(root *cobra.Command, a *app, args []string) int {
	defer a.closeLog()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintf(os.Stderr, "codecbench: %v\n", err)
		}
		return 1
	}
	return 0
}

// setup loads and validates configuration and opens the logger. Errors
// before the logger exists go to stderr through Execute.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.out = cmd.OutOrStdout()
	a.errOut = cmd.ErrOrStderr()

	log, err := logging.NewLogger(&a.cfg)
	if err != nil {
		return errors.Wrap(err, "open logger")
	}
	a.log = log
	return nil
}

func (a *app) teardown(*cobra.Command, []string) error { return a.closeLog() }

// closeLog closes the log file once.
func (a *app) closeLog() error {
	if a.log == nil {
		return nil
	}
	err := a.log.Close()
	a.log = nil
	return err
}
