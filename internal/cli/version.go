package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information and the ffmpeg in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(a.out, "codecbench %s (%s)\n", a.version, a.commit)
			v, err := a.backend().Version(cmd.Context())
			if err != nil {
				a.log.Debug(a.cfg.Verbose, "ffmpeg version: %v", err)
				v = "not found"
			}
			fmt.Fprintf(a.out, "ffmpeg: %s\n", v)
			return nil
		},
	}
}
