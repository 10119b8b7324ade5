package cli

import (
	"github.com/spf13/cobra"

	"github.com/backmassage/codecbench/internal/check"
	"github.com/backmassage/codecbench/internal/display"
)

func newCheckCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report ffmpeg, ffprobe and the codecs available per mime type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			display.PrintBanner(a.out)
			if !check.RunCheck(cmd.Context(), &a.cfg, a.log, a.backend()) {
				return errFailed
			}
			return nil
		},
	}
}
