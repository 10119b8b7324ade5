package cli

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/backmassage/codecbench/internal/storage"
)

func newResultsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "results [target]",
		Short: "List statistics files published to a directory or GCS bucket",
		Long: `List the files stored at target, or at --publish when no target is given.
A target is a directory, local:<dir>, or gs://bucket/prefix.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := a.cfg.PublishTarget
			if len(args) == 1 {
				target = args[0]
			}
			if target == "" {
				return errors.New("no target: pass one or set --publish")
			}

			store, err := storage.Open(cmd.Context(), target, a.cfg.PublishProject)
			if err != nil {
				return err
			}
			defer store.Close()

			names, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(names) == 0 {
				a.log.Info("No files at %s", target)
				return nil
			}
			for _, n := range names {
				fmt.Fprintln(a.out, n)
			}
			return nil
		},
	}
}
