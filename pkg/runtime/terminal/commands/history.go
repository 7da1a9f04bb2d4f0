package commands

import (
	"github.com/de-tools/export-consolidator/pkg/runtime/app"
	"github.com/de-tools/export-consolidator/pkg/runtime/terminal/export"
	"github.com/spf13/cobra"
)

func NewHistoryCmd(load AppLoader, reporter *export.Reporter) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent batch runs from the run ledger",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := load(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if a.Runs == nil {
				return app.ErrNoLedger
			}
			runs, err := a.Runs.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return reporter.HandleRuns(runs)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Number of runs to show")
	return cmd
}
