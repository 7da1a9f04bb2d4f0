package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/de-tools/export-consolidator/pkg/models/domain"
	"github.com/de-tools/export-consolidator/pkg/runtime/terminal/export"
	"github.com/de-tools/export-consolidator/pkg/services/config"
	"github.com/spf13/cobra"
)

// ErrNoData is returned when the batch ran but no request produced rows.
var ErrNoData = errors.New("no data retrieved for any request")

type ConsolidateCmd struct {
	owners   []string
	ownerIDs []string
	start    string
	end      string
	fileName string
	load     AppLoader
	reporter *export.Reporter
	now      func() time.Time
}

func NewConsolidateCmd(load AppLoader, reporter *export.Reporter, now func() time.Time) *cobra.Command {
	cc := &ConsolidateCmd{load: load, reporter: reporter, now: now}
	cmd := &cobra.Command{
		Use:   "consolidate",
		Short: "Download daily exports for a date range and merge them into one CSV per owner",
		Long: `Download daily exports for a date range and merge them into one CSV per owner.

Without --owner or --owner-id every owner in the owners file is processed.
Without --start and --end the previous Monday to Sunday week is used.`,
		RunE: cc.run,
	}

	cmd.Flags().StringSliceVar(&cc.owners, "owner", nil, "Owner section name from the owners file (repeatable)")
	cmd.Flags().StringSliceVar(&cc.ownerIDs, "owner-id", nil, "Export id to fetch without consulting the owners file (repeatable)")
	cmd.Flags().StringVar(&cc.start, "start", "", "First day, YYYY-MM-DD")
	cmd.Flags().StringVar(&cc.end, "end", "", "Last day, YYYY-MM-DD")
	cmd.Flags().StringVar(&cc.fileName, "file", "", "File name to fetch for every owner")

	return cmd
}

func (cc *ConsolidateCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	dateRange, err := config.ResolveRange(cc.start, cc.end, cc.now())
	if err != nil {
		return err
	}

	a, err := cc.load(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	owners, err := resolveOwners(ctx, cc.owners, cc.ownerIDs, a.Owners)
	if err != nil {
		return err
	}

	requests := config.Requests(owners, dateRange, cc.fileName, a.Config.DefaultFile)
	for _, req := range requests {
		if err := req.Validate(); err != nil {
			return fmt.Errorf("owner %s: %w", req.Name(), err)
		}
	}

	result, runErr := a.Service.Consolidate(ctx, requests)
	if result != nil {
		if err := cc.reporter.HandleBatch(result.Report, result.Locations); err != nil {
			return err
		}
	}
	if runErr != nil {
		return runErr
	}
	if !result.Report.Success() {
		return ErrNoData
	}
	return nil
}

// Exit codes of the consolidate command.
const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitNoConnection = 2
	ExitNoData       = 3
)

// ExitCode maps a command error onto the process exit status.
func ExitCode(err error) int {
	var connErr *domain.ConnectionError
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &connErr):
		return ExitNoConnection
	case errors.Is(err, ErrNoData):
		return ExitNoData
	default:
		return ExitFailure
	}
}
