package commands

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/de-tools/export-consolidator/pkg/models/domain"
	"github.com/de-tools/export-consolidator/pkg/services/config"
	"github.com/de-tools/export-consolidator/pkg/services/daterange"
	"github.com/de-tools/export-consolidator/pkg/services/fetcher"
	"github.com/de-tools/export-consolidator/pkg/services/negotiator"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type ListCmd struct {
	owners   []string
	ownerIDs []string
	start    string
	end      string
	load     AppLoader
	now      func() time.Time
}

func NewListCmd(load AppLoader, now func() time.Time) *cobra.Command {
	lc := &ListCmd{load: load, now: now}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List what each day directory holds on the remote store",
		RunE:  lc.run,
	}

	cmd.Flags().StringSliceVar(&lc.owners, "owner", nil, "Owner section name from the owners file (repeatable)")
	cmd.Flags().StringSliceVar(&lc.ownerIDs, "owner-id", nil, "Export id to list without consulting the owners file (repeatable)")
	cmd.Flags().StringVar(&lc.start, "start", "", "First day, YYYY-MM-DD")
	cmd.Flags().StringVar(&lc.end, "end", "", "Last day, YYYY-MM-DD")

	return cmd
}

func (lc *ListCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := zerolog.Ctx(ctx)

	dateRange, err := config.ResolveRange(lc.start, lc.end, lc.now())
	if err != nil {
		return err
	}

	a, err := lc.load(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	owners, err := resolveOwners(ctx, lc.owners, lc.ownerIDs, a.Owners)
	if err != nil {
		return err
	}
	desc, err := a.Descriptor()
	if err != nil {
		return err
	}

	conn, err := negotiator.New(a.Dialer).Negotiate(ctx, desc)
	if err != nil {
		return err
	}
	defer func() {
		if err := conn.Session.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing connection failed")
		}
	}()

	f := fetcher.New(fetcher.Options{Timeout: a.Config.Engine.Timeout})
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "OWNER\tDAY\tNAME\tSIZE")
	for _, req := range config.Requests(owners, dateRange, "", a.Config.DefaultFile) {
		for _, day := range daterange.Enumerate(req.Range) {
			entries, err := f.List(ctx, conn.Session, req, day)
			switch {
			case errors.Is(err, domain.ErrNotFound):
				fmt.Fprintf(w, "%s\t%s\t(no directory)\t\n", req.Name(), day)
				continue
			case err != nil:
				fmt.Fprintf(w, "%s\t%s\t(error: %v)\t\n", req.Name(), day, err)
				continue
			}
			for _, e := range entries {
				if e.IsDir {
					fmt.Fprintf(w, "%s\t%s\t%s/\t\n", req.Name(), day, e.Name)
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", req.Name(), day, e.Name, e.Size)
			}
		}
	}
	return w.Flush()
}
