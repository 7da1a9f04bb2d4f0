package commands

import (
	"fmt"

	"github.com/de-tools/export-consolidator/pkg/services/negotiator"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func NewCheckCmd(load AppLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Negotiate a connection to the remote store and close it again",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := load(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			desc, err := a.Descriptor()
			if err != nil {
				return err
			}

			conn, err := negotiator.New(a.Dialer).Negotiate(ctx, desc)
			if err != nil {
				return err
			}
			if err := conn.Session.Close(); err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).Msg("closing connection failed")
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "connected to %s with profile %s after %d attempt(s)\n",
				desc.Host, conn.Profile.Name, conn.Attempts)
			return err
		},
	}
}
