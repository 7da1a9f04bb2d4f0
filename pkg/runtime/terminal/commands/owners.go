package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/de-tools/export-consolidator/pkg/services/config"
	"github.com/spf13/cobra"
)

func NewOwnersCmd(load AppLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "owners",
		Short: "List the owners registered in the owners file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := load(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			registry, err := a.Owners()
			if err != nil {
				return err
			}
			owners, err := config.AllOwners(cmd.Context(), registry)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tEXPORT ID\tLABEL\tFILE")
			for _, o := range owners {
				file := o.File
				if file == "" {
					file = a.Config.DefaultFile
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", o.Name, o.ExportID, o.DisplayName(), file)
			}
			return w.Flush()
		},
	}
}
