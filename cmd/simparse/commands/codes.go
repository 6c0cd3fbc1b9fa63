package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"simulation-parsers/internal/parsers"
)

func newCodesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "codes",
		Short: "List the supported codes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)

			fmt.Fprintln(w, "CODE\tMAINFILE\tHOMEPAGE")

			for _, c := range parsers.Codes() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", c.Name, c.Mainfile, c.Homepage)
			}

			return w.Flush()
		},
	}
}
