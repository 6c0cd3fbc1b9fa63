package commands

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"simulation-parsers/internal/mapping"
	"simulation-parsers/internal/parsers"
)

func newCheckCmd(a *app) *cobra.Command {
	var code string

	cmd := &cobra.Command{
		Use:   "check <rules.yaml>",
		Short: "Validate a rule file against the archive schema and a code's transforms",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.check(cmd, args[0], code)
		},
	}

	cmd.Flags().StringVar(&code, "code", "", "code whose transforms the rules call (default: the program of the file)")

	return cmd
}

func (a *app) check(cmd *cobra.Command, path, name string) error {
	data, err := afero.ReadFile(a.fs, path)
	if err != nil {
		return err
	}

	if name == "" {
		rf, err := mapping.Parse(data)
		if err != nil {
			return err
		}

		name = rf.Program
	}

	c, err := parsers.Lookup(name)
	if err != nil {
		return err
	}

	diags, err := c.Check(data)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, d := range diags.All() {
		fmt.Fprintln(out, d.String())
	}

	if diags.HasErrors() {
		return fmt.Errorf("%s: %d errors", path, len(diags.Errors))
	}

	fmt.Fprintf(out, "%s: ok (%s)\n", path, c.Name)

	return nil
}
