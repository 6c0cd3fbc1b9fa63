package commands

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"simulation-parsers/internal/parsers"
)

const codeAuto = "auto"

func newParseCmd(a *app) *cobra.Command {
	var code, format string

	cmd := &cobra.Command{
		Use:   "parse <mainfile>",
		Short: "Parse a main file and print the archive entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.parse(cmd, args[0], code, format)
		},
	}

	cmd.Flags().StringVar(&code, "code", codeAuto, "code of the main file, or auto to detect it")
	cmd.Flags().StringVarP(&format, "format", "f", FormatJSON, "output format (json, yaml, dump)")

	return cmd
}

func (a *app) parse(cmd *cobra.Command, mainfile, name, format string) error {
	var (
		c   parsers.Code
		err error
	)

	if name == codeAuto {
		c, err = parsers.Detect(a.fs, mainfile)
	} else {
		c, err = parsers.Lookup(name)
	}

	if err != nil {
		return err
	}

	log := a.logger.WithFields(logrus.Fields{"code": c.Name, "mainfile": mainfile})

	opts := a.cfg.ReaderOptions()
	opts.Fs = a.fs
	opts.Logger = log

	p, err := c.New(opts)
	if err != nil {
		return err
	}

	if err := cmd.Context().Err(); err != nil {
		return err
	}

	res, err := p.Parse(mainfile)
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"entries":  len(res.Entries),
		"warnings": len(res.Diagnostics.Warnings),
	}).Info("parsed")

	return write(cmd.OutOrStdout(), format, res)
}
