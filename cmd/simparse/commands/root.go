// Package commands implements the simparse command line.
package commands

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"simulation-parsers/internal/config"
	"simulation-parsers/internal/logging"
)

// app is the state shared by the sub-commands.
type app struct {
	fs     afero.Fs
	viper  *viper.Viper
	cfg    config.Config
	logger *logrus.Logger

	configFile string
}

// NewRoot returns the root command reading from the local file system.
func NewRoot() *cobra.Command {
	return newRoot(afero.NewOsFs())
}

func newRoot(fs afero.Fs) *cobra.Command {
	a := &app{fs: fs, viper: config.New()}

	root := &cobra.Command{
		Use:   "simparse",
		Short: "Extract simulation results into a common archive",
		Long: `simparse reads the output files of exciting, FHI-aims and VASP runs and
writes the energies, forces, eigenvalues, structures and densities of states
they contain as one archive per entry.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "configuration file")
	flags.String("log-level", logging.DefaultConfig().Level, "log level (debug, info, warn, error)")
	flags.String("log-format", string(logging.FormatText), "log format (text, json)")
	flags.Int("search-depth", 0, "directory levels searched for auxiliary files")
	flags.Bool("strict", false, "fail on malformed values in text files")
	flags.Float64("spin-tolerance", 0, "occupation margin of the spin channel heuristic")

	for key, flag := range map[string]string{
		config.KeyLogLevel:      "log-level",
		config.KeyLogFormat:     "log-format",
		config.KeySearchDepth:   "search-depth",
		config.KeyStrict:        "strict",
		config.KeySpinTolerance: "spin-tolerance",
	} {
		_ = a.viper.BindPFlag(key, flags.Lookup(flag))
	}

	root.AddCommand(newParseCmd(a), newCheckCmd(a), newCodesCmd())

	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.viper, a.configFile)
	if err != nil {
		return err
	}

	logCfg := cfg.Logging()
	logCfg.Output = cmd.ErrOrStderr()

	l, err := logging.New(logCfg)
	if err != nil {
		return err
	}

	a.cfg, a.logger = cfg, l

	return nil
}
