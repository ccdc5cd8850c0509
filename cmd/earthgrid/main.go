package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/1F47E/earthgrid/pkg/config"
	"github.com/1F47E/earthgrid/pkg/logging"
)

var (
	configFile string
	verbose    bool

	cfg    *config.Config
	logger = zap.NewNop()

	newLogger = logging.New
)

var rootCmd = &cobra.Command{
	Use:   "earthgrid",
	Short: "Synthetic environmental heatmap generator",
	Long: `Generates intensity grids (pollution, vegetation, fire, water) for a map viewport,
merges them with live data when a remote source is configured, and serves or renders the result.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Log.Level = "debug"
			cfg.Log.Development = true
		}
		logger, err = newLogger(cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (default config.yaml, then config.yaml.example)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(generateCmd, serveCmd, watchCmd, benchCmd, hotspotsCmd, stationsCmd)
}

// run executes the root command and flushes the logger on every exit path,
// including a failed RunE.
func run() error {
	err := rootCmd.Execute()
	_ = logger.Sync()
	return err
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
