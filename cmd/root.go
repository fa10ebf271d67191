package cmd

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"car-sales/config"
	"car-sales/utils"
)

var (
	cfgFile  string
	logLevel string
	noColor  bool

	cfg    *config.Config
	logger *utils.Logger
)

var rootCmd = &cobra.Command{
	Use:   "car-sales",
	Short: "Car sales ranking: scrape, store, query and report",
	Long: `car-sales scrapes the monthly sales ranking, normalises prices and categories,
stores one row per series and answers filtered or free-text questions over it,
from the terminal or a small web dashboard.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if logLevel != "" {
			loaded.LogLevel = logLevel
		}
		if noColor {
			color.NoColor = true
		}
		cfg = loaded
		logger = utils.NewLogger(cfg.LogLevel, cfg.LogFormat)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
