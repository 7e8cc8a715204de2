// Package cli implements the loglens command tree.
package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/loglens/loglens/pkg/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "loglens",
	Short: "Log intelligence engine: ingest, analyze, compare, and alert on log files",
	Long: `loglens watches directories of heterogeneous log files, normalizes every
line into a canonical entry, and layers analytics, anomaly detection,
cross-run comparison, threshold alerting, and retention management on top.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML or JSON)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	viper.SetEnvPrefix("LOGLENS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()
}

// loadConfig builds the engine configuration from the --config file when
// given, otherwise from defaults plus the directory argument.
func loadConfig(dir string) (*config.Config, error) {
	var cfg *config.Config
	if cfgFile != "" {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.Default()
	}
	if dir != "" {
		cfg.Ingest.Directory = dir
	}
	cfg.ApplyDefaults()
	if cfg.Ingest.Directory == "" {
		return nil, fmt.Errorf("no directory given: pass one as an argument or set ingest.directory in the config file")
	}
	return cfg, nil
}

// newLogger builds the process logger; --verbose switches to development
// output with debug level.
func newLogger() (*zap.Logger, error) {
	if verbose || viper.GetBool("verbose") {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
