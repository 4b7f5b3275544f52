// Command komponente runs the lab component inventory server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/erazemk/komponente/internal/config"
)

var (
	configPath  string
	databaseURL string
	logPath     string
	logLevel    string
)

var rootCmd = &cobra.Command{
	Use:           "komponente",
	Short:         "Inventory of lab components, loans and returns",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVarP(&databaseURL, "db", "d", "", "SQLite path or postgres:// URL (overrides config)")
	rootCmd.PersistentFlags().StringVarP(&logPath, "log", "l", "", "also append logs to this file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides config)")

	rootCmd.AddCommand(serveCmd, initCmd, useraddCmd)
}

// loadConfig reads the configuration and applies the persistent flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	if cmd.Flags().Changed("db") {
		cfg.DatabaseURL = databaseURL
	}
	if cmd.Flags().Changed("log") {
		cfg.LogFile = logPath
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = logLevel
		if _, err := cfg.SlogLevel(); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
