// Package main provides the weather display entry point and CLI interface.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/devskill-org/weatherdisplay/scheduler"
)

var (
	configFile string
	config     *scheduler.Config
	logger     *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "weatherdisplay",
	Short: "Weather display - render Weather Underground forecasts for e-paper screens",
	Long: `Weather display fetches the four-day forecast for a location from the
Weather Underground API and fills an SVG template with it. The result can be
rasterized to a grayscale PNG, archived to a database and served to displays
over HTTP.

The API key is read from WUNDERGROUND_API_KEY (a .env file in the working
directory is loaded first), then api_key or api_key_file in the config.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.json", "Configuration file path")
}

// setup loads the environment, the configuration and the logger for every command.
func setup(cmd *cobra.Command, args []string) error {
	envErr := godotenv.Load()

	var err error
	if _, statErr := os.Stat(configFile); statErr == nil || cmd.Flags().Changed("config") {
		config, err = scheduler.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("error loading configuration: %w", err)
		}
	} else {
		config = scheduler.DefaultConfig()
	}

	logger, err = scheduler.NewLogger(config.LogLevel, config.LogFormat)
	if err != nil {
		return err
	}

	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		logger.Warn("Error loading .env file", zap.Error(envErr))
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
