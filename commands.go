package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/devskill-org/weatherdisplay/scheduler"
	"github.com/devskill-org/weatherdisplay/sensor"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Fetch the forecast once and write the display files",
	RunE:  runRender,
}

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Fetch the forecast and print it",
	RunE:  runForecast,
}

var radarCmd = &cobra.Command{
	Use:   "radar",
	Short: "Download the radar image for the configured location",
	RunE:  runRadar,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Update the display periodically and serve it over HTTP",
	Long: `Update the display every update_interval until interrupted. When
http_port is set the rendered files are served at /forecast.svg,
/forecast.png and /radar.gif, and displays connected to /api/ws are
notified after every update.`,
	RunE: runServe,
}

var indoorCmd = &cobra.Command{
	Use:   "indoor",
	Short: "Read the indoor sensor once and print the values",
	RunE:  runIndoor,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), config.String())
	},
}

func init() {
	rootCmd.AddCommand(renderCmd, forecastCmd, radarCmd, serveCmd, indoorCmd, configCmd)
}

// newStation creates the station from the loaded config. The caller closes it.
func newStation(ctx context.Context) (*scheduler.Station, error) {
	station, err := scheduler.NewStation(ctx, config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create station: %w", err)
	}
	return station, nil
}

func runRender(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	station, err := newStation(ctx)
	if err != nil {
		return err
	}
	defer station.Close()

	result, err := station.RunOnce(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Wrote %s\n", config.OutputPath)
	if result.PNG != nil {
		fmt.Fprintf(out, "Wrote %s\n", config.PNGPath)
	}
	if result.Radar != nil {
		fmt.Fprintf(out, "Wrote %s\n", config.RadarPath)
	}
	return nil
}

func runForecast(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	station, err := newStation(ctx)
	if err != nil {
		return err
	}
	defer station.Close()

	set, err := station.FetchForecast(ctx)
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), set.String())
	return nil
}

func runRadar(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	station, err := newStation(ctx)
	if err != nil {
		return err
	}
	defer station.Close()

	radar, err := station.UpdateRadar(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", config.RadarPath, len(radar))
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	station, err := newStation(ctx)
	if err != nil {
		return err
	}
	defer station.Close()

	if config.HTTPPort > 0 {
		station.EnableWebServer()
	}

	logger.Info("Starting weather display",
		zap.String("location", config.Location),
		zap.String("output", config.OutputPath),
		zap.Duration("update_interval", config.UpdateInterval),
		zap.Int("http_port", config.HTTPPort))

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			logger.Info("Shutdown signal received, stopping station...")
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := station.Start(ctx); err != nil && err != context.Canceled {
		return err
	}

	logger.Info("Station stopped successfully")
	return nil
}

func runIndoor(cmd *cobra.Command, args []string) error {
	if config.SensorAddress == "" {
		return fmt.Errorf("sensor_address is not configured")
	}
	return sensor.ShowReading(cmd.OutOrStdout(), config.SensorConfig())
}
