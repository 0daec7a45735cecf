package scheduler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/devskill-org/weatherdisplay/document"
	"github.com/devskill-org/weatherdisplay/forecast"
	"github.com/devskill-org/weatherdisplay/raster"
	"github.com/devskill-org/weatherdisplay/render"
	"github.com/devskill-org/weatherdisplay/sensor"
	"github.com/devskill-org/weatherdisplay/wunderground"
)

// PeriodicTask represents a task that runs periodically with an optional initial delay
type PeriodicTask struct {
	name         string
	initialDelay time.Duration
	interval     time.Duration
	runFunc      func()
}

// run executes the periodic task in a loop, respecting the initial delay and context cancellation
func (pt *PeriodicTask) run(ctx context.Context, stopChan <-chan struct{}, logger *zap.Logger) {
	logger = logger.With(zap.String("task", pt.name))

	if pt.initialDelay > 0 {
		logger.Info("Waiting for initial delay", zap.Duration("delay", pt.initialDelay))
		select {
		case <-time.After(pt.initialDelay):
			pt.runFunc()
		case <-ctx.Done():
			logger.Info("Stopped during initial delay due to context cancellation")
			return
		case <-stopChan:
			logger.Info("Stopped during initial delay due to stop signal")
			return
		}
	} else {
		pt.runFunc()
	}

	ticker := time.NewTicker(pt.interval)
	defer ticker.Stop()

	logger.Info("Started", zap.Duration("interval", pt.interval))

	for {
		select {
		case <-ticker.C:
			pt.runFunc()
		case <-ctx.Done():
			logger.Info("Stopped due to context cancellation")
			return
		case <-stopChan:
			logger.Info("Stopped due to stop signal")
			return
		}
	}
}

// forecastSource is the part of the API client the station uses.
type forecastSource interface {
	FetchDocument(ctx context.Context, feature, query string, format wunderground.Format) (document.Node, error)
	FetchRadar(ctx context.Context, query string, opts wunderground.RadarOptions) ([]byte, error)
}

// indoorSensor supplies optional indoor readings.
type indoorSensor interface {
	Read() (sensor.Reading, error)
	Close() error
}

// RunResult is the outcome of one display update.
type RunResult struct {
	RunID     uuid.UUID       `json:"run_id"`
	Location  string          `json:"location"`
	Forecast  forecast.Set    `json:"forecast"`
	SVG       []byte          `json:"-"`
	PNG       []byte          `json:"-"`
	Radar     []byte          `json:"-"`
	Indoor    *sensor.Reading `json:"indoor,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Station fetches forecasts and keeps the display files up to date.
type Station struct {
	// Configuration
	config   *Config
	format   wunderground.Format
	timezone *time.Location
	template string

	// Collaborators
	client   forecastSource
	renderer *render.Renderer
	archive  *Archive
	sensor   indoorSensor

	// State
	latest    *RunResult
	lastError error
	isRunning bool
	stopChan  chan struct{}
	mu        sync.RWMutex

	// Web server
	webServer *WebServer

	// Logging
	logger *zap.Logger

	now func() time.Time
}

// NewStation creates a station from config. The archive and the indoor sensor
// are opened when configured; a sensor that cannot be reached is skipped.
func NewStation(ctx context.Context, config *Config, logger *zap.Logger) (*Station, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	apiKey, err := config.ResolveAPIKey()
	if err != nil {
		return nil, err
	}

	client := wunderground.NewClientWithHTTPClient(&http.Client{Timeout: config.APITimeout}, apiKey)
	client.SetBaseURL(config.BaseURL)
	client.SetRateLimit(config.RequestsPerMinute, 1)

	s, err := newStation(config, client, logger)
	if err != nil {
		return nil, err
	}

	if config.ArchiveDriver != "" {
		archive, err := OpenArchive(config.ArchiveDriver, config.ArchiveDSN, logger)
		if err != nil {
			return nil, err
		}
		if err := archive.Init(ctx); err != nil {
			archive.Close()
			return nil, err
		}
		s.archive = archive
	}

	if config.SensorAddress != "" {
		indoor, err := sensor.NewTCPSensor(config.SensorConfig())
		if err != nil {
			logger.Warn("Indoor sensor unavailable, continuing without it",
				zap.String("address", config.SensorAddress), zap.Error(err))
		} else {
			s.sensor = indoor
		}
	}

	return s, nil
}

// newStation wires a station around an existing forecast source.
func newStation(config *Config, client forecastSource, logger *zap.Logger) (*Station, error) {
	format, err := wunderground.ParseFormat(config.Format)
	if err != nil {
		return nil, err
	}

	timezone, err := config.TimeLocation()
	if err != nil {
		return nil, fmt.Errorf("invalid timezone: %w", err)
	}

	template := render.DefaultTemplate
	if config.TemplatePath != "" {
		data, err := os.ReadFile(config.TemplatePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read template: %w", err)
		}
		template = string(data)
	}

	renderer := render.NewRenderer()
	renderer.BreakLength = config.BreakLength
	renderer.Unit = render.TemperatureUnit(config.TemperatureUnit)
	if config.SunTimes {
		renderer.Sun = &render.SunLocation{Latitude: config.Latitude, Longitude: config.Longitude}
	}

	return &Station{
		config:   config,
		format:   format,
		timezone: timezone,
		template: template,
		client:   client,
		renderer: renderer,
		stopChan: make(chan struct{}),
		logger:   logger,
		now:      time.Now,
	}, nil
}

// EnableWebServer serves the display files on the configured port.
func (s *Station) EnableWebServer() {
	s.webServer = NewWebServer(s, s.config.HTTPPort, s.logger)
}

// GetConfig returns the current configuration
func (s *Station) GetConfig() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// Latest returns the most recent successful update, or nil.
func (s *Station) Latest() *RunResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// FetchForecast downloads and parses the configured forecast.
func (s *Station) FetchForecast(ctx context.Context) (forecast.Set, error) {
	doc, err := s.client.FetchDocument(ctx, s.config.Feature, s.config.Location, s.format)
	if err != nil {
		return forecast.Set{}, fmt.Errorf("failed to fetch forecast: %w", err)
	}

	set, err := forecast.ParseIn(doc, s.timezone)
	if err != nil {
		return forecast.Set{}, fmt.Errorf("failed to parse forecast: %w", err)
	}
	return set, nil
}

// FetchRadar downloads the configured radar image.
func (s *Station) FetchRadar(ctx context.Context) ([]byte, error) {
	data, err := s.client.FetchRadar(ctx, s.config.Location, s.config.RadarOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch radar: %w", err)
	}
	return data, nil
}

// UpdateRadar downloads the radar image and replaces the radar file.
func (s *Station) UpdateRadar(ctx context.Context) ([]byte, error) {
	radar, err := s.FetchRadar(ctx)
	if err != nil {
		return nil, err
	}
	if err := writeFileAtomic(s.GetConfig().RadarPath, radar); err != nil {
		return nil, err
	}
	return radar, nil
}

// RunOnce performs one display update: fetch, parse, render and write.
// Nothing is written unless the forecast was parsed and rendered. Each
// output file is replaced atomically and the SVG is written last, so a run
// that fails leaves the previous SVG display in place. Radar, archive and
// sensor failures are logged only.
func (s *Station) RunOnce(ctx context.Context) (*RunResult, error) {
	config := s.GetConfig()
	runID := uuid.New()
	logger := s.logger.With(zap.String("run_id", runID.String()), zap.String("location", config.Location))

	set, err := s.FetchForecast(ctx)
	if err != nil {
		s.setLastError(err)
		return nil, err
	}

	result := &RunResult{
		RunID:     runID,
		Location:  config.Location,
		Forecast:  set,
		UpdatedAt: s.now(),
	}

	var extra []render.Substitution
	if reading := s.readIndoor(logger); reading != nil {
		result.Indoor = reading
		extra = render.IndoorSubstitutions(s.renderer.Unit, reading.TemperatureC, reading.Humidity)
	}

	svg := s.renderer.Render(s.template, set, extra...)
	result.SVG = []byte(svg)

	if config.PNGPath != "" {
		var buf bytes.Buffer
		if err := raster.EncodePNG(&buf, strings.NewReader(svg), config.PNGWidth, config.PNGHeight); err != nil {
			err = fmt.Errorf("failed to rasterize display: %w", err)
			s.setLastError(err)
			return nil, err
		}
		result.PNG = buf.Bytes()
	}

	// A failed PNG write must leave the SVG untouched.
	if result.PNG != nil {
		if err := writeFileAtomic(config.PNGPath, result.PNG); err != nil {
			s.setLastError(err)
			return nil, err
		}
	}
	if err := writeFileAtomic(config.OutputPath, result.SVG); err != nil {
		s.setLastError(err)
		return nil, err
	}

	if config.RadarEnabled {
		radar, err := s.UpdateRadar(ctx)
		if err != nil {
			logger.Warn("Radar update failed", zap.Error(err))
		}
		result.Radar = radar
	}

	if s.archive != nil {
		if err := s.archive.SaveForecast(ctx, runID, config.Location, result.UpdatedAt, set); err != nil {
			logger.Error("Failed to archive forecast", zap.Error(err))
		}
	}

	s.mu.Lock()
	s.latest = result
	s.lastError = nil
	s.mu.Unlock()

	if s.webServer != nil {
		s.webServer.BroadcastUpdate(result)
	}

	logger.Info("Display updated",
		zap.String("output", config.OutputPath),
		zap.Time("first_day", set[0].Date),
		zap.Int("high_f", set[0].HighF),
		zap.Int("low_f", set[0].LowF))

	return result, nil
}

func (s *Station) readIndoor(logger *zap.Logger) *sensor.Reading {
	if s.sensor == nil {
		return nil
	}
	reading, err := s.sensor.Read()
	if err != nil {
		logger.Warn("Indoor sensor read failed", zap.Error(err))
		return nil
	}
	return &reading
}

func (s *Station) setLastError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = err
}

// Start runs display updates every update interval until ctx is cancelled
// or Stop is called. The web server runs alongside when enabled.
func (s *Station) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("station is already running")
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	stopChan := s.stopChan
	s.mu.Unlock()

	if s.webServer != nil {
		if err := s.webServer.Start(); err != nil {
			s.logger.Error("Failed to start web server", zap.Error(err))
		} else {
			s.logger.Info("Web server started", zap.Int("port", s.webServer.port))
		}
	}

	config := s.GetConfig()

	task := PeriodicTask{
		name:         "DisplayUpdate",
		initialDelay: 0,
		interval:     config.UpdateInterval,
		runFunc: func() {
			if _, err := s.RunOnce(ctx); err != nil {
				s.logger.Error("Display update failed", zap.Error(err))
			}
		},
	}
	task.run(ctx, stopChan, s.logger)

	s.logger.Info("Periodic updates stopped")
	s.stop()
	return ctx.Err()
}

// Stop gracefully stops the station
func (s *Station) Stop() {
	s.stop()
}

func (s *Station) stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}

	s.isRunning = false

	select {
	case <-s.stopChan:
	default:
		close(s.stopChan)
	}
	s.mu.Unlock()

	// Handlers read station state, so shut down without holding the lock.
	if s.webServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.webServer.Stop(ctx); err != nil {
			s.logger.Error("Error stopping web server", zap.Error(err))
		}
	}
}

// Close releases the archive and sensor connections.
func (s *Station) Close() error {
	var firstErr error
	if s.sensor != nil {
		if err := s.sensor.Close(); err != nil {
			firstErr = err
		}
	}
	if s.archive != nil {
		if err := s.archive.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// IsRunning returns whether the station is currently running
func (s *Station) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetStatus returns the current status of the station
func (s *Station) GetStatus() StationStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := StationStatus{
		IsRunning:   s.isRunning,
		Location:    s.config.Location,
		HasForecast: s.latest != nil,
		HasArchive:  s.archive != nil,
		HasSensor:   s.sensor != nil,
	}
	if s.latest != nil {
		updated := s.latest.UpdatedAt
		status.LastUpdate = &updated
	}
	if s.lastError != nil {
		status.LastError = s.lastError.Error()
	}
	return status
}

// StationStatus represents the current status of the station
type StationStatus struct {
	IsRunning   bool       `json:"is_running"`
	Location    string     `json:"location"`
	HasForecast bool       `json:"has_forecast"`
	LastUpdate  *time.Time `json:"last_update,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
	HasArchive  bool       `json:"has_archive"`
	HasSensor   bool       `json:"has_sensor"`
}

// writeFileAtomic replaces path with data via a temporary file in the same
// directory. The previous file stays intact if any step fails.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
