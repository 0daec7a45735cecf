package scheduler

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/devskill-org/weatherdisplay/render"
	"github.com/devskill-org/weatherdisplay/sensor"
	"github.com/devskill-org/weatherdisplay/wunderground"
)

// APIKeyEnv names the environment variable that overrides the configured API key.
const APIKeyEnv = "WUNDERGROUND_API_KEY"

// Config represents the configuration for the weather display station
type Config struct {
	// Weather Underground API settings
	APIKey            string        `json:"api_key"`             // API key (prefer WUNDERGROUND_API_KEY or api_key_file)
	APIKeyFile        string        `json:"api_key_file"`        // File containing the API key
	BaseURL           string        `json:"base_url"`            // API base URL
	Location          string        `json:"location"`            // Location query (e.g., "MO/St_Louis", "63167", "pws:KMOSTLOU1")
	Feature           string        `json:"feature"`             // forecast or forecast10day
	Format            string        `json:"format"`              // Response format: xml, json
	APITimeout        time.Duration `json:"api_timeout"`         // Timeout for API calls
	RequestsPerMinute float64       `json:"requests_per_minute"` // API request pacing (0 = unlimited)

	// Display output
	TemplatePath    string  `json:"template_path"`    // SVG template (empty = built-in layout)
	OutputPath      string  `json:"output_path"`      // Rendered SVG
	PNGPath         string  `json:"png_path"`         // Grayscale PNG (empty = disabled)
	PNGWidth        int     `json:"png_width"`        // PNG width (0 = SVG width)
	PNGHeight       int     `json:"png_height"`       // PNG height (0 = SVG height)
	BreakLength     int     `json:"break_length"`     // Narrative wrap column
	TemperatureUnit string  `json:"temperature_unit"` // F or C
	Timezone        string  `json:"timezone"`         // IANA zone for forecast dates (empty = local)
	SunTimes        bool    `json:"sun_times"`        // Fill sunrise/sunset tokens from latitude/longitude
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`

	// Radar image
	RadarEnabled  bool   `json:"radar_enabled"`
	RadarPath     string `json:"radar_path"`
	RadarAnimated bool   `json:"radar_animated"`
	RadarFormat   string `json:"radar_format"` // gif, png, swf
	RadarWidth    int    `json:"radar_width"`
	RadarHeight   int    `json:"radar_height"`
	RadarFrames   int    `json:"radar_frames"`
	RadarDelay    int    `json:"radar_delay"`

	// Scheduling and serving
	UpdateInterval time.Duration `json:"update_interval"` // How often serve mode refreshes the display
	HTTPPort       int           `json:"http_port"`       // Port for the display server (0 = disabled)

	// Forecast archive
	ArchiveDriver string `json:"archive_driver"` // postgres, sqlite or empty to disable
	ArchiveDSN    string `json:"archive_dsn"`    // Connection string or SQLite file

	// Indoor sensor (Modbus TCP)
	SensorAddress             string  `json:"sensor_address"` // IP:PORT, empty = disabled
	SensorSlaveID             int     `json:"sensor_slave_id"`
	SensorRegisterType        string  `json:"sensor_register_type"` // holding or input
	SensorTemperatureRegister int     `json:"sensor_temperature_register"`
	SensorHumidityRegister    int     `json:"sensor_humidity_register"`
	SensorScale               float64 `json:"sensor_scale"`

	// Logging settings
	LogLevel  string `json:"log_level"`  // Log level: debug, info, warn, error
	LogFormat string `json:"log_format"` // Log format: text, json
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	radar := wunderground.DefaultRadarOptions()
	sensorDefaults := sensor.DefaultConfig()

	return &Config{
		BaseURL:                   wunderground.DefaultBaseURL,
		Location:                  "autoip",
		Feature:                   wunderground.FeatureForecast,
		Format:                    string(wunderground.FormatXML),
		APITimeout:                30 * time.Second,
		RequestsPerMinute:         wunderground.DefaultRequestsPerMinute,
		OutputPath:                "forecast.svg",
		BreakLength:               render.DefaultBreakLength,
		TemperatureUnit:           string(render.Fahrenheit),
		Latitude:                  38.6270, // St. Louis, MO
		Longitude:                 -90.1994,
		RadarEnabled:              false,
		RadarPath:                 "radar.gif",
		RadarAnimated:             radar.Animated,
		RadarFormat:               radar.ImageFormat,
		RadarWidth:                radar.Width,
		RadarHeight:               radar.Height,
		RadarFrames:               radar.Frames,
		RadarDelay:                radar.Delay,
		UpdateInterval:            1 * time.Hour,
		HTTPPort:                  0,
		SensorSlaveID:             int(sensorDefaults.SlaveID),
		SensorRegisterType:        sensorDefaults.RegisterType,
		SensorTemperatureRegister: int(sensorDefaults.TemperatureRegister),
		SensorHumidityRegister:    int(sensorDefaults.HumidityRegister),
		SensorScale:               sensorDefaults.Scale,
		LogLevel:                  "info",
		LogFormat:                 "text",
	}
}

// LoadConfig loads configuration from a JSON file
func LoadConfig(filename string) (*Config, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	return LoadConfigFromReader(file)
}

// LoadConfigFromReader loads configuration from an io.Reader
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	config := DefaultConfig()

	decoder := json.NewDecoder(reader)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config JSON: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// SaveConfig saves the configuration to a JSON file
func (c *Config) SaveConfig(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	return c.SaveConfigToWriter(file)
}

// SaveConfigToWriter saves the configuration to an io.Writer
func (c *Config) SaveConfigToWriter(writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config JSON: %w", err)
	}

	return nil
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	if err := wunderground.ValidateQuery(c.Location); err != nil {
		return fmt.Errorf("invalid location: %w", err)
	}

	if c.Feature != wunderground.FeatureForecast && c.Feature != wunderground.FeatureForecast10Day {
		return fmt.Errorf("invalid feature: %s, must be one of: forecast, forecast10day", c.Feature)
	}

	if _, err := wunderground.ParseFormat(c.Format); err != nil {
		return fmt.Errorf("invalid format: %s, must be one of: xml, json", c.Format)
	}

	if c.BaseURL == "" {
		return fmt.Errorf("base_url cannot be empty")
	}

	if c.APITimeout <= 0 {
		return fmt.Errorf("api_timeout must be greater than 0, got: %s", c.APITimeout)
	}

	if c.RequestsPerMinute < 0 {
		return fmt.Errorf("requests_per_minute must be non-negative, got: %f", c.RequestsPerMinute)
	}

	if c.OutputPath == "" {
		return fmt.Errorf("output_path cannot be empty")
	}

	if c.PNGWidth < 0 || c.PNGHeight < 0 {
		return fmt.Errorf("png_width and png_height must be non-negative, got: %dx%d", c.PNGWidth, c.PNGHeight)
	}

	if c.BreakLength <= 0 {
		return fmt.Errorf("break_length must be greater than 0, got: %d", c.BreakLength)
	}

	if c.TemperatureUnit != string(render.Fahrenheit) && c.TemperatureUnit != string(render.Celsius) {
		return fmt.Errorf("invalid temperature_unit: %s, must be one of: F, C", c.TemperatureUnit)
	}

	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("invalid timezone: %w", err)
		}
	}

	// Validate latitude
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude must be between -90 and 90, got: %f", c.Latitude)
	}

	// Validate longitude
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude must be between -180 and 180, got: %f", c.Longitude)
	}

	if c.RadarEnabled {
		if c.RadarPath == "" {
			return fmt.Errorf("radar_path cannot be empty when radar is enabled")
		}
		if err := c.RadarOptions().Validate(); err != nil {
			return fmt.Errorf("invalid radar settings: %w", err)
		}
	}

	if c.UpdateInterval <= 0 {
		return fmt.Errorf("update_interval must be greater than 0, got: %s", c.UpdateInterval)
	}

	if c.HTTPPort < 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("http_port must be between 0 and 65535, got: %d", c.HTTPPort)
	}

	switch c.ArchiveDriver {
	case "":
	case ArchiveDriverPostgres, ArchiveDriverSQLite:
		if c.ArchiveDSN == "" {
			return fmt.Errorf("archive_dsn cannot be empty when archive_driver is %s", c.ArchiveDriver)
		}
	default:
		return fmt.Errorf("invalid archive_driver: %s, must be one of: postgres, sqlite", c.ArchiveDriver)
	}

	if c.SensorAddress != "" {
		if c.SensorSlaveID < 0 || c.SensorSlaveID > 247 {
			return fmt.Errorf("sensor_slave_id must be between 0 and 247, got: %d", c.SensorSlaveID)
		}
		if c.SensorTemperatureRegister < 0 || c.SensorTemperatureRegister > 65535 ||
			c.SensorHumidityRegister < 0 || c.SensorHumidityRegister > 65535 {
			return fmt.Errorf("sensor registers must be between 0 and 65535")
		}
		if err := c.SensorConfig().Validate(); err != nil {
			return fmt.Errorf("invalid sensor settings: %w", err)
		}
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level: %s, must be one of: debug, info, warn, error", c.LogLevel)
	}

	// Validate log format
	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[c.LogFormat] {
		return fmt.Errorf("invalid log_format: %s, must be one of: text, json", c.LogFormat)
	}

	return nil
}

// ResolveAPIKey returns the API key from the environment, the config or the
// key file, in that order.
func (c *Config) ResolveAPIKey() (string, error) {
	if key := strings.TrimSpace(os.Getenv(APIKeyEnv)); key != "" {
		return key, nil
	}

	if key := strings.TrimSpace(c.APIKey); key != "" {
		return key, nil
	}

	if c.APIKeyFile != "" {
		data, err := os.ReadFile(c.APIKeyFile)
		if err != nil {
			return "", fmt.Errorf("failed to read api_key_file: %w", err)
		}
		if key := strings.TrimSpace(string(data)); key != "" {
			return key, nil
		}
		return "", fmt.Errorf("api_key_file %s is empty", c.APIKeyFile)
	}

	return "", fmt.Errorf("no API key: set %s, api_key or api_key_file", APIKeyEnv)
}

// TimeLocation returns the zone forecast dates are shown in.
func (c *Config) TimeLocation() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// RadarOptions converts the radar settings for the API client.
func (c *Config) RadarOptions() wunderground.RadarOptions {
	return wunderground.RadarOptions{
		Animated:    c.RadarAnimated,
		ImageFormat: c.RadarFormat,
		Width:       c.RadarWidth,
		Height:      c.RadarHeight,
		NewMaps:     true,
		Frames:      c.RadarFrames,
		Delay:       c.RadarDelay,
	}
}

// SensorConfig converts the sensor settings for the Modbus client.
func (c *Config) SensorConfig() sensor.Config {
	cfg := sensor.DefaultConfig()
	cfg.Address = c.SensorAddress
	cfg.SlaveID = byte(c.SensorSlaveID)
	cfg.RegisterType = c.SensorRegisterType
	cfg.TemperatureRegister = uint16(c.SensorTemperatureRegister)
	cfg.HumidityRegister = uint16(c.SensorHumidityRegister)
	cfg.Scale = c.SensorScale
	return cfg
}

// MarshalJSON implements custom JSON marshaling to handle durations
func (c *Config) MarshalJSON() ([]byte, error) {
	type Alias Config
	return json.Marshal(&struct {
		*Alias
		APITimeout     string `json:"api_timeout"`
		UpdateInterval string `json:"update_interval"`
	}{
		Alias:          (*Alias)(c),
		APITimeout:     c.APITimeout.String(),
		UpdateInterval: c.UpdateInterval.String(),
	})
}

// UnmarshalJSON implements custom JSON unmarshaling to handle durations
func (c *Config) UnmarshalJSON(data []byte) error {
	type Alias Config
	aux := &struct {
		*Alias
		APITimeout     string `json:"api_timeout"`
		UpdateInterval string `json:"update_interval"`
	}{
		Alias: (*Alias)(c),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	if aux.APITimeout != "" {
		if c.APITimeout, err = time.ParseDuration(aux.APITimeout); err != nil {
			return fmt.Errorf("invalid api_timeout: %w", err)
		}
	}

	if aux.UpdateInterval != "" {
		if c.UpdateInterval, err = time.ParseDuration(aux.UpdateInterval); err != nil {
			return fmt.Errorf("invalid update_interval: %w", err)
		}
	}

	return nil
}

// String returns a string representation of the config with the API key masked
func (c *Config) String() string {
	masked := *c
	if masked.APIKey != "" {
		masked.APIKey = "****"
	}
	data, _ := json.MarshalIndent(&masked, "", "  ")
	return string(data)
}
