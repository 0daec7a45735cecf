package wunderground

import (
	"fmt"
	"strings"
)

// Format is the response encoding requested from the API.
type Format string

// Supported document formats.
const (
	FormatXML  Format = "xml"
	FormatJSON Format = "json"
)

// ParseFormat converts a configuration value to a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatXML:
		return FormatXML, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", &ValidationError{Field: "format", Message: fmt.Sprintf("unsupported format %q, must be xml or json", s)}
	}
}

// Data features.
const (
	FeatureForecast      = "forecast"
	FeatureForecast10Day = "forecast10day"
	FeatureRadar         = "radar"
	FeatureAnimatedRadar = "animatedradar"
)

// RadarOptions controls the radar image request.
type RadarOptions struct {
	Animated bool
	// ImageFormat is gif, png or swf.
	ImageFormat string
	Width       int
	Height      int
	NewMaps     bool
	// Frames and Delay only apply to animated radar.
	Frames int
	Delay  int
}

// DefaultRadarOptions returns an 800x400 animated GIF with 15 frames.
func DefaultRadarOptions() RadarOptions {
	return RadarOptions{
		Animated:    true,
		ImageFormat: "gif",
		Width:       800,
		Height:      400,
		NewMaps:     true,
		Frames:      15,
		Delay:       25,
	}
}

func (o RadarOptions) feature() string {
	if o.Animated {
		return FeatureAnimatedRadar
	}
	return FeatureRadar
}

// Validate checks the radar options.
func (o RadarOptions) Validate() error {
	switch o.ImageFormat {
	case "gif", "png", "swf":
	default:
		return &ValidationError{Field: "image_format", Message: fmt.Sprintf("unsupported image format %q", o.ImageFormat)}
	}
	if o.Width <= 0 || o.Height <= 0 {
		return &ValidationError{Field: "size", Message: fmt.Sprintf("width and height must be positive, got %dx%d", o.Width, o.Height)}
	}
	if o.Animated && (o.Frames <= 0 || o.Delay < 0) {
		return &ValidationError{Field: "frames", Message: "animated radar needs a positive frame count and non-negative delay"}
	}
	return nil
}
