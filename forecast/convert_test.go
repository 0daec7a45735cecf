package forecast

import (
	"math"
	"testing"
)

func TestTemperatureConversion(t *testing.T) {
	tests := []struct {
		name       string
		fahrenheit float64
		celsius    float64
	}{
		{name: "freezing", fahrenheit: 32, celsius: 0},
		{name: "boiling", fahrenheit: 212, celsius: 100},
		{name: "equal point", fahrenheit: -40, celsius: -40},
		{name: "room", fahrenheit: 68, celsius: 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FahrenheitToCelsius(tt.fahrenheit); math.Abs(got-tt.celsius) > 1e-9 {
				t.Errorf("FahrenheitToCelsius(%v) = %v, want %v", tt.fahrenheit, got, tt.celsius)
			}
			if got := CelsiusToFahrenheit(tt.celsius); math.Abs(got-tt.fahrenheit) > 1e-9 {
				t.Errorf("CelsiusToFahrenheit(%v) = %v, want %v", tt.celsius, got, tt.fahrenheit)
			}
		})
	}
}

func TestDegreesToDirection(t *testing.T) {
	tests := []struct {
		degrees float64
		want    string
		wantErr bool
	}{
		{degrees: 0, want: "N"},
		{degrees: 11.25, want: "N"},
		{degrees: 11.26, want: "NNE"},
		{degrees: 33.75, want: "NNE"},
		{degrees: 45, want: "NE"},
		{degrees: 90, want: "E"},
		{degrees: 135, want: "SE"},
		{degrees: 180, want: "S"},
		{degrees: 202.5, want: "SSW"},
		{degrees: 270, want: "W"},
		{degrees: 315, want: "NW"},
		{degrees: 348.75, want: "NNW"},
		{degrees: 348.76, want: "N"},
		{degrees: 360, want: "N"},
		{degrees: -1, wantErr: true},
		{degrees: 360.5, wantErr: true},
	}

	for _, tt := range tests {
		got, err := DegreesToDirection(tt.degrees)
		if tt.wantErr {
			if err == nil {
				t.Errorf("DegreesToDirection(%v) expected error", tt.degrees)
			}
			continue
		}
		if err != nil {
			t.Errorf("DegreesToDirection(%v) returned error: %v", tt.degrees, err)
			continue
		}
		if got != tt.want {
			t.Errorf("DegreesToDirection(%v) = %q, want %q", tt.degrees, got, tt.want)
		}
	}
}

func TestFormatInches(t *testing.T) {
	tests := map[float64]string{
		0:     `0.00"`,
		0.1:   `0.10"`,
		0.25:  `0.25"`,
		1.005: `1.00"`,
	}

	for in, want := range tests {
		if got := FormatInches(in); got != want {
			t.Errorf("FormatInches(%v) = %q, want %q", in, got, want)
		}
	}
}
