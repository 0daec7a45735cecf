package forecast

import "fmt"

// FahrenheitToCelsius converts a temperature from °F to °C.
func FahrenheitToCelsius(f float64) float64 {
	return (f - 32) * 5 / 9
}

// CelsiusToFahrenheit converts a temperature from °C to °F.
func CelsiusToFahrenheit(c float64) float64 {
	return c*9/5 + 32
}

var compassPoints = [...]string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

// DegreesToDirection converts a compass heading in degrees to a 16-point
// direction such as "NNE". Each point covers 22.5° centered on its heading;
// boundaries belong to the lower point.
func DegreesToDirection(deg float64) (string, error) {
	if deg < 0 || deg > 360 {
		return "", fmt.Errorf("degree value must be 0-360, got %g", deg)
	}
	if deg <= 11.25 || deg > 348.75 {
		return "N", nil
	}

	// Shift by half a sector so sector i spans (11.25+22.5*(i-1), 11.25+22.5*i].
	shifted := deg - 11.25
	index := int(shifted / 22.5)
	if shifted == float64(index)*22.5 {
		index--
	}
	return compassPoints[index+1], nil
}
