// Package render fills SVG display templates with forecast values.
package render

import (
	_ "embed"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/devskill-org/weatherdisplay/forecast"
)

// DefaultTemplate is the built-in four-day display layout.
//
//go:embed template.svg
var DefaultTemplate string

// Date layouts used in the display.
const (
	TitleLayout     = "Mon Jan-02"
	SunLayout       = "15:04"
	GeneratedLayout = "Mon Jan-02 15:04"
)

// TemperatureUnit selects how high and low temperatures are displayed.
type TemperatureUnit string

// Supported temperature units.
const (
	Fahrenheit TemperatureUnit = "F"
	Celsius    TemperatureUnit = "C"
)

// Global tokens, replaced once per document.
const (
	TokenGeneratedTime  = "generatedtime"
	TokenIndoorTemp     = "indoortemp"
	TokenIndoorHumidity = "indoorhumidity"
)

// Substitution replaces every occurrence of Token with Value.
type Substitution struct {
	Token string
	Value string
}

// SunLocation enables the sunrise and sunset tokens.
type SunLocation struct {
	Latitude  float64
	Longitude float64
}

// Renderer turns a forecast set into a filled template.
type Renderer struct {
	BreakLength int
	Unit        TemperatureUnit
	// Sun is optional. Without it the sunrise and sunset tokens are left alone.
	Sun *SunLocation
	Now func() time.Time
}

// NewRenderer creates a renderer with the default break length in Fahrenheit.
func NewRenderer() *Renderer {
	return &Renderer{
		BreakLength: DefaultBreakLength,
		Unit:        Fahrenheit,
		Now:         time.Now,
	}
}

// Render returns template with every token of every day replaced, followed
// by the generated time and any extra substitutions. Tokens missing from the
// template are skipped.
func (r *Renderer) Render(template string, set forecast.Set, extra ...Substitution) string {
	output := template
	for _, sub := range r.Substitutions(set, extra...) {
		output = strings.ReplaceAll(output, sub.Token, sub.Value)
	}
	return output
}

// Substitutions lists the replacements Render applies, in application order.
func (r *Renderer) Substitutions(set forecast.Set, extra ...Substitution) []Substitution {
	var subs []Substitution
	for _, day := range set {
		subs = append(subs, r.daySubstitutions(day)...)
	}

	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	subs = append(subs, Substitution{Token: TokenGeneratedTime, Value: now().Format(GeneratedLayout)})

	return append(subs, extra...)
}

func (r *Renderer) daySubstitutions(day forecast.Day) []Substitution {
	icon := fmt.Sprintf("P%d", day.Period)
	prefix := fmt.Sprintf("period%d", day.Period)

	breakLength := r.BreakLength
	if breakLength <= 0 {
		breakLength = DefaultBreakLength
	}
	day1, day2 := WrapText(CleanText(day.DayText), breakLength)
	night1, night2 := WrapText(CleanText(day.NightText), breakLength)

	subs := []Substitution{
		{icon + "I1", day.DayIcon},
		{icon + "I2", day.NightIcon},
		{prefix + "title", day.Date.Format(TitleLayout)},
		{prefix + "daytext1", day1},
		{prefix + "daytext2", day2},
		{prefix + "nighttext1", night1},
		{prefix + "nighttext2", night2},
		{prefix + "high", r.temperature(day.HighF)},
		{prefix + "low", r.temperature(day.LowF)},
		{prefix + "humidity", strconv.Itoa(day.Humidity) + "%"},
		{prefix + "dayrainchance", strconv.Itoa(day.DayPop) + "%"},
		{prefix + "nightrainchance", strconv.Itoa(day.NightPop) + "%"},
		{prefix + "dayrainamount", forecast.FormatInches(day.QPFDayIn)},
		{prefix + "nightrainamount", forecast.FormatInches(day.QPFNightIn)},
		{prefix + "rainchance", strconv.Itoa(day.Pop) + "%"},
		{prefix + "rainamount", forecast.FormatInches(day.QPFAllDayIn)},
		{prefix + "wind", day.Wind()},
	}

	if r.Sun != nil {
		sunrise, sunset := day.SunTimes(r.Sun.Latitude, r.Sun.Longitude)
		subs = append(subs,
			Substitution{prefix + "sunrise", sunrise.Format(SunLayout)},
			Substitution{prefix + "sunset", sunset.Format(SunLayout)},
		)
	}

	return subs
}

// temperature formats a Fahrenheit value in the renderer's unit with its suffix.
func (r *Renderer) temperature(f int) string {
	if r.Unit == Celsius {
		c := int(math.Round(forecast.FahrenheitToCelsius(float64(f))))
		return strconv.Itoa(c) + string(Celsius)
	}
	return strconv.Itoa(f) + string(Fahrenheit)
}

// IndoorSubstitutions formats an indoor reading for the global tokens.
func IndoorSubstitutions(unit TemperatureUnit, celsius, humidity float64) []Substitution {
	temp := celsius
	if unit != Celsius {
		unit = Fahrenheit
		temp = forecast.CelsiusToFahrenheit(celsius)
	}
	return []Substitution{
		{TokenIndoorTemp, fmt.Sprintf("%.0f%s", temp, unit)},
		{TokenIndoorHumidity, fmt.Sprintf("%.0f%%", humidity)},
	}
}
