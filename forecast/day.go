package forecast

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Days is the number of calendar days in a forecast set.
const Days = 4

// Set holds the forecast days ordered by period, today first.
type Set [Days]Day

// Day combines the narrative day and night periods with the tabular data
// for one calendar day.
type Day struct {
	// Period is the 1-based position of the day in the set (1 = today).
	Period int
	Date   time.Time

	DayIcon   string
	NightIcon string
	DayText   string
	NightText string

	// Pop is the probability of precipitation for the whole day.
	Pop      int
	DayPop   int
	NightPop int

	HighF    int
	LowF     int
	Humidity int

	QPFAllDayIn float64
	QPFDayIn    float64
	QPFNightIn  float64

	MinWindMPH     int
	MinWindDegrees float64
	MinWindDir     string
	MaxWindMPH     int
	MaxWindDegrees float64
	MaxWindDir     string
}

// HighC returns the forecast high in degrees Celsius.
func (d Day) HighC() float64 {
	return FahrenheitToCelsius(float64(d.HighF))
}

// LowC returns the forecast low in degrees Celsius.
func (d Day) LowC() float64 {
	return FahrenheitToCelsius(float64(d.LowF))
}

// Wind formats the prevailing direction and the speed range, e.g. "NNE 5-10mph".
func (d Day) Wind() string {
	return fmt.Sprintf("%s %d-%dmph", d.MinWindDir, d.MinWindMPH, d.MaxWindMPH)
}

// String returns a multi-line summary of the day.
func (d Day) String() string {
	var b strings.Builder
	b.WriteString(d.Date.Format("Monday Jan-02-2006") + "\n")
	fmt.Fprintf(&b, "\tHigh: %d\n", d.HighF)
	fmt.Fprintf(&b, "\tLow: %d\n", d.LowF)
	fmt.Fprintf(&b, "\tHumidity: %d\n", d.Humidity)
	fmt.Fprintf(&b, "\tprecip: %s\n", FormatInches(d.QPFAllDayIn))
	fmt.Fprintf(&b, "\tchance: %d%%\n", d.Pop)
	fmt.Fprintf(&b, "\twinds: %s @ %d-%dmph\n", d.MinWindDir, d.MinWindMPH, d.MaxWindMPH)
	b.WriteString("\tDay-time:\n")
	fmt.Fprintf(&b, "\t\t%s\n", d.DayText)
	fmt.Fprintf(&b, "\t\tprecip: %s\n", FormatInches(d.QPFDayIn))
	fmt.Fprintf(&b, "\t\tchance: %d%%\n", d.DayPop)
	b.WriteString("\tNight-time:\n")
	fmt.Fprintf(&b, "\t\t%s\n", d.NightText)
	fmt.Fprintf(&b, "\t\tprecip: %s\n", FormatInches(d.QPFNightIn))
	fmt.Fprintf(&b, "\t\tchance: %d%%\n", d.NightPop)
	return b.String()
}

// String returns the summaries of all days in period order.
func (s Set) String() string {
	var b strings.Builder
	for _, day := range s {
		b.WriteString(day.String())
	}
	return b.String()
}

// FormatInches formats a precipitation amount with an inch mark, e.g. 0.25".
func FormatInches(in float64) string {
	return strconv.FormatFloat(in, 'f', 2, 64) + `"`
}
