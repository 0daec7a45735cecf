package forecast

import (
	"time"

	"github.com/sixdouglas/suncalc"
)

// SunTimes returns sunrise and sunset for the day at the given coordinates,
// in the same time zone as the day's date.
func (d Day) SunTimes(lat, lon float64) (sunrise, sunset time.Time) {
	// Noon keeps the calculation on the intended calendar day in any zone.
	noon := time.Date(d.Date.Year(), d.Date.Month(), d.Date.Day(), 12, 0, 0, 0, d.Date.Location())

	times := suncalc.GetTimes(noon, lat, lon)
	sunrise = times["sunrise"].Value.In(d.Date.Location())
	sunset = times["sunset"].Value.In(d.Date.Location())
	return sunrise, sunset
}
