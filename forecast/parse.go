package forecast

import (
	"strconv"
	"strings"
	"time"

	"github.com/devskill-org/weatherdisplay/document"
)

const (
	narrativeSection = "txt_forecast"
	tabularSection   = "simpleforecast"
	periodTag        = "forecastday"

	// Day and night narrative periods alternate, two per calendar day.
	narrativePeriods = Days * 2
)

// Parse builds the forecast set from a provider document using the local
// time zone for dates.
func Parse(doc document.Node) (Set, error) {
	return ParseIn(doc, time.Local)
}

// ParseIn builds the forecast set from a provider document. Epoch timestamps
// are converted to dates in loc.
//
// The document must contain a txt_forecast section with at least 8 narrative
// periods (day, night, day, night, ...) and a simpleforecast section with at
// least 4 calendar days. Extra periods are ignored.
func ParseIn(doc document.Node, loc *time.Location) (Set, error) {
	var set Set

	if loc == nil {
		loc = time.Local
	}

	narrative, err := section(doc, narrativeSection, narrativePeriods)
	if err != nil {
		return set, err
	}
	tabular, err := section(doc, tabularSection, Days)
	if err != nil {
		return set, err
	}

	for i := range Days {
		day, err := parseDay(i+1, narrative[2*i], narrative[2*i+1], tabular[i], loc)
		if err != nil {
			return Set{}, err
		}
		set[i] = day
	}

	return set, nil
}

// section returns the forecastday nodes of the named section.
func section(doc document.Node, name string, want int) ([]document.Node, error) {
	node, ok := document.First(doc, name)
	if !ok {
		return nil, &SectionError{Section: name}
	}

	periods := document.FindAll(node, periodTag)
	if len(periods) < want {
		return nil, &SectionError{Section: name, Want: want, Got: len(periods)}
	}
	return periods, nil
}

func parseDay(period int, dayNode, nightNode, simpleNode document.Node, loc *time.Location) (Day, error) {
	day := fieldReader{section: narrativeSection + " day", period: period, node: dayNode}
	night := fieldReader{section: narrativeSection + " night", period: period, node: nightNode}
	simple := fieldReader{section: tabularSection, period: period, node: simpleNode}

	d := Day{
		Period: period,
		Date:   time.Unix(simple.epoch("date", "epoch"), 0).In(loc),

		DayIcon:   day.text("icon"),
		NightIcon: night.text("icon"),
		DayText:   day.text("fcttext"),
		NightText: night.text("fcttext"),

		Pop:      simple.int("pop"),
		DayPop:   day.int("pop"),
		NightPop: night.int("pop"),

		HighF:    simple.int("high", "fahrenheit"),
		LowF:     simple.int("low", "fahrenheit"),
		Humidity: simple.int("avehumidity"),

		QPFAllDayIn: simple.float("qpf_allday", "in"),
		QPFDayIn:    simple.float("qpf_day", "in"),
		QPFNightIn:  simple.float("qpf_night", "in"),

		MinWindMPH:     simple.int("avewind", "mph"),
		MinWindDegrees: simple.float("avewind", "degrees"),
		MinWindDir:     simple.text("avewind", "dir"),
		MaxWindMPH:     simple.int("maxwind", "mph"),
		MaxWindDegrees: simple.float("maxwind", "degrees"),
		MaxWindDir:     simple.text("maxwind", "dir"),
	}

	for _, r := range []*fieldReader{&simple, &day, &night} {
		if r.err != nil {
			return Day{}, r.err
		}
	}
	return d, nil
}

// fieldReader extracts values from one forecast period. The first failure is
// kept and later reads return zero values.
type fieldReader struct {
	section string
	period  int
	node    document.Node
	err     error
}

// lookup descends through path, one tag per level.
func (r *fieldReader) lookup(path []string) (string, bool) {
	if r.err != nil {
		return "", false
	}

	node := r.node
	for _, tag := range path {
		next, ok := document.First(node, tag)
		if !ok {
			r.err = &FieldError{Section: r.section, Period: r.period, Field: strings.Join(path, "/")}
			return "", false
		}
		node = next
	}
	return node.Text(), true
}

func (r *fieldReader) text(path ...string) string {
	value, _ := r.lookup(path)
	return value
}

// int reads an integer field. An empty node yields 0.
func (r *fieldReader) int(path ...string) int {
	value, ok := r.lookup(path)
	if !ok || value == "" {
		return 0
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		r.fail(path, value, err)
		return 0
	}
	return n
}

// float reads a decimal field. An empty node yields 0.
func (r *fieldReader) float(path ...string) float64 {
	value, ok := r.lookup(path)
	if !ok || value == "" {
		return 0
	}

	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		r.fail(path, value, err)
		return 0
	}
	return f
}

// epoch reads a Unix timestamp. Unlike other numeric fields it may not be empty.
func (r *fieldReader) epoch(path ...string) int64 {
	value, ok := r.lookup(path)
	if !ok {
		return 0
	}

	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		r.fail(path, value, err)
		return 0
	}
	return n
}

func (r *fieldReader) fail(path []string, value string, err error) {
	r.err = &ConversionError{
		Section: r.section,
		Period:  r.period,
		Field:   strings.Join(path, "/"),
		Value:   value,
		Err:     err,
	}
}
