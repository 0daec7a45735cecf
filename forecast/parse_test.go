package forecast

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/devskill-org/weatherdisplay/document"
)

func loadFixture(t *testing.T, name string) document.Node {
	t.Helper()

	f, err := os.Open("testdata/" + name)
	if err != nil {
		t.Fatalf("Failed to open fixture: %v", err)
	}
	defer f.Close()

	var doc document.Node
	if strings.HasSuffix(name, ".json") {
		doc, err = document.ParseJSON(f)
	} else {
		doc, err = document.ParseXML(f)
	}
	if err != nil {
		t.Fatalf("Failed to parse fixture %s: %v", name, err)
	}
	return doc
}

func TestParseIn(t *testing.T) {
	for _, fixture := range []string{"forecast.xml", "forecast.json"} {
		t.Run(fixture, func(t *testing.T) {
			set, err := ParseIn(loadFixture(t, fixture), time.UTC)
			if err != nil {
				t.Fatalf("ParseIn returned error: %v", err)
			}

			for i, day := range set {
				if day.Period != i+1 {
					t.Errorf("Expected period %d at index %d, got %d", i+1, i, day.Period)
				}
			}

			first := set[0]
			wantDate := time.Date(2012, time.June, 27, 6, 0, 0, 0, time.UTC)
			if !first.Date.Equal(wantDate) {
				t.Errorf("Expected date %v, got %v", wantDate, first.Date)
			}
			if first.DayIcon != "partlycloudy" {
				t.Errorf("Expected day icon %q, got %q", "partlycloudy", first.DayIcon)
			}
			if first.NightIcon != "nt_clear" {
				t.Errorf("Expected night icon %q, got %q", "nt_clear", first.NightIcon)
			}
			if !strings.HasPrefix(first.DayText, "Partly cloudy in the morning") {
				t.Errorf("Unexpected day text %q", first.DayText)
			}
			if first.NightText != "Clear. Low of 57F. Winds from the WSW at 5 to 10 mph." {
				t.Errorf("Unexpected night text %q", first.NightText)
			}
			if first.Pop != 10 || first.DayPop != 10 || first.NightPop != 0 {
				t.Errorf("Unexpected pops %d/%d/%d", first.Pop, first.DayPop, first.NightPop)
			}
			if first.HighF != 75 || first.LowF != 57 {
				t.Errorf("Expected high/low 75/57, got %d/%d", first.HighF, first.LowF)
			}
			if first.Humidity != 68 {
				t.Errorf("Expected humidity 68, got %d", first.Humidity)
			}
			// qpf_day is reported without a value once the day period has passed.
			if first.QPFDayIn != 0 {
				t.Errorf("Expected empty qpf_day to read as 0, got %v", first.QPFDayIn)
			}
			if first.MinWindDir != "W" || first.MinWindMPH != 5 || first.MaxWindMPH != 10 {
				t.Errorf("Unexpected wind %s %d-%d", first.MinWindDir, first.MinWindMPH, first.MaxWindMPH)
			}
			if first.MaxWindDegrees != 270 {
				t.Errorf("Expected max wind degrees 270, got %v", first.MaxWindDegrees)
			}

			second := set[1]
			if second.QPFAllDayIn != 0.25 || second.QPFDayIn != 0.10 || second.QPFNightIn != 0.15 {
				t.Errorf("Unexpected qpf %v/%v/%v", second.QPFAllDayIn, second.QPFDayIn, second.QPFNightIn)
			}
			if second.DayIcon != "chancerain" || second.NightIcon != "nt_rain" {
				t.Errorf("Unexpected icons %q/%q", second.DayIcon, second.NightIcon)
			}

			last := set[3]
			if last.Date.Weekday() != time.Saturday {
				t.Errorf("Expected last day on Saturday, got %v", last.Date.Weekday())
			}
			if last.NightPop != 20 {
				t.Errorf("Expected last night pop 20, got %d", last.NightPop)
			}
		})
	}
}

func TestParseFormatsAgree(t *testing.T) {
	fromXML, err := ParseIn(loadFixture(t, "forecast.xml"), time.UTC)
	if err != nil {
		t.Fatalf("ParseIn(xml) returned error: %v", err)
	}
	fromJSON, err := ParseIn(loadFixture(t, "forecast.json"), time.UTC)
	if err != nil {
		t.Fatalf("ParseIn(json) returned error: %v", err)
	}

	if fromXML != fromJSON {
		t.Errorf("XML and JSON documents produced different sets:\n%v\n%v", fromXML, fromJSON)
	}
}

func TestParseInLocation(t *testing.T) {
	loc := time.FixedZone("PDT", -7*60*60)

	set, err := ParseIn(loadFixture(t, "forecast.xml"), loc)
	if err != nil {
		t.Fatalf("ParseIn returned error: %v", err)
	}

	if set[0].Date.Location() != loc {
		t.Errorf("Expected date in %v, got %v", loc, set[0].Date.Location())
	}
	if set[0].Date.Day() != 26 || set[0].Date.Hour() != 23 {
		t.Errorf("Expected 11 PM on the 26th, got %v", set[0].Date)
	}
}

// forecastDoc builds a minimal document with the given number of narrative
// periods and tabular days. mutate may change a tabular day before it is added.
func forecastDoc(periods, days int, mutate func(i int, fields map[string]string)) document.Node {
	var narrative []document.Node
	for range periods {
		narrative = append(narrative, document.NewElement("forecastday", "",
			document.NewElement("icon", "clear"),
			document.NewElement("fcttext", "Sunny. High of 70F."),
			document.NewElement("pop", "0"),
		))
	}

	var tabular []document.Node
	for i := range days {
		fields := map[string]string{
			"epoch":       "1340776800",
			"pop":         "0",
			"high":        "70",
			"low":         "50",
			"avehumidity": "40",
			"qpf_allday":  "0.00",
			"qpf_day":     "0.00",
			"qpf_night":   "0.00",
			"mph":         "5",
			"degrees":     "90",
			"dir":         "E",
		}
		if mutate != nil {
			mutate(i, fields)
		}

		children := []document.Node{
			document.NewElement("date", "", document.NewElement("epoch", fields["epoch"])),
			document.NewElement("pop", fields["pop"]),
			document.NewElement("high", "", document.NewElement("fahrenheit", fields["high"])),
			document.NewElement("low", "", document.NewElement("fahrenheit", fields["low"])),
			document.NewElement("avehumidity", fields["avehumidity"]),
			document.NewElement("qpf_allday", "", document.NewElement("in", fields["qpf_allday"])),
			document.NewElement("qpf_day", "", document.NewElement("in", fields["qpf_day"])),
			document.NewElement("qpf_night", "", document.NewElement("in", fields["qpf_night"])),
		}
		for _, wind := range []string{"maxwind", "avewind"} {
			children = append(children, document.NewElement(wind, "",
				document.NewElement("mph", fields["mph"]),
				document.NewElement("dir", fields["dir"]),
				document.NewElement("degrees", fields["degrees"]),
			))
		}
		if _, drop := fields["drop"]; drop {
			children = children[1:]
		}
		tabular = append(tabular, document.NewElement("forecastday", "", children...))
	}

	return document.NewElement("response", "",
		document.NewElement("forecast", "",
			document.NewElement("txt_forecast", "", narrative...),
			document.NewElement("simpleforecast", "", tabular...),
		),
	)
}

func TestParseExtraPeriodsIgnored(t *testing.T) {
	set, err := ParseIn(forecastDoc(20, 10, func(i int, fields map[string]string) {
		fields["high"] = []string{"70", "71", "72", "73", "74", "75", "76", "77", "78", "79"}[i]
	}), time.UTC)
	if err != nil {
		t.Fatalf("ParseIn returned error: %v", err)
	}

	for i, day := range set {
		if day.HighF != 70+i {
			t.Errorf("Expected high %d for period %d, got %d", 70+i, day.Period, day.HighF)
		}
	}
}

func TestParseEmptyFields(t *testing.T) {
	set, err := ParseIn(forecastDoc(8, 4, func(i int, fields map[string]string) {
		fields["qpf_night"] = ""
		fields["avehumidity"] = ""
		fields["dir"] = ""
	}), time.UTC)
	if err != nil {
		t.Fatalf("ParseIn returned error: %v", err)
	}

	for _, day := range set {
		if day.QPFNightIn != 0 {
			t.Errorf("Expected empty qpf_night to read as 0, got %v", day.QPFNightIn)
		}
		if day.Humidity != 0 {
			t.Errorf("Expected empty humidity to read as 0, got %d", day.Humidity)
		}
		if day.MinWindDir != "" {
			t.Errorf("Expected empty wind direction, got %q", day.MinWindDir)
		}
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name      string
		doc       document.Node
		wantIs    error
		checkType func(error) bool
	}{
		{
			name:   "missing narrative section",
			doc:    document.NewElement("response", "", document.NewElement("simpleforecast", "")),
			wantIs: ErrStructure,
			checkType: func(err error) bool {
				var se *SectionError
				return errors.As(err, &se) && se.Section == "txt_forecast"
			},
		},
		{
			name:   "too few narrative periods",
			doc:    forecastDoc(7, 4, nil),
			wantIs: ErrStructure,
			checkType: func(err error) bool {
				var se *SectionError
				return errors.As(err, &se) && se.Want == 8 && se.Got == 7
			},
		},
		{
			name: "missing tabular section",
			doc: func() document.Node {
				narrative, _ := document.First(forecastDoc(8, 4, nil), "txt_forecast")
				return document.NewElement("response", "", document.NewElement("forecast", "", narrative))
			}(),
			wantIs: ErrStructure,
			checkType: func(err error) bool {
				var se *SectionError
				return errors.As(err, &se) && se.Section == "simpleforecast" && se.Want == 0
			},
		},
		{
			name:   "too few tabular days",
			doc:    forecastDoc(8, 3, nil),
			wantIs: ErrStructure,
			checkType: func(err error) bool {
				var se *SectionError
				return errors.As(err, &se) && se.Section == "simpleforecast"
			},
		},
		{
			name: "missing date",
			doc: forecastDoc(8, 4, func(i int, fields map[string]string) {
				if i == 2 {
					fields["drop"] = ""
				}
			}),
			wantIs: ErrStructure,
			checkType: func(err error) bool {
				var fe *FieldError
				return errors.As(err, &fe) && fe.Field == "date/epoch" && fe.Period == 3
			},
		},
		{
			name: "non-numeric high",
			doc: forecastDoc(8, 4, func(i int, fields map[string]string) {
				fields["high"] = "warm"
			}),
			wantIs: ErrConversion,
			checkType: func(err error) bool {
				var ce *ConversionError
				return errors.As(err, &ce) && ce.Field == "high/fahrenheit" && ce.Value == "warm"
			},
		},
		{
			name: "empty epoch",
			doc: forecastDoc(8, 4, func(i int, fields map[string]string) {
				fields["epoch"] = ""
			}),
			wantIs: ErrConversion,
			checkType: func(err error) bool {
				var ce *ConversionError
				return errors.As(err, &ce) && ce.Field == "date/epoch"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := ParseIn(tt.doc, time.UTC)
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !errors.Is(err, tt.wantIs) {
				t.Errorf("Expected error to match %v, got %v", tt.wantIs, err)
			}
			if !tt.checkType(err) {
				t.Errorf("Unexpected error detail: %v", err)
			}
			if set != (Set{}) {
				t.Error("Expected zero set on failure")
			}
		})
	}
}

func TestDayString(t *testing.T) {
	day := Day{
		Period:      1,
		Date:        time.Date(2012, time.June, 27, 6, 0, 0, 0, time.UTC),
		DayText:     "Sunny.",
		NightText:   "Clear.",
		Pop:         20,
		DayPop:      10,
		NightPop:    30,
		HighF:       75,
		LowF:        57,
		Humidity:    68,
		QPFAllDayIn: 0.25,
		QPFDayIn:    0.1,
		QPFNightIn:  0.15,
		MinWindMPH:  5,
		MaxWindMPH:  10,
		MinWindDir:  "W",
	}

	want := "Wednesday Jun-27-2012\n" +
		"\tHigh: 75\n" +
		"\tLow: 57\n" +
		"\tHumidity: 68\n" +
		"\tprecip: 0.25\"\n" +
		"\tchance: 20%\n" +
		"\twinds: W @ 5-10mph\n" +
		"\tDay-time:\n" +
		"\t\tSunny.\n" +
		"\t\tprecip: 0.10\"\n" +
		"\t\tchance: 10%\n" +
		"\tNight-time:\n" +
		"\t\tClear.\n" +
		"\t\tprecip: 0.15\"\n" +
		"\t\tchance: 30%\n"

	if got := day.String(); got != want {
		t.Errorf("Unexpected summary:\n%s\nwant:\n%s", got, want)
	}

	if got := day.Wind(); got != "W 5-10mph" {
		t.Errorf("Expected wind %q, got %q", "W 5-10mph", got)
	}
}

func TestSunTimes(t *testing.T) {
	loc := time.FixedZone("CDT", -5*60*60)
	day := Day{Date: time.Date(2012, time.June, 27, 1, 0, 0, 0, loc)}

	// St. Louis
	sunrise, sunset := day.SunTimes(38.63, -90.2)

	if sunrise.Day() != 27 || sunset.Day() != 27 {
		t.Errorf("Expected sun times on the 27th, got %v and %v", sunrise, sunset)
	}
	if sunrise.Hour() < 5 || sunrise.Hour() > 6 {
		t.Errorf("Expected sunrise between 5 and 6 AM, got %v", sunrise)
	}
	if sunset.Hour() < 20 || sunset.Hour() > 21 {
		t.Errorf("Expected sunset between 8 and 9 PM, got %v", sunset)
	}
}
