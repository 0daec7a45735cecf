package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/devskill-org/weatherdisplay/document"
	"github.com/devskill-org/weatherdisplay/forecast"
)

func loadFixtureSet(t *testing.T) forecast.Set {
	t.Helper()
	file, err := os.Open(fixturePath)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	doc, err := document.ParseXML(file)
	if err != nil {
		t.Fatalf("Failed to parse fixture: %v", err)
	}
	set, err := forecast.ParseIn(doc, time.UTC)
	if err != nil {
		t.Fatalf("Failed to build forecast: %v", err)
	}
	return set
}

func openSQLiteArchive(t *testing.T) *Archive {
	t.Helper()
	archive, err := OpenArchive(ArchiveDriverSQLite, filepath.Join(t.TempDir(), "archive.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to open archive: %v", err)
	}
	t.Cleanup(func() { archive.Close() })

	if err := archive.Init(context.Background()); err != nil {
		t.Fatalf("Failed to init archive: %v", err)
	}
	return archive
}

func checkArchivedSet(t *testing.T, days []ArchivedDay, set forecast.Set, runID uuid.UUID) {
	t.Helper()
	if len(days) != forecast.Days {
		t.Fatalf("Expected %d days, got %d", forecast.Days, len(days))
	}

	for i, archived := range days {
		want := set[i]
		got := archived.Day

		if archived.RunID != runID {
			t.Errorf("Day %d: expected run id %s, got %s", i, runID, archived.RunID)
		}
		if archived.ForecastDate != want.Date.Format("2006-01-02") {
			t.Errorf("Day %d: expected forecast date %s, got %s", i, want.Date.Format("2006-01-02"), archived.ForecastDate)
		}
		if !got.Date.Equal(want.Date) {
			t.Errorf("Day %d: expected date %v, got %v", i, want.Date, got.Date)
		}
		if got.Period != want.Period || got.HighF != want.HighF || got.LowF != want.LowF {
			t.Errorf("Day %d: expected period %d %d/%d, got %d %d/%d",
				i, want.Period, want.HighF, want.LowF, got.Period, got.HighF, got.LowF)
		}
		if got.DayText != want.DayText || got.NightText != want.NightText {
			t.Errorf("Day %d: narrative mismatch", i)
		}
		if got.QPFDayIn != want.QPFDayIn || got.MaxWindDir != want.MaxWindDir || got.MaxWindDegrees != want.MaxWindDegrees {
			t.Errorf("Day %d: expected %+v, got %+v", i, want, got)
		}
	}
}

func TestArchive_SaveAndLoadSQLite(t *testing.T) {
	archive := openSQLiteArchive(t)
	ctx := context.Background()
	set := loadFixtureSet(t)

	runID := uuid.New()
	fetchedAt := time.Date(2012, 6, 27, 7, 0, 0, 0, time.UTC)
	if err := archive.SaveForecast(ctx, runID, "MO/St_Louis", fetchedAt, set); err != nil {
		t.Fatalf("SaveForecast returned error: %v", err)
	}

	days, err := archive.LoadForecasts(ctx, "MO/St_Louis", set[0].Date, time.UTC)
	if err != nil {
		t.Fatalf("LoadForecasts returned error: %v", err)
	}
	checkArchivedSet(t, days, set, runID)

	if !days[0].FetchedAt.Equal(fetchedAt) {
		t.Errorf("Expected fetched_at %v, got %v", fetchedAt, days[0].FetchedAt)
	}

	// Other locations are kept apart
	other, err := archive.LoadForecasts(ctx, "CA/San_Francisco", set[0].Date, time.UTC)
	if err != nil {
		t.Fatalf("LoadForecasts returned error: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("Expected no days for another location, got %d", len(other))
	}

	// Only dates from the requested day onwards
	later, err := archive.LoadForecasts(ctx, "MO/St_Louis", set[2].Date, time.UTC)
	if err != nil {
		t.Fatalf("LoadForecasts returned error: %v", err)
	}
	if len(later) != 2 {
		t.Errorf("Expected 2 days from the third day, got %d", len(later))
	}
}

func TestArchive_NewerRunReplacesDays(t *testing.T) {
	archive := openSQLiteArchive(t)
	ctx := context.Background()
	set := loadFixtureSet(t)

	if err := archive.SaveForecast(ctx, uuid.New(), "MO/St_Louis", time.Now(), set); err != nil {
		t.Fatalf("SaveForecast returned error: %v", err)
	}

	updated := set
	for i := range updated {
		updated[i].HighF += 10
	}
	runID := uuid.New()
	if err := archive.SaveForecast(ctx, runID, "MO/St_Louis", time.Now(), updated); err != nil {
		t.Fatalf("SaveForecast returned error: %v", err)
	}

	days, err := archive.LoadForecasts(ctx, "MO/St_Louis", set[0].Date, time.UTC)
	if err != nil {
		t.Fatalf("LoadForecasts returned error: %v", err)
	}
	checkArchivedSet(t, days, updated, runID)
}

func TestArchive_StationSavesRuns(t *testing.T) {
	config := newTestConfig(t)
	station := newTestStation(t, config, &fakeSource{fixture: fixturePath})
	station.archive = openSQLiteArchive(t)

	result, err := station.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}

	days, err := station.archive.LoadForecasts(context.Background(), config.Location, result.Forecast[0].Date, time.UTC)
	if err != nil {
		t.Fatalf("LoadForecasts returned error: %v", err)
	}
	checkArchivedSet(t, days, result.Forecast, result.RunID)
}

func TestOpenArchive_UnsupportedDriver(t *testing.T) {
	if _, err := OpenArchive("mysql", "dsn", nil); err == nil {
		t.Error("Expected error for unsupported driver")
	}
}

// TestArchive_Postgres runs the round trip against a real database
func TestArchive_Postgres(t *testing.T) {
	// Skip if no database connection available
	connString := os.Getenv("TEST_POSTGRES_CONN")
	if connString == "" {
		t.Skip("Skipping test: TEST_POSTGRES_CONN not set")
	}

	archive, err := OpenArchive(ArchiveDriverPostgres, connString, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	defer archive.Close()

	ctx := context.Background()
	if err := archive.Init(ctx); err != nil {
		t.Fatalf("Failed to init archive: %v", err)
	}

	// Clean up table before test
	if _, err := archive.db.Exec("DELETE FROM forecast_days WHERE location = $1", "test/archive"); err != nil {
		t.Fatalf("Failed to clean up table: %v", err)
	}

	set := loadFixtureSet(t)
	runID := uuid.New()
	if err := archive.SaveForecast(ctx, runID, "test/archive", time.Now(), set); err != nil {
		t.Fatalf("SaveForecast returned error: %v", err)
	}

	days, err := archive.LoadForecasts(ctx, "test/archive", set[0].Date, time.UTC)
	if err != nil {
		t.Fatalf("LoadForecasts returned error: %v", err)
	}
	checkArchivedSet(t, days, set, runID)
}
