package scheduler

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/devskill-org/weatherdisplay/forecast"
	"github.com/devskill-org/weatherdisplay/utils"
)

// Supported archive drivers.
const (
	ArchiveDriverPostgres = "postgres"
	ArchiveDriverSQLite   = "sqlite"
)

const archiveSchema = `
	CREATE TABLE IF NOT EXISTS forecast_days (
		location TEXT NOT NULL,
		forecast_date TEXT NOT NULL,
		run_id TEXT NOT NULL,
		fetched_at TEXT NOT NULL,
		forecast_epoch BIGINT NOT NULL,
		period INTEGER NOT NULL,
		day_icon TEXT NOT NULL,
		night_icon TEXT NOT NULL,
		day_text TEXT NOT NULL,
		night_text TEXT NOT NULL,
		pop INTEGER NOT NULL,
		day_pop INTEGER NOT NULL,
		night_pop INTEGER NOT NULL,
		high_f INTEGER NOT NULL,
		low_f INTEGER NOT NULL,
		humidity INTEGER NOT NULL,
		qpf_allday_in DOUBLE PRECISION NOT NULL,
		qpf_day_in DOUBLE PRECISION NOT NULL,
		qpf_night_in DOUBLE PRECISION NOT NULL,
		min_wind_mph INTEGER NOT NULL,
		min_wind_degrees DOUBLE PRECISION NOT NULL,
		min_wind_dir TEXT NOT NULL,
		max_wind_mph INTEGER NOT NULL,
		max_wind_degrees DOUBLE PRECISION NOT NULL,
		max_wind_dir TEXT NOT NULL,
		PRIMARY KEY (location, forecast_date)
	)`

// ArchivedDay is one stored forecast day.
type ArchivedDay struct {
	RunID        uuid.UUID    `json:"run_id"`
	Location     string       `json:"location"`
	FetchedAt    time.Time    `json:"fetched_at"`
	ForecastDate string       `json:"forecast_date"`
	Day          forecast.Day `json:"day"`
}

// Archive stores every fetched forecast keyed by location and calendar date.
// Newer forecasts for the same date replace older ones.
type Archive struct {
	db     *sql.DB
	driver string
	logger *zap.Logger
}

// OpenArchive connects to the archive database.
func OpenArchive(driver, dsn string, logger *zap.Logger) (*Archive, error) {
	if driver != ArchiveDriverPostgres && driver != ArchiveDriverSQLite {
		return nil, fmt.Errorf("unsupported archive driver: %s", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s archive: %w", driver, err)
	}

	return NewArchive(db, driver, logger), nil
}

// NewArchive wraps an open database connection.
func NewArchive(db *sql.DB, driver string, logger *zap.Logger) *Archive {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archive{db: db, driver: driver, logger: logger}
}

// Init creates the archive table if it does not exist.
func (a *Archive) Init(ctx context.Context) error {
	if a.driver == ArchiveDriverSQLite {
		if _, err := a.db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
			a.logger.Warn("could not set WAL mode", zap.Error(err))
		}
	}

	if _, err := a.db.ExecContext(ctx, archiveSchema); err != nil {
		return fmt.Errorf("failed to create forecast_days table: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (a *Archive) Close() error {
	return a.db.Close()
}

var placeholder = regexp.MustCompile(`\$\d+`)

// query adapts $n placeholders to the driver. All archive queries bind
// arguments in placeholder order.
func (a *Archive) query(q string) string {
	if a.driver == ArchiveDriverSQLite {
		return placeholder.ReplaceAllString(q, "?")
	}
	return q
}

// SaveForecast stores the days of a forecast run. Stored days from the first
// forecast date onwards are replaced.
func (a *Archive) SaveForecast(ctx context.Context, runID uuid.UUID, location string, fetchedAt time.Time, set forecast.Set) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	firstDate := utils.GetDateString(set[0].Date)
	_, err = tx.ExecContext(ctx, a.query(`DELETE FROM forecast_days WHERE location = $1 AND forecast_date >= $2`), location, firstDate)
	if err != nil {
		return fmt.Errorf("failed to delete existing forecast days: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, a.query(`
		INSERT INTO forecast_days (
			location,
			forecast_date,
			run_id,
			fetched_at,
			forecast_epoch,
			period,
			day_icon,
			night_icon,
			day_text,
			night_text,
			pop,
			day_pop,
			night_pop,
			high_f,
			low_f,
			humidity,
			qpf_allday_in,
			qpf_day_in,
			qpf_night_in,
			min_wind_mph,
			min_wind_degrees,
			min_wind_dir,
			max_wind_mph,
			max_wind_degrees,
			max_wind_dir
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
		ON CONFLICT (location, forecast_date) DO UPDATE SET
			run_id = EXCLUDED.run_id,
			fetched_at = EXCLUDED.fetched_at,
			forecast_epoch = EXCLUDED.forecast_epoch,
			period = EXCLUDED.period,
			day_icon = EXCLUDED.day_icon,
			night_icon = EXCLUDED.night_icon,
			day_text = EXCLUDED.day_text,
			night_text = EXCLUDED.night_text,
			pop = EXCLUDED.pop,
			day_pop = EXCLUDED.day_pop,
			night_pop = EXCLUDED.night_pop,
			high_f = EXCLUDED.high_f,
			low_f = EXCLUDED.low_f,
			humidity = EXCLUDED.humidity,
			qpf_allday_in = EXCLUDED.qpf_allday_in,
			qpf_day_in = EXCLUDED.qpf_day_in,
			qpf_night_in = EXCLUDED.qpf_night_in,
			min_wind_mph = EXCLUDED.min_wind_mph,
			min_wind_degrees = EXCLUDED.min_wind_degrees,
			min_wind_dir = EXCLUDED.min_wind_dir,
			max_wind_mph = EXCLUDED.max_wind_mph,
			max_wind_degrees = EXCLUDED.max_wind_degrees,
			max_wind_dir = EXCLUDED.max_wind_dir
	`))
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	fetched := utils.GetUTCString(fetchedAt)
	for _, day := range set {
		_, err := stmt.ExecContext(ctx,
			location,
			utils.GetDateString(day.Date),
			runID.String(),
			fetched,
			day.Date.Unix(),
			day.Period,
			day.DayIcon,
			day.NightIcon,
			day.DayText,
			day.NightText,
			day.Pop,
			day.DayPop,
			day.NightPop,
			day.HighF,
			day.LowF,
			day.Humidity,
			day.QPFAllDayIn,
			day.QPFDayIn,
			day.QPFNightIn,
			day.MinWindMPH,
			day.MinWindDegrees,
			day.MinWindDir,
			day.MaxWindMPH,
			day.MaxWindDegrees,
			day.MaxWindDir,
		)
		if err != nil {
			return fmt.Errorf("failed to insert forecast day for period %d: %w", day.Period, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	a.logger.Info("Saved forecast days to archive",
		zap.Int("days", len(set)),
		zap.String("location", location),
		zap.String("run_id", runID.String()))
	return nil
}

// LoadForecasts returns the stored days for location from the calendar date
// of from onwards, ordered by date. Dates are restored in loc.
func (a *Archive) LoadForecasts(ctx context.Context, location string, from time.Time, loc *time.Location) ([]ArchivedDay, error) {
	if loc == nil {
		loc = time.Local
	}

	rows, err := a.db.QueryContext(ctx, a.query(`
		SELECT
			location,
			forecast_date,
			run_id,
			fetched_at,
			forecast_epoch,
			period,
			day_icon,
			night_icon,
			day_text,
			night_text,
			pop,
			day_pop,
			night_pop,
			high_f,
			low_f,
			humidity,
			qpf_allday_in,
			qpf_day_in,
			qpf_night_in,
			min_wind_mph,
			min_wind_degrees,
			min_wind_dir,
			max_wind_mph,
			max_wind_degrees,
			max_wind_dir
		FROM forecast_days
		WHERE location = $1 AND forecast_date >= $2
		ORDER BY forecast_date ASC
	`), location, utils.GetDateString(from.In(loc)))
	if err != nil {
		return nil, fmt.Errorf("failed to query forecast days: %w", err)
	}
	defer rows.Close()

	var days []ArchivedDay
	for rows.Next() {
		var (
			archived  ArchivedDay
			runID     string
			fetchedAt string
			epoch     int64
		)
		d := &archived.Day

		err := rows.Scan(
			&archived.Location,
			&archived.ForecastDate,
			&runID,
			&fetchedAt,
			&epoch,
			&d.Period,
			&d.DayIcon,
			&d.NightIcon,
			&d.DayText,
			&d.NightText,
			&d.Pop,
			&d.DayPop,
			&d.NightPop,
			&d.HighF,
			&d.LowF,
			&d.Humidity,
			&d.QPFAllDayIn,
			&d.QPFDayIn,
			&d.QPFNightIn,
			&d.MinWindMPH,
			&d.MinWindDegrees,
			&d.MinWindDir,
			&d.MaxWindMPH,
			&d.MaxWindDegrees,
			&d.MaxWindDir,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan forecast day: %w", err)
		}

		if archived.RunID, err = uuid.Parse(runID); err != nil {
			return nil, fmt.Errorf("invalid run_id %q: %w", runID, err)
		}
		if archived.FetchedAt, err = time.Parse(time.RFC3339, fetchedAt); err != nil {
			return nil, fmt.Errorf("invalid fetched_at %q: %w", fetchedAt, err)
		}
		d.Date = time.Unix(epoch, 0).In(loc)

		days = append(days, archived)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating forecast days: %w", err)
	}

	a.logger.Debug("Loaded forecast days from archive",
		zap.Int("days", len(days)),
		zap.String("location", location))

	return days, nil
}
