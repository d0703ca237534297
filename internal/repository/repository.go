package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/munaimtahir/kwh/internal/db"
)

// ErrNotFound is returned when a meter or reading does not exist.
var ErrNotFound = errors.New("not found")

const meterColumns = `id, name, reminder_enabled, reminder_frequency_days,
	reminder_hour, reminder_minute, billing_anchor_day, thresholds_csv,
	created_at, updated_at`

const readingColumns = `id, meter_id, value, notes, recorded_at, created_at`

// Repository handles database operations for meters and their readings.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InsertMeter stores a new meter. The caller provides the id; timestamps are
// set here.
func (r *Repository) InsertMeter(ctx context.Context, meter *db.Meter) error {
	now := time.Now()
	meter.CreatedAt = now
	meter.UpdatedAt = now

	_, err := r.pool.Exec(ctx, `
		INSERT INTO meters (
			id, name, reminder_enabled, reminder_frequency_days,
			reminder_hour, reminder_minute, billing_anchor_day, thresholds_csv,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		meter.ID, meter.Name, meter.ReminderEnabled, meter.ReminderFrequencyDays,
		meter.ReminderHour, meter.ReminderMinute, meter.BillingAnchorDay, meter.ThresholdsCSV,
		meter.CreatedAt, meter.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert meter: %w", err)
	}
	return nil
}

// GetMeter fetches a meter by id.
func (r *Repository) GetMeter(ctx context.Context, meterID uuid.UUID) (*db.Meter, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+meterColumns+` FROM meters WHERE id = $1`, meterID)
	meter, err := scanMeter(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("meter %s: %w", meterID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query meter: %w", err)
	}
	return meter, nil
}

// ListMeters returns all meters ordered by name.
func (r *Repository) ListMeters(ctx context.Context) ([]db.Meter, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+meterColumns+` FROM meters ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query meters: %w", err)
	}
	defer rows.Close()

	var meters []db.Meter
	for rows.Next() {
		meter, err := scanMeter(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan meter: %w", err)
		}
		meters = append(meters, *meter)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return meters, nil
}

// UpdateMeter persists changed meter attributes and bumps updated_at.
func (r *Repository) UpdateMeter(ctx context.Context, meter *db.Meter) error {
	meter.UpdatedAt = time.Now()
	tag, err := r.pool.Exec(ctx, `
		UPDATE meters
		SET name = $2, reminder_enabled = $3, reminder_frequency_days = $4,
			reminder_hour = $5, reminder_minute = $6, billing_anchor_day = $7,
			thresholds_csv = $8, updated_at = $9
		WHERE id = $1
	`,
		meter.ID, meter.Name, meter.ReminderEnabled, meter.ReminderFrequencyDays,
		meter.ReminderHour, meter.ReminderMinute, meter.BillingAnchorDay,
		meter.ThresholdsCSV, meter.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update meter: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("meter %s: %w", meter.ID, ErrNotFound)
	}
	return nil
}

// DeleteMeter removes a meter. Its readings cascade via the foreign key.
func (r *Repository) DeleteMeter(ctx context.Context, meterID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM meters WHERE id = $1`, meterID)
	if err != nil {
		return fmt.Errorf("failed to delete meter: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("meter %s: %w", meterID, ErrNotFound)
	}
	return nil
}

// InsertReading stores a single reading.
func (r *Repository) InsertReading(ctx context.Context, reading *db.Reading) error {
	reading.CreatedAt = time.Now()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO meter_readings (id, meter_id, value, notes, recorded_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, reading.ID, reading.MeterID, reading.Value, reading.Notes, reading.RecordedAt, reading.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert reading: %w", err)
	}
	return nil
}

// InsertReadings stores a batch of readings in one transaction, so a partial
// CSV import never leaves half a file behind.
func (r *Repository) InsertReadings(ctx context.Context, readings []db.Reading) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now()
	for i := range readings {
		readings[i].CreatedAt = now
		_, err := tx.Exec(ctx, `
			INSERT INTO meter_readings (id, meter_id, value, notes, recorded_at, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, readings[i].ID, readings[i].MeterID, readings[i].Value, readings[i].Notes,
			readings[i].RecordedAt, readings[i].CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert reading: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetReading fetches a reading by id.
func (r *Repository) GetReading(ctx context.Context, readingID uuid.UUID) (*db.Reading, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+readingColumns+` FROM meter_readings WHERE id = $1`, readingID)
	reading, err := scanReading(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("reading %s: %w", readingID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query reading: %w", err)
	}
	return reading, nil
}

// DeleteReading removes a reading by id.
func (r *Repository) DeleteReading(ctx context.Context, readingID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM meter_readings WHERE id = $1`, readingID)
	if err != nil {
		return fmt.Errorf("failed to delete reading: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("reading %s: %w", readingID, ErrNotFound)
	}
	return nil
}

// ListReadings returns all readings for a meter, newest first.
func (r *Repository) ListReadings(ctx context.Context, meterID uuid.UUID) ([]db.Reading, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+readingColumns+`
		FROM meter_readings
		WHERE meter_id = $1
		ORDER BY recorded_at DESC
	`, meterID)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	var readings []db.Reading
	for rows.Next() {
		reading, err := scanReading(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		readings = append(readings, *reading)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return readings, nil
}

// LatestReading returns the most recent reading for a meter, or nil when the
// meter has none.
func (r *Repository) LatestReading(ctx context.Context, meterID uuid.UUID) (*db.Reading, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+readingColumns+`
		FROM meter_readings
		WHERE meter_id = $1
		ORDER BY recorded_at DESC
		LIMIT 1
	`, meterID)
	return optionalReading(row)
}

// EarliestInWindow returns the earliest reading recorded inside [start, end),
// or nil when none falls inside the window.
func (r *Repository) EarliestInWindow(ctx context.Context, meterID uuid.UUID, start, end time.Time) (*db.Reading, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+readingColumns+`
		FROM meter_readings
		WHERE meter_id = $1 AND recorded_at >= $2 AND recorded_at < $3
		ORDER BY recorded_at ASC
		LIMIT 1
	`, meterID, start, end)
	return optionalReading(row)
}

// LatestInWindow returns the latest reading recorded inside [start, end), or
// nil when none falls inside the window.
func (r *Repository) LatestInWindow(ctx context.Context, meterID uuid.UUID, start, end time.Time) (*db.Reading, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+readingColumns+`
		FROM meter_readings
		WHERE meter_id = $1 AND recorded_at >= $2 AND recorded_at < $3
		ORDER BY recorded_at DESC
		LIMIT 1
	`, meterID, start, end)
	return optionalReading(row)
}

// LatestBefore returns the most recent reading strictly before the given
// instant (the carry-over baseline candidate), or nil.
func (r *Repository) LatestBefore(ctx context.Context, meterID uuid.UUID, before time.Time) (*db.Reading, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+readingColumns+`
		FROM meter_readings
		WHERE meter_id = $1 AND recorded_at < $2
		ORDER BY recorded_at DESC
		LIMIT 1
	`, meterID, before)
	return optionalReading(row)
}

// RecentValues returns up to limit reading values for a meter, newest first.
// Used to sanity-check a new reading against recent history.
func (r *Repository) RecentValues(ctx context.Context, meterID uuid.UUID, limit int) ([]float64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT value
		FROM meter_readings
		WHERE meter_id = $1
		ORDER BY recorded_at DESC
		LIMIT $2
	`, meterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent values: %w", err)
	}
	defer rows.Close()

	var values []float64
	for rows.Next() {
		var value float64
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("failed to scan value: %w", err)
		}
		values = append(values, value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return values, nil
}

func optionalReading(row pgx.Row) (*db.Reading, error) {
	reading, err := scanReading(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query reading: %w", err)
	}
	return reading, nil
}

func scanMeter(row pgx.Row) (*db.Meter, error) {
	var m db.Meter
	err := row.Scan(
		&m.ID, &m.Name, &m.ReminderEnabled, &m.ReminderFrequencyDays,
		&m.ReminderHour, &m.ReminderMinute, &m.BillingAnchorDay, &m.ThresholdsCSV,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func scanReading(row pgx.Row) (*db.Reading, error) {
	var r db.Reading
	err := row.Scan(&r.ID, &r.MeterID, &r.Value, &r.Notes, &r.RecordedAt, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
