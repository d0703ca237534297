package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/munaimtahir/kwh/internal/billing"
	"github.com/munaimtahir/kwh/internal/db"
)

// ErrNoValidRows is returned when a CSV import contains no importable rows.
var ErrNoValidRows = errors.New("no valid rows to import")

// csvHeader is the export file header. Import tolerates files with or
// without it.
var csvHeader = []string{"timestamp", "value", "notes", "billing_anchor_day", "thresholds"}

// ExportCSV writes the meter's full reading history as CSV. Each row carries
// the meter's current anchor day and threshold list so an import can restore
// the settings along with the data.
func (s *MeterService) ExportCSV(ctx context.Context, meterID uuid.UUID, w io.Writer) error {
	meter, err := s.store.GetMeter(ctx, meterID)
	if err != nil {
		return err
	}
	readings, err := s.store.ListReadings(ctx, meterID)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, reading := range readings {
		notes := ""
		if reading.Notes != nil {
			notes = *reading.Notes
		}
		row := []string{
			strconv.FormatInt(reading.RecordedAt.UnixMilli(), 10),
			strconv.FormatFloat(reading.Value, 'f', -1, 64),
			notes,
			strconv.Itoa(meter.BillingAnchorDay),
			meter.ThresholdsCSV,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

// ImportCSV reads readings from CSV into the meter. Rows need at least a
// numeric epoch-millis timestamp and a positive value; anything else is
// skipped. The last valid anchor-day and thresholds columns encountered
// override the meter's settings. A file with zero valid rows is an error;
// partially valid files import the valid rows silently. Returns the number
// of imported readings.
func (s *MeterService) ImportCSV(ctx context.Context, meterID uuid.UUID, r io.Reader) (int, error) {
	meter, err := s.store.GetMeter(ctx, meterID)
	if err != nil {
		return 0, err
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var readings []db.Reading
	var importedAnchor *int
	var importedThresholds *string
	first := true

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				continue // skip malformed rows, keep the rest
			}
			return 0, fmt.Errorf("failed to read CSV: %w", err)
		}
		if first {
			first = false
			if isHeader(record) {
				continue
			}
		}
		if len(record) < 2 {
			continue
		}

		timestamp, tsErr := strconv.ParseInt(strings.TrimSpace(record[0]), 10, 64)
		value, valErr := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if tsErr != nil || valErr != nil || value <= 0 {
			continue
		}

		var notes *string
		if len(record) > 2 {
			if trimmed := strings.TrimSpace(record[2]); trimmed != "" {
				notes = &trimmed
			}
		}
		if len(record) > 3 {
			if anchor, err := strconv.Atoi(strings.TrimSpace(record[3])); err == nil && anchor >= 1 && anchor <= 31 {
				importedAnchor = &anchor
			}
		}
		if len(record) > 4 {
			if thresholds := strings.TrimSpace(record[4]); thresholds != "" {
				importedThresholds = &thresholds
			}
		}

		readings = append(readings, db.Reading{
			ID:         uuid.New(),
			MeterID:    meterID,
			Value:      value,
			Notes:      notes,
			RecordedAt: time.UnixMilli(timestamp),
		})
	}

	if len(readings) == 0 {
		return 0, ErrNoValidRows
	}
	if err := s.store.InsertReadings(ctx, readings); err != nil {
		return 0, err
	}

	if importedAnchor != nil || importedThresholds != nil {
		if importedAnchor != nil {
			meter.BillingAnchorDay = *importedAnchor
		}
		if importedThresholds != nil {
			meter.ThresholdsCSV = billing.SanitizeThresholds(*importedThresholds)
		}
		if err := s.store.UpdateMeter(ctx, meter); err != nil {
			return 0, fmt.Errorf("failed to apply imported settings: %w", err)
		}
	}

	s.invalidate(ctx, meterID)
	s.logger.Info("readings imported",
		zap.String("meter_id", meterID.String()),
		zap.Int("count", len(readings)),
	)
	return len(readings), nil
}

func isHeader(record []string) bool {
	if len(record) == 0 {
		return false
	}
	_, err := strconv.ParseInt(strings.TrimSpace(record[0]), 10, 64)
	return err != nil
}
