package service_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/munaimtahir/kwh/internal/service"
)

func TestExportImport_RoundTrip(t *testing.T) {
	f := newFixture()
	source := f.createMeter(t, "source")
	if _, err := f.svc.UpdateMeterSettings(context.Background(), source.ID, 15, "150,250", 30); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	notes := "after holiday"
	if _, err := f.svc.AddReading(context.Background(), source.ID, 100.5,
		&notes, time.Date(2024, time.March, 16, 8, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.addReading(t, source.ID, 120, time.Date(2024, time.March, 20, 8, 0, 0, 0, time.UTC))

	var buf bytes.Buffer
	if err := f.svc.ExportCSV(context.Background(), source.ID, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	target := f.createMeter(t, "target")
	count, err := f.svc.ImportCSV(context.Background(), target.ID, &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 imported readings, got %d", count)
	}

	imported, err := f.svc.Readings(context.Background(), target.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(imported) != 2 {
		t.Fatalf("expected 2 readings, got %d", len(imported))
	}
	// Newest first.
	if imported[0].Value != 120 || imported[1].Value != 100.5 {
		t.Errorf("unexpected values: %v, %v", imported[0].Value, imported[1].Value)
	}
	if imported[1].Notes == nil || *imported[1].Notes != notes {
		t.Errorf("expected notes %q, got %v", notes, imported[1].Notes)
	}
	if imported[0].Notes != nil {
		t.Errorf("expected empty notes to import as nil, got %q", *imported[0].Notes)
	}
	if want := time.Date(2024, time.March, 16, 8, 0, 0, 0, time.UTC); !imported[1].RecordedAt.Equal(want) {
		t.Errorf("expected recorded_at %v, got %v", want, imported[1].RecordedAt)
	}

	// The exported settings columns carry over to the importing meter.
	restored, err := f.svc.GetMeter(context.Background(), target.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if restored.BillingAnchorDay != 15 {
		t.Errorf("expected imported anchor 15, got %d", restored.BillingAnchorDay)
	}
	if restored.ThresholdsCSV != "150,250" {
		t.Errorf("expected imported thresholds, got %q", restored.ThresholdsCSV)
	}
}

func TestImportCSV_SkipsInvalidRows(t *testing.T) {
	f := newFixture()
	meter := f.createMeter(t, "house")

	input := strings.Join([]string{
		"timestamp,value,notes,billing_anchor_day,thresholds",
		"1710576000000,100.5,,20,100",
		"not-a-timestamp,50,,,",
		"1710662400000,-5,,,",
		"1710748800000,abc,,,",
		"1710835200000,120,,20,100",
		"",
	}, "\n")

	count, err := f.svc.ImportCSV(context.Background(), meter.ID, strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 valid rows imported, got %d", count)
	}
}

func TestImportCSV_NoValidRows(t *testing.T) {
	f := newFixture()
	meter := f.createMeter(t, "house")

	input := "timestamp,value\nnope,0\n,\n"

	_, err := f.svc.ImportCSV(context.Background(), meter.ID, strings.NewReader(input))
	if !errors.Is(err, service.ErrNoValidRows) {
		t.Errorf("expected ErrNoValidRows, got %v", err)
	}
}

func TestImportCSV_HeaderlessFile(t *testing.T) {
	f := newFixture()
	meter := f.createMeter(t, "house")

	input := "1710576000000,100\n1710662400000,110\n"

	count, err := f.svc.ImportCSV(context.Background(), meter.ID, strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 imported rows, got %d", count)
	}
}

func TestImportCSV_SettingsUntouchedWithoutColumns(t *testing.T) {
	f := newFixture()
	meter := f.createMeter(t, "house")
	if _, err := f.svc.UpdateMeterSettings(context.Background(), meter.ID, 10, "400", 30); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	input := "1710576000000,100\n"
	if _, err := f.svc.ImportCSV(context.Background(), meter.ID, strings.NewReader(input)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	after, err := f.svc.GetMeter(context.Background(), meter.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if after.BillingAnchorDay != 10 || after.ThresholdsCSV != "400" {
		t.Errorf("expected settings untouched, got anchor=%d thresholds=%q",
			after.BillingAnchorDay, after.ThresholdsCSV)
	}
}

func TestImportCSV_LastValidSettingsWin(t *testing.T) {
	f := newFixture()
	meter := f.createMeter(t, "house")

	input := strings.Join([]string{
		"1710576000000,100,,5,50",
		"1710662400000,110,,12,75",
	}, "\n")

	if _, err := f.svc.ImportCSV(context.Background(), meter.ID, strings.NewReader(input)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	after, err := f.svc.GetMeter(context.Background(), meter.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if after.BillingAnchorDay != 12 || after.ThresholdsCSV != "75" {
		t.Errorf("expected last row's settings, got anchor=%d thresholds=%q",
			after.BillingAnchorDay, after.ThresholdsCSV)
	}
}
