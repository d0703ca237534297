package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/munaimtahir/kwh/internal/billing"
	"github.com/munaimtahir/kwh/internal/db"
	"github.com/munaimtahir/kwh/internal/repository"
	"github.com/munaimtahir/kwh/internal/service"
)

// Handler exposes the meter service over HTTP.
type Handler struct {
	svc    *service.MeterService
	logger *zap.Logger
}

// NewHandler creates the HTTP handler set.
func NewHandler(svc *service.MeterService, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) createMeter(w http.ResponseWriter, r *http.Request) {
	var req createMeterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	meter, err := h.svc.CreateMeter(r.Context(), req.Name, req.ReminderFrequencyDays, req.ReminderHour, req.ReminderMinute)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMeterJSON(meter))
}

func (h *Handler) listMeters(w http.ResponseWriter, r *http.Request) {
	overviews, err := h.svc.Overviews(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	out := make([]overviewJSON, len(overviews))
	for i := range overviews {
		out[i] = toOverviewJSON(&overviews[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getMeter(w http.ResponseWriter, r *http.Request) {
	meterID, ok := h.meterID(w, r)
	if !ok {
		return
	}
	overview, err := h.svc.Overview(r.Context(), meterID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOverviewJSON(overview))
}

func (h *Handler) deleteMeter(w http.ResponseWriter, r *http.Request) {
	meterID, ok := h.meterID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteMeter(r.Context(), meterID); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	meterID, ok := h.meterID(w, r)
	if !ok {
		return
	}
	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	meter, err := h.svc.UpdateMeterSettings(r.Context(), meterID, req.BillingAnchorDay, req.Thresholds, req.ReminderFrequencyDays)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMeterJSON(meter))
}

func (h *Handler) updateReminder(w http.ResponseWriter, r *http.Request) {
	meterID, ok := h.meterID(w, r)
	if !ok {
		return
	}
	var req reminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	meter, err := h.svc.UpdateReminderConfig(r.Context(), meterID, req.Enabled, req.FrequencyDays, req.Hour, req.Minute)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMeterJSON(meter))
}

func (h *Handler) snoozeReminder(w http.ResponseWriter, r *http.Request) {
	meterID, ok := h.meterID(w, r)
	if !ok {
		return
	}
	var req snoozeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.svc.Snooze(r.Context(), meterID, time.Duration(req.Minutes)*time.Minute); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	meterID, ok := h.meterID(w, r)
	if !ok {
		return
	}
	stats, err := h.svc.CycleStats(r.Context(), meterID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) listReadings(w http.ResponseWriter, r *http.Request) {
	meterID, ok := h.meterID(w, r)
	if !ok {
		return
	}
	readings, err := h.svc.Readings(r.Context(), meterID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	out := make([]readingJSON, len(readings))
	for i := range readings {
		out[i] = toReadingJSON(&readings[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) addReading(w http.ResponseWriter, r *http.Request) {
	meterID, ok := h.meterID(w, r)
	if !ok {
		return
	}
	var req addReadingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	recordedAt := time.Now()
	if req.RecordedAt != 0 {
		recordedAt = time.UnixMilli(req.RecordedAt)
	}
	result, err := h.svc.AddReading(r.Context(), meterID, req.Value, req.Notes, recordedAt)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, addReadingResponse{
		Reading: toReadingJSON(result.Reading),
		Warning: result.Warning,
	})
}

func (h *Handler) restoreReading(w http.ResponseWriter, r *http.Request) {
	meterID, ok := h.meterID(w, r)
	if !ok {
		return
	}
	var req restoreReadingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	readingID, err := uuid.Parse(req.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid reading id")
		return
	}
	reading := db.Reading{
		ID:         readingID,
		MeterID:    meterID,
		Value:      req.Value,
		Notes:      req.Notes,
		RecordedAt: time.UnixMilli(req.RecordedAt),
	}
	if err := h.svc.RestoreReading(r.Context(), reading); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toReadingJSON(&reading))
}

func (h *Handler) deleteReading(w http.ResponseWriter, r *http.Request) {
	readingID, err := uuid.Parse(chi.URLParam(r, "readingID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid reading id")
		return
	}
	deleted, err := h.svc.DeleteReading(r.Context(), readingID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	// The deleted record comes back so the caller can offer undo via restore.
	writeJSON(w, http.StatusOK, toReadingJSON(deleted))
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	meterID, ok := h.meterID(w, r)
	if !ok {
		return
	}
	filename := fmt.Sprintf("kwh-readings-%s.csv", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	if err := h.svc.ExportCSV(r.Context(), meterID, w); err != nil {
		h.logger.Error("csv export failed", zap.Error(err), zap.String("meter_id", meterID.String()))
	}
}

func (h *Handler) importCSV(w http.ResponseWriter, r *http.Request) {
	meterID, ok := h.meterID(w, r)
	if !ok {
		return
	}
	count, err := h.svc.ImportCSV(r.Context(), meterID, r.Body)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, importResponse{Imported: count})
}

func (h *Handler) meterID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	meterID, err := uuid.Parse(chi.URLParam(r, "meterID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid meter id")
		return uuid.Nil, false
	}
	return meterID, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidReadingValue),
		errors.Is(err, service.ErrEmptyMeterName),
		errors.Is(err, service.ErrNoValidRows),
		errors.Is(err, billing.ErrInvalidAnchorDay):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
