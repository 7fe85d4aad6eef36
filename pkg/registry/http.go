package registry

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/wardwatch/platform/pkg/common/logger"
	"github.com/wardwatch/platform/pkg/common/models"
	"github.com/wardwatch/platform/pkg/operational"
	"github.com/wardwatch/platform/pkg/store"
)

type detectionReader interface {
	GetByCodeAndDate(ctx context.Context, code, sessionDate string) (operational.DetectionModel, error)
}

type queueReader interface {
	ActiveForPatient(ctx context.Context, code, visitDate string) ([]operational.QueueEntryModel, error)
}

// HTTPHandler serves the combined registry + presence patient view. The two
// stores are queried sequentially; a missing registry row for an
// operational-side code is served with a nil identity, not an error.
type HTTPHandler struct {
	patients   *Repository
	detections detectionReader
	queue      queueReader
	now        func() time.Time
}

func NewHTTPHandler(patients *Repository, detections detectionReader, queue queueReader) *HTTPHandler {
	return &HTTPHandler{
		patients:   patients,
		detections: detections,
		queue:      queue,
		now:        time.Now,
	}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/patients/{code}", h.handleGet).Methods(http.MethodGet)
}

func (h *HTTPHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	ctx := r.Context()

	view := models.PatientView{Code: code}

	if h.patients != nil {
		identity, err := h.patients.GetByCode(ctx, code)
		switch {
		case err == nil:
			view.Identity = &identity
		case errors.Is(err, ErrPatientNotFound):
			// Operational data may still exist for a code the registry no
			// longer knows.
		default:
			logger.Log.WithError(err).WithField("patient_code", code).
				Warn("registry lookup failed, serving presence only")
		}
	}

	today := h.now().UTC().Format(operational.SessionDateFormat)

	detection, err := h.detections.GetByCodeAndDate(ctx, code, today)
	switch {
	case err == nil:
		view.SeenToday = true
		record := models.DetectionRecord{
			ID:          detection.ID,
			PatientCode: detection.PatientCode,
			SessionDate: detection.SessionDate,
			Confidence:  detection.Confidence,
			Camera:      detection.Camera,
			Location:    detection.Location,
			DetectedAt:  detection.DetectedAt,
		}
		view.LastDetection = &record
	case errors.Is(err, store.ErrNotFound):
	default:
		logger.Log.WithError(err).Error("failed to read detection history")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	entries, err := h.queue.ActiveForPatient(ctx, code, today)
	if err != nil {
		logger.Log.WithError(err).Error("failed to read queue entries")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	view.ExpectedToday = len(entries) > 0

	if view.Identity == nil && !view.SeenToday && !view.ExpectedToday {
		http.Error(w, "patient not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(view)
}
