package detections

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/wardwatch/platform/pkg/common/logger"
	"github.com/wardwatch/platform/pkg/common/models"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/patient/detected", h.handleRecord).Methods(http.MethodPost)
	router.HandleFunc("/detections/today", h.handleToday).Methods(http.MethodGet)
	router.HandleFunc("/detections/codes", h.handleCodes).Methods(http.MethodGet)
	router.HandleFunc("/detections/recent", h.handleRecent).Methods(http.MethodGet)
}

func (h *HTTPHandler) handleRecord(w http.ResponseWriter, r *http.Request) {
	var req models.PatientDetectedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.PatientID == "" {
		http.Error(w, "patient_id is required", http.StatusBadRequest)
		return
	}

	record, created, err := h.service.Record(r.Context(), req)
	if err != nil {
		logger.Log.WithError(err).Error("failed to record detection")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, record)
}

func (h *HTTPHandler) handleToday(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.Today(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("failed to list today's detections")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *HTTPHandler) handleCodes(w http.ResponseWriter, r *http.Request) {
	codes, err := h.service.CodesSeenToday(r.Context())
	if err != nil {
		logger.Log.WithError(err).Error("failed to list seen codes")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if codes == nil {
		codes = []string{}
	}
	writeJSON(w, http.StatusOK, codes)
}

func (h *HTTPHandler) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	records, err := h.service.Recent(r.Context(), limit)
	if err != nil {
		logger.Log.WithError(err).Error("failed to list recent detections")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
