package alerts

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/wardwatch/platform/pkg/common/logger"
	"github.com/wardwatch/platform/pkg/common/models"
)

type HTTPHandler struct {
	service *Service
	maxBody int64
}

func NewHTTPHandler(service *Service, maxBody int64) *HTTPHandler {
	return &HTTPHandler{service: service, maxBody: maxBody}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/fall-alert", h.handleCreate).Methods(http.MethodPost)
	router.HandleFunc("/alerts", h.handleList).Methods(http.MethodGet)
	router.HandleFunc("/alerts/{id}", h.handleGet).Methods(http.MethodGet)
	router.HandleFunc("/alerts/{id}/acknowledge", h.handleAcknowledge).Methods(http.MethodPost)
	router.HandleFunc("/alerts/{id}/resolve", h.handleResolve).Methods(http.MethodPost)
	router.HandleFunc("/alerts/{id}/ignore", h.handleIgnore).Methods(http.MethodPost)
}

func (h *HTTPHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	var req models.FallAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Log.WithError(err).Warn("invalid fall alert payload")
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	alert, err := h.service.Create(r.Context(), req)
	if err != nil {
		logger.Log.WithError(err).Error("failed to create alert")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, alert)
}

func (h *HTTPHandler) handleList(w http.ResponseWriter, r *http.Request) {
	statuses, err := ParseStatusSet(r.URL.Query().Get("status"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))

	result, err := h.service.List(r.Context(), ListFilter{
		Statuses: statuses,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		logger.Log.WithError(err).Error("failed to list alerts")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *HTTPHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := alertID(w, r)
	if !ok {
		return
	}

	alert, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "failed to fetch alert")
		return
	}

	writeJSON(w, http.StatusOK, alert)
}

type transitionRequest struct {
	Actor string `json:"actor"`
	Notes string `json:"notes,omitempty"`
}

func (h *HTTPHandler) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	id, ok := alertID(w, r)
	if !ok {
		return
	}
	req, ok := decodeTransition(w, r)
	if !ok {
		return
	}

	alert, err := h.service.Acknowledge(r.Context(), id, req.Actor)
	if err != nil {
		h.writeError(w, err, "failed to acknowledge alert")
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

func (h *HTTPHandler) handleResolve(w http.ResponseWriter, r *http.Request) {
	id, ok := alertID(w, r)
	if !ok {
		return
	}
	req, ok := decodeTransition(w, r)
	if !ok {
		return
	}

	alert, err := h.service.Resolve(r.Context(), id, req.Actor, req.Notes)
	if err != nil {
		h.writeError(w, err, "failed to resolve alert")
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

func (h *HTTPHandler) handleIgnore(w http.ResponseWriter, r *http.Request) {
	id, ok := alertID(w, r)
	if !ok {
		return
	}
	req, ok := decodeTransition(w, r)
	if !ok {
		return
	}

	alert, err := h.service.Ignore(r.Context(), id, req.Actor)
	if err != nil {
		h.writeError(w, err, "failed to ignore alert")
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, "alert not found", http.StatusNotFound)
	case errors.Is(err, ErrInvalidTransition):
		http.Error(w, "invalid alert status transition", http.StatusConflict)
	default:
		logger.Log.WithError(err).Error(message)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func alertID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid alert id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func decodeTransition(w http.ResponseWriter, r *http.Request) (transitionRequest, bool) {
	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return transitionRequest{}, false
	}
	if req.Actor == "" {
		http.Error(w, "actor is required", http.StatusBadRequest)
		return transitionRequest{}, false
	}
	return req, true
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
