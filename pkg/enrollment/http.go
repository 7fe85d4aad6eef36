package enrollment

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/wardwatch/platform/pkg/common/logger"
	"github.com/wardwatch/platform/pkg/store"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

func (h *HTTPHandler) Register(router *mux.Router) {
	router.HandleFunc("/patients/{code}/embeddings", h.handleEnroll).Methods(http.MethodPost)
	router.HandleFunc("/patients/{code}/embeddings", h.handleList).Methods(http.MethodGet)
	router.HandleFunc("/patients/{code}/embeddings", h.handleRemove).Methods(http.MethodDelete)
	router.HandleFunc("/embeddings/{id}/deactivate", h.handleDeactivate).Methods(http.MethodPost)
}

type enrollRequest struct {
	Model   string      `json:"model"`
	Actor   string      `json:"actor"`
	Vectors [][]float64 `json:"vectors"`
}

func (h *HTTPHandler) handleEnroll(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	var req enrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	embeddings, err := h.service.Enroll(r.Context(), code, req.Model, req.Actor, req.Vectors)
	if err != nil {
		if errors.Is(err, ErrNoVectors) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.Log.WithError(err).Error("failed to enroll embeddings")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, embeddings)
}

func (h *HTTPHandler) handleList(w http.ResponseWriter, r *http.Request) {
	embeddings, err := h.service.Active(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		logger.Log.WithError(err).Error("failed to list embeddings")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, embeddings)
}

func (h *HTTPHandler) handleRemove(w http.ResponseWriter, r *http.Request) {
	removed, err := h.service.Remove(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		logger.Log.WithError(err).Error("failed to remove embeddings")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"removed": removed})
}

func (h *HTTPHandler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "invalid embedding id", http.StatusBadRequest)
		return
	}

	if err := h.service.Deactivate(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "embedding not found", http.StatusNotFound)
			return
		}
		logger.Log.WithError(err).Error("failed to deactivate embedding")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
