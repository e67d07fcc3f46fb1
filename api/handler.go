package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type StatusProvider interface {
	LastProcessedHeight() uint64
	LatestHeight(ctx context.Context) (uint64, error)
}

type StatusResponse struct {
	LastProcessedHeight uint64 `json:"lastProcessedHeight"`
	LatestHeight        uint64 `json:"latestHeight"`
	Lag                 uint64 `json:"lag"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type Handler struct {
	sp     StatusProvider
	logger *zap.SugaredLogger
}

func NewHandler(sp StatusProvider, logger *zap.SugaredLogger) *Handler {
	return &Handler{sp: sp, logger: logger}
}

// NewRouter exposes health, status and prometheus metrics of the given gatherer.
func NewRouter(h *Handler, gatherer prometheus.Gatherer) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)

	router.Get("/health", h.Health)
	router.Get("/v1/status", h.Status)
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return router
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, HealthResponse{Status: "UP"})
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	latest, err := h.sp.LatestHeight(r.Context())
	if err != nil {
		h.logger.Errorw("Error getting latest height.", "error", err)
		http.Error(w, "Error getting latest height", http.StatusInternalServerError)
		return
	}

	processed := h.sp.LastProcessedHeight()
	response := StatusResponse{
		LastProcessedHeight: processed,
		LatestHeight:        latest,
	}
	if latest > processed {
		response.Lag = latest - processed
	}
	h.writeJSON(w, response)
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Errorw("Error encoding response.", "error", err)
		http.Error(w, "Error encoding response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(data); err != nil {
		h.logger.Errorw("Error writing response.", "error", err)
	}
}
