package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/prudhvinik1/possync/internal/models"
	"github.com/prudhvinik1/possync/internal/repositories"
	"github.com/prudhvinik1/possync/internal/services"
)

// Handler exposes the sync engine of this device to local POS terminals.
type Handler struct {
	sessions *services.SessionManager
	tokens   *services.TokenService
	presence repositories.PresenceRepository
	log      *zap.Logger
}

// NewHandler builds the API. presence may be nil.
func NewHandler(sessions *services.SessionManager, tokens *services.TokenService, presence repositories.PresenceRepository, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{sessions: sessions, tokens: tokens, presence: presence, log: log}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(h.authenticate)

		r.Post("/sync", h.SyncNow)
		r.Post("/flush", h.Flush)
		r.Get("/sync/status", h.GetSyncStatus)

		r.Get("/queue", h.ListQueue)
		r.Get("/queue/dropped", h.ListDropped)
		r.Post("/mutations", h.EnqueueMutation)

		r.Get("/products", h.ListProducts)
		r.Post("/products", h.SaveProduct)
		r.Delete("/products/{id}", h.DeleteProduct)
		r.Get("/sales", h.ListSales)
		r.Post("/sales", h.RecordSale)
		r.Get("/orders", h.ListOrders)
		r.Post("/orders", h.SaveOrder)
		r.Delete("/orders/{id}", h.DeleteOrder)
		r.Post("/payments", h.RecordPayment)

		r.Get("/shop", h.GetShop)
		r.Patch("/shop", h.UpdateShopSettings)

		r.Get("/presence", h.GetPresence)
		r.Get("/presence/devices", h.ListPresence)
		r.Get("/payments", h.ListPayments)
		r.Post("/session/signout", h.SignOut)
	})

	return r
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}

// writeServiceError maps engine errors onto HTTP statuses.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidRecord),
		errors.Is(err, models.ErrInvalidCollection),
		errors.Is(err, models.ErrInvalidOperation),
		errors.Is(err, models.ErrMissingRecordID):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, repositories.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, services.ErrNoSession):
		writeError(w, http.StatusUnauthorized, "no_session", err.Error())
	default:
		h.log.Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "Local store unavailable")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return false
	}
	return true
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			h.log.Info("HTTP request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}
