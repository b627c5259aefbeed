package api

import (
	"encoding/json"
	"net/http"

	"github.com/prudhvinik1/possync/internal/models"
)

// SyncNow runs a full push and pull. The body is always a SyncResult.
func (h *Handler) SyncNow(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	result := h.sessions.Engine().SyncAll(r.Context(), claims.ShopID)

	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadGateway
		if result.Reason == models.ReasonNoConnectivity {
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, result)
}

func (h *Handler) Flush(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	report, err := h.sessions.Engine().Flush(r.Context(), claims.ShopID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) GetSyncStatus(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	status, err := h.sessions.Engine().Status(r.Context(), claims.ShopID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) ListQueue(w http.ResponseWriter, r *http.Request) {
	items, err := h.sessions.Engine().Queue().Items(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) ListDropped(w http.ResponseWriter, r *http.Request) {
	items, err := h.sessions.Engine().Store().Dropped(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

type EnqueueRequest struct {
	Collection string          `json:"collection"`
	Operation  string          `json:"operation"`
	Payload    json.RawMessage `json:"payload"`
}

// EnqueueMutation queues a raw mutation without touching the local views.
func (h *Handler) EnqueueMutation(w http.ResponseWriter, r *http.Request) {
	var req EnqueueRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Payload) == 0 {
		writeError(w, http.StatusBadRequest, "missing_fields", "payload is required")
		return
	}

	c, err := models.ParseCollection(req.Collection)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	op, err := models.ParseOperation(req.Operation)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	item, err := h.sessions.Engine().Enqueue(r.Context(), c, op, req.Payload)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, item)
}

func (h *Handler) GetPresence(w http.ResponseWriter, r *http.Request) {
	if h.presence == nil {
		writeError(w, http.StatusNotImplemented, "presence_disabled", "Presence is not configured")
		return
	}
	claims := claimsFrom(r.Context())
	deviceID := r.URL.Query().Get("device")
	if deviceID == "" {
		deviceID = claims.DeviceID
	}

	p, err := h.presence.GetPresence(r.Context(), claims.ShopID, deviceID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ListPresence reports every terminal named by a device query parameter,
// offline when it has not checked in recently.
func (h *Handler) ListPresence(w http.ResponseWriter, r *http.Request) {
	if h.presence == nil {
		writeError(w, http.StatusNotImplemented, "presence_disabled", "Presence is not configured")
		return
	}
	deviceIDs := r.URL.Query()["device"]
	if len(deviceIDs) == 0 {
		writeError(w, http.StatusBadRequest, "missing_fields", "at least one device is required")
		return
	}

	presence, err := h.presence.GetBulkPresence(r.Context(), claimsFrom(r.Context()).ShopID, deviceIDs)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, presence)
}

// SignOut ends the session and wipes the local data of the shop.
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.SignOut(r.Context()); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
