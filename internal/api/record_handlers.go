package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/prudhvinik1/possync/internal/models"
)

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.sessions.Engine().Store().Products(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *Handler) SaveProduct(w http.ResponseWriter, r *http.Request) {
	var p models.Product
	if !decodeBody(w, r, &p) {
		return
	}
	p.ShopID = claimsFrom(r.Context()).ShopID

	saved, err := h.sessions.Engine().SaveProduct(r.Context(), p)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Engine().DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	sales, err := h.sessions.Engine().Store().Sales(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sales)
}

func (h *Handler) RecordSale(w http.ResponseWriter, r *http.Request) {
	var s models.Sale
	if !decodeBody(w, r, &s) {
		return
	}
	s.ShopID = claimsFrom(r.Context()).ShopID

	saved, err := h.sessions.Engine().RecordSale(r.Context(), s)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.sessions.Engine().Store().Orders(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) SaveOrder(w http.ResponseWriter, r *http.Request) {
	var o models.Order
	if !decodeBody(w, r, &o) {
		return
	}
	o.ShopID = claimsFrom(r.Context()).ShopID

	saved, err := h.sessions.Engine().SaveOrder(r.Context(), o)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Engine().DeleteOrder(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.sessions.Engine().Store().Payments(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

type PaymentResponse struct {
	Payment models.Payment `json:"payment"`
	Order   models.Order   `json:"order"`
}

func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var p models.Payment
	if !decodeBody(w, r, &p) {
		return
	}
	p.ShopID = claimsFrom(r.Context()).ShopID

	payment, order, err := h.sessions.Engine().RecordPayment(r.Context(), p)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, PaymentResponse{Payment: payment, Order: order})
}

func (h *Handler) GetShop(w http.ResponseWriter, r *http.Request) {
	profile, ok, err := h.sessions.Engine().Store().ShopProfile(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "Shop profile not synced yet")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *Handler) UpdateShopSettings(w http.ResponseWriter, r *http.Request) {
	var settings models.ShopSettings
	if !decodeBody(w, r, &settings) {
		return
	}

	profile, err := h.sessions.Engine().UpdateShopSettings(r.Context(), claimsFrom(r.Context()).ShopID, settings)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
