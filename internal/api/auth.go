package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/prudhvinik1/possync/internal/models"
	"github.com/prudhvinik1/possync/internal/services"
)

type contextKey string

const claimsKey contextKey = "claims"

// authenticate verifies the bearer token and makes sure the token's shop is
// the one signed in on this device, opening its session on first use.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "Missing bearer token")
			return
		}

		claims, err := h.tokens.Verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
			return
		}

		if _, err := h.sessions.Open(r.Context(), claims.ShopID, claims.DeviceID); err != nil {
			if errors.Is(err, services.ErrSessionConflict) {
				writeError(w, http.StatusConflict, "session_conflict", err.Error())
				return
			}
			h.log.Error("Failed to open session", zap.String("shop_id", claims.ShopID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to open session")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func claimsFrom(ctx context.Context) *models.SessionClaims {
	claims, _ := ctx.Value(claimsKey).(*models.SessionClaims)
	return claims
}
