package handler

import (
	"context"
	"log/slog"
	"net/http"
	"pkce-auth-server/internal/model/requestresponse"
	"pkce-auth-server/internal/security"
	"time"
)

// Pinger : проверка доступности хранилища
type Pinger interface {
	Ping(ctx context.Context) error
}

type ResourceHandler struct {
	store Pinger
}

func NewResourceHandler(store Pinger) *ResourceHandler {
	return &ResourceHandler{store: store}
}

// Me godoc
// @Summary Текущий пользователь
// @Description Возвращает владельца access токена. Отозванный токен отклоняется.
// @Tags Resource
// @Produce json
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Success 200 {object} requestresponse.CurrentUserResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Router /api/me [get]
func (h *ResourceHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, err := security.GetClaimsFromContext(r.Context())
	if err != nil {
		sendErrorResponse(w, http.StatusUnauthorized, "invalid_token", "access token required")
		return
	}

	sendJSON(w, http.StatusOK, requestresponse.CurrentUserResponse{
		Subject:  claims.Subject,
		Email:    claims.Email,
		Name:     claims.Name,
		ClientID: claims.ClientID,
		Scope:    claims.Scope,
	})
}

// Health godoc
// @Summary Проверка состояния
// @Tags Health
// @Produce json
// @Success 200 {object} requestresponse.HealthResponse
// @Failure 503 {object} requestresponse.HealthResponse
// @Router /healthz [get]
func (h *ResourceHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		slog.Error("хранилище недоступно", slog.Any("error", err))
		sendJSON(w, http.StatusServiceUnavailable, requestresponse.HealthResponse{Status: "unavailable"})
		return
	}
	sendJSON(w, http.StatusOK, requestresponse.HealthResponse{Status: "ok"})
}
