package security

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"pkce-auth-server/internal/model"
	"pkce-auth-server/internal/ports"
	"strings"
)

type contextKey string

const (
	ClaimsContextKey contextKey = "claims"
)

type bearerError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// BearerMiddleware : пропускает только запросы с действующим, неотозванным access токеном
func BearerMiddleware(codec ports.TokenCodec) func(handler http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(handleAuthentication(codec, next))
	}
}

func handleAuthentication(codec ports.TokenCodec, next http.Handler) func(writer http.ResponseWriter, request *http.Request) {
	return func(writer http.ResponseWriter, request *http.Request) {
		authorizationHeader := request.Header.Get("Authorization")
		if !strings.HasPrefix(authorizationHeader, "Bearer ") {
			writer.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
			writeBearerError(writer, http.StatusUnauthorized, "invalid_token", "missing bearer token")
			return
		}

		token := strings.TrimPrefix(authorizationHeader, "Bearer ")
		claims, err := codec.VerifyAccessToken(request.Context(), token)
		switch {
		case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrTokenRevoked):
			slog.Debug("отклонен access токен", slog.Any("error", err))
			writer.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
			writeBearerError(writer, http.StatusUnauthorized, "invalid_token", "access token is invalid or revoked")
			return
		case err != nil:
			slog.Error("ошибка проверки access токена", slog.Any("error", err))
			writeBearerError(writer, http.StatusInternalServerError, "server_error", "internal error")
			return
		}

		req := request.WithContext(context.WithValue(request.Context(), ClaimsContextKey, claims))
		next.ServeHTTP(writer, req)
	}
}

func GetClaimsFromContext(ctx context.Context) (*model.TokenClaims, error) {
	claims, ok := ctx.Value(ClaimsContextKey).(*model.TokenClaims)
	if !ok || claims == nil {
		return nil, fmt.Errorf("пользователь не авторизован")
	}
	return claims, nil
}

func writeBearerError(writer http.ResponseWriter, status int, code, description string) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	_ = json.NewEncoder(writer).Encode(bearerError{Error: code, ErrorDescription: description})
}
