package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"pkce-auth-server/internal/model/requestresponse"
	"pkce-auth-server/internal/service"
)

func sendJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("ошибка записи ответа", slog.Any("error", err))
	}
}

func sendErrorResponse(w http.ResponseWriter, statusCode int, code, description string) {
	sendJSON(w, statusCode, requestresponse.ErrorResponse{Error: code, ErrorDescription: description})
}

// sendOAuthError : причины server_error пишутся в лог, клиенту уходит только код и общее описание
func sendOAuthError(w http.ResponseWriter, r *http.Request, err error) {
	oauthErr := service.AsOAuthError(err)
	if oauthErr.Status >= http.StatusInternalServerError {
		slog.Error("внутренняя ошибка при обработке запроса",
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
	} else {
		slog.Debug("запрос отклонен",
			slog.String("path", r.URL.Path),
			slog.String("error", oauthErr.Code),
			slog.String("description", oauthErr.Description),
		)
	}
	sendErrorResponse(w, oauthErr.Status, oauthErr.Code, oauthErr.Description)
}
