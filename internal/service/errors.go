package service

import (
	"errors"
	"fmt"
	"net/http"
)

// Коды ошибок OAuth 2.0 (RFC 6749 §4.1.2.1, §5.2)
const (
	ErrCodeInvalidRequest          = "invalid_request"
	ErrCodeUnauthorizedClient      = "unauthorized_client"
	ErrCodeUnsupportedResponseType = "unsupported_response_type"
	ErrCodeInvalidScope            = "invalid_scope"
	ErrCodeInvalidGrant            = "invalid_grant"
	ErrCodeUnsupportedGrantType    = "unsupported_grant_type"
	ErrCodeAccessDenied            = "access_denied"
	ErrCodeServerError             = "server_error"
)

// OAuthError : ошибка, которую handler отдает клиенту как есть
type OAuthError struct {
	Code        string
	Description string
	Status      int
	cause       error
}

func (e *OAuthError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Description, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

func (e *OAuthError) Unwrap() error {
	return e.cause
}

func newOAuthError(code, description string) *OAuthError {
	return &OAuthError{Code: code, Description: description, Status: http.StatusBadRequest}
}

func invalidRequest(description string) *OAuthError {
	return newOAuthError(ErrCodeInvalidRequest, description)
}

func invalidGrant(description string) *OAuthError {
	return newOAuthError(ErrCodeInvalidGrant, description)
}

// serverError : наружу уходит только общее описание, причина остается в логах
func serverError(cause error) *OAuthError {
	return &OAuthError{
		Code:        ErrCodeServerError,
		Description: "internal server error",
		Status:      http.StatusInternalServerError,
		cause:       cause,
	}
}

// AsOAuthError приводит любую ошибку сервиса к OAuthError
func AsOAuthError(err error) *OAuthError {
	var oauthErr *OAuthError
	if errors.As(err, &oauthErr) {
		return oauthErr
	}
	return serverError(err)
}
