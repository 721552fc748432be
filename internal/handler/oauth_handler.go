package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"pkce-auth-server/internal/model"
	"pkce-auth-server/internal/model/requestresponse"
	"pkce-auth-server/internal/ports"
	"pkce-auth-server/internal/security"
	"pkce-auth-server/internal/service"
	"strings"
)

const maxBodyBytes = 1 << 20

type OAuthHandler struct {
	service       *service.OAuthService
	authenticator ports.Authenticator
	realm         string
}

func NewOAuthHandler(oauthService *service.OAuthService, authenticator ports.Authenticator, realm string) *OAuthHandler {
	return &OAuthHandler{
		service:       oauthService,
		authenticator: authenticator,
		realm:         realm,
	}
}

// Authorize godoc
// @Summary Authorization endpoint
// @Description Проверяет запрос, аутентифицирует владельца ресурса (HTTP Basic) и перенаправляет на redirect_uri с code и state. PKCE обязателен, только S256.
// @Tags OAuth
// @Produce json
// @Param client_id query string true "Идентификатор клиента"
// @Param redirect_uri query string true "Зарегистрированный redirect_uri"
// @Param response_type query string false "Только code"
// @Param code_challenge query string true "base64url(SHA256(code_verifier)), 43-128 символов"
// @Param code_challenge_method query string true "Только S256"
// @Param state query string true "Значение для защиты от CSRF"
// @Param scope query string false "Scope через пробел"
// @Success 302 "Редирект на redirect_uri?code=...&state=..."
// @Failure 400 {object} requestresponse.ErrorResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /oauth/authorize [get]
func (h *OAuthHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req, err := h.service.ValidateAuthorizeRequest(r.Context(), service.AuthorizeParams{
		ClientID:            query.Get("client_id"),
		RedirectURI:         query.Get("redirect_uri"),
		ResponseType:        query.Get("response_type"),
		CodeChallenge:       query.Get("code_challenge"),
		CodeChallengeMethod: query.Get("code_challenge_method"),
		State:               query.Get("state"),
		Scope:               query.Get("scope"),
	})
	if err != nil {
		sendOAuthError(w, r, err)
		return
	}

	user, err := h.authenticator.Authenticate(r)
	if errors.Is(err, security.ErrUnauthenticated) {
		w.Header().Set("WWW-Authenticate", fmt.Sprintf(`Basic realm=%q, charset="UTF-8"`, h.realm))
		sendErrorResponse(w, http.StatusUnauthorized, service.ErrCodeAccessDenied, "resource owner authentication required")
		return
	} else if err != nil {
		sendOAuthError(w, r, err)
		return
	}

	location, err := h.service.IssueAuthorizationCode(r.Context(), req, user)
	if err != nil {
		sendOAuthError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, location, http.StatusFound)
}

// Token godoc
// @Summary Token endpoint
// @Description Обмен кода авторизации (authorization_code + code_verifier) или refresh токена (refresh_token) на новую пару токенов
// @Tags OAuth
// @Accept x-www-form-urlencoded,json
// @Produce json
// @Param body body requestresponse.TokenRequest true "Параметры гранта"
// @Success 200 {object} requestresponse.TokenResponse
// @Failure 400 {object} requestresponse.ErrorResponse
// @Failure 429 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /oauth/token [post]
func (h *OAuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")

	var req requestresponse.TokenRequest
	if err := decodeRequest(w, r, &req, func(get func(string) string) {
		req = requestresponse.TokenRequest{
			GrantType:    get("grant_type"),
			Code:         get("code"),
			CodeVerifier: get("code_verifier"),
			State:        get("state"),
			RedirectURI:  get("redirect_uri"),
			ClientID:     get("client_id"),
			RefreshToken: get("refresh_token"),
		}
	}); err != nil {
		sendErrorResponse(w, http.StatusBadRequest, service.ErrCodeInvalidRequest, "malformed request body")
		return
	}

	var (
		pair *model.TokensPair
		err  error
	)
	switch req.GrantType {
	case service.GrantTypeAuthorizationCode:
		pair, err = h.service.ExchangeAuthorizationCode(r.Context(), service.ExchangeParams{
			Code:         req.Code,
			CodeVerifier: req.CodeVerifier,
			State:        req.State,
			ClientID:     req.ClientID,
			RedirectURI:  req.RedirectURI,
			RemoteAddr:   r.RemoteAddr,
		})
	case service.GrantTypeRefreshToken:
		pair, err = h.service.RefreshTokens(r.Context(), service.RefreshParams{
			RefreshToken: req.RefreshToken,
			RemoteAddr:   r.RemoteAddr,
		})
	case "":
		sendErrorResponse(w, http.StatusBadRequest, service.ErrCodeInvalidRequest, "grant_type is required")
		return
	default:
		sendErrorResponse(w, http.StatusBadRequest, service.ErrCodeUnsupportedGrantType, "grant_type must be authorization_code or refresh_token")
		return
	}
	if err != nil {
		sendOAuthError(w, r, err)
		return
	}

	sendJSON(w, http.StatusOK, requestresponse.TokenResponse{
		AccessToken:  pair.Access.Token,
		RefreshToken: pair.Refresh.Token,
		TokenType:    "Bearer",
		ExpiresIn:    int64(pair.Access.Lifetime().Seconds()),
		Scope:        strings.Join(pair.Scopes, " "),
	})
}

// Revoke godoc
// @Summary Revocation endpoint
// @Description Отзыв токена. Refresh токен отзывает все сессии субъекта, access токен отзывается только после проверки подписи. Отзыв идемпотентен.
// @Tags OAuth
// @Accept x-www-form-urlencoded,json
// @Produce json
// @Param body body requestresponse.RevokeRequest true "Токен для отзыва"
// @Success 200 {object} requestresponse.RevokeResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Router /oauth/revoke [post]
func (h *OAuthHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	var req requestresponse.RevokeRequest
	if err := decodeRequest(w, r, &req, func(get func(string) string) {
		req = requestresponse.RevokeRequest{
			Token:         get("token"),
			TokenTypeHint: get("token_type_hint"),
		}
	}); err != nil {
		slog.Debug("некорректное тело запроса на отзыв", slog.Any("error", err))
		sendJSON(w, http.StatusOK, requestresponse.RevokeResponse{Revoked: true})
		return
	}

	if err := h.service.Revoke(r.Context(), req.Token, req.TokenTypeHint); err != nil {
		sendErrorResponse(w, http.StatusInternalServerError, service.ErrCodeServerError, "internal server error")
		return
	}
	sendJSON(w, http.StatusOK, requestresponse.RevokeResponse{Revoked: true})
}

// decodeRequest : JSON тело при Content-Type application/json, иначе form
func decodeRequest(w http.ResponseWriter, r *http.Request, dst any, fromForm func(get func(string) string)) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		return json.NewDecoder(r.Body).Decode(dst)
	}

	if err := r.ParseForm(); err != nil {
		return err
	}
	fromForm(r.PostForm.Get)
	return nil
}
