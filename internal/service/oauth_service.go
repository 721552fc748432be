package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"pkce-auth-server/internal/instrumentation"
	"pkce-auth-server/internal/model"
	"pkce-auth-server/internal/ports"
	"pkce-auth-server/internal/repository"
	"pkce-auth-server/internal/security"
	"pkce-auth-server/internal/util"
	"strings"
	"time"
)

const (
	GrantTypeAuthorizationCode = "authorization_code"
	GrantTypeRefreshToken      = "refresh_token"

	authorizationCodeBytes = 32
)

// OAuthDependencies : все коллабораторы OAuthService передаются явно
type OAuthDependencies struct {
	Clients         ports.ClientRegistry
	Users           ports.UserRepository
	PKCEStore       ports.PKCEStore
	Codes           ports.AuthorizationCodeStore
	Ledger          ports.RevocationLedger
	Codec           ports.TokenCodec
	Events          ports.SecurityEventSink
	Instrumentation *instrumentation.Instrumentation
}

// OAuthService : authorization code grant с обязательным PKCE (S256) и ротация refresh токенов
type OAuthService struct {
	clients ports.ClientRegistry
	users   ports.UserRepository
	pkce    ports.PKCEStore
	codes   ports.AuthorizationCodeStore
	ledger  ports.RevocationLedger
	codec   ports.TokenCodec
	events  ports.SecurityEventSink
	inst    *instrumentation.Instrumentation
	now     func() time.Time
}

func NewOAuthService(deps OAuthDependencies) (*OAuthService, error) {
	inst := deps.Instrumentation
	if inst == nil {
		var err error
		if inst, err = instrumentation.New(nil, nil); err != nil {
			return nil, err
		}
	}
	return &OAuthService{
		clients: deps.Clients,
		users:   deps.Users,
		pkce:    deps.PKCEStore,
		codes:   deps.Codes,
		ledger:  deps.Ledger,
		codec:   deps.Codec,
		events:  deps.Events,
		inst:    inst,
		now:     time.Now,
	}, nil
}

// AuthorizeParams : query параметры /oauth/authorize
type AuthorizeParams struct {
	ClientID            string
	RedirectURI         string
	ResponseType        string
	CodeChallenge       string
	CodeChallengeMethod string
	State               string
	Scope               string
}

// ValidateAuthorizeRequest проверяет запрос до аутентификации пользователя.
// Ничего не сохраняет, на любую ошибку возвращает *OAuthError.
func (s *OAuthService) ValidateAuthorizeRequest(ctx context.Context, params AuthorizeParams) (*model.AuthorizationRequest, error) {
	if params.ClientID == "" {
		return nil, invalidRequest("client_id is required")
	}
	client, err := s.clients.FindClient(ctx, params.ClientID)
	if errors.Is(err, repository.ErrClientNotFound) {
		return nil, newOAuthError(ErrCodeUnauthorizedClient, "unknown client_id")
	} else if err != nil {
		return nil, serverError(fmt.Errorf("не удалось найти клиента: %w", err))
	}

	if params.RedirectURI == "" {
		return nil, invalidRequest("redirect_uri is required")
	}
	if !client.HasRedirectURI(params.RedirectURI) {
		return nil, invalidRequest("redirect_uri is not registered for this client")
	}

	if params.ResponseType != "" && params.ResponseType != "code" {
		return nil, newOAuthError(ErrCodeUnsupportedResponseType, "only response_type=code is supported")
	}

	if params.CodeChallenge == "" {
		return nil, invalidRequest("code_challenge is required")
	}
	if !security.ValidPKCEValue(params.CodeChallenge) {
		return nil, invalidRequest("code_challenge must be 43-128 characters of [A-Za-z0-9-._~]")
	}
	if params.CodeChallengeMethod != security.CodeChallengeMethodS256 {
		return nil, invalidRequest("code_challenge_method must be S256")
	}

	if params.State == "" {
		return nil, invalidRequest("state is required")
	}

	scopes := parseScopes(params.Scope)
	if len(scopes) == 0 {
		scopes = append([]string(nil), client.Scopes...)
	}
	if !client.AllowsScopes(scopes) {
		return nil, newOAuthError(ErrCodeInvalidScope, "requested scope is not allowed for this client")
	}

	return &model.AuthorizationRequest{
		Client:        client,
		RedirectURI:   params.RedirectURI,
		CodeChallenge: params.CodeChallenge,
		State:         params.State,
		Scopes:        scopes,
	}, nil
}

// IssueAuthorizationCode сохраняет PKCE сессию и код, возвращает URL для редиректа
func (s *OAuthService) IssueAuthorizationCode(ctx context.Context, req *model.AuthorizationRequest, user *model.User) (string, error) {
	ctx, span := s.inst.StartSpan(ctx, "oauth.authorize")
	defer span.End()

	redirect, err := url.Parse(req.RedirectURI)
	if err != nil {
		return "", serverError(fmt.Errorf("некорректный зарегистрированный redirect_uri: %w", err))
	}

	session := &model.PKCESession{
		State:         req.State,
		CodeChallenge: req.CodeChallenge,
		ClientID:      req.Client.ClientID,
		UserID:        user.UUID,
		Email:         user.Email,
		Name:          user.Name,
		RedirectURI:   req.RedirectURI,
		Scopes:        req.Scopes,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.pkce.Save(ctx, session); err != nil {
		return "", serverError(err)
	}

	code, err := util.GenerateRandomToken(authorizationCodeBytes)
	if err != nil {
		return "", serverError(err)
	}
	if err := s.codes.Save(ctx, code, req.State); err != nil {
		if delErr := s.pkce.Delete(ctx, req.State); delErr != nil {
			slog.Warn("не удалось удалить pkce сессию после ошибки", slog.Any("error", delErr))
		}
		return "", serverError(err)
	}

	query := redirect.Query()
	query.Set("code", code)
	query.Set("state", req.State)
	redirect.RawQuery = query.Encode()

	s.inst.RecordAuthorizationCode(ctx, req.Client.ClientID)
	slog.Info("выдан код авторизации", slog.String("client_id", req.Client.ClientID), slog.String("sub", user.UUID))
	return redirect.String(), nil
}

// ExchangeParams : параметры authorization_code grant
type ExchangeParams struct {
	Code         string
	CodeVerifier string
	State        string
	ClientID     string
	RedirectURI  string
	RemoteAddr   string
}

// ExchangeAuthorizationCode : код и PKCE сессия одноразовые, сессия удаляется при первой же попытке
func (s *OAuthService) ExchangeAuthorizationCode(ctx context.Context, params ExchangeParams) (*model.TokensPair, error) {
	ctx, span := s.inst.StartSpan(ctx, "oauth.token.authorization_code")
	defer span.End()

	pair, err := s.exchangeAuthorizationCode(ctx, params)
	if err != nil {
		s.inst.RecordGrantFailure(ctx, GrantTypeAuthorizationCode, AsOAuthError(err).Code)
		return nil, err
	}
	s.inst.RecordTokensIssued(ctx, GrantTypeAuthorizationCode)
	return pair, nil
}

func (s *OAuthService) exchangeAuthorizationCode(ctx context.Context, params ExchangeParams) (*model.TokensPair, error) {
	if params.Code == "" || params.CodeVerifier == "" || params.State == "" {
		return nil, invalidRequest("code, code_verifier and state are required")
	}
	if !security.ValidPKCEValue(params.CodeVerifier) {
		return nil, invalidRequest("code_verifier must be 43-128 characters of [A-Za-z0-9-._~]")
	}

	storedState, err := s.codes.Consume(ctx, params.Code)
	if errors.Is(err, repository.ErrCodeNotFound) {
		return nil, invalidGrant("authorization code is invalid or expired")
	} else if err != nil {
		return nil, serverError(err)
	}

	if storedState != params.State {
		if err := s.pkce.Delete(ctx, storedState); err != nil {
			return nil, serverError(err)
		}
		s.publish(ctx, model.SecurityEvent{
			Type:       model.AuthorizationStateMismatch,
			ClientID:   params.ClientID,
			RemoteAddr: params.RemoteAddr,
		})
		return nil, invalidGrant("state does not match authorization code")
	}

	session, err := s.pkce.Get(ctx, params.State)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return nil, invalidGrant("authorization session is invalid or expired")
	} else if err != nil {
		return nil, serverError(err)
	}
	if err := s.pkce.Delete(ctx, params.State); err != nil {
		return nil, serverError(err)
	}

	if params.ClientID != "" && params.ClientID != session.ClientID {
		return nil, invalidGrant("client_id does not match authorization request")
	}
	if params.RedirectURI != "" && params.RedirectURI != session.RedirectURI {
		return nil, invalidGrant("redirect_uri does not match authorization request")
	}

	if !security.VerifyPKCE(params.CodeVerifier, session.CodeChallenge) {
		s.publish(ctx, model.SecurityEvent{
			Type:       model.PKCEVerificationFailed,
			Subject:    session.UserID,
			ClientID:   session.ClientID,
			RemoteAddr: params.RemoteAddr,
		})
		return nil, invalidGrant("PKCE verification failed")
	}

	return s.mintTokens(ctx, tokenGrant{
		subject:  session.UserID,
		clientID: session.ClientID,
		scopes:   session.Scopes,
		display:  model.DisplayFields{Email: session.Email, Name: session.Name},
	})
}

// RefreshParams : параметры refresh_token grant
type RefreshParams struct {
	RefreshToken string
	RemoteAddr   string
}

// RefreshTokens : ротация refresh токена. Повторное предъявление уже погашенного токена
// отзывает все сессии субъекта.
func (s *OAuthService) RefreshTokens(ctx context.Context, params RefreshParams) (*model.TokensPair, error) {
	ctx, span := s.inst.StartSpan(ctx, "oauth.token.refresh_token")
	defer span.End()

	pair, err := s.refreshTokens(ctx, params)
	if err != nil {
		s.inst.RecordGrantFailure(ctx, GrantTypeRefreshToken, AsOAuthError(err).Code)
		return nil, err
	}
	s.inst.RecordTokensIssued(ctx, GrantTypeRefreshToken)
	return pair, nil
}

func (s *OAuthService) refreshTokens(ctx context.Context, params RefreshParams) (*model.TokensPair, error) {
	if params.RefreshToken == "" {
		return nil, invalidRequest("refresh_token is required")
	}

	claims, err := s.codec.VerifyRefreshToken(ctx, params.RefreshToken)
	switch {
	case errors.Is(err, security.ErrTokenRevoked):
		return nil, s.handleReuse(ctx, claims, params.RemoteAddr)
	case errors.Is(err, security.ErrInvalidToken):
		return nil, invalidGrant("refresh token is invalid or expired")
	case err != nil:
		return nil, serverError(err)
	}

	redeemedAt := s.now()
	first, err := s.ledger.MarkRefreshTokenUsed(ctx, claims.Subject, claims.ID, claims.RemainingLifetime(redeemedAt))
	if err != nil {
		return nil, serverError(err)
	}
	if !first {
		return nil, s.handleReuse(ctx, claims, params.RemoteAddr)
	}

	user, err := s.users.FindByUUID(ctx, claims.Subject)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, invalidGrant("refresh token subject no longer exists")
	} else if err != nil {
		return nil, serverError(err)
	}

	return s.mintTokens(ctx, tokenGrant{
		subject:    claims.Subject,
		clientID:   claims.ClientID,
		scopes:     parseScopes(claims.Scope),
		display:    user.DisplayFields(),
		parentID:   claims.ID,
		redeemedAt: redeemedAt,
	})
}

// handleReuse : повторное использование refresh токена считается кражей
func (s *OAuthService) handleReuse(ctx context.Context, claims *model.TokenClaims, remoteAddr string) error {
	slog.Error("обнаружено повторное использование refresh токена",
		slog.String("sub", claims.Subject),
		slog.String("jti", claims.ID),
		slog.String("remote_addr", remoteAddr),
	)
	s.inst.RecordReuseDetected(ctx)

	revoked, err := s.ledger.RevokeAllSessionsForSubject(ctx, claims.Subject)
	if err != nil {
		return serverError(fmt.Errorf("не удалось отозвать сессии после reuse: %w", err))
	}
	s.inst.RecordTokensRevoked(ctx, revoked)

	s.publish(ctx, model.SecurityEvent{
		Type:       model.RefreshTokenReuseDetected,
		Subject:    claims.Subject,
		ClientID:   claims.ClientID,
		TokenID:    claims.ID,
		RemoteAddr: remoteAddr,
		Revoked:    revoked,
	})
	return invalidGrant("refresh token has already been used")
}

// Revoke : отзыв идемпотентен, ошибка возвращается только при сбое хранилища
func (s *OAuthService) Revoke(ctx context.Context, token, tokenTypeHint string) error {
	ctx, span := s.inst.StartSpan(ctx, "oauth.revoke")
	defer span.End()

	if token == "" {
		return nil
	}

	// claims без проверки подписи используются только чтобы найти, что отзывать
	unverified, err := s.codec.DecodeUnverified(token)
	if err != nil || unverified.Subject == "" {
		return nil
	}

	tokenType := unverified.TokenType
	if tokenType == "" {
		tokenType = hintToTokenType(tokenTypeHint)
	}

	switch tokenType {
	case model.RefreshTokenType:
		revoked, err := s.ledger.RevokeAllSessionsForSubject(ctx, unverified.Subject)
		if err != nil {
			return util.LogError("[OAuthService] ошибка отзыва сессий", err)
		}
		s.inst.RecordTokensRevoked(ctx, revoked)
		s.publish(ctx, model.SecurityEvent{
			Type:    model.SessionsRevoked,
			Subject: unverified.Subject,
			TokenID: unverified.ID,
			Revoked: revoked,
		})
	case model.AccessTokenType:
		claims, err := s.codec.VerifyAccessToken(ctx, token)
		if errors.Is(err, security.ErrInvalidToken) {
			return nil
		} else if err != nil && !errors.Is(err, security.ErrTokenRevoked) {
			return util.LogError("[OAuthService] ошибка проверки access токена", err)
		}
		if err := s.ledger.MarkAccessTokenRevoked(ctx, claims.Subject, claims.ID, claims.RemainingLifetime(s.now())); err != nil {
			return util.LogError("[OAuthService] ошибка отзыва access токена", err)
		}
		s.inst.RecordTokensRevoked(ctx, 1)
	}
	return nil
}

// tokenGrant : redeemedAt - момент перед гашением refresh токена, нулевой для authorization_code
type tokenGrant struct {
	subject    string
	clientID   string
	scopes     []string
	display    model.DisplayFields
	parentID   string
	redeemedAt time.Time
}

// mintTokens выпускает пару токенов и регистрирует оба в индексе субъекта
func (s *OAuthService) mintTokens(ctx context.Context, grant tokenGrant) (*model.TokensPair, error) {
	access, err := s.codec.IssueAccessToken(model.AccessTokenParams{
		Subject:  grant.subject,
		ClientID: grant.clientID,
		Scopes:   grant.scopes,
		Display:  grant.display,
	})
	if err != nil {
		return nil, serverError(err)
	}

	refresh, err := s.codec.IssueRefreshToken(model.RefreshTokenParams{
		Subject:  grant.subject,
		ClientID: grant.clientID,
		Scopes:   grant.scopes,
		ParentID: grant.parentID,
	})
	if err != nil {
		return nil, serverError(err)
	}

	for _, token := range []model.IssuedToken{access, refresh} {
		if err := s.ledger.TrackIssuedToken(ctx, grant.subject, token); err != nil {
			return nil, serverError(err)
		}
	}

	// пока пара выпускалась, параллельный запрос с тем же refresh токеном мог отозвать все сессии
	if !grant.redeemedAt.IsZero() {
		revokedAt, err := s.ledger.SessionsRevokedAt(ctx, grant.subject)
		if err != nil {
			return nil, serverError(err)
		}
		if !revokedAt.IsZero() && !revokedAt.Before(grant.redeemedAt) {
			slog.Warn("сессии субъекта отозваны во время ротации refresh токена",
				slog.String("sub", grant.subject),
				slog.String("parent_jti", grant.parentID),
			)
			return nil, invalidGrant("refresh token has already been used")
		}
	}

	return &model.TokensPair{Access: access, Refresh: refresh, Scopes: grant.scopes}, nil
}

// publish : ошибка доставки события не должна ломать ответ клиенту
func (s *OAuthService) publish(ctx context.Context, event model.SecurityEvent) {
	if s.events == nil {
		return
	}
	event.OccurredAt = s.now().UTC()
	if err := s.events.Publish(ctx, event); err != nil {
		slog.Error("не удалось опубликовать событие безопасности", slog.String("type", string(event.Type)), slog.Any("error", err))
	}
}

// parseScopes разбирает scope через пробел, дубликаты отбрасываются
func parseScopes(scope string) []string {
	fields := strings.Fields(scope)
	seen := make(map[string]bool, len(fields))
	scopes := make([]string, 0, len(fields))
	for _, field := range fields {
		if seen[field] {
			continue
		}
		seen[field] = true
		scopes = append(scopes, field)
	}
	return scopes
}

func hintToTokenType(hint string) model.TokenType {
	switch hint {
	case "refresh_token":
		return model.RefreshTokenType
	case "access_token":
		return model.AccessTokenType
	}
	return ""
}
