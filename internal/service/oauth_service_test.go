package service_test

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"pkce-auth-server/config"
	"pkce-auth-server/internal/model"
	"pkce-auth-server/internal/ports"
	"pkce-auth-server/internal/repository"
	"pkce-auth-server/internal/security"
	srv "pkce-auth-server/internal/service"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const testRedirectURI = "https://app.example.com/callback"

type fixture struct {
	service *srv.OAuthService
	clients *repository.StaticClientRegistry
	pkce    *repository.PKCERepository
	codes   *repository.AuthCodeRepository
	ledger  *repository.RevocationRepository
	codec   *security.JWTService
	users   *MockUserRepository
	events  *RecordingSink
	user    *model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := repository.NewBuntStore(":memory:", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	clients, err := repository.NewStaticClientRegistry([]model.Client{
		{ClientID: "mobile", RedirectURIs: []string{testRedirectURI, "https://app.example.com/cb?tenant=acme"}, Scopes: []string{"profile", "email"}},
	})
	require.NoError(t, err)

	f := &fixture{
		clients: clients,
		pkce:    repository.NewPKCERepository(store, 5*time.Minute),
		codes:   repository.NewAuthCodeRepository(store, time.Minute),
		ledger:  repository.NewRevocationRepository(store, 30*24*time.Hour),
		users:   new(MockUserRepository),
		events:  &RecordingSink{},
		user:    &model.User{UUID: "user-1", Email: "user@example.com", Name: "Test User"},
	}
	f.codec = security.NewJWTService(&config.JWTConfig{
		Issuer:          "pkce-auth-server",
		AccessSecret:    "access-secret-access-secret-access-secret",
		RefreshSecret:   "refresh-secret-refresh-secret-refresh-secret",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 30 * 24 * time.Hour,
	}, f.ledger)
	f.users.On("FindByUUID", mock.Anything, f.user.UUID).Return(f.user, nil).Maybe()

	f.service = f.serviceWithUsers(t, f.users)
	return f
}

// serviceWithUsers : сервис на тех же хранилищах, но с другим каталогом пользователей
func (f *fixture) serviceWithUsers(t *testing.T, users ports.UserRepository) *srv.OAuthService {
	t.Helper()
	service, err := srv.NewOAuthService(srv.OAuthDependencies{
		Clients:   f.clients,
		Users:     users,
		PKCEStore: f.pkce,
		Codes:     f.codes,
		Ledger:    f.ledger,
		Codec:     f.codec,
		Events:    f.events,
	})
	require.NoError(t, err)
	return service
}

func authorizeParams(challenge string) srv.AuthorizeParams {
	return srv.AuthorizeParams{
		ClientID:            "mobile",
		RedirectURI:         testRedirectURI,
		ResponseType:        "code",
		CodeChallenge:       challenge,
		CodeChallengeMethod: "S256",
		State:               "state-123",
		Scope:               "profile",
	}
}

// authorize проходит authorize шаг и возвращает code и state из редиректа
func (f *fixture) authorize(t *testing.T, verifier string) (string, string) {
	t.Helper()
	ctx := context.Background()

	req, err := f.service.ValidateAuthorizeRequest(ctx, authorizeParams(oauth2.S256ChallengeFromVerifier(verifier)))
	require.NoError(t, err)

	location, err := f.service.IssueAuthorizationCode(ctx, req, f.user)
	require.NoError(t, err)

	redirect, err := url.Parse(location)
	require.NoError(t, err)
	return redirect.Query().Get("code"), redirect.Query().Get("state")
}

func (f *fixture) exchange(t *testing.T, verifier string) *model.TokensPair {
	t.Helper()
	code, state := f.authorize(t, verifier)
	pair, err := f.service.ExchangeAuthorizationCode(context.Background(), srv.ExchangeParams{
		Code: code, CodeVerifier: verifier, State: state,
	})
	require.NoError(t, err)
	return pair
}

func requireOAuthError(t *testing.T, err error, code string, status int) {
	t.Helper()
	require.Error(t, err)
	var oauthErr *srv.OAuthError
	require.True(t, errors.As(err, &oauthErr), "ожидалась OAuthError, получено %v", err)
	assert.Equal(t, code, oauthErr.Code)
	assert.Equal(t, status, oauthErr.Status)
}

func TestOAuthService_ValidateAuthorizeRequest(t *testing.T) {
	f := newFixture(t)
	challenge := oauth2.S256ChallengeFromVerifier(oauth2.GenerateVerifier())

	tests := []struct {
		name      string
		mutate    func(p *srv.AuthorizeParams)
		errorCode string
	}{
		{name: "missing client_id", mutate: func(p *srv.AuthorizeParams) { p.ClientID = "" }, errorCode: srv.ErrCodeInvalidRequest},
		{name: "unknown client", mutate: func(p *srv.AuthorizeParams) { p.ClientID = "ghost" }, errorCode: srv.ErrCodeUnauthorizedClient},
		{name: "missing redirect_uri", mutate: func(p *srv.AuthorizeParams) { p.RedirectURI = "" }, errorCode: srv.ErrCodeInvalidRequest},
		{name: "unregistered redirect_uri", mutate: func(p *srv.AuthorizeParams) { p.RedirectURI = "https://evil.example.com/cb" }, errorCode: srv.ErrCodeInvalidRequest},
		{name: "token response_type", mutate: func(p *srv.AuthorizeParams) { p.ResponseType = "token" }, errorCode: srv.ErrCodeUnsupportedResponseType},
		{name: "missing challenge", mutate: func(p *srv.AuthorizeParams) { p.CodeChallenge = "" }, errorCode: srv.ErrCodeInvalidRequest},
		{name: "42 char challenge", mutate: func(p *srv.AuthorizeParams) { p.CodeChallenge = strings.Repeat("a", 42) }, errorCode: srv.ErrCodeInvalidRequest},
		{name: "plain method", mutate: func(p *srv.AuthorizeParams) { p.CodeChallengeMethod = "plain" }, errorCode: srv.ErrCodeInvalidRequest},
		{name: "absent method", mutate: func(p *srv.AuthorizeParams) { p.CodeChallengeMethod = "" }, errorCode: srv.ErrCodeInvalidRequest},
		{name: "missing state", mutate: func(p *srv.AuthorizeParams) { p.State = "" }, errorCode: srv.ErrCodeInvalidRequest},
		{name: "scope not allowed", mutate: func(p *srv.AuthorizeParams) { p.Scope = "profile admin" }, errorCode: srv.ErrCodeInvalidScope},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := authorizeParams(challenge)
			tt.mutate(&params)

			_, err := f.service.ValidateAuthorizeRequest(context.Background(), params)
			requireOAuthError(t, err, tt.errorCode, http.StatusBadRequest)

			_, err = f.pkce.Get(context.Background(), params.State)
			assert.ErrorIs(t, err, repository.ErrSessionNotFound)
		})
	}
}

func TestOAuthService_ValidateAuthorizeRequest_DefaultScopes(t *testing.T) {
	f := newFixture(t)
	params := authorizeParams(oauth2.S256ChallengeFromVerifier(oauth2.GenerateVerifier()))
	params.Scope = ""
	params.ResponseType = ""

	req, err := f.service.ValidateAuthorizeRequest(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, []string{"profile", "email"}, req.Scopes)
}

func TestOAuthService_IssueAuthorizationCode_PreservesQuery(t *testing.T) {
	f := newFixture(t)
	params := authorizeParams(oauth2.S256ChallengeFromVerifier(oauth2.GenerateVerifier()))
	params.RedirectURI = "https://app.example.com/cb?tenant=acme"

	req, err := f.service.ValidateAuthorizeRequest(context.Background(), params)
	require.NoError(t, err)
	location, err := f.service.IssueAuthorizationCode(context.Background(), req, f.user)
	require.NoError(t, err)

	redirect, err := url.Parse(location)
	require.NoError(t, err)
	assert.Equal(t, "acme", redirect.Query().Get("tenant"))
	assert.Equal(t, "state-123", redirect.Query().Get("state"))
	assert.Len(t, redirect.Query().Get("code"), 43)
}

func TestOAuthService_ExchangeAuthorizationCode_SingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	verifier := oauth2.GenerateVerifier()
	code, state := f.authorize(t, verifier)

	pair, err := f.service.ExchangeAuthorizationCode(ctx, srv.ExchangeParams{
		Code: code, CodeVerifier: verifier, State: state, ClientID: "mobile", RedirectURI: testRedirectURI,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"profile"}, pair.Scopes)

	claims, err := f.codec.VerifyAccessToken(ctx, pair.Access.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "user@example.com", claims.Email)

	_, err = f.service.ExchangeAuthorizationCode(ctx, srv.ExchangeParams{Code: code, CodeVerifier: verifier, State: state})
	requireOAuthError(t, err, srv.ErrCodeInvalidGrant, http.StatusBadRequest)
}

func TestOAuthService_ExchangeAuthorizationCode_Validation(t *testing.T) {
	f := newFixture(t)
	verifier := oauth2.GenerateVerifier()

	tests := []struct {
		name   string
		params srv.ExchangeParams
	}{
		{name: "missing code", params: srv.ExchangeParams{CodeVerifier: verifier, State: "s"}},
		{name: "missing verifier", params: srv.ExchangeParams{Code: "c", State: "s"}},
		{name: "missing state", params: srv.ExchangeParams{Code: "c", CodeVerifier: verifier}},
		{name: "short verifier", params: srv.ExchangeParams{Code: "c", CodeVerifier: strings.Repeat("a", 42), State: "s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.ExchangeAuthorizationCode(context.Background(), tt.params)
			requireOAuthError(t, err, srv.ErrCodeInvalidRequest, http.StatusBadRequest)
		})
	}

	_, err := f.service.ExchangeAuthorizationCode(context.Background(), srv.ExchangeParams{
		Code: "unknown", CodeVerifier: verifier, State: "s",
	})
	requireOAuthError(t, err, srv.ErrCodeInvalidGrant, http.StatusBadRequest)
}

func TestOAuthService_ExchangeAuthorizationCode_PKCEMismatchDeletesSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	code, state := f.authorize(t, oauth2.GenerateVerifier())

	_, err := f.service.ExchangeAuthorizationCode(ctx, srv.ExchangeParams{
		Code: code, CodeVerifier: oauth2.GenerateVerifier(), State: state,
	})
	requireOAuthError(t, err, srv.ErrCodeInvalidGrant, http.StatusBadRequest)
	assert.Equal(t, "PKCE verification failed", srv.AsOAuthError(err).Description)

	_, err = f.pkce.Get(ctx, state)
	assert.ErrorIs(t, err, repository.ErrSessionNotFound)
	assert.Equal(t, []model.SecurityEventType{model.PKCEVerificationFailed}, f.events.Types())
}

func TestOAuthService_ExchangeAuthorizationCode_StateMismatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	verifier := oauth2.GenerateVerifier()
	code, state := f.authorize(t, verifier)

	_, err := f.service.ExchangeAuthorizationCode(ctx, srv.ExchangeParams{
		Code: code, CodeVerifier: verifier, State: "other-state",
	})
	requireOAuthError(t, err, srv.ErrCodeInvalidGrant, http.StatusBadRequest)

	_, err = f.pkce.Get(ctx, state)
	assert.ErrorIs(t, err, repository.ErrSessionNotFound)
	assert.Equal(t, []model.SecurityEventType{model.AuthorizationStateMismatch}, f.events.Types())
}

func TestOAuthService_ExchangeAuthorizationCode_ClientMismatch(t *testing.T) {
	f := newFixture(t)
	verifier := oauth2.GenerateVerifier()
	code, state := f.authorize(t, verifier)

	_, err := f.service.ExchangeAuthorizationCode(context.Background(), srv.ExchangeParams{
		Code: code, CodeVerifier: verifier, State: state, ClientID: "another-client",
	})
	requireOAuthError(t, err, srv.ErrCodeInvalidGrant, http.StatusBadRequest)
}

func TestOAuthService_ExchangeAuthorizationCode_ExpiredSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	verifier := oauth2.GenerateVerifier()
	code, state := f.authorize(t, verifier)

	require.NoError(t, f.pkce.Delete(ctx, state))

	_, err := f.service.ExchangeAuthorizationCode(ctx, srv.ExchangeParams{Code: code, CodeVerifier: verifier, State: state})
	requireOAuthError(t, err, srv.ErrCodeInvalidGrant, http.StatusBadRequest)
}

func TestOAuthService_RefreshTokens_Rotation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pair := f.exchange(t, oauth2.GenerateVerifier())

	rotated, err := f.service.RefreshTokens(ctx, srv.RefreshParams{RefreshToken: pair.Refresh.Token})
	require.NoError(t, err)
	assert.NotEqual(t, pair.Refresh.JTI, rotated.Refresh.JTI)
	assert.Equal(t, []string{"profile"}, rotated.Scopes)

	claims, err := f.codec.VerifyRefreshToken(ctx, rotated.Refresh.Token)
	require.NoError(t, err)
	assert.Equal(t, pair.Refresh.JTI, claims.ParentID)
	assert.Equal(t, "mobile", claims.ClientID)

	access, err := f.codec.VerifyAccessToken(ctx, rotated.Access.Token)
	require.NoError(t, err)
	assert.Equal(t, "Test User", access.Name)

	_, err = f.codec.VerifyRefreshToken(ctx, pair.Refresh.Token)
	assert.ErrorIs(t, err, security.ErrTokenRevoked)
}

func TestOAuthService_RefreshTokens_ReuseRevokesEverything(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pair := f.exchange(t, oauth2.GenerateVerifier())

	rotated, err := f.service.RefreshTokens(ctx, srv.RefreshParams{RefreshToken: pair.Refresh.Token})
	require.NoError(t, err)

	_, err = f.service.RefreshTokens(ctx, srv.RefreshParams{RefreshToken: pair.Refresh.Token, RemoteAddr: "203.0.113.7"})
	requireOAuthError(t, err, srv.ErrCodeInvalidGrant, http.StatusBadRequest)

	for _, token := range []string{pair.Access.Token, rotated.Access.Token} {
		_, err := f.codec.VerifyAccessToken(ctx, token)
		assert.ErrorIs(t, err, security.ErrTokenRevoked)
	}
	_, err = f.codec.VerifyRefreshToken(ctx, rotated.Refresh.Token)
	assert.ErrorIs(t, err, security.ErrTokenRevoked)

	_, err = f.service.RefreshTokens(ctx, srv.RefreshParams{RefreshToken: rotated.Refresh.Token})
	requireOAuthError(t, err, srv.ErrCodeInvalidGrant, http.StatusBadRequest)

	events := f.events.Events()
	require.NotEmpty(t, events)
	assert.Equal(t, model.RefreshTokenReuseDetected, events[0].Type)
	assert.Equal(t, "user-1", events[0].Subject)
	assert.Equal(t, "203.0.113.7", events[0].RemoteAddr)
	assert.Equal(t, 4, events[0].Revoked)
}

func TestOAuthService_RefreshTokens_ConcurrentRedemption(t *testing.T) {
	f := newFixture(t)
	pair := f.exchange(t, oauth2.GenerateVerifier())

	var (
		mu     sync.Mutex
		issued []*model.TokensPair
		reused atomic.Int32
		wg     sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rotated, err := f.service.RefreshTokens(context.Background(), srv.RefreshParams{RefreshToken: pair.Refresh.Token})
			if err != nil {
				reused.Add(1)
				return
			}
			mu.Lock()
			issued = append(issued, rotated)
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, len(issued), 1)
	assert.GreaterOrEqual(t, reused.Load(), int32(7))

	// повторное предъявление отозвало все сессии, включая пару победителя гонки
	ctx := context.Background()
	for _, rotated := range issued {
		_, err := f.codec.VerifyAccessToken(ctx, rotated.Access.Token)
		assert.ErrorIs(t, err, security.ErrTokenRevoked)
		_, err = f.codec.VerifyRefreshToken(ctx, rotated.Refresh.Token)
		assert.ErrorIs(t, err, security.ErrTokenRevoked)
	}
}

func TestOAuthService_RefreshTokens_ReuseDuringRotation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pair := f.exchange(t, oauth2.GenerateVerifier())

	users := &hookedUserRepository{user: f.user}
	service := f.serviceWithUsers(t, users)

	// второй запрос с тем же refresh токеном приходит, когда первый уже погасил токен,
	// но еще не выпустил новую пару
	var concurrentErr error
	users.hook = func() {
		_, concurrentErr = service.RefreshTokens(ctx, srv.RefreshParams{RefreshToken: pair.Refresh.Token, RemoteAddr: "203.0.113.9"})
	}

	rotated, err := service.RefreshTokens(ctx, srv.RefreshParams{RefreshToken: pair.Refresh.Token})
	requireOAuthError(t, concurrentErr, srv.ErrCodeInvalidGrant, http.StatusBadRequest)
	requireOAuthError(t, err, srv.ErrCodeInvalidGrant, http.StatusBadRequest)
	assert.Nil(t, rotated)

	_, err = f.codec.VerifyAccessToken(ctx, pair.Access.Token)
	assert.ErrorIs(t, err, security.ErrTokenRevoked)
	assert.Contains(t, f.events.Types(), model.RefreshTokenReuseDetected)
}

func TestOAuthService_RefreshTokens_AfterLogoutInSameSecond(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// выход, повторный вход и ротация укладываются в одну секунду
	time.Sleep(time.Until(time.Now().Truncate(time.Second).Add(time.Second)))

	old := f.exchange(t, oauth2.GenerateVerifier())
	require.NoError(t, f.service.Revoke(ctx, old.Refresh.Token, "refresh_token"))

	fresh := f.exchange(t, oauth2.GenerateVerifier())
	_, err := f.codec.VerifyRefreshToken(ctx, fresh.Refresh.Token)
	require.NoError(t, err)

	rotated, err := f.service.RefreshTokens(ctx, srv.RefreshParams{RefreshToken: fresh.Refresh.Token})
	require.NoError(t, err)
	_, err = f.codec.VerifyAccessToken(ctx, rotated.Access.Token)
	assert.NoError(t, err)

	again, err := f.service.RefreshTokens(ctx, srv.RefreshParams{RefreshToken: rotated.Refresh.Token})
	require.NoError(t, err)
	assert.NotEqual(t, rotated.Refresh.JTI, again.Refresh.JTI)
	assert.NotContains(t, f.events.Types(), model.RefreshTokenReuseDetected)

	// пара, выданная до выхода в ту же секунду, отозвана по индексу
	_, err = f.codec.VerifyAccessToken(ctx, old.Access.Token)
	assert.ErrorIs(t, err, security.ErrTokenRevoked)
}

func TestOAuthService_RefreshTokens_Invalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pair := f.exchange(t, oauth2.GenerateVerifier())

	_, err := f.service.RefreshTokens(ctx, srv.RefreshParams{})
	requireOAuthError(t, err, srv.ErrCodeInvalidRequest, http.StatusBadRequest)

	_, err = f.service.RefreshTokens(ctx, srv.RefreshParams{RefreshToken: pair.Access.Token})
	requireOAuthError(t, err, srv.ErrCodeInvalidGrant, http.StatusBadRequest)

	_, err = f.service.RefreshTokens(ctx, srv.RefreshParams{RefreshToken: "garbage"})
	requireOAuthError(t, err, srv.ErrCodeInvalidGrant, http.StatusBadRequest)
}

func TestOAuthService_RefreshTokens_UnknownUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	refresh, err := f.codec.IssueRefreshToken(model.RefreshTokenParams{Subject: "deleted-user", ClientID: "mobile"})
	require.NoError(t, err)
	f.users.On("FindByUUID", mock.Anything, "deleted-user").Return(nil, repository.ErrUserNotFound)

	_, err = f.service.RefreshTokens(ctx, srv.RefreshParams{RefreshToken: refresh.Token})
	requireOAuthError(t, err, srv.ErrCodeInvalidGrant, http.StatusBadRequest)
}

func TestOAuthService_Revoke(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("access token", func(t *testing.T) {
		pair := f.exchange(t, oauth2.GenerateVerifier())

		require.NoError(t, f.service.Revoke(ctx, pair.Access.Token, ""))
		require.NoError(t, f.service.Revoke(ctx, pair.Access.Token, "access_token"))

		_, err := f.codec.VerifyAccessToken(ctx, pair.Access.Token)
		assert.ErrorIs(t, err, security.ErrTokenRevoked)

		// refresh из той же пары не затронут
		_, err = f.codec.VerifyRefreshToken(ctx, pair.Refresh.Token)
		assert.NoError(t, err)
	})

	t.Run("refresh token revokes all sessions", func(t *testing.T) {
		first := f.exchange(t, oauth2.GenerateVerifier())
		second := f.exchange(t, oauth2.GenerateVerifier())

		require.NoError(t, f.service.Revoke(ctx, first.Refresh.Token, "refresh_token"))
		require.NoError(t, f.service.Revoke(ctx, first.Refresh.Token, "refresh_token"))

		_, err := f.codec.VerifyAccessToken(ctx, second.Access.Token)
		assert.ErrorIs(t, err, security.ErrTokenRevoked)
		_, err = f.codec.VerifyRefreshToken(ctx, second.Refresh.Token)
		assert.ErrorIs(t, err, security.ErrTokenRevoked)
	})

	t.Run("garbage is ignored", func(t *testing.T) {
		assert.NoError(t, f.service.Revoke(ctx, "not-a-token", ""))
		assert.NoError(t, f.service.Revoke(ctx, "", ""))
	})
}
