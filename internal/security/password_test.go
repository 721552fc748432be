package security_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"pkce-auth-server/internal/model"
	"pkce-auth-server/internal/repository"
	"pkce-auth-server/internal/security"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindByUUID(ctx context.Context, uuid string) (*model.User, error) {
	args := m.Called(ctx, uuid)
	if user := args.Get(0); user != nil {
		return user.(*model.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if user := args.Get(0); user != nil {
		return user.(*model.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestBasicAuthenticator_Authenticate(t *testing.T) {
	password := gofakeit.Password(true, true, true, false, false, 16)
	hash, err := security.HashPassword(password)
	require.NoError(t, err)

	user := &model.User{UUID: gofakeit.UUID(), Email: gofakeit.Email(), Name: gofakeit.Name(), PasswordHash: hash}

	tests := []struct {
		name       string
		email      string
		password   string
		noAuth     bool
		setupMocks func(u *MockUserRepository)
		expectErr  error
		anyErr     bool
	}{
		{
			name:     "success",
			email:    user.Email,
			password: password,
			setupMocks: func(u *MockUserRepository) {
				u.On("FindByEmail", mock.Anything, user.Email).Return(user, nil)
			},
		},
		{
			name:      "no credentials",
			noAuth:    true,
			expectErr: security.ErrUnauthenticated,
		},
		{
			name:     "wrong password",
			email:    user.Email,
			password: "wrong-password",
			setupMocks: func(u *MockUserRepository) {
				u.On("FindByEmail", mock.Anything, user.Email).Return(user, nil)
			},
			expectErr: security.ErrUnauthenticated,
		},
		{
			name:     "unknown user",
			email:    "ghost@example.com",
			password: password,
			setupMocks: func(u *MockUserRepository) {
				u.On("FindByEmail", mock.Anything, "ghost@example.com").Return(nil, repository.ErrUserNotFound)
			},
			expectErr: security.ErrUnauthenticated,
		},
		{
			name:     "database error",
			email:    user.Email,
			password: password,
			setupMocks: func(u *MockUserRepository) {
				u.On("FindByEmail", mock.Anything, user.Email).Return(nil, errors.New("db down"))
			},
			anyErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(MockUserRepository)
			if tt.setupMocks != nil {
				tt.setupMocks(users)
			}
			authenticator := security.NewBasicAuthenticator(users)

			req := httptest.NewRequest("GET", "/oauth/authorize", nil)
			if !tt.noAuth {
				req.SetBasicAuth(tt.email, tt.password)
			}

			got, err := authenticator.Authenticate(req)
			switch {
			case tt.expectErr != nil:
				assert.ErrorIs(t, err, tt.expectErr)
			case tt.anyErr:
				require.Error(t, err)
				assert.NotErrorIs(t, err, security.ErrUnauthenticated)
			default:
				require.NoError(t, err)
				assert.Equal(t, user.UUID, got.UUID)
			}
			users.AssertExpectations(t)
		})
	}
}

func TestBasicAuthenticator_UnknownUserTakesBcryptTime(t *testing.T) {
	password := gofakeit.Password(true, true, true, false, false, 16)
	hash, err := security.HashPassword(password)
	require.NoError(t, err)
	user := &model.User{UUID: gofakeit.UUID(), Email: gofakeit.Email(), PasswordHash: hash}

	users := new(MockUserRepository)
	users.On("FindByEmail", mock.Anything, user.Email).Return(user, nil)
	users.On("FindByEmail", mock.Anything, "ghost@example.com").Return(nil, repository.ErrUserNotFound)
	authenticator := security.NewBasicAuthenticator(users)

	attempt := func(email string) time.Duration {
		req := httptest.NewRequest("GET", "/oauth/authorize", nil)
		req.SetBasicAuth(email, "wrong-password")
		started := time.Now()
		_, err := authenticator.Authenticate(req)
		elapsed := time.Since(started)
		require.ErrorIs(t, err, security.ErrUnauthenticated)
		return elapsed
	}

	// первый вызов готовит dummy хэш, в замер он не входит
	attempt("ghost@example.com")

	known := attempt(user.Email)
	unknown := attempt("ghost@example.com")
	assert.Greater(t, unknown, known/4, "неизвестный email должен проверяться так же долго, как неверный пароль")
}
