package service_test

import (
	"context"
	"pkce-auth-server/internal/model"
	"pkce-auth-server/internal/repository"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
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

type MockPKCEStore struct {
	mock.Mock
}

func (m *MockPKCEStore) Save(ctx context.Context, session *model.PKCESession) error {
	return m.Called(ctx, session).Error(0)
}

func (m *MockPKCEStore) Get(ctx context.Context, state string) (*model.PKCESession, error) {
	args := m.Called(ctx, state)
	if session := args.Get(0); session != nil {
		return session.(*model.PKCESession), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPKCEStore) Delete(ctx context.Context, state string) error {
	return m.Called(ctx, state).Error(0)
}

type MockCodeStore struct {
	mock.Mock
}

func (m *MockCodeStore) Save(ctx context.Context, code, state string) error {
	return m.Called(ctx, code, state).Error(0)
}

func (m *MockCodeStore) Consume(ctx context.Context, code string) (string, error) {
	args := m.Called(ctx, code)
	return args.String(0), args.Error(1)
}

type MockRevocationLedger struct {
	mock.Mock
}

func (m *MockRevocationLedger) MarkAccessTokenRevoked(ctx context.Context, subject, jti string, remaining time.Duration) error {
	return m.Called(ctx, subject, jti, remaining).Error(0)
}

func (m *MockRevocationLedger) MarkRefreshTokenUsed(ctx context.Context, subject, jti string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, subject, jti, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockRevocationLedger) IsAccessTokenRevoked(ctx context.Context, subject, jti string) (bool, error) {
	args := m.Called(ctx, subject, jti)
	return args.Bool(0), args.Error(1)
}

func (m *MockRevocationLedger) IsRefreshTokenUsed(ctx context.Context, subject, jti string) (bool, error) {
	args := m.Called(ctx, subject, jti)
	return args.Bool(0), args.Error(1)
}

func (m *MockRevocationLedger) SessionsRevokedAt(ctx context.Context, subject string) (time.Time, error) {
	args := m.Called(ctx, subject)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *MockRevocationLedger) TrackIssuedToken(ctx context.Context, subject string, token model.IssuedToken) error {
	return m.Called(ctx, subject, token).Error(0)
}

func (m *MockRevocationLedger) RevokeAllSessionsForSubject(ctx context.Context, subject string) (int, error) {
	args := m.Called(ctx, subject)
	return args.Int(0), args.Error(1)
}

// hookedUserRepository : вызывает hook один раз внутри FindByUUID
type hookedUserRepository struct {
	user *model.User
	hook func()
}

func (r *hookedUserRepository) FindByUUID(_ context.Context, uuid string) (*model.User, error) {
	if hook := r.hook; hook != nil {
		r.hook = nil
		hook()
	}
	if uuid != r.user.UUID {
		return nil, repository.ErrUserNotFound
	}
	return r.user, nil
}

func (r *hookedUserRepository) FindByEmail(_ context.Context, email string) (*model.User, error) {
	if email != r.user.Email {
		return nil, repository.ErrUserNotFound
	}
	return r.user, nil
}

// RecordingSink : запоминает опубликованные события
type RecordingSink struct {
	mu     sync.Mutex
	events []model.SecurityEvent
}

func (s *RecordingSink) Publish(_ context.Context, event model.SecurityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *RecordingSink) Events() []model.SecurityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.SecurityEvent(nil), s.events...)
}

func (s *RecordingSink) Types() []model.SecurityEventType {
	var types []model.SecurityEventType
	for _, event := range s.Events() {
		types = append(types, event.Type)
	}
	return types
}
