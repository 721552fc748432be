package ports

import (
	"context"
	"net/http"
	"pkce-auth-server/internal/model"
)

// ClientRegistry : реестр публичных клиентов
type ClientRegistry interface {
	FindClient(ctx context.Context, clientID string) (*model.Client, error)
}

// UserRepository : каталог пользователей
type UserRepository interface {
	FindByUUID(ctx context.Context, uuid string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}

// Authenticator : определяет владельца ресурса на шаге authorize
type Authenticator interface {
	Authenticate(r *http.Request) (*model.User, error)
}
