package security

import (
	"errors"
	"fmt"
	"net/http"
	"pkce-auth-server/internal/model"
	"pkce-auth-server/internal/ports"
	"pkce-auth-server/internal/repository"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// dummyPasswordHash : с ним сравнивается пароль неизвестного пользователя,
// чтобы время ответа не зависело от существования email
var dummyPasswordHash = sync.OnceValue(func() string {
	hash, err := bcrypt.GenerateFromPassword([]byte("dummy-password-for-unknown-users"), bcrypt.DefaultCost)
	if err != nil {
		panic(fmt.Sprintf("не удалось подготовить dummy хэш: %v", err))
	}
	return string(hash)
})

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("ошибка хэширования пароля: %w", err)
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// BasicAuthenticator : аутентифицирует владельца ресурса по HTTP Basic (email и пароль)
type BasicAuthenticator struct {
	users ports.UserRepository
}

func NewBasicAuthenticator(users ports.UserRepository) *BasicAuthenticator {
	return &BasicAuthenticator{users: users}
}

func (a *BasicAuthenticator) Authenticate(r *http.Request) (*model.User, error) {
	email, password, ok := r.BasicAuth()
	if !ok || email == "" {
		return nil, ErrUnauthenticated
	}

	user, err := a.users.FindByEmail(r.Context(), email)
	if errors.Is(err, repository.ErrUserNotFound) {
		CheckPassword(dummyPasswordHash(), password)
		return nil, ErrUnauthenticated
	} else if err != nil {
		return nil, fmt.Errorf("не удалось найти пользователя: %w", err)
	}

	if !CheckPassword(user.PasswordHash, password) {
		return nil, ErrUnauthenticated
	}
	return user, nil
}
