package security

import "errors"

var (
	// ErrInvalidToken : подпись, алгоритм, тип или срок токена не прошли проверку
	ErrInvalidToken = errors.New("невалидный токен")
	// ErrTokenRevoked : подпись верна, но токен отозван или уже использован
	ErrTokenRevoked = errors.New("токен отозван")

	ErrUnauthenticated = errors.New("пользователь не аутентифицирован")
)
