package repository

import "errors"

var (
	ErrKeyNotFound     = errors.New("ключ не найден")
	ErrSessionNotFound = errors.New("pkce сессия не найдена")
	ErrCodeNotFound    = errors.New("код авторизации не найден")
	ErrClientNotFound  = errors.New("клиент не найден")
	ErrUserNotFound    = errors.New("пользователь не найден")
)
