package model

import "time"

// PKCESession одна попытка авторизации, ключ - state
type PKCESession struct {
	State         string    `json:"state"`
	CodeChallenge string    `json:"code_challenge"`
	ClientID      string    `json:"client_id"`
	UserID        string    `json:"user_id"`
	Email         string    `json:"email,omitempty"`
	Name          string    `json:"name,omitempty"`
	RedirectURI   string    `json:"redirect_uri"`
	Scopes        []string  `json:"scopes"`
	CreatedAt     time.Time `json:"created_at"`
}

// AuthorizationRequest провалидированный запрос к /oauth/authorize
type AuthorizationRequest struct {
	Client        *Client
	RedirectURI   string
	CodeChallenge string
	State         string
	Scopes        []string
}
