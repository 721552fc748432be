package requestresponse

// CurrentUserResponse : информация о владельце access токена
type CurrentUserResponse struct {
	Subject  string `json:"sub" example:"b6a1e1c4-4b1d-4f1e-8b29-1234567890ab"`
	Email    string `json:"email,omitempty" example:"user@example.com"`
	Name     string `json:"name,omitempty" example:"Jane Doe"`
	ClientID string `json:"client_id,omitempty" example:"mobile-app"`
	Scope    string `json:"scope,omitempty" example:"openid profile"`
}

// HealthResponse : состояние сервиса
type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}
