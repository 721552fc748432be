package requestresponse

// TokenRequest : тело запроса к /oauth/token (form или JSON)
type TokenRequest struct {
	GrantType    string `json:"grant_type" example:"authorization_code"`
	Code         string `json:"code" example:"h3Q2k1l0Zx9..."`
	CodeVerifier string `json:"code_verifier" example:"dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"`
	State        string `json:"state" example:"af0ifjsldkj"`
	RedirectURI  string `json:"redirect_uri" example:"https://app.example.com/callback"`
	ClientID     string `json:"client_id" example:"mobile-app"`
	RefreshToken string `json:"refresh_token" example:"eyJhbGciOiJIUzUxMiIsInR5cCI6IkpXVCJ9..."`
}

// TokenResponse : успешный ответ token endpoint
type TokenResponse struct {
	AccessToken  string `json:"access_token" example:"eyJhbGciOiJIUzUxMiIsInR5cCI6IkpXVCJ9..."`
	RefreshToken string `json:"refresh_token" example:"eyJhbGciOiJIUzUxMiIsInR5cCI6IkpXVCJ9..."`
	TokenType    string `json:"token_type" example:"Bearer"`
	ExpiresIn    int64  `json:"expires_in" example:"3600"`
	Scope        string `json:"scope" example:"openid profile"`
}

// RevokeRequest : тело запроса к /oauth/revoke
type RevokeRequest struct {
	Token         string `json:"token" example:"eyJhbGciOiJIUzUxMiIsInR5cCI6IkpXVCJ9..."`
	TokenTypeHint string `json:"token_type_hint" example:"refresh_token"`
}

// RevokeResponse : ответ на отзыв токена, всегда revoked=true
type RevokeResponse struct {
	Revoked bool `json:"revoked" example:"true"`
}

// ErrorResponse : ошибка в формате OAuth 2.0
type ErrorResponse struct {
	Error            string `json:"error" example:"invalid_grant"`
	ErrorDescription string `json:"error_description,omitempty" example:"PKCE verification failed"`
}
