package models

type LoginRequest struct {
	Password string `json:"password" validate:"required"`
}

type AuthTokens struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}
