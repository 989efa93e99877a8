package domain

// TokenPair is what the JWT login and refresh operations return: a signed
// access token and its companion refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"` // always "Bearer"
	ExpiresIn    int64  `json:"expires_in"` // seconds until access expiry
}

// Principal is the authenticated identity resolved by the auth gateway.
type Principal struct {
	UserID string `json:"userId"`
	Method string `json:"method"` // "session" or "jwt"
}
