package dto

import (
	"time"

	"freshledger/internal/domain/auth"
)

// TokenRequest is an operator login.
type TokenRequest struct {
	Username string `json:"username" binding:"required,max=100"`
	Password string `json:"password" binding:"required"`
}

// ToCredentials converts to domain credentials.
func (r *TokenRequest) ToCredentials() auth.Credentials {
	return auth.Credentials{Username: r.Username, Password: r.Password}
}

// OperatorResponse represents the operator in API responses.
type OperatorResponse struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

// FromOperator creates the response from the domain operator.
func FromOperator(op *auth.Operator) OperatorResponse {
	return OperatorResponse{ID: op.ID.String(), Username: op.Username, LastLoginAt: op.LastLoginAt}
}

// TokenResponse is an issued access token.
type TokenResponse struct {
	AccessToken string           `json:"accessToken"`
	ExpiresAt   time.Time        `json:"expiresAt"`
	TokenType   string           `json:"tokenType"`
	Operator    OperatorResponse `json:"operator"`
}

// NewTokenResponse combines token and operator.
func NewTokenResponse(t *auth.Token, op *auth.Operator) TokenResponse {
	return TokenResponse{
		AccessToken: t.AccessToken,
		ExpiresAt:   t.ExpiresAt,
		TokenType:   t.TokenType,
		Operator:    FromOperator(op),
	}
}

// MeResponse describes the authenticated caller.
type MeResponse struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}
