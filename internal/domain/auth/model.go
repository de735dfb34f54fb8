// Package auth provides operator authentication.
package auth

import (
	"strings"
	"time"

	"freshledger/internal/core/apperror"
	"freshledger/internal/core/id"
)

// RoleOperator is granted to every authenticated operator.
const RoleOperator = "operator"

// Operator is a back-office user allowed to record purchases and payments.
type Operator struct {
	ID                  id.ID      `db:"id" json:"id"`
	Username            string     `db:"username" json:"username"`
	PasswordHash        string     `db:"password_hash" json:"-"`
	IsActive            bool       `db:"is_active" json:"isActive"`
	LastLoginAt         *time.Time `db:"last_login_at" json:"lastLoginAt,omitempty"`
	FailedLoginAttempts int        `db:"failed_login_attempts" json:"-"`
	LockedUntil         *time.Time `db:"locked_until" json:"-"`
	CreatedAt           time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updatedAt"`
	Version             int        `db:"version" json:"version"`
}

// NewOperator creates an active operator.
func NewOperator(username, passwordHash string, now time.Time) *Operator {
	return &Operator{
		ID:           id.New(),
		Username:     NormalizeUsername(username),
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
		Version:      1,
	}
}

// NormalizeUsername lower-cases and trims a login name.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// IsLocked returns true if the account is locked at now.
func (o *Operator) IsLocked(now time.Time) bool {
	return o.LockedUntil != nil && now.Before(*o.LockedUntil)
}

// CanLogin checks if the operator can log in.
func (o *Operator) CanLogin(now time.Time) error {
	if !o.IsActive {
		return apperror.NewForbidden("account is disabled")
	}
	if o.IsLocked(now) {
		return apperror.NewForbidden("account is temporarily locked")
	}
	return nil
}

// RecordFailedLogin increments the failure counter and locks the account
// once maxAttempts is reached.
func (o *Operator) RecordFailedLogin(now time.Time, maxAttempts int, lockDuration time.Duration) {
	o.FailedLoginAttempts++
	if o.FailedLoginAttempts >= maxAttempts {
		until := now.Add(lockDuration)
		o.LockedUntil = &until
		o.FailedLoginAttempts = 0
	}
	o.UpdatedAt = now
}

// RecordSuccessfulLogin resets the failure counter.
func (o *Operator) RecordSuccessfulLogin(now time.Time) {
	o.FailedLoginAttempts = 0
	o.LockedUntil = nil
	o.LastLoginAt = &now
	o.UpdatedAt = now
}

// Credentials for login.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Token is an issued access token.
type Token struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
	TokenType   string    `json:"tokenType"`
}
