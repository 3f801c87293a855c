package domain

import (
	"time"
)

// User represents a registered account in the credential store.
//
// PasswordHash is excluded from JSON so it can never leak into a response
// body; it must also never be logged.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	IsSuperuser  bool      `json:"is_superuser"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Token is the response payload for a successful login. The access token is
// self-contained; nothing is stored server-side.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// ListFilter narrows an administrative user listing. Nil fields are ignored;
// Username and Email match as case-insensitive substrings.
type ListFilter struct {
	Username *string
	Email    *string
	IsActive *bool
}
