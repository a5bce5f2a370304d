package domain

import "time"

// User is the persisted credential record. Username and Email are each unique
// across the store; PasswordHash is a self-describing encoded hash.
type User struct {
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Identity is the principal resolved from a bearer token.
type Identity struct {
	Username string
}

// Claims are the verified contents of an access token.
type Claims struct {
	Subject   string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
