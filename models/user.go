package models

import "time"

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // never serialized
	CreatedAt    time.Time `json:"createdAt"`
}

// Caller is the identity recovered from a validated bearer token.
type Caller struct {
	UserID   string
	Username string
}
