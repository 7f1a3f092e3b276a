package models

import "time"

// User models a cinelist account capable of owning watchlist entries.
// Authentication itself is delegated to the session layer; this record only
// backs the credential check and ownership of rows.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
