package domain

import "time"

// APIKey grants an embedded widget access to the chat endpoint without a user token.
type APIKey struct {
	ID          int64     `json:"id"          db:"id"`
	Key         string    `json:"key"         db:"key"`
	Description string    `json:"description" db:"description"`
	Active      bool      `json:"active"      db:"active"`
	CreatedAt   time.Time `json:"createdAt"   db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt"   db:"updated_at"`
}

// APIKeyPatch carries the optional fields of an API key update.
type APIKeyPatch struct {
	Active      *bool   `json:"active,omitempty"`
	Description *string `json:"description,omitempty"`
}
