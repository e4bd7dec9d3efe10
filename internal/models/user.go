package models

import "github.com/google/uuid"

// User is the authenticated caller as reported by the auth provider. It is
// never persisted by this service.
type User struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}
