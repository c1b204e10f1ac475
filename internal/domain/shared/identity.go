package shared

import "github.com/google/uuid"

// Identity is the verified caller identity extracted from a bearer token.
// It is passed explicitly into application services instead of being read
// from ambient request state.
type Identity struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	IsAdmin  bool      `json:"is_admin"`
}
