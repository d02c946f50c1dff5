package rally

import "github.com/google/uuid"

// NewSessionID generates an identifier for a new rally session.
func NewSessionID() string {
	return uuid.NewString()
}
