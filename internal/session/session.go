// Package session keeps live login sessions. A session is created at login,
// looked up on every request and removed on logout. Tokens whose session is
// gone are rejected even if their signature is still valid.
package session

import (
	"context"
	"time"

	"github.com/erazemk/komponente/internal/model"
)

// Store persists identity snapshots keyed by session ID.
type Store interface {
	// Create stores s under s.ID for ttl.
	Create(ctx context.Context, s model.Session, ttl time.Duration) error
	// Get returns the session, or nil if it does not exist or has expired.
	Get(ctx context.Context, id string) (*model.Session, error)
	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error
	// RevokeAllForUser removes every session belonging to userID.
	RevokeAllForUser(ctx context.Context, userID int64) error
}
