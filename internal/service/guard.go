// Package service implements the inventory operations on top of the store.
// Every method that changes data takes the caller's session explicitly and
// checks its role before touching the database.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/erazemk/komponente/internal/auth"
	"github.com/erazemk/komponente/internal/model"
	"github.com/erazemk/komponente/internal/session"
	"github.com/erazemk/komponente/internal/store"
)

// Guard authenticates callers and issues, resolves and revokes sessions.
type Guard struct {
	DB       *sqlx.DB
	Sessions session.Store
	Secret   string
	TTL      time.Duration
}

func (g *Guard) ttl() time.Duration {
	if g.TTL <= 0 {
		return auth.DefaultTokenExpiry
	}
	return g.TTL
}

// Authenticate checks credentials and opens a session. It returns the signed
// token and the session snapshot.
func (g *Guard) Authenticate(ctx context.Context, username, password string) (string, *model.Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", nil, model.ErrAuth
	}

	user, err := store.GetUserByUsername(ctx, g.DB, username)
	if err != nil {
		return "", nil, err
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, password) {
		return "", nil, model.ErrAuth
	}

	s := model.Session{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		DisplayName: user.DisplayName,
		Username:    user.Username,
		Role:        user.Role,
	}

	token, err := auth.GenerateToken(g.Secret, s, g.ttl())
	if err != nil {
		return "", nil, err
	}
	if err := g.Sessions.Create(ctx, s, g.ttl()); err != nil {
		return "", nil, fmt.Errorf("creating session: %w", err)
	}

	return token, &s, nil
}

// Resolve validates a token and returns the live session it names.
// Tokens whose session was logged out or revoked fail with model.ErrAuth.
func (g *Guard) Resolve(ctx context.Context, token string) (*model.Session, error) {
	claims, err := auth.ValidateToken(g.Secret, token)
	if err != nil {
		return nil, model.ErrAuth
	}

	s, err := g.Sessions.Get(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if s == nil {
		return nil, model.ErrAuth
	}
	return s, nil
}

// Logout ends the session. It succeeds even if the session is already gone.
func (g *Guard) Logout(ctx context.Context, s *model.Session) error {
	if s == nil {
		return nil
	}
	return g.Sessions.Delete(ctx, s.ID)
}

// RevokeUser ends every session of a user.
func (g *Guard) RevokeUser(ctx context.Context, userID int64) error {
	if err := g.Sessions.RevokeAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("revoking sessions: %w", err)
	}
	slog.Info("sessions revoked", "user_id", userID)
	return nil
}

// Authorize checks that s holds at least role.
func Authorize(s *model.Session, role string) error {
	if s == nil {
		return model.ErrAuth
	}
	if !model.RoleAtLeast(s.Role, role) {
		return model.ErrForbidden
	}
	return nil
}
