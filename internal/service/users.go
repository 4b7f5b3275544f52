package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/komponente/internal/auth"
	"github.com/erazemk/komponente/internal/model"
	"github.com/erazemk/komponente/internal/store"
)

// Users manages accounts. Accounts are only ever created by an admin.
type Users struct {
	DB    *sqlx.DB
	Guard *Guard
}

// NewUser is the input for creating an account.
type NewUser struct {
	DisplayName string `json:"display_name"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	Role        string `json:"role"`
}

// Validate normalizes and checks u.
func (u *NewUser) Validate() error {
	u.DisplayName = strings.TrimSpace(u.DisplayName)
	u.Username = strings.TrimSpace(u.Username)
	if u.Role == "" {
		u.Role = model.RoleUser
	}

	if u.DisplayName == "" {
		return model.Required("display_name")
	}
	if u.Username == "" {
		return model.Required("username")
	}
	if !model.ValidRole(u.Role) {
		return &model.ValidationError{Field: "role", Message: "must be admin or user"}
	}
	return model.ValidatePassword(u.Password)
}

// List returns all accounts.
func (us *Users) List(ctx context.Context, s *model.Session) ([]model.User, error) {
	if err := Authorize(s, model.RoleAdmin); err != nil {
		return nil, err
	}
	users, err := store.ListUsers(ctx, us.DB)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []model.User{}
	}
	return users, nil
}

// People returns the display names movements can be recorded against.
func (us *Users) People(ctx context.Context) ([]string, error) {
	names, err := store.ListDisplayNames(ctx, us.DB)
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// Create adds an account.
func (us *Users) Create(ctx context.Context, s *model.Session, u NewUser) (*model.User, error) {
	if err := Authorize(s, model.RoleAdmin); err != nil {
		return nil, err
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(u.Password)
	if err != nil {
		return nil, err
	}

	user, err := store.CreateUser(ctx, us.DB, u.DisplayName, u.Username, hash, u.Role)
	if err != nil {
		return nil, err
	}

	slog.Info("user created", "user", s.Username, "new_user", user.Username, "role", user.Role)
	return user, nil
}

// Delete removes an account and ends its sessions. Admins cannot delete
// their own account.
func (us *Users) Delete(ctx context.Context, s *model.Session, id int64) error {
	if err := Authorize(s, model.RoleAdmin); err != nil {
		return err
	}
	if id == s.UserID {
		return &model.ValidationError{Field: "id", Message: "cannot delete your own account"}
	}

	if err := store.DeleteUser(ctx, us.DB, id); err != nil {
		return err
	}

	if us.Guard != nil {
		if err := us.Guard.RevokeUser(ctx, id); err != nil {
			slog.Error("user deleted but sessions not revoked", "user_id", id, "error", err)
		}
	}

	slog.Info("user deleted", "user", s.Username, "deleted_id", id)
	return nil
}

// ChangePassword lets any user replace their own password.
func (us *Users) ChangePassword(ctx context.Context, s *model.Session, current, next string) error {
	if err := Authorize(s, model.RoleUser); err != nil {
		return err
	}
	if current == "" {
		return model.Required("current_password")
	}
	if err := model.ValidatePassword(next); err != nil {
		return err
	}

	user, err := store.GetUser(ctx, us.DB, s.UserID)
	if err != nil {
		return err
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, current) {
		return model.ErrAuth
	}

	hash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	if err := store.UpdateUserPassword(ctx, us.DB, s.UserID, hash); err != nil {
		return err
	}

	slog.Info("user changed own password", "user", s.Username)
	return nil
}
