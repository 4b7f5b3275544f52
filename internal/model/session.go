package model

// Session is the identity snapshot taken at login. It is not re-read from
// the users table on later requests.
type Session struct {
	ID          string `json:"-"`
	UserID      int64  `json:"user_id"`
	DisplayName string `json:"display_name"`
	Username    string `json:"username"`
	Role        string `json:"role"`
}

// IsAdmin reports whether the session carries the admin role.
func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == RoleAdmin
}
