package domain

// User identifies the OBP user behind the current session. An anonymous
// session is signalled by ErrNotAuthenticated, never by a zero User.
type User struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}
