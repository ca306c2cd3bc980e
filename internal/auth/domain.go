package auth

// Account is the single administrator allowed to use the back office.
type Account struct {
	Username     string
	PasswordHash string
}

// Credentials is the login request body.
type Credentials struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=72"`
}

// SessionInfo describes the caller's session.
type SessionInfo struct {
	Authenticated bool   `json:"authenticated"`
	User          string `json:"user,omitempty"`
	CSRFToken     string `json:"csrfToken,omitempty"`
}
