package api

import "time"

// User is the authenticated staff user record returned by the backend.
type User struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Role        string   `json:"role"`
	AvatarURL   string   `json:"avatar_url,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// LoginRequest is the payload for POST /login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the success payload of POST /login.
// ExpiresAt is optional; some backend revisions issue non-expiring tokens.
type LoginResponse struct {
	Token     string     `json:"token"`
	User      *User      `json:"user"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Message   string     `json:"message,omitempty"`
}

// UserResponse is the payload of GET /user and the profile endpoints.
type UserResponse struct {
	User           *User      `json:"user"`
	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty"`
}

// ProfileUpdate holds the fields accepted by POST /user/profile. Empty fields
// are omitted from the request. AvatarPath, when set, points at a local image
// file and switches the request to multipart encoding.
type ProfileUpdate struct {
	Name                 string
	PasswordCurrent      string
	Password             string
	PasswordConfirmation string
	AvatarPath           string
}

// ListParams controls pagination and filtering of admin resource listings.
type ListParams struct {
	Page    int
	PerPage int
	Search  string
}

// ResourcePage is one page of an admin resource listing. Items are kept as
// generic documents; the console does not model every resource's fields.
type ResourcePage struct {
	Items    []map[string]any `json:"data"`
	Total    int              `json:"total"`
	Page     int              `json:"current_page"`
	LastPage int              `json:"last_page"`
}
