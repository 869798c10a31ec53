package domain

// Role constants.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	// RoleWidget is the identity injected for API key callers.
	RoleWidget = "widget"
)

// UserContext is the authenticated identity injected into request handlers.
type UserContext struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}
