package domain

import (
	"strings"
	"time"
)

// Roles known to the dashboard.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User owns transactions. TelegramID links a chat identity to the account.
type User struct {
	ID         string
	Username   string
	Name       string
	Role       string
	TelegramID string
	CreatedAt  time.Time
}

// IsAdmin reports whether the user may delete transactions.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// IsRemote reports whether a receipt path is a remote URL rather than a legacy
// local filesystem path.
func IsRemote(receiptPath string) bool {
	return strings.HasPrefix(receiptPath, "http://") || strings.HasPrefix(receiptPath, "https://")
}
