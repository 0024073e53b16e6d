package users

import (
	"regexp"
	"strings"
	"time"
)

// User is a registered account. Usernames are unique ignoring case; the
// original spelling is kept for display.
type User struct {
	ID           string     `gorm:"column:id;primaryKey;size:64;not null"`
	Username     string     `gorm:"column:username;size:40;not null"`
	UsernameKey  string     `gorm:"column:username_key;size:40;not null;uniqueIndex"`
	PasswordHash string     `gorm:"column:password_hash;size:255;not null"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at"`
}

// TableName exposes the table backing accounts.
func (User) TableName() string {
	return "users"
}

const maxUsernameLength = 40

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

func normalize(value string) string {
	return strings.TrimSpace(value)
}

// UsernameKey folds a username for uniqueness checks and lookups.
func UsernameKey(username string) string {
	return strings.ToLower(normalize(username))
}

func validUsername(username string) bool {
	return len(username) >= 1 && len(username) <= maxUsernameLength && usernamePattern.MatchString(username)
}
