package models

import "time"

// Roles a User can hold.
const (
	RoleAdmin  = "admin"
	RolePlayer = "player"
	RoleViewer = "viewer"
)

// User represents application user, optionally linked to one Player.
// Five failed logins lock the account for ten minutes.
type User struct {
	ID           uint    `gorm:"primaryKey"`
	Username     string  `gorm:"size:80;uniqueIndex;not null"`
	Email        string  `gorm:"size:120;uniqueIndex;not null"`
	PasswordHash string  `gorm:"size:255;not null"`
	Role         string  `gorm:"size:20;not null"`
	PlayerID     *uint   `gorm:"uniqueIndex"`
	Player       *Player `gorm:"constraint:OnDelete:SET NULL"`
	Active       bool    `gorm:"not null"`

	FailedLoginAttempts int        `gorm:"not null"`
	LockedUntil         *time.Time
	LastLoginAt         *time.Time
	LastLoginIP         string     `gorm:"size:64"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsAdmin reports whether the user may run admin-only operations.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
