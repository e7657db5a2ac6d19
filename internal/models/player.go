package models

import "time"

// PlayerCategory distinguishes paying members from guests.
type PlayerCategory string

const (
	PlayerMember PlayerCategory = "MEMBER"
	PlayerGuest  PlayerCategory = "GUEST"
)

// Valid reports whether c is a known category.
func (c PlayerCategory) Valid() bool {
	return c == PlayerMember || c == PlayerGuest
}

// Player is a club athlete. Players are deactivated, never deleted.
type Player struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Phone     string         `gorm:"size:20" json:"phone"`
	Category  PlayerCategory `gorm:"size:10;index;not null" json:"category"`
	Active    bool           `gorm:"not null" json:"active"`
	Native    bool           `gorm:"not null" json:"native"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// IsMember reports whether the player pays monthly dues.
func (p *Player) IsMember() bool {
	return p.Category == PlayerMember
}
