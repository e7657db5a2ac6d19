package models

import "time"

// AccessLog records every authenticated API request.
type AccessLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    *uint     `gorm:"index" json:"user_id"`
	RequestID string    `gorm:"size:64;index" json:"request_id"`
	Method    string    `gorm:"size:16" json:"method"`
	Path      string    `gorm:"size:255" json:"path"`
	Status    int       `json:"status"`
	IP        string    `gorm:"size:64" json:"ip"`
	UserAgent string    `gorm:"size:255" json:"user_agent"`
	LatencyMs int64     `json:"latency_ms"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
