package models

import "time"

// RefreshSession stores the hash of an opaque refresh token
type RefreshSession struct {
	ID        uint       `gorm:"primaryKey"`
	UserID    uint       `gorm:"not null;index"`
	TokenHash string     `gorm:"uniqueIndex;not null;size:64"`
	ExpiresAt time.Time  `gorm:"not null"`
	RevokedAt *time.Time `gorm:""`
	CreatedAt time.Time

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (RefreshSession) TableName() string {
	return "refresh_sessions"
}

// IsUsable reports whether the session can still mint access tokens
func (s *RefreshSession) IsUsable(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// AllModels lists every table for auto-migration
func AllModels() []interface{} {
	return []interface{}{
		&Group{},
		&User{},
		&Student{},
		&MarksRecord{},
		&AttendanceRecord{},
		&RefreshSession{},
	}
}
