package session

import "time"

// UserSession is one active refresh-token issuance. The refresh token itself
// is never stored, only its sha256 digest.
type UserSession struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	UserID           uint      `json:"user_id" gorm:"not null;index"`
	RefreshTokenHash string    `json:"-" gorm:"uniqueIndex;size:64;not null"`
	Device           *string   `json:"device" gorm:"size:256"`
	ExpiresAt        time.Time `json:"expires_at" gorm:"index"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (UserSession) TableName() string {
	return "user_sessions"
}
