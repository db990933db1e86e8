package revocation

import "time"

// ConsumedToken records a single-use token (by jti) that has been redeemed.
// Rows are useless once ExpiresAt passes, since the token itself no longer
// verifies.
type ConsumedToken struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	JTI       string    `json:"jti" gorm:"uniqueIndex;size:64;not null"`
	ExpiresAt time.Time `json:"expires_at" gorm:"index;not null"`
	CreatedAt time.Time `json:"created_at"`
}

func (ConsumedToken) TableName() string {
	return "consumed_tokens"
}
