package models

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout is how LastResetDate is stored.
const DateLayout = "2006-01-02"

// Profile is the per-user record the quota gate and billing read and write.
// LastResetDate is the calendar day DailyCount belongs to.
type Profile struct {
	UserID           uuid.UUID `gorm:"type:varchar(36);primarykey" json:"user_id"`
	Plan             string    `gorm:"size:20;not null;default:'free'" json:"plan"`
	DailyCount       int       `gorm:"not null;default:0" json:"daily_count"`
	LastResetDate    string    `gorm:"size:10" json:"last_reset_date"`
	StripeCustomerID string    `gorm:"size:255" json:"-"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName specifies the table name for Profile
func (Profile) TableName() string {
	return "profiles"
}

// EffectiveCount is DailyCount if it belongs to today, zero otherwise.
func (p *Profile) EffectiveCount(today string) int {
	if p.LastResetDate == today {
		return p.DailyCount
	}
	return 0
}
