package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PlanChange records a plan update applied from a billing event. EventID is
// unique so a replayed event cannot be applied twice.
type PlanChange struct {
	gorm.Model
	UserID     uuid.UUID `gorm:"type:varchar(36);index;not null"`
	EventID    string    `gorm:"size:255;uniqueIndex;not null"`
	PriceID    string    `gorm:"size:255"`
	CustomerID string    `gorm:"size:255"`
	OldPlan    string    `gorm:"size:20"`
	NewPlan    string    `gorm:"size:20;not null"`
	ChangedAt  time.Time `gorm:"not null"`
}

// TableName specifies the table name for PlanChange
func (PlanChange) TableName() string {
	return "plan_changes"
}
