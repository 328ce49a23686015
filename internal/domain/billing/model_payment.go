package billing

import (
	"artgen-app/internal/domain/users"
	"time"
)

const (
	KindSubscription = "subscription"
	KindCredits      = "credits"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Payment rows are append-only; a row with status completed is never updated.
type Payment struct {
	ID              uint `gorm:"primaryKey"`
	UserID          uint
	User            users.User
	AmountUSD       float64
	Kind            string  `gorm:"type:varchar(20);not null"`
	Status          string  `gorm:"type:varchar(20);not null"`
	StripeSessionID *string `gorm:"uniqueIndex"`
	CreatedAt       time.Time
}
