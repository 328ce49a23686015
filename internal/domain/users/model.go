package users

import (
	"time"
)

type User struct {
	ID           uint    `gorm:"primaryKey"`
	Email        string  `gorm:"not null;uniqueIndex:idx_users_email"`
	Password     *string `gorm:""`
	AuthProvider string  `gorm:"type:varchar(20);not null;default:'local'"`
	GoogleSub    *string `gorm:"uniqueIndex:idx_users_google_sub"`
	Role         string
	IsVerified   bool

	// Quota state. CreditsRemaining is only ever written through the quota
	// ledger (conditional decrement) and billing events (grant/renewal).
	SubscriptionTier string     `gorm:"type:varchar(20);not null;default:'free'"`
	SubscriptionEnd  *time.Time `gorm:"column:subscription_end"`
	CreditsRemaining int        `gorm:"not null;default:0;check:credits_remaining >= 0"`

	StripeCustomerID *string `gorm:"column:stripe_customer_id;uniqueIndex:idx_users_stripe_customer_id"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
