package users

import "time"

type UserDTO struct {
	ID           uint   `json:"id"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	AuthProvider string `json:"auth_provider"`
	IsVerified   bool   `json:"is_verified"`
}

type BillingDTO struct {
	SubscriptionTier string     `json:"subscription_tier"`
	SubscriptionEnd  *time.Time `json:"subscription_end,omitempty"`
	CreditsRemaining int        `json:"credits_remaining"`
	Unlimited        bool       `json:"unlimited"`
}

type MeResponse struct {
	User    UserDTO    `json:"user"`
	Billing BillingDTO `json:"billing"`
}
