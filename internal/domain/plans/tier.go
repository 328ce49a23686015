package plans

import "strings"

// Tier constants (single source of truth)
const (
	TierFree       = "free"
	TierBasic      = "basic"
	TierPro        = "pro"
	TierBusiness   = "business"
	TierPayAsYouGo = "pay_as_you_go"
)

// FreeSignupCredits is the one-time grant every new account starts with.
const FreeSignupCredits = 3

// NormalizeTier maps arbitrary stored/tier metadata values onto a known tier.
// Unknown values fall back to free rather than failing the request.
func NormalizeTier(tier string) string {
	switch strings.ToLower(strings.TrimSpace(tier)) {
	case TierBasic:
		return TierBasic
	case TierPro:
		return TierPro
	case TierBusiness:
		return TierBusiness
	case TierPayAsYouGo, "payg":
		return TierPayAsYouGo
	default:
		return TierFree
	}
}

// Unlimited reports whether a tier generates without spending credits.
// Pro and business subscribers are metered by their subscription term, not
// by the credit balance; everyone else draws down credits_remaining.
func Unlimited(tier string) bool {
	switch NormalizeTier(tier) {
	case TierPro, TierBusiness:
		return true
	default:
		return false
	}
}

// MonthlyAllotment returns the credit grant a subscription renewal resets to
// when the plan row carries no explicit monthly_credits value.
func MonthlyAllotment(tier string) int {
	switch NormalizeTier(tier) {
	case TierBasic:
		return 100
	case TierPro:
		return 300
	case TierBusiness:
		return 1000
	default:
		return 0
	}
}
