package plans

type Plan struct {
	ID             uint `gorm:"primaryKey"`
	Name           string
	PriceUSD       float64
	MonthlyCredits int
	StripePriceID  string `gorm:"column:stripe_price_id;not null;uniqueIndex:idx_plans_stripe_price_id"`
	Interval       string
	Tier           string `gorm:"column:tier"` // "basic" | "pro" | "business"
}

// CreditPack is a one-time pay-as-you-go purchase, not a recurring plan.
type CreditPack struct {
	ID            uint `gorm:"primaryKey"`
	Name          string
	Credits       int
	PriceUSD      float64
	StripePriceID string `gorm:"column:stripe_price_id;not null;uniqueIndex:idx_credit_packs_stripe_price_id"`
}
