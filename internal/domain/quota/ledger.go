package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"artgen-app/internal/domain/plans"
	"artgen-app/internal/domain/users"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrQuotaExceeded is returned when a user has no credits left and is not on
// an unlimited tier. Surfaced verbatim to the UI with an upgrade prompt.
var ErrQuotaExceeded = errors.New("no generation credits remaining")

// Ledger owns every write to users.credits_remaining. A generation first
// reserves one credit (atomic conditional decrement), then either commits
// the reservation or releases it back if the provider call failed.
type Ledger struct {
	db  *gorm.DB
	log *logrus.Logger
}

func NewLedger(db *gorm.DB, log *logrus.Logger) *Ledger {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Ledger{db: db, log: log}
}

// Reservation is the handle for one provisionally spent credit. Unlimited-tier
// reservations carry no credit delta but still flow through commit/release so
// every generation takes the same path.
type Reservation struct {
	UserID    uint
	Unlimited bool
	resolved  bool
}

// CheckAndReserve answers "may this user generate now" and, for metered
// tiers, spends one credit in the same statement. The decrement is guarded by
// the WHERE clause, so two racing requests with a single credit left resolve
// to exactly one reservation and one ErrQuotaExceeded.
func (l *Ledger) CheckAndReserve(ctx context.Context, userID uint) (*Reservation, error) {
	var user users.User
	if err := l.db.WithContext(ctx).Select("id", "subscription_tier", "subscription_end").
		Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, fmt.Errorf("load user %d: %w", userID, err)
	}

	if plans.Unlimited(user.SubscriptionTier) && subscriptionActive(user.SubscriptionEnd) {
		return &Reservation{UserID: userID, Unlimited: true}, nil
	}

	res := l.db.WithContext(ctx).Model(&users.User{}).
		Where("id = ? AND credits_remaining > 0", userID).
		UpdateColumn("credits_remaining", gorm.Expr("credits_remaining - 1"))
	if res.Error != nil {
		return nil, fmt.Errorf("reserve credit for user %d: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrQuotaExceeded
	}

	return &Reservation{UserID: userID}, nil
}

// Commit finalizes the debit. The credit was already decremented at reserve
// time, so this only closes the reservation.
func (l *Ledger) Commit(ctx context.Context, r *Reservation) {
	if r == nil || r.resolved {
		return
	}
	r.resolved = true
}

// Release undoes the provisional decrement after a failed generation.
// Safe to call more than once; only the first call restores the credit.
func (l *Ledger) Release(ctx context.Context, r *Reservation) {
	if r == nil || r.resolved {
		return
	}
	r.resolved = true
	if r.Unlimited {
		return
	}

	if err := l.db.WithContext(ctx).Model(&users.User{}).
		Where("id = ?", r.UserID).
		UpdateColumn("credits_remaining", gorm.Expr("credits_remaining + 1")).Error; err != nil {
		// A failed release is a leaked credit; operators need to see it.
		l.log.WithError(err).WithField("user_id", r.UserID).
			Error("failed to release reserved credit")
	}
}

// Grant adds purchased credits. Always additive.
func (l *Ledger) Grant(ctx context.Context, userID uint, amount int) error {
	if amount <= 0 {
		return fmt.Errorf("grant amount must be positive, got %d", amount)
	}
	res := l.db.WithContext(ctx).Model(&users.User{}).
		Where("id = ?", userID).
		UpdateColumn("credits_remaining", gorm.Expr("credits_remaining + ?", amount))
	if res.Error != nil {
		return fmt.Errorf("grant %d credits to user %d: %w", amount, userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("grant credits: user %d not found", userID)
	}
	return nil
}

// RenewSubscription resets the balance to the tier's monthly allotment and
// stamps the new paid-through date. Unlike Grant this is not additive: a
// renewal starts a fresh monthly budget.
func (l *Ledger) RenewSubscription(ctx context.Context, userID uint, tier string, monthlyCredits int, periodEnd time.Time) error {
	tier = plans.NormalizeTier(tier)
	if monthlyCredits <= 0 {
		monthlyCredits = plans.MonthlyAllotment(tier)
	}

	res := l.db.WithContext(ctx).Model(&users.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"subscription_tier": tier,
			"subscription_end":  periodEnd,
			"credits_remaining": monthlyCredits,
		})
	if res.Error != nil {
		return fmt.Errorf("renew subscription for user %d: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("renew subscription: user %d not found", userID)
	}
	return nil
}

// Downgrade drops an expired or canceled subscriber back to pay-as-you-go.
// Remaining purchased credits are kept.
func (l *Ledger) Downgrade(ctx context.Context, userID uint) error {
	return l.db.WithContext(ctx).Model(&users.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"subscription_tier": plans.TierPayAsYouGo,
			"subscription_end":  nil,
		}).Error
}

func subscriptionActive(end *time.Time) bool {
	return end != nil && time.Now().Before(*end)
}
