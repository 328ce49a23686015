package stripewebhooks

import (
	"fmt"
	"time"

	"artgen-app/database"
	"artgen-app/internal/domain/plans"
	"artgen-app/internal/domain/quota"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v75"
)

// handleSubscriptionUpdated covers monthly renewals: while the subscription
// stays active, each new billing period resets the credit allotment and
// extends the paid-through date.
func handleSubscriptionUpdated(c *gin.Context, sub *stripe.Subscription) error {
	meta := map[string]string{}
	if sub.Metadata != nil {
		meta = sub.Metadata
	}
	userID, err := userIDFromMetadataOrRef(meta, "")
	if err != nil {
		return err
	}

	if sub.Status != stripe.SubscriptionStatusActive {
		// past_due / unpaid terms keep their current balance; the deleted
		// event handles the final downgrade.
		return nil
	}

	if sub.Items == nil || len(sub.Items.Data) == 0 || sub.Items.Data[0].Price == nil {
		return fmt.Errorf("subscription %s has no price item", sub.ID)
	}

	var plan plans.Plan
	if err := database.DB.Where("stripe_price_id = ?", sub.Items.Data[0].Price.ID).First(&plan).Error; err != nil {
		return fmt.Errorf("plan not found for stripe price_id=%s: %w", sub.Items.Data[0].Price.ID, err)
	}

	ledger := quota.NewLedger(database.DB, nil)
	return ledger.RenewSubscription(c.Request.Context(), userID,
		plan.Tier, plan.MonthlyCredits, time.Unix(sub.CurrentPeriodEnd, 0))
}
