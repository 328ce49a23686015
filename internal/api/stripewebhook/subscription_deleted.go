package stripewebhooks

import (
	"artgen-app/database"
	"artgen-app/internal/domain/quota"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v75"
)

// handleSubscriptionDeleted drops the user back to pay-as-you-go. Purchased
// credits survive the downgrade; only the unlimited-tier entitlement ends.
func handleSubscriptionDeleted(c *gin.Context, sub *stripe.Subscription) error {
	meta := map[string]string{}
	if sub.Metadata != nil {
		meta = sub.Metadata
	}
	userID, err := userIDFromMetadataOrRef(meta, "")
	if err != nil {
		return err
	}

	ledger := quota.NewLedger(database.DB, nil)
	return ledger.Downgrade(c.Request.Context(), userID)
}
