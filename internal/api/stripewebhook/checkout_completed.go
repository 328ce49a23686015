package stripewebhooks

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"artgen-app/database"
	"artgen-app/internal/domain/billing"
	"artgen-app/internal/domain/plans"
	"artgen-app/internal/domain/quota"
	"artgen-app/internal/domain/usage"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v75"
	checkoutsession "github.com/stripe/stripe-go/v75/checkout/session"
	"github.com/stripe/stripe-go/v75/subscription"
)

func handleCheckoutSessionCompleted(c *gin.Context, session *stripe.CheckoutSession) error {
	switch session.Mode {
	case stripe.CheckoutSessionModePayment:
		return handleCreditPurchase(c, session)
	default:
		return handleSubscriptionCheckout(c, session)
	}
}

// handleCreditPurchase grants a one-time credit pack and books the payment.
func handleCreditPurchase(c *gin.Context, session *stripe.CheckoutSession) error {
	fullSession, err := checkoutsession.Get(session.ID, &stripe.CheckoutSessionParams{
		Params: stripe.Params{
			Expand: []*string{stripe.String("payment_intent")},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to fetch expanded checkout session: %w", err)
	}

	meta := map[string]string{}
	if fullSession.PaymentIntent != nil && fullSession.PaymentIntent.Metadata != nil {
		meta = fullSession.PaymentIntent.Metadata
	}

	userID, err := userIDFromMetadataOrRef(meta, fullSession.ClientReferenceID)
	if err != nil {
		return err
	}

	credits, err := strconv.Atoi(meta["credits"])
	if err != nil || credits <= 0 {
		// fall back to the pack row the checkout was created from
		var pack plans.CreditPack
		if dbErr := database.DB.Where("id = ?", meta["pack_id"]).First(&pack).Error; dbErr != nil {
			return fmt.Errorf("credit purchase without resolvable credit amount (pack_id=%q)", meta["pack_id"])
		}
		credits = pack.Credits
	}

	ctx := c.Request.Context()
	ledger := quota.NewLedger(database.DB, nil)
	recorder := usage.NewRecorder(database.DB, nil)

	if err := ledger.Grant(ctx, userID, credits); err != nil {
		return err
	}

	sessionID := fullSession.ID
	return recorder.RecordPayment(ctx, userID,
		float64(fullSession.AmountTotal)/100.0,
		billing.KindCredits, billing.StatusCompleted, &sessionID)
}

// handleSubscriptionCheckout activates a plan: tier, paid-through date and
// the monthly credit allotment are reset together.
func handleSubscriptionCheckout(c *gin.Context, session *stripe.CheckoutSession) error {
	fullSession, err := checkoutsession.Get(session.ID, &stripe.CheckoutSessionParams{
		Params: stripe.Params{
			Expand: []*string{
				stripe.String("subscription"),
				stripe.String("customer"),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to fetch expanded checkout session: %w", err)
	}

	if fullSession.Subscription == nil || fullSession.Subscription.ID == "" {
		return errors.New("checkout session missing subscription")
	}

	subData, err := subscription.Get(fullSession.Subscription.ID, nil)
	if err != nil || subData == nil || subData.Items == nil || len(subData.Items.Data) == 0 || subData.Items.Data[0].Price == nil {
		return fmt.Errorf("failed to fetch subscription items: %w", err)
	}

	meta := map[string]string{}
	if subData.Metadata != nil {
		meta = subData.Metadata
	}
	userID, err := userIDFromMetadataOrRef(meta, fullSession.ClientReferenceID)
	if err != nil {
		return err
	}

	// Map Stripe price -> Plan
	priceID := subData.Items.Data[0].Price.ID
	var plan plans.Plan
	if err := database.DB.Where("stripe_price_id = ?", priceID).First(&plan).Error; err != nil {
		return fmt.Errorf("plan not found for stripe price_id=%s: %w", priceID, err)
	}

	ctx := c.Request.Context()
	ledger := quota.NewLedger(database.DB, nil)
	recorder := usage.NewRecorder(database.DB, nil)

	periodEnd := time.Unix(subData.CurrentPeriodEnd, 0)
	if err := ledger.RenewSubscription(ctx, userID, plan.Tier, plan.MonthlyCredits, periodEnd); err != nil {
		return err
	}

	if fullSession.Customer != nil && fullSession.Customer.ID != "" {
		if err := database.DB.Exec(
			`UPDATE users SET stripe_customer_id = ? WHERE id = ?`,
			fullSession.Customer.ID, userID).Error; err != nil {
			return fmt.Errorf("failed to store stripe customer: %w", err)
		}
	}

	sessionID := fullSession.ID
	return recorder.RecordPayment(ctx, userID,
		float64(fullSession.AmountTotal)/100.0,
		billing.KindSubscription, billing.StatusCompleted, &sessionID)
}

func userIDFromMetadataOrRef(meta map[string]string, clientRef string) (uint, error) {
	userIDStr := meta["user_id"]
	if userIDStr == "" {
		userIDStr = clientRef
	}
	if userIDStr == "" {
		return 0, errors.New("missing user_id (metadata.user_id or client_reference_id)")
	}

	uid64, err := strconv.ParseUint(userIDStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid user_id %q: %w", userIDStr, err)
	}
	return uint(uid64), nil
}
