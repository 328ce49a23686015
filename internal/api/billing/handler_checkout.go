package billing

import (
	"fmt"
	"net/http"
	"os"

	"artgen-app/database"
	"artgen-app/internal/domain/billing"
	"artgen-app/internal/domain/plans"
	"artgen-app/internal/domain/users"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v75"
	portalSession "github.com/stripe/stripe-go/v75/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v75/checkout/session"
	customer "github.com/stripe/stripe-go/v75/customer"
)

// POST /create-checkout-session — monthly subscription plans
func CreateCheckoutSession(c *gin.Context) {
	var body struct {
		PriceID string `json:"price_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.PriceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid price_id"})
		return
	}

	user, ok := loadVerifiedUser(c)
	if !ok {
		return
	}

	// allow-list price id
	var plan plans.Plan
	if err := database.DB.Where("stripe_price_id = ?", body.PriceID).First(&plan).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown plan/price_id"})
		return
	}

	customerID, ok := ensureStripeCustomer(c, user)
	if !ok {
		return
	}

	params := &stripe.CheckoutSessionParams{
		SuccessURL: stripe.String(appURL() + "/account"),
		CancelURL:  stripe.String(appURL() + "/account?canceled=1"),
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:   stripe.String(customerID),

		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(plan.StripePriceID), Quantity: stripe.Int64(1)},
		},

		ClientReferenceID: stripe.String(fmt.Sprint(user.ID)),

		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{
				"user_id": fmt.Sprint(user.ID),
				"plan_id": fmt.Sprint(plan.ID),
				"kind":    billing.KindSubscription,
			},
		},
	}

	s, err := checkoutsession.New(params)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create checkout session", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": s.URL})
}

// POST /create-credit-checkout — one-time pay-as-you-go credit packs
func CreateCreditCheckout(c *gin.Context) {
	var body struct {
		PriceID string `json:"price_id"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.PriceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid price_id"})
		return
	}

	user, ok := loadVerifiedUser(c)
	if !ok {
		return
	}

	var pack plans.CreditPack
	if err := database.DB.Where("stripe_price_id = ?", body.PriceID).First(&pack).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown credit pack/price_id"})
		return
	}

	customerID, ok := ensureStripeCustomer(c, user)
	if !ok {
		return
	}

	params := &stripe.CheckoutSessionParams{
		SuccessURL: stripe.String(appURL() + "/account"),
		CancelURL:  stripe.String(appURL() + "/account?canceled=1"),
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		Customer:   stripe.String(customerID),

		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(pack.StripePriceID), Quantity: stripe.Int64(1)},
		},

		ClientReferenceID: stripe.String(fmt.Sprint(user.ID)),

		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{
				"user_id": fmt.Sprint(user.ID),
				"pack_id": fmt.Sprint(pack.ID),
				"credits": fmt.Sprint(pack.Credits),
				"kind":    billing.KindCredits,
			},
		},
	}

	s, err := checkoutsession.New(params)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create checkout session", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": s.URL})
}

// POST /billing-portal
func CreateBillingPortal(c *gin.Context) {
	user, ok := loadVerifiedUser(c)
	if !ok {
		return
	}
	if user.StripeCustomerID == nil || *user.StripeCustomerID == "" {
		c.JSON(http.StatusConflict, gin.H{"error": "No Stripe customer yet (subscribe first)"})
		return
	}

	portal, err := portalSession.New(&stripe.BillingPortalSessionParams{
		Customer:  user.StripeCustomerID,
		ReturnURL: stripe.String(appURL() + "/account"),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create billing portal session", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": portal.URL})
}

/* ---------------- helpers ---------------- */

func appURL() string {
	if v := os.Getenv("APP_URL"); v != "" {
		return v
	}
	return "http://localhost:5173"
}

func loadVerifiedUser(c *gin.Context) (users.User, bool) {
	stripe.Key = os.Getenv("STRIPE_SECRET_KEY")
	if stripe.Key == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Stripe key not configured"})
		return users.User{}, false
	}

	userID := c.GetUint("user_id")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not identified"})
		return users.User{}, false
	}

	var user users.User
	if err := database.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return users.User{}, false
	}

	if !user.IsVerified {
		c.JSON(http.StatusForbidden, gin.H{"error": "Please verify your email first"})
		return users.User{}, false
	}

	return user, true
}

func ensureStripeCustomer(c *gin.Context, user users.User) (string, bool) {
	if user.StripeCustomerID != nil && *user.StripeCustomerID != "" {
		return *user.StripeCustomerID, true
	}

	cus, err := customer.New(&stripe.CustomerParams{
		Email: stripe.String(user.Email),
		Metadata: map[string]string{
			"user_id": fmt.Sprint(user.ID),
			"app_env": os.Getenv("APP_ENV"),
		},
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Stripe customer"})
		return "", false
	}

	if err := database.DB.Model(&users.User{}).
		Where("id = ?", user.ID).
		Update("stripe_customer_id", cus.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store Stripe customer"})
		return "", false
	}

	return cus.ID, true
}
