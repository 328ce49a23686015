package plans

import (
	"net/http"
	"os"
	"strconv"

	"artgen-app/database"
	"artgen-app/internal/domain/plans"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/price"
)

// POST /admin/sync-plans — pulls recurring prices from Stripe into the plans
// table and one-time prices into credit packs.
func SyncPlansFromStripe(c *gin.Context) {
	stripe.Key = os.Getenv("STRIPE_SECRET_KEY")
	if stripe.Key == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Stripe key not configured"})
		return
	}

	params := &stripe.PriceListParams{}
	params.Active = stripe.Bool(true)
	params.AddExpand("data.product")

	it := price.List(params)

	synced := 0
	created := 0
	updated := 0
	skipped := 0

	for it.Next() {
		p := it.Price()

		if !p.Active || p.Product == nil || !p.Product.Active {
			skipped++
			continue
		}

		// visibility flag
		if p.Metadata != nil && p.Metadata["visible"] == "false" {
			skipped++
			continue
		}

		amount := float64(p.UnitAmount) / 100.0

		displayName := p.Product.Name
		if p.Metadata != nil {
			if v := p.Metadata["plan"]; v != "" {
				displayName = v
			}
		}

		if p.Recurring == nil {
			// one-time price -> credit pack; metadata.credits is required
			credits := 0
			if p.Metadata != nil {
				credits, _ = strconv.Atoi(p.Metadata["credits"])
			}
			if credits <= 0 {
				skipped++
				continue
			}

			var existing plans.CreditPack
			err := database.DB.Where("stripe_price_id = ?", p.ID).First(&existing).Error
			if err != nil {
				pack := plans.CreditPack{
					Name:          displayName,
					Credits:       credits,
					PriceUSD:      amount,
					StripePriceID: p.ID,
				}
				if err := database.DB.Create(&pack).Error; err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create credit pack", "details": err.Error()})
					return
				}
				created++
			} else {
				existing.Name = displayName
				existing.Credits = credits
				existing.PriceUSD = amount
				if err := database.DB.Save(&existing).Error; err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update credit pack", "details": err.Error()})
					return
				}
				updated++
			}
			synced++
			continue
		}

		tier := ""
		monthlyCredits := 0
		if p.Metadata != nil {
			if v := p.Metadata["tier"]; v != "" {
				tier = plans.NormalizeTier(v)
			}
			monthlyCredits, _ = strconv.Atoi(p.Metadata["monthly_credits"])
		}
		if monthlyCredits <= 0 {
			monthlyCredits = plans.MonthlyAllotment(tier)
		}

		var existing plans.Plan
		err := database.DB.Where("stripe_price_id = ?", p.ID).First(&existing).Error
		if err != nil {
			plan := plans.Plan{
				Name:           displayName,
				PriceUSD:       amount,
				MonthlyCredits: monthlyCredits,
				StripePriceID:  p.ID,
				Interval:       string(p.Recurring.Interval),
				Tier:           tier,
			}
			if err := database.DB.Create(&plan).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create plan", "details": err.Error()})
				return
			}
			created++
		} else {
			existing.Name = displayName
			existing.PriceUSD = amount
			existing.MonthlyCredits = monthlyCredits
			existing.Interval = string(p.Recurring.Interval)
			if tier != "" {
				existing.Tier = tier
			}
			if err := database.DB.Save(&existing).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update plan", "details": err.Error()})
				return
			}
			updated++
		}

		synced++
	}

	if err := it.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch Stripe prices", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"synced":  synced,
		"created": created,
		"updated": updated,
		"skipped": skipped,
	})
}

// GET /plans
func ListPlans(c *gin.Context) {
	var planList []plans.Plan
	if err := database.DB.Order("price_usd ASC").Find(&planList).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load plans"})
		return
	}

	var packs []plans.CreditPack
	if err := database.DB.Order("price_usd ASC").Find(&packs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load credit packs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"plans":        planList,
		"credit_packs": packs,
	})
}
