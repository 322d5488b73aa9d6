package contract

import (
	"math"

	"github.com/partnerpay/backend/internal/models"
)

// ComputeCommission returns the commission owed on a gross sale amount in
// minor units, and the sale's attribution class. An unattributed sale earns
// nothing and is classified direct.
func ComputeCommission(grossAmount int64, terms *Terms, attributed bool) (int64, models.SaleAttribution) {
	if !attributed || grossAmount <= 0 || terms.CommissionPercent <= 0 {
		if attributed {
			return 0, models.AttributionAffiliate
		}
		return 0, models.AttributionDirect
	}

	commission := int64(math.Round(float64(grossAmount) * terms.CommissionPercent))
	if commission < 0 {
		commission = 0
	}
	if commission > grossAmount {
		commission = grossAmount
	}
	return commission, models.AttributionAffiliate
}
