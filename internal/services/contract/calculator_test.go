package contract

import (
	"testing"

	"github.com/partnerpay/backend/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestComputeCommissionAttributed(t *testing.T) {
	amount, attribution := ComputeCommission(10000, &Terms{CommissionPercent: 0.25}, true)
	assert.Equal(t, int64(2500), amount)
	assert.Equal(t, models.AttributionAffiliate, attribution)
}

func TestComputeCommissionUnattributed(t *testing.T) {
	amount, attribution := ComputeCommission(10000, &Terms{CommissionPercent: 0.25}, false)
	assert.Equal(t, int64(0), amount)
	assert.Equal(t, models.AttributionDirect, attribution)
}

func TestComputeCommissionZeroPercent(t *testing.T) {
	amount, attribution := ComputeCommission(10000, &Terms{CommissionPercent: 0}, true)
	assert.Equal(t, int64(0), amount)
	assert.Equal(t, models.AttributionAffiliate, attribution)
}

func TestComputeCommissionRounds(t *testing.T) {
	// 999 * 0.333 = 332.667, rounds to 333
	amount, _ := ComputeCommission(999, &Terms{CommissionPercent: 0.333}, true)
	assert.Equal(t, int64(333), amount)
}

func TestComputeCommissionNeverExceedsGross(t *testing.T) {
	amount, _ := ComputeCommission(500, &Terms{CommissionPercent: 1}, true)
	assert.Equal(t, int64(500), amount)
}

func TestComputeCommissionNonPositiveGross(t *testing.T) {
	amount, _ := ComputeCommission(0, &Terms{CommissionPercent: 0.5}, true)
	assert.Equal(t, int64(0), amount)

	amount, _ = ComputeCommission(-100, &Terms{CommissionPercent: 0.5}, true)
	assert.Equal(t, int64(0), amount)
}
