package commission

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/partnerpay/backend/internal/database"
	"github.com/partnerpay/backend/internal/models"
	"github.com/partnerpay/backend/internal/services/account"
	"github.com/partnerpay/backend/internal/services/audit"
	"github.com/partnerpay/backend/internal/services/contract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	svc := NewService(db, nil, contract.NewResolver(db, 30), account.NewResolver(db), audit.NewLogger(db))
	return svc, db
}

func seedProject(t *testing.T, db *gorm.DB, percent float64, windowDays int) (*models.User, *models.Project) {
	t.Helper()
	creator := models.User{Email: uuid.NewString() + "@test.local", Role: models.RoleCreator}
	require.NoError(t, db.Create(&creator).Error)

	project := models.Project{
		CreatorID:                creator.ID,
		Name:                     "Test Project",
		DefaultCommissionPercent: percent,
		DefaultRefundWindowDays:  windowDays,
	}
	require.NoError(t, db.Create(&project).Error)
	return &creator, &project
}

func seedMarketer(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	marketer := models.User{Email: uuid.NewString() + "@test.local", Role: models.RoleMarketer}
	require.NoError(t, db.Create(&marketer).Error)
	return &marketer
}

func TestIngestSaleCreatesAwaitingPurchase(t *testing.T) {
	svc, db := newTestService(t)
	_, project := seedProject(t, db, 0.2, 14)
	marketer := seedMarketer(t, db)

	occurred := time.Now()
	purchase, created, err := svc.IngestSale(context.Background(), SaleEvent{
		EventID:     "evt_1",
		ProjectID:   project.ID,
		MarketerID:  &marketer.ID,
		GrossAmount: 10000,
		Currency:    "USD",
		OccurredAt:  occurred,
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(2000), purchase.CommissionAmount)
	assert.Equal(t, int64(2000), purchase.OriginalCommissionAmount)
	assert.Equal(t, models.CommissionAwaitingRefundWindow, purchase.CommissionStatus)
	assert.Equal(t, models.PaymentStatusPending, purchase.PaymentStatus)
	assert.Equal(t, models.AttributionAffiliate, purchase.Attribution)
	require.NotNil(t, purchase.RefundEligibleAt)
	assert.WithinDuration(t, occurred.AddDate(0, 0, 14), *purchase.RefundEligibleAt, time.Second)
}

func TestIngestSaleDuplicateEvent(t *testing.T) {
	svc, db := newTestService(t)
	_, project := seedProject(t, db, 0.2, 14)
	marketer := seedMarketer(t, db)

	ev := SaleEvent{
		EventID:       "evt_dup",
		TransactionID: "txn_dup",
		ProjectID:     project.ID,
		MarketerID:    &marketer.ID,
		GrossAmount:   10000,
		Currency:      "USD",
	}

	first, created, err := svc.IngestSale(context.Background(), ev)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := svc.IngestSale(context.Background(), ev)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	// A redelivery carrying only the transaction id still matches
	third, created, err := svc.IngestSale(context.Background(), SaleEvent{
		TransactionID: "txn_dup",
		ProjectID:     project.ID,
		GrossAmount:   10000,
		Currency:      "USD",
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, third.ID)

	var count int64
	require.NoError(t, db.Model(&models.Purchase{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestIngestSaleCouponAttribution(t *testing.T) {
	svc, db := newTestService(t)
	_, project := seedProject(t, db, 0.3, 14)
	marketer := seedMarketer(t, db)

	coupon := models.Coupon{ProjectID: project.ID, MarketerID: marketer.ID, Code: "SAVE10"}
	require.NoError(t, db.Create(&coupon).Error)

	purchase, created, err := svc.IngestSale(context.Background(), SaleEvent{
		EventID:     "evt_coupon",
		ProjectID:   project.ID,
		CouponCode:  "SAVE10",
		GrossAmount: 10000,
		Currency:    "USD",
	})
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, purchase.MarketerID)
	assert.Equal(t, marketer.ID, *purchase.MarketerID)
	require.NotNil(t, purchase.CouponID)
	assert.Equal(t, coupon.ID, *purchase.CouponID)
	assert.Equal(t, int64(3000), purchase.CommissionAmount)
}

func TestIngestSaleUnknownCouponIsDirect(t *testing.T) {
	svc, db := newTestService(t)
	_, project := seedProject(t, db, 0.3, 14)

	purchase, created, err := svc.IngestSale(context.Background(), SaleEvent{
		EventID:     "evt_nocoupon",
		ProjectID:   project.ID,
		CouponCode:  "DOES_NOT_EXIST",
		GrossAmount: 10000,
		Currency:    "USD",
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Nil(t, purchase.MarketerID)
	assert.Equal(t, models.AttributionDirect, purchase.Attribution)
	assert.Equal(t, int64(0), purchase.CommissionAmount)
	// Nothing owed, so the lifecycle is already complete
	assert.Equal(t, models.CommissionPaid, purchase.CommissionStatus)
}

func TestIngestSaleElapsedWindowSkipsAwaiting(t *testing.T) {
	svc, db := newTestService(t)
	_, project := seedProject(t, db, 0.2, 14)
	marketer := seedMarketer(t, db)

	purchase, _, err := svc.IngestSale(context.Background(), SaleEvent{
		EventID:     "evt_old",
		ProjectID:   project.ID,
		MarketerID:  &marketer.ID,
		GrossAmount: 10000,
		Currency:    "USD",
		OccurredAt:  time.Now().AddDate(0, 0, -40),
	})
	require.NoError(t, err)
	assert.Equal(t, models.CommissionPendingCreatorPayment, purchase.CommissionStatus)
}

func TestIngestSaleValidation(t *testing.T) {
	svc, db := newTestService(t)
	_, project := seedProject(t, db, 0.2, 14)

	_, _, err := svc.IngestSale(context.Background(), SaleEvent{
		EventID: "evt_neg", ProjectID: project.ID, GrossAmount: -1, Currency: "USD",
	})
	assert.Error(t, err)

	_, _, err = svc.IngestSale(context.Background(), SaleEvent{
		EventID: "evt_nocur", ProjectID: project.ID, GrossAmount: 100,
	})
	assert.Error(t, err)

	_, _, err = svc.IngestSale(context.Background(), SaleEvent{
		ProjectID: project.ID, GrossAmount: 100, Currency: "USD",
	})
	assert.Error(t, err)
}

func TestRecordRefundDefaultsToGrossAmount(t *testing.T) {
	svc, db := newTestService(t)
	_, project := seedProject(t, db, 0.2, 14)
	marketer := seedMarketer(t, db)

	purchase, _, err := svc.IngestSale(context.Background(), SaleEvent{
		EventID: "evt_r1", ProjectID: project.ID, MarketerID: &marketer.ID,
		GrossAmount: 10000, Currency: "USD",
	})
	require.NoError(t, err)

	refunded, err := svc.RecordRefund(context.Background(), RefundEvent{
		PurchaseID: &purchase.ID,
		Reason:     "customer request",
	})
	require.NoError(t, err)
	assert.Equal(t, models.CommissionRefunded, refunded.CommissionStatus)
	assert.Equal(t, int64(10000), refunded.RefundedAmount)
	assert.NotNil(t, refunded.RefundedAt)
}

func TestRecordRefundPartialAmount(t *testing.T) {
	svc, db := newTestService(t)
	_, project := seedProject(t, db, 0.2, 14)
	marketer := seedMarketer(t, db)

	purchase, _, err := svc.IngestSale(context.Background(), SaleEvent{
		EventID: "evt_r2", ProjectID: project.ID, MarketerID: &marketer.ID,
		GrossAmount: 10000, Currency: "USD",
	})
	require.NoError(t, err)

	amount := int64(2500)
	refunded, err := svc.RecordRefund(context.Background(), RefundEvent{
		PurchaseID: &purchase.ID,
		Amount:     &amount,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2500), refunded.RefundedAmount)
}

func TestRecordRefundTerminalIsNoOp(t *testing.T) {
	svc, db := newTestService(t)
	_, project := seedProject(t, db, 0.2, 14)
	marketer := seedMarketer(t, db)

	purchase, _, err := svc.IngestSale(context.Background(), SaleEvent{
		EventID: "evt_r3", ProjectID: project.ID, MarketerID: &marketer.ID,
		GrossAmount: 10000, Currency: "USD",
	})
	require.NoError(t, err)

	first, err := svc.RecordRefund(context.Background(), RefundEvent{PurchaseID: &purchase.ID})
	require.NoError(t, err)
	assert.Equal(t, models.CommissionRefunded, first.CommissionStatus)

	// A duplicate notification, even a chargeback, leaves the terminal state
	second, err := svc.RecordRefund(context.Background(), RefundEvent{
		PurchaseID: &purchase.ID,
		Chargeback: true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.CommissionRefunded, second.CommissionStatus)
}

func TestRecordRefundChargeback(t *testing.T) {
	svc, db := newTestService(t)
	_, project := seedProject(t, db, 0.2, 14)
	marketer := seedMarketer(t, db)

	purchase, _, err := svc.IngestSale(context.Background(), SaleEvent{
		EventID: "evt_cb", TransactionID: "txn_cb", ProjectID: project.ID,
		MarketerID: &marketer.ID, GrossAmount: 10000, Currency: "USD",
	})
	require.NoError(t, err)

	charged, err := svc.RecordRefund(context.Background(), RefundEvent{
		TransactionID: "txn_cb",
		ProjectID:     project.ID,
		Chargeback:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.CommissionChargeback, charged.CommissionStatus)
	assert.Equal(t, purchase.ID, charged.ID)
}

func TestReevaluateRefundWindow(t *testing.T) {
	svc, db := newTestService(t)
	creator, project := seedProject(t, db, 0.2, 14)
	marketer := seedMarketer(t, db)

	mkPurchase := func(eventID string, occurred time.Time) *models.Purchase {
		p, _, err := svc.IngestSale(context.Background(), SaleEvent{
			EventID: eventID, ProjectID: project.ID, MarketerID: &marketer.ID,
			GrossAmount: 10000, Currency: "USD", OccurredAt: occurred,
		})
		require.NoError(t, err)
		return p
	}

	elapsed := mkPurchase("evt_w1", time.Now().AddDate(0, 0, -20))
	waiting := mkPurchase("evt_w2", time.Now())
	assert.Equal(t, models.CommissionPendingCreatorPayment, elapsed.CommissionStatus)

	// Without a creator payment account nothing becomes payable
	n, err := svc.ReevaluateRefundWindow(context.Background(), creator.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	acct := models.PayoutAccount{UserID: creator.ID, Provider: "streampay", AccountRef: "acct_creator", Status: models.PayoutAccountActive}
	require.NoError(t, db.Create(&acct).Error)

	n, err = svc.ReevaluateRefundWindow(context.Background(), creator.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var reloaded models.Purchase
	require.NoError(t, db.First(&reloaded, "id = ?", elapsed.ID).Error)
	assert.Equal(t, models.CommissionReadyForPayout, reloaded.CommissionStatus)

	// The window still running keeps the purchase gated
	reloaded = models.Purchase{}
	require.NoError(t, db.First(&reloaded, "id = ?", waiting.ID).Error)
	assert.Equal(t, models.CommissionAwaitingRefundWindow, reloaded.CommissionStatus)

	// Running again is a no-op
	n, err = svc.ReevaluateRefundWindow(context.Background(), creator.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestReevaluateAll(t *testing.T) {
	svc, db := newTestService(t)
	creatorA, projectA := seedProject(t, db, 0.2, 14)
	creatorB, projectB := seedProject(t, db, 0.2, 14)
	marketer := seedMarketer(t, db)

	for i, project := range []*models.Project{projectA, projectB} {
		_, _, err := svc.IngestSale(context.Background(), SaleEvent{
			EventID: fmt.Sprintf("evt_all_%d", i), ProjectID: project.ID, MarketerID: &marketer.ID,
			GrossAmount: 10000, Currency: "USD", OccurredAt: time.Now().AddDate(0, 0, -20),
		})
		require.NoError(t, err)
	}

	for _, creator := range []*models.User{creatorA, creatorB} {
		acct := models.PayoutAccount{UserID: creator.ID, Provider: "streampay", AccountRef: "acct_" + creator.ID.String()[:8], Status: models.PayoutAccountActive}
		require.NoError(t, db.Create(&acct).Error)
	}

	total, err := svc.ReevaluateAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestIngestAttributionDedup(t *testing.T) {
	svc, db := newTestService(t)
	_, project := seedProject(t, db, 0.2, 14)
	marketer := seedMarketer(t, db)

	first, created, err := svc.IngestAttribution(context.Background(), project.ID, marketer.ID, models.AttributionClick, "click_1", time.Now())
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := svc.IngestAttribution(context.Background(), project.ID, marketer.ID, models.AttributionClick, "click_1", time.Now())
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&models.AttributionEvent{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
