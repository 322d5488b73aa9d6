package payout

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/partnerpay/backend/internal/database"
	"github.com/partnerpay/backend/internal/models"
	"github.com/partnerpay/backend/internal/services/account"
	"github.com/partnerpay/backend/internal/services/audit"
	"github.com/partnerpay/backend/internal/services/commission"
	"github.com/partnerpay/backend/internal/services/contract"
	"github.com/partnerpay/backend/internal/services/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type mockTransferClient struct {
	mock.Mock
}

func (m *mockTransferClient) IssueTransfer(ctx context.Context, destination string, amount int64, currency string, idempotencyKey string, metadata map[string]string) (string, error) {
	args := m.Called(ctx, destination, amount, currency, idempotencyKey, metadata)
	return args.String(0), args.Error(1)
}

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

func newTestBatcher(t *testing.T) (*Batcher, *mockTransferClient, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	client := &mockTransferClient{}
	auditLogger := audit.NewLogger(db)
	accounts := account.NewResolver(db)
	commissionSvc := commission.NewService(db, nil, contract.NewResolver(db, 30), accounts, auditLogger)
	batcher := NewBatcher(db, commissionSvc, accounts, client, auditLogger, notify.NewService(db))
	return batcher, client, db
}

func seedCreator(t *testing.T, db *gorm.DB, withAccount bool) *models.User {
	t.Helper()
	creator := models.User{Email: uuid.NewString() + "@test.local", Role: models.RoleCreator}
	require.NoError(t, db.Create(&creator).Error)
	if withAccount {
		acct := models.PayoutAccount{UserID: creator.ID, Provider: "streampay", AccountRef: "acct_creator_" + creator.ID.String()[:8], Status: models.PayoutAccountActive}
		require.NoError(t, db.Create(&acct).Error)
	}
	return &creator
}

func seedProjectFor(t *testing.T, db *gorm.DB, creatorID uuid.UUID) *models.Project {
	t.Helper()
	project := models.Project{CreatorID: creatorID, Name: "Test Project", DefaultCommissionPercent: 0.2, DefaultRefundWindowDays: 14}
	require.NoError(t, db.Create(&project).Error)
	return &project
}

func seedMarketerWithAccount(t *testing.T, db *gorm.DB, accountRef string) *models.User {
	t.Helper()
	marketer := models.User{Email: uuid.NewString() + "@test.local", Role: models.RoleMarketer}
	require.NoError(t, db.Create(&marketer).Error)
	if accountRef != "" {
		acct := models.PayoutAccount{UserID: marketer.ID, Provider: "streampay", AccountRef: accountRef, Status: models.PayoutAccountActive}
		require.NoError(t, db.Create(&acct).Error)
	}
	return &marketer
}

// seedReadyPurchase inserts a purchase already past its refund window and
// ready for payout
func seedReadyPurchase(t *testing.T, db *gorm.DB, projectID, marketerID uuid.UUID, commissionAmount int64, currency string) *models.Purchase {
	t.Helper()
	occurred := time.Now().AddDate(0, 0, -30)
	eligible := time.Now().AddDate(0, 0, -1)
	p := models.Purchase{
		ProjectID:                projectID,
		MarketerID:               &marketerID,
		GrossAmount:              commissionAmount * 5,
		Currency:                 currency,
		Attribution:              models.AttributionAffiliate,
		OccurredAt:               occurred,
		CommissionAmount:         commissionAmount,
		OriginalCommissionAmount: commissionAmount,
		CommissionPercent:        0.2,
		CommissionStatus:         models.CommissionReadyForPayout,
		PaymentStatus:            models.PaymentStatusPending,
		RefundWindowDays:         14,
		RefundEligibleAt:         &eligible,
	}
	require.NoError(t, db.Create(&p).Error)
	return &p
}

func TestRunSettlesGroupWithAdjustment(t *testing.T) {
	batcher, client, db := newTestBatcher(t)
	creator := seedCreator(t, db, true)
	project := seedProjectFor(t, db, creator.ID)
	marketer := seedMarketerWithAccount(t, db, "acct_m1")

	p1 := seedReadyPurchase(t, db, project.ID, marketer.ID, 2500, "USD")
	p2 := seedReadyPurchase(t, db, project.ID, marketer.ID, 1500, "USD")

	adj := models.CommissionAdjustment{
		CreatorID:  creator.ID,
		MarketerID: marketer.ID,
		Amount:     -500,
		Currency:   "USD",
		Reason:     "clawback",
		Status:     models.AdjustmentStatusPending,
	}
	require.NoError(t, db.Create(&adj).Error)

	// 2500 + 1500 - 500 nets to one 3500 transfer
	client.On("IssueTransfer", mock.Anything, "acct_m1", int64(3500), "USD", mock.AnythingOfType("string"), mock.Anything).
		Return("ext_123", nil).Once()

	results, err := batcher.Run(context.Background(), creator.ID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, OutcomePaid, results[0].Outcome)
	assert.Equal(t, int64(3500), results[0].Amount)
	assert.Equal(t, 2, results[0].PurchaseCount)
	assert.Equal(t, "ext_123", results[0].ExternalID)
	client.AssertExpectations(t)

	for _, id := range []uuid.UUID{p1.ID, p2.ID} {
		var p models.Purchase
		require.NoError(t, db.First(&p, "id = ?", id).Error)
		assert.Equal(t, models.CommissionPaid, p.CommissionStatus)
		assert.Equal(t, models.PaymentStatusPaid, p.PaymentStatus)
		assert.Equal(t, "ext_123", p.ExternalTransferID)
		require.NotNil(t, p.TransferRecordID)
	}

	var reloadedAdj models.CommissionAdjustment
	require.NoError(t, db.First(&reloadedAdj, "id = ?", adj.ID).Error)
	assert.Equal(t, models.AdjustmentStatusApplied, reloadedAdj.Status)
	assert.NotNil(t, reloadedAdj.AppliedAt)

	var transfer models.Transfer
	require.NoError(t, db.First(&transfer, "id = ?", results[0].TransferID).Error)
	assert.Equal(t, models.TransferStatusPaid, transfer.Status)
	assert.Equal(t, int64(3500), transfer.Amount)
	assert.Equal(t, "ext_123", transfer.ExternalID)
}

func TestRunGroupFailureIsIsolated(t *testing.T) {
	batcher, client, db := newTestBatcher(t)
	creator := seedCreator(t, db, true)
	project := seedProjectFor(t, db, creator.ID)
	good := seedMarketerWithAccount(t, db, "acct_good")
	bad := seedMarketerWithAccount(t, db, "acct_bad")

	goodPurchase := seedReadyPurchase(t, db, project.ID, good.ID, 2000, "USD")
	badPurchase := seedReadyPurchase(t, db, project.ID, bad.ID, 3000, "USD")

	client.On("IssueTransfer", mock.Anything, "acct_good", int64(2000), "USD", mock.AnythingOfType("string"), mock.Anything).
		Return("ext_good", nil).Once()
	client.On("IssueTransfer", mock.Anything, "acct_bad", int64(3000), "USD", mock.AnythingOfType("string"), mock.Anything).
		Return("", errors.New("destination account frozen")).Once()

	results, err := batcher.Run(context.Background(), creator.ID)
	require.NoError(t, err)
	require.Len(t, results, 2)

	outcomes := map[uuid.UUID]GroupResult{}
	for _, r := range results {
		outcomes[r.MarketerID] = r
	}
	assert.Equal(t, OutcomePaid, outcomes[good.ID].Outcome)
	assert.Equal(t, OutcomeFailed, outcomes[bad.ID].Outcome)
	assert.Contains(t, outcomes[bad.ID].Reason, "frozen")

	var p models.Purchase
	require.NoError(t, db.First(&p, "id = ?", goodPurchase.ID).Error)
	assert.Equal(t, models.CommissionPaid, p.CommissionStatus)

	// The failed group's purchases stay payable and are retried next run
	p = models.Purchase{}
	require.NoError(t, db.First(&p, "id = ?", badPurchase.ID).Error)
	assert.Equal(t, models.CommissionReadyForPayout, p.CommissionStatus)
	assert.Equal(t, models.PaymentStatusFailed, p.PaymentStatus)

	var failedTransfer models.Transfer
	require.NoError(t, db.First(&failedTransfer, "marketer_id = ?", bad.ID).Error)
	assert.Equal(t, models.TransferStatusFailed, failedTransfer.Status)
	assert.Contains(t, failedTransfer.FailureReason, "frozen")
}

func TestRunRetriesFailedGroup(t *testing.T) {
	batcher, client, db := newTestBatcher(t)
	creator := seedCreator(t, db, true)
	project := seedProjectFor(t, db, creator.ID)
	marketer := seedMarketerWithAccount(t, db, "acct_retry")

	purchase := seedReadyPurchase(t, db, project.ID, marketer.ID, 2000, "USD")

	client.On("IssueTransfer", mock.Anything, "acct_retry", int64(2000), "USD", mock.AnythingOfType("string"), mock.Anything).
		Return("", errors.New("provider timeout")).Once()
	client.On("IssueTransfer", mock.Anything, "acct_retry", int64(2000), "USD", mock.AnythingOfType("string"), mock.Anything).
		Return("ext_retry", nil).Once()

	results, err := batcher.Run(context.Background(), creator.ID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, OutcomeFailed, results[0].Outcome)

	results, err = batcher.Run(context.Background(), creator.ID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, OutcomePaid, results[0].Outcome)
	client.AssertExpectations(t)

	var p models.Purchase
	require.NoError(t, db.First(&p, "id = ?", purchase.ID).Error)
	assert.Equal(t, models.CommissionPaid, p.CommissionStatus)
	assert.Equal(t, models.PaymentStatusPaid, p.PaymentStatus)
}

func TestRunNonPositiveNetIsSkipped(t *testing.T) {
	batcher, client, db := newTestBatcher(t)
	creator := seedCreator(t, db, true)
	project := seedProjectFor(t, db, creator.ID)
	marketer := seedMarketerWithAccount(t, db, "acct_neg")

	purchase := seedReadyPurchase(t, db, project.ID, marketer.ID, 1000, "USD")

	adj := models.CommissionAdjustment{
		CreatorID:  creator.ID,
		MarketerID: marketer.ID,
		Amount:     -1500,
		Currency:   "USD",
		Status:     models.AdjustmentStatusPending,
	}
	require.NoError(t, db.Create(&adj).Error)

	results, err := batcher.Run(context.Background(), creator.ID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, OutcomeSkipped, results[0].Outcome)
	client.AssertNotCalled(t, "IssueTransfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	// Everything stays pending for a future run
	var p models.Purchase
	require.NoError(t, db.First(&p, "id = ?", purchase.ID).Error)
	assert.Equal(t, models.CommissionReadyForPayout, p.CommissionStatus)
	assert.Nil(t, p.TransferRecordID)

	var reloadedAdj models.CommissionAdjustment
	require.NoError(t, db.First(&reloadedAdj, "id = ?", adj.ID).Error)
	assert.Equal(t, models.AdjustmentStatusPending, reloadedAdj.Status)
}

func TestRunNoDestinationIsSkipped(t *testing.T) {
	batcher, client, db := newTestBatcher(t)
	creator := seedCreator(t, db, true)
	project := seedProjectFor(t, db, creator.ID)
	marketer := seedMarketerWithAccount(t, db, "")

	purchase := seedReadyPurchase(t, db, project.ID, marketer.ID, 2000, "USD")

	results, err := batcher.Run(context.Background(), creator.ID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, OutcomeSkipped, results[0].Outcome)
	assert.Equal(t, marketer.ID, results[0].MarketerID)
	client.AssertNotCalled(t, "IssueTransfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	var p models.Purchase
	require.NoError(t, db.First(&p, "id = ?", purchase.ID).Error)
	assert.Equal(t, models.CommissionReadyForPayout, p.CommissionStatus)
}

func TestRunSplitsGroupsByCurrency(t *testing.T) {
	batcher, client, db := newTestBatcher(t)
	creator := seedCreator(t, db, true)
	project := seedProjectFor(t, db, creator.ID)
	marketer := seedMarketerWithAccount(t, db, "acct_multi")

	seedReadyPurchase(t, db, project.ID, marketer.ID, 2000, "USD")
	seedReadyPurchase(t, db, project.ID, marketer.ID, 3000, "EUR")

	client.On("IssueTransfer", mock.Anything, "acct_multi", int64(2000), "USD", mock.AnythingOfType("string"), mock.Anything).
		Return("ext_usd", nil).Once()
	client.On("IssueTransfer", mock.Anything, "acct_multi", int64(3000), "EUR", mock.AnythingOfType("string"), mock.Anything).
		Return("ext_eur", nil).Once()

	results, err := batcher.Run(context.Background(), creator.ID)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	client.AssertExpectations(t)
}

func TestRunIgnoresPurchasesInsideRefundWindow(t *testing.T) {
	batcher, client, db := newTestBatcher(t)
	creator := seedCreator(t, db, true)
	project := seedProjectFor(t, db, creator.ID)
	marketer := seedMarketerWithAccount(t, db, "acct_wait")

	eligible := time.Now().AddDate(0, 0, 10)
	p := models.Purchase{
		ProjectID:        project.ID,
		MarketerID:       &marketer.ID,
		GrossAmount:      10000,
		Currency:         "USD",
		OccurredAt:       time.Now(),
		CommissionAmount: 2000,
		CommissionStatus: models.CommissionAwaitingRefundWindow,
		PaymentStatus:    models.PaymentStatusPending,
		RefundWindowDays: 14,
		RefundEligibleAt: &eligible,
	}
	require.NoError(t, db.Create(&p).Error)

	results, err := batcher.Run(context.Background(), creator.ID)
	require.NoError(t, err)
	assert.Empty(t, results)
	client.AssertNotCalled(t, "IssueTransfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	var reloaded models.Purchase
	require.NoError(t, db.First(&reloaded, "id = ?", p.ID).Error)
	assert.Equal(t, models.CommissionAwaitingRefundWindow, reloaded.CommissionStatus)
}

func TestRunPromotesElapsedWindowFirst(t *testing.T) {
	batcher, client, db := newTestBatcher(t)
	creator := seedCreator(t, db, true)
	project := seedProjectFor(t, db, creator.ID)
	marketer := seedMarketerWithAccount(t, db, "acct_promote")

	// Still AWAITING in the database, but the window has elapsed; the run's
	// catch-up pass promotes it before settlement
	occurred := time.Now().AddDate(0, 0, -30)
	eligible := time.Now().AddDate(0, 0, -1)
	p := models.Purchase{
		ProjectID:        project.ID,
		MarketerID:       &marketer.ID,
		GrossAmount:      10000,
		Currency:         "USD",
		OccurredAt:       occurred,
		CommissionAmount: 2000,
		CommissionStatus: models.CommissionAwaitingRefundWindow,
		PaymentStatus:    models.PaymentStatusPending,
		RefundWindowDays: 14,
		RefundEligibleAt: &eligible,
	}
	require.NoError(t, db.Create(&p).Error)

	client.On("IssueTransfer", mock.Anything, "acct_promote", int64(2000), "USD", mock.AnythingOfType("string"), mock.Anything).
		Return("ext_promoted", nil).Once()

	results, err := batcher.Run(context.Background(), creator.ID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, OutcomePaid, results[0].Outcome)
	client.AssertExpectations(t)
}

func TestListStuckTransfers(t *testing.T) {
	batcher, _, db := newTestBatcher(t)
	creator := seedCreator(t, db, true)
	marketer := seedMarketerWithAccount(t, db, "acct_stuck")

	acct := models.PayoutAccount{}
	require.NoError(t, db.First(&acct, "user_id = ?", marketer.ID).Error)

	transfer := models.Transfer{
		CreatorID:        creator.ID,
		MarketerID:       marketer.ID,
		PayoutAccountID:  acct.ID,
		PayoutAccountRef: acct.AccountRef,
		Amount:           5000,
		Currency:         "USD",
		Status:           models.TransferStatusPending,
		Reference:        "TRF_TEST_STUCK",
	}
	require.NoError(t, db.Create(&transfer).Error)
	require.NoError(t, db.Model(&transfer).Update("created_at", time.Now().Add(-48*time.Hour)).Error)

	stuck, err := batcher.ListStuckTransfers(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, stuck, 1)
	assert.Equal(t, transfer.ID, stuck[0].ID)

	// A fresh pending transfer is not stuck yet
	stuck, err = batcher.ListStuckTransfers(context.Background(), 72*time.Hour)
	require.NoError(t, err)
	assert.Empty(t, stuck)
}
