package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/partnerpay/backend/internal/database"
	"github.com/partnerpay/backend/internal/handlers"
	"github.com/partnerpay/backend/internal/models"
	"github.com/partnerpay/backend/internal/routes"
	"github.com/partnerpay/backend/internal/services/account"
	"github.com/partnerpay/backend/internal/services/audit"
	"github.com/partnerpay/backend/internal/services/commission"
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

func newWebhookRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := setupTestDB(t)

	commissionSvc := commission.NewService(db, nil, contract.NewResolver(db, 30), account.NewResolver(db), audit.NewLogger(db))
	router := gin.New()
	routes.SetupWebhookRoutes(router, handlers.NewWebhookHandler(commissionSvc), nil)
	return router, db
}

func seedProject(t *testing.T, db *gorm.DB, percent float64) (*models.User, *models.Project, *models.User) {
	t.Helper()
	creator := models.User{Email: uuid.NewString() + "@test.local", Role: models.RoleCreator}
	require.NoError(t, db.Create(&creator).Error)
	project := models.Project{CreatorID: creator.ID, Name: "Test Project", DefaultCommissionPercent: percent, DefaultRefundWindowDays: 14}
	require.NoError(t, db.Create(&project).Error)
	marketer := models.User{Email: uuid.NewString() + "@test.local", Role: models.RoleMarketer}
	require.NoError(t, db.Create(&marketer).Error)
	return &creator, &project, &marketer
}

func postJSON(t *testing.T, router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSaleWebhookDuplicateDelivery(t *testing.T) {
	router, db := newWebhookRouter(t)
	_, project, marketer := seedProject(t, db, 0.2)

	payload := gin.H{
		"event_id":     "evt_http_1",
		"project_id":   project.ID,
		"marketer_id":  marketer.ID,
		"gross_amount": 10000,
		"currency":     "USD",
	}

	w := postJSON(t, router, "/webhooks/sales", payload)
	assert.Equal(t, http.StatusCreated, w.Code)

	// The provider retries; the purchase must not be duplicated
	w = postJSON(t, router, "/webhooks/sales", payload)
	assert.Equal(t, http.StatusOK, w.Code)

	var count int64
	require.NoError(t, db.Model(&models.Purchase{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSaleWebhookRejectsBadPayload(t *testing.T) {
	router, _ := newWebhookRouter(t)

	w := postJSON(t, router, "/webhooks/sales", gin.H{"currency": "USD"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRefundWebhook(t *testing.T) {
	router, db := newWebhookRouter(t)
	_, project, marketer := seedProject(t, db, 0.2)

	w := postJSON(t, router, "/webhooks/sales", gin.H{
		"event_id":       "evt_http_r",
		"transaction_id": "txn_http_r",
		"project_id":     project.ID,
		"marketer_id":    marketer.ID,
		"gross_amount":   10000,
		"currency":       "USD",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = postJSON(t, router, "/webhooks/refunds", gin.H{
		"transaction_id": "txn_http_r",
		"project_id":     project.ID,
		"reason":         "customer request",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var purchase models.Purchase
	require.NoError(t, db.First(&purchase, "external_transaction_id = ?", "txn_http_r").Error)
	assert.Equal(t, models.CommissionRefunded, purchase.CommissionStatus)
	assert.Equal(t, int64(10000), purchase.RefundedAmount)
}

func TestAttributionWebhook(t *testing.T) {
	router, db := newWebhookRouter(t)
	_, project, marketer := seedProject(t, db, 0.2)

	w := postJSON(t, router, "/webhooks/attribution", gin.H{
		"project_id":  project.ID,
		"marketer_id": marketer.ID,
		"kind":        "click",
		"event_id":    "click_http_1",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = postJSON(t, router, "/webhooks/attribution", gin.H{
		"project_id":  project.ID,
		"marketer_id": marketer.ID,
		"kind":        "pageview",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var count int64
	require.NoError(t, db.Model(&models.AttributionEvent{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
