// internal/services/service_test.go
package services

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tabvault/storefront-backend/internal/models"
)

var testDBCounter int64

// setupTestDB opens a fresh in-memory sqlite database. Each test gets its own
// named database so pooled connections share state without leaking across
// tests.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:svc_test_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.Affiliate{},
		&models.Attribution{},
		&models.CommissionEntry{},
		&models.PayoutRequest{},
		&models.AffiliateSettings{},
	)
	require.NoError(t, err)

	return db
}

type testEnv struct {
	db          *gorm.DB
	settings    *SettingsService
	affiliates  *AffiliateService
	attribution *AttributionService
	commissions *CommissionService
	payouts     *PayoutService
	stats       *StatsService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := setupTestDB(t)
	locks := NewAffiliateLocks()
	settings := NewSettingsService(db)
	attribution := NewAttributionService(db, settings)

	return &testEnv{
		db:          db,
		settings:    settings,
		affiliates:  NewAffiliateService(db),
		attribution: attribution,
		commissions: NewCommissionService(db, settings, attribution, locks),
		payouts:     NewPayoutService(db, settings, locks),
		stats:       NewStatsService(db),
	}
}

func (e *testEnv) createAffiliate(t *testing.T, code string) *models.Affiliate {
	t.Helper()

	user := models.User{
		Username: code + "_user",
		Email:    code + "@example.com",
		UserType: models.UserTypeCustomer,
		Status:   models.UserStatusActive,
	}
	require.NoError(t, e.db.Create(&user).Error)

	affiliate := models.Affiliate{
		UserID:       user.ID,
		ReferralCode: code,
	}
	require.NoError(t, e.db.Create(&affiliate).Error)
	return &affiliate
}

// applySettings updates the global policy through the service so validation
// stays on the hot path in tests too.
func (e *testEnv) applySettings(t *testing.T, req UpdateSettingsRequest) *models.AffiliateSettings {
	t.Helper()

	settings, err := e.settings.UpdateSettings(&req)
	require.NoError(t, err)
	return settings
}

func baseSettings() UpdateSettingsRequest {
	return UpdateSettingsRequest{
		DefaultRewardType:     models.RewardTypePercentage,
		DefaultCommissionRate: decimal.NewFromInt(10),
		DefaultFixedAmount:    decimal.NewFromInt(5),
		MinPayoutAmount:       decimal.NewFromInt(50),
		CookieLifetimeDays:    30,
		AutoApprovalEnabled:   false,
		AutoApprovalThreshold: decimal.Zero,
		PayoutFrequency:       models.PayoutFrequencyMonthly,
	}
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// seedApprovedCommission inserts an already-approved entry directly; payout
// tests do not need to replay the full attribution flow.
func (e *testEnv) seedApprovedCommission(t *testing.T, affiliate *models.Affiliate, orderID, amount string, createdAt time.Time) *models.CommissionEntry {
	t.Helper()

	approvedAt := createdAt.Add(time.Minute)
	entry := models.CommissionEntry{
		AffiliateID:      affiliate.ID,
		OrderID:          orderID,
		OrderAmount:      dec(amount).Mul(decimal.NewFromInt(10)),
		CommissionAmount: dec(amount),
		RewardType:       models.RewardTypePercentage,
		RewardValue:      decimal.NewFromInt(10),
		Status:           models.CommissionStatusApproved,
		ApprovedAt:       &approvedAt,
	}
	entry.CreatedAt = createdAt

	require.NoError(t, e.db.Create(&entry).Error)
	return &entry
}
