// internal/services/payout_service_test.go
package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabvault/storefront-backend/internal/models"
)

func paypalDetails() models.JSONB {
	return models.JSONB{"email": "aff@example.com"}
}

func TestRequestPayoutBelowMinimum(t *testing.T) {
	env := newTestEnv(t)
	affiliate := env.createAffiliate(t, "MINCODE111")
	env.applySettings(t, baseSettings())

	env.seedApprovedCommission(t, affiliate, "order-1", "100.00", time.Now())

	_, err := env.payouts.RequestPayout(affiliate.ID, dec("49.99"), models.PaymentMethodPayPal, paypalDetails(), time.Now())
	assert.ErrorIs(t, err, ErrBelowMinimumPayout)
}

func TestRequestPayoutInsufficientBalance(t *testing.T) {
	env := newTestEnv(t)
	affiliate := env.createAffiliate(t, "LOWCODE111")
	env.applySettings(t, baseSettings())

	env.seedApprovedCommission(t, affiliate, "order-1", "55.00", time.Now())

	_, err := env.payouts.RequestPayout(affiliate.ID, dec("60.00"), models.PaymentMethodPayPal, paypalDetails(), time.Now())
	assert.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestRequestPayoutIgnoresPendingCommissions(t *testing.T) {
	env := newTestEnv(t)
	affiliate := env.createAffiliate(t, "PNDCODE111")
	env.applySettings(t, baseSettings())

	entry := env.seedApprovedCommission(t, affiliate, "order-1", "80.00", time.Now())
	require.NoError(t, env.db.Model(entry).Updates(map[string]interface{}{
		"status":      models.CommissionStatusPending,
		"approved_at": nil,
	}).Error)

	_, err := env.payouts.RequestPayout(affiliate.ID, dec("80.00"), models.PaymentMethodPayPal, paypalDetails(), time.Now())
	assert.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestRequestPayoutInvalidPaymentDetails(t *testing.T) {
	env := newTestEnv(t)
	affiliate := env.createAffiliate(t, "PAYCODE111")
	env.applySettings(t, baseSettings())

	cases := []struct {
		name    string
		method  models.PaymentMethod
		details models.JSONB
	}{
		{"paypal without email", models.PaymentMethodPayPal, models.JSONB{}},
		{"paypal malformed email", models.PaymentMethodPayPal, models.JSONB{"email": "not-an-email"}},
		{"bank missing account number", models.PaymentMethodBank, models.JSONB{
			"account_name": "A. Affiliate",
			"bank_name":    "First Chrome Bank",
		}},
		{"unknown method", models.PaymentMethod("crypto"), models.JSONB{"wallet": "0xdead"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.payouts.RequestPayout(affiliate.ID, dec("60.00"), tc.method, tc.details, time.Now())
			assert.ErrorIs(t, err, ErrInvalidPaymentDetails)
		})
	}
}

func TestRequestPayoutReservesOldestEntries(t *testing.T) {
	env := newTestEnv(t)
	affiliate := env.createAffiliate(t, "RESCODE111")
	env.applySettings(t, baseSettings())

	t0 := time.Now().Add(-3 * time.Hour)
	oldest := env.seedApprovedCommission(t, affiliate, "order-1", "30.00", t0)
	middle := env.seedApprovedCommission(t, affiliate, "order-2", "40.00", t0.Add(time.Hour))
	newest := env.seedApprovedCommission(t, affiliate, "order-3", "25.00", t0.Add(2*time.Hour))

	payout, err := env.payouts.RequestPayout(affiliate.ID, dec("60.00"), models.PaymentMethodPayPal, paypalDetails(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.PayoutStatusPending, payout.Status)

	// 30 + 40 covers 60; the newest entry stays free.
	var entry models.CommissionEntry
	require.NoError(t, env.db.First(&entry, "id = ?", oldest.ID).Error)
	require.NotNil(t, entry.PayoutRequestID)
	assert.Equal(t, payout.ID, *entry.PayoutRequestID)

	entry = models.CommissionEntry{}
	require.NoError(t, env.db.First(&entry, "id = ?", middle.ID).Error)
	require.NotNil(t, entry.PayoutRequestID)

	entry = models.CommissionEntry{}
	require.NoError(t, env.db.First(&entry, "id = ?", newest.ID).Error)
	assert.Nil(t, entry.PayoutRequestID)

	// The remaining 25 still supports its own request once the minimum allows.
	settings := baseSettings()
	settings.MinPayoutAmount = dec("10")
	env.applySettings(t, settings)

	_, err = env.payouts.RequestPayout(affiliate.ID, dec("25.00"), models.PaymentMethodPayPal, paypalDetails(), time.Now())
	require.NoError(t, err)

	// Everything is reserved now.
	_, err = env.payouts.RequestPayout(affiliate.ID, dec("10.00"), models.PaymentMethodPayPal, paypalDetails(), time.Now())
	assert.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestApprovePayout(t *testing.T) {
	env := newTestEnv(t)
	affiliate := env.createAffiliate(t, "APVCODE111")
	env.applySettings(t, baseSettings())

	env.seedApprovedCommission(t, affiliate, "order-1", "30.00", time.Now().Add(-2*time.Hour))
	env.seedApprovedCommission(t, affiliate, "order-2", "40.00", time.Now().Add(-time.Hour))

	payout, err := env.payouts.RequestPayout(affiliate.ID, dec("60.00"), models.PaymentMethodPayPal, paypalDetails(), time.Now())
	require.NoError(t, err)

	now := time.Now()
	completed, err := env.payouts.ApprovePayout(payout.ID, "txn_12345", now)
	require.NoError(t, err)
	assert.Equal(t, models.PayoutStatusCompleted, completed.Status)
	assert.Equal(t, "txn_12345", completed.TransactionID)
	require.NotNil(t, completed.ProcessedAt)

	var paid int64
	require.NoError(t, env.db.Model(&models.CommissionEntry{}).
		Where("status = ?", models.CommissionStatusPaid).Count(&paid).Error)
	assert.EqualValues(t, 2, paid)

	// Lifetime earnings reflect the settled entries, not the requested amount.
	var reloaded models.Affiliate
	require.NoError(t, env.db.First(&reloaded, "id = ?", affiliate.ID).Error)
	assert.True(t, reloaded.TotalEarnings.Equal(dec("70.00")), "got %s", reloaded.TotalEarnings)
}

func TestRejectPayoutReleasesReservation(t *testing.T) {
	env := newTestEnv(t)
	affiliate := env.createAffiliate(t, "RELCODE111")
	env.applySettings(t, baseSettings())

	env.seedApprovedCommission(t, affiliate, "order-1", "60.00", time.Now())

	payout, err := env.payouts.RequestPayout(affiliate.ID, dec("60.00"), models.PaymentMethodPayPal, paypalDetails(), time.Now())
	require.NoError(t, err)

	failed, err := env.payouts.RejectPayout(payout.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.PayoutStatusFailed, failed.Status)

	var entry models.CommissionEntry
	require.NoError(t, env.db.First(&entry, "order_id = ?", "order-1").Error)
	assert.Equal(t, models.CommissionStatusApproved, entry.Status)
	assert.Nil(t, entry.PayoutRequestID)

	// Released entries back a fresh request.
	_, err = env.payouts.RequestPayout(affiliate.ID, dec("60.00"), models.PaymentMethodPayPal, paypalDetails(), time.Now())
	require.NoError(t, err)
}

func TestPayoutTerminalStates(t *testing.T) {
	env := newTestEnv(t)
	affiliate := env.createAffiliate(t, "TRMCODE111")
	env.applySettings(t, baseSettings())

	env.seedApprovedCommission(t, affiliate, "order-1", "60.00", time.Now())
	env.seedApprovedCommission(t, affiliate, "order-2", "60.00", time.Now())

	completedReq, err := env.payouts.RequestPayout(affiliate.ID, dec("60.00"), models.PaymentMethodPayPal, paypalDetails(), time.Now())
	require.NoError(t, err)
	_, err = env.payouts.ApprovePayout(completedReq.ID, "txn_1", time.Now())
	require.NoError(t, err)

	failedReq, err := env.payouts.RequestPayout(affiliate.ID, dec("60.00"), models.PaymentMethodPayPal, paypalDetails(), time.Now())
	require.NoError(t, err)
	_, err = env.payouts.RejectPayout(failedReq.ID, time.Now())
	require.NoError(t, err)

	_, err = env.payouts.ApprovePayout(completedReq.ID, "txn_2", time.Now())
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
	_, err = env.payouts.RejectPayout(completedReq.ID, time.Now())
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
	_, err = env.payouts.ApprovePayout(failedReq.ID, "txn_3", time.Now())
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
	_, err = env.payouts.RejectPayout(failedReq.ID, time.Now())
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestPayoutNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.payouts.ApprovePayout(uuid.New(), "txn_1", time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

// Full lifecycle: referred orders accrue commissions, the sweep approves them,
// and a payout settles the accumulated balance.
func TestReferralLifecycle(t *testing.T) {
	env := newTestEnv(t)
	affiliate := env.createAffiliate(t, "LIFECODE11")

	settings := baseSettings()
	settings.AutoApprovalEnabled = true
	settings.AutoApprovalThreshold = dec("100")
	env.applySettings(t, settings)

	now := time.Now()
	env.visit(t, "LIFECODE11", "device-life", now)

	first, err := env.commissions.RecordOrderCommission("order-1", dec("200.00"), "device-life", now)
	require.NoError(t, err)
	require.True(t, first.CommissionAmount.Equal(dec("20.00")))

	approved, err := env.commissions.AutoApproveCommissions(now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, approved)

	// 20 approved is below the 50 minimum.
	_, err = env.payouts.RequestPayout(affiliate.ID, dec("20.00"), models.PaymentMethodPayPal, paypalDetails(), now)
	assert.ErrorIs(t, err, ErrBelowMinimumPayout)

	second, err := env.commissions.RecordOrderCommission("order-2", dec("400.00"), "device-life", now.Add(time.Hour))
	require.NoError(t, err)
	require.True(t, second.CommissionAmount.Equal(dec("40.00")))

	_, err = env.commissions.AutoApproveCommissions(now.Add(time.Hour))
	require.NoError(t, err)

	payout, err := env.payouts.RequestPayout(affiliate.ID, dec("60.00"), models.PaymentMethodPayPal, paypalDetails(), now.Add(2*time.Hour))
	require.NoError(t, err)

	settledAt := now.Add(3 * time.Hour)
	completed, err := env.payouts.ApprovePayout(payout.ID, "txn_life", settledAt)
	require.NoError(t, err)
	assert.Equal(t, models.PayoutStatusCompleted, completed.Status)

	balance, err := env.stats.GetAffiliateBalance(affiliate.ID)
	require.NoError(t, err)
	assert.True(t, balance.AvailableForPayout.IsZero())
	assert.True(t, balance.PaidCommission.Equal(dec("60.00")))

	var reloaded models.Affiliate
	require.NoError(t, env.db.First(&reloaded, "id = ?", affiliate.ID).Error)
	assert.Equal(t, 2, reloaded.TotalReferrals)
	assert.True(t, reloaded.TotalEarnings.Equal(dec("60.00")))
}
