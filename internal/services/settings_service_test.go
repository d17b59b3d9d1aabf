// internal/services/settings_service_test.go
package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabvault/storefront-backend/internal/models"
)

func TestGetSettingsCreatesDefaults(t *testing.T) {
	env := newTestEnv(t)

	settings, err := env.settings.GetSettings()
	require.NoError(t, err)

	assert.Equal(t, models.RewardTypePercentage, settings.DefaultRewardType)
	assert.True(t, settings.DefaultCommissionRate.Equal(decimal.NewFromInt(10)))
	assert.True(t, settings.MinPayoutAmount.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, 30, settings.CookieLifetimeDays)
	assert.False(t, settings.AutoApprovalEnabled)
	assert.Equal(t, models.PayoutFrequencyMonthly, settings.PayoutFrequency)

	// Repeated reads hit the same row.
	again, err := env.settings.GetSettings()
	require.NoError(t, err)
	assert.Equal(t, settings.ID, again.ID)
}

func TestUpdateSettingsPersists(t *testing.T) {
	env := newTestEnv(t)

	req := baseSettings()
	req.DefaultCommissionRate = dec("12.5")
	req.CookieLifetimeDays = 14
	req.AutoApprovalEnabled = true
	req.AutoApprovalThreshold = dec("25")
	req.PayoutFrequency = models.PayoutFrequencyWeekly

	updated, err := env.settings.UpdateSettings(&req)
	require.NoError(t, err)
	assert.True(t, updated.DefaultCommissionRate.Equal(dec("12.5")))

	reloaded, err := env.settings.GetSettings()
	require.NoError(t, err)
	assert.True(t, reloaded.DefaultCommissionRate.Equal(dec("12.5")))
	assert.Equal(t, 14, reloaded.CookieLifetimeDays)
	assert.True(t, reloaded.AutoApprovalEnabled)
	assert.True(t, reloaded.AutoApprovalThreshold.Equal(dec("25")))
	assert.Equal(t, models.PayoutFrequencyWeekly, reloaded.PayoutFrequency)
}

func TestUpdateSettingsValidation(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name   string
		mutate func(*UpdateSettingsRequest)
	}{
		{"rate above cap", func(r *UpdateSettingsRequest) { r.DefaultCommissionRate = dec("60") }},
		{"negative rate", func(r *UpdateSettingsRequest) { r.DefaultCommissionRate = dec("-1") }},
		{"zero minimum payout", func(r *UpdateSettingsRequest) { r.MinPayoutAmount = decimal.Zero }},
		{"cookie lifetime too short", func(r *UpdateSettingsRequest) { r.CookieLifetimeDays = 0 }},
		{"cookie lifetime too long", func(r *UpdateSettingsRequest) { r.CookieLifetimeDays = 400 }},
		{"negative threshold", func(r *UpdateSettingsRequest) { r.AutoApprovalThreshold = dec("-5") }},
		{"negative fixed amount", func(r *UpdateSettingsRequest) {
			r.DefaultRewardType = models.RewardTypeFixed
			r.DefaultFixedAmount = dec("-2")
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := baseSettings()
			tc.mutate(&req)
			_, err := env.settings.UpdateSettings(&req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	// A failed update must not clobber the stored row.
	reloaded, err := env.settings.GetSettings()
	require.NoError(t, err)
	assert.True(t, reloaded.DefaultCommissionRate.Equal(decimal.NewFromInt(10)))
}
