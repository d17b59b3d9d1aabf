// internal/services/settings_service.go
package services

import (
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tabvault/storefront-backend/internal/models"
)

// SettingsService owns the single AffiliateSettings row. Every other service
// loads a fresh snapshot per operation and stores computed results, so an
// update here only affects future commissions and payout requests.
type SettingsService struct {
	db *gorm.DB
}

type UpdateSettingsRequest struct {
	DefaultRewardType     models.RewardType      `json:"default_reward_type" validate:"required,oneof=percentage fixed"`
	DefaultCommissionRate decimal.Decimal        `json:"default_commission_rate"`
	DefaultFixedAmount    decimal.Decimal        `json:"default_fixed_amount"`
	MinPayoutAmount       decimal.Decimal        `json:"min_payout_amount"`
	CookieLifetimeDays    int                    `json:"cookie_lifetime_days"`
	AutoApprovalEnabled   bool                   `json:"auto_approval_enabled"`
	AutoApprovalThreshold decimal.Decimal        `json:"auto_approval_threshold"`
	PayoutFrequency       models.PayoutFrequency `json:"payout_frequency" validate:"required,oneof=weekly monthly quarterly"`
}

func NewSettingsService(db *gorm.DB) *SettingsService {
	return &SettingsService{db: db}
}

// GetSettings returns the settings row, creating it with defaults on first use.
func (s *SettingsService) GetSettings() (*models.AffiliateSettings, error) {
	var settings models.AffiliateSettings
	err := s.db.Where(models.AffiliateSettings{ID: 1}).
		Attrs(defaultSettings()).
		FirstOrCreate(&settings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load affiliate settings: %w", err)
	}
	return &settings, nil
}

func (s *SettingsService) UpdateSettings(req *UpdateSettingsRequest) (*models.AffiliateSettings, error) {
	if err := validateSettings(req); err != nil {
		return nil, err
	}

	settings, err := s.GetSettings()
	if err != nil {
		return nil, err
	}

	settings.DefaultRewardType = req.DefaultRewardType
	settings.DefaultCommissionRate = req.DefaultCommissionRate
	settings.DefaultFixedAmount = req.DefaultFixedAmount
	settings.MinPayoutAmount = req.MinPayoutAmount
	settings.CookieLifetimeDays = req.CookieLifetimeDays
	settings.AutoApprovalEnabled = req.AutoApprovalEnabled
	settings.AutoApprovalThreshold = req.AutoApprovalThreshold
	settings.PayoutFrequency = req.PayoutFrequency

	if err := s.db.Save(settings).Error; err != nil {
		return nil, fmt.Errorf("failed to update affiliate settings: %w", err)
	}

	return settings, nil
}

func validateSettings(req *UpdateSettingsRequest) error {
	if req.DefaultRewardType == models.RewardTypePercentage {
		if req.DefaultCommissionRate.IsNegative() || req.DefaultCommissionRate.GreaterThan(decimal.NewFromInt(50)) {
			return fmt.Errorf("%w: default commission rate must be between 0 and 50 percent", ErrValidation)
		}
	}
	if req.DefaultRewardType == models.RewardTypeFixed && req.DefaultFixedAmount.IsNegative() {
		return fmt.Errorf("%w: default fixed amount must not be negative", ErrValidation)
	}
	if !req.MinPayoutAmount.IsPositive() {
		return fmt.Errorf("%w: minimum payout amount must be positive", ErrValidation)
	}
	if req.CookieLifetimeDays < 1 || req.CookieLifetimeDays > 365 {
		return fmt.Errorf("%w: cookie lifetime must be between 1 and 365 days", ErrValidation)
	}
	if req.AutoApprovalThreshold.IsNegative() {
		return fmt.Errorf("%w: auto-approval threshold must not be negative", ErrValidation)
	}
	return nil
}

func defaultSettings() models.AffiliateSettings {
	return models.AffiliateSettings{
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
