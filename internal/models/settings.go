// internal/models/settings.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AffiliateSettings is the global reward policy. One row, updated wholesale
// by an admin. Services load a snapshot per operation; a computed commission
// stores its own copy of the policy values, so settings changes are
// prospective only.
type AffiliateSettings struct {
	ID                    uint            `json:"id" gorm:"primaryKey"`
	DefaultRewardType     RewardType      `json:"default_reward_type" gorm:"type:varchar(20);not null;default:'percentage'"`
	DefaultCommissionRate decimal.Decimal `json:"default_commission_rate" gorm:"type:decimal(5,2);not null;default:10"`
	DefaultFixedAmount    decimal.Decimal `json:"default_fixed_amount" gorm:"type:decimal(10,2);not null;default:5"`
	MinPayoutAmount       decimal.Decimal `json:"min_payout_amount" gorm:"type:decimal(10,2);not null;default:50"`
	CookieLifetimeDays    int             `json:"cookie_lifetime_days" gorm:"not null;default:30"`
	AutoApprovalEnabled   bool            `json:"auto_approval_enabled" gorm:"default:false"`
	AutoApprovalThreshold decimal.Decimal `json:"auto_approval_threshold" gorm:"type:decimal(10,2);not null;default:0"`
	PayoutFrequency       PayoutFrequency `json:"payout_frequency" gorm:"type:varchar(20);not null;default:'monthly'"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

func (AffiliateSettings) TableName() string {
	return "affiliate_settings"
}
