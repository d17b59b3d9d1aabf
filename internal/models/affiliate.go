// internal/models/affiliate.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Affiliate is the ledger row for one referring account. RewardType,
// CommissionRate and FixedAmount are overrides; nil means "use the global
// default from AffiliateSettings at computation time".
type Affiliate struct {
	BaseModel
	UserID       uuid.UUID   `json:"user_id" gorm:"type:uuid;uniqueIndex;not null"`
	ReferralCode string      `json:"referral_code" gorm:"size:16;uniqueIndex;not null"`
	RewardType   *RewardType `json:"reward_type" gorm:"type:varchar(20)"`

	CommissionRate *decimal.Decimal `json:"commission_rate" gorm:"type:decimal(5,2)"`
	FixedAmount    *decimal.Decimal `json:"fixed_amount" gorm:"type:decimal(10,2)"`

	Suspended bool `json:"suspended" gorm:"default:false;index"`

	// Cached aggregates. TotalReferrals and TotalCommissions accrue when a
	// commission entry is recorded; TotalEarnings accrues when a payout
	// settles entries as paid.
	TotalReferrals   int             `json:"total_referrals" gorm:"default:0"`
	TotalCommissions decimal.Decimal `json:"total_commissions" gorm:"type:decimal(20,2);default:0"`
	TotalEarnings    decimal.Decimal `json:"total_earnings" gorm:"type:decimal(20,2);default:0"`

	// Relationships
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// Attribution links a prospective customer (identified by a device/session
// subject id) to the affiliate whose referral code first reached them.
// Read-only after creation; an order completing before ExpiresAt credits
// the affiliate.
type Attribution struct {
	BaseModel
	AffiliateID uuid.UUID `json:"affiliate_id" gorm:"type:uuid;not null;index"`
	SubjectID   string    `json:"subject_id" gorm:"size:64;not null;index"`
	ExpiresAt   time.Time `json:"expires_at" gorm:"not null;index"`

	// Relationships
	Affiliate Affiliate `json:"affiliate,omitempty" gorm:"foreignKey:AffiliateID"`
}
