// internal/models/commission.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CommissionEntry records the amount owed for one referred order. The amount
// and the reward policy fields are a snapshot taken when the order completed;
// later settings changes never touch existing rows.
//
// The composite unique index on (affiliate_id, order_id) is the idempotency
// key against duplicate delivery from the payment webhook.
type CommissionEntry struct {
	BaseModel
	AffiliateID uuid.UUID `json:"affiliate_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_commission_affiliate_order"`
	OrderID     string    `json:"order_id" gorm:"size:64;not null;uniqueIndex:idx_commission_affiliate_order"`

	OrderAmount      decimal.Decimal `json:"order_amount" gorm:"type:decimal(20,2);not null"`
	CommissionAmount decimal.Decimal `json:"commission_amount" gorm:"type:decimal(20,2);not null"`
	RewardType       RewardType      `json:"reward_type" gorm:"type:varchar(20);not null"`
	RewardValue      decimal.Decimal `json:"reward_value" gorm:"type:decimal(10,2);not null"`

	Status       CommissionStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	RejectReason string           `json:"reject_reason,omitempty" gorm:"size:255"`
	ApprovedAt   *time.Time       `json:"approved_at"`
	PaidAt       *time.Time       `json:"paid_at"`

	// Set when an approved entry is reserved for a payout request; kept once
	// the entry is paid so every paid row points at its settling payout.
	PayoutRequestID *uuid.UUID `json:"payout_request_id" gorm:"type:uuid;index"`

	// Relationships
	Affiliate Affiliate `json:"affiliate,omitempty" gorm:"foreignKey:AffiliateID"`
}
