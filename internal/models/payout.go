// internal/models/payout.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PayoutRequest is a settlement of approved commissions into an external
// payment. State machine: pending -> completed (admin approve) or
// pending -> failed (admin reject); both end states are terminal.
type PayoutRequest struct {
	BaseModel
	AffiliateID    uuid.UUID       `json:"affiliate_id" gorm:"type:uuid;not null;index"`
	Amount         decimal.Decimal `json:"amount" gorm:"type:decimal(20,2);not null"`
	PaymentMethod  PaymentMethod   `json:"payment_method" gorm:"type:varchar(20);not null"`
	PaymentDetails JSONB           `json:"payment_details" gorm:"type:jsonb"`

	Status        PayoutStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	RequestedAt   time.Time    `json:"requested_at" gorm:"not null"`
	ProcessedAt   *time.Time   `json:"processed_at"`
	TransactionID string       `json:"transaction_id,omitempty" gorm:"size:255"`

	// Relationships
	Affiliate Affiliate `json:"affiliate,omitempty" gorm:"foreignKey:AffiliateID"`
}
