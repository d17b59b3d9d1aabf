// internal/services/payout_service.go
package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/tabvault/storefront-backend/internal/database"
	"github.com/tabvault/storefront-backend/internal/models"
)

// PayoutService drives the payout request state machine. A request reserves a
// concrete set of approved commission entries at request time (oldest first,
// tagged with the request id); approval settles exactly that set as paid, and
// rejection releases it. Reserved entries are excluded from the balance
// available to later requests, so outstanding reservations can never exceed
// the approved-unpaid balance.
type PayoutService struct {
	db       *gorm.DB
	settings *SettingsService
	locks    *AffiliateLocks
}

func NewPayoutService(db *gorm.DB, settings *SettingsService, locks *AffiliateLocks) *PayoutService {
	return &PayoutService{db: db, settings: settings, locks: locks}
}

// RequestPayout creates a pending payout against the affiliate's approved,
// unreserved balance. Serialized per affiliate so concurrent requests cannot
// jointly reserve more than the available balance.
func (s *PayoutService) RequestPayout(affiliateID uuid.UUID, amount decimal.Decimal, method models.PaymentMethod, details models.JSONB, now time.Time) (*models.PayoutRequest, error) {
	if err := validatePaymentDetails(method, details); err != nil {
		return nil, err
	}

	settings, err := s.settings.GetSettings()
	if err != nil {
		return nil, err
	}
	if amount.LessThan(settings.MinPayoutAmount) {
		return nil, fmt.Errorf("%w: minimum is %s", ErrBelowMinimumPayout, settings.MinPayoutAmount.StringFixed(2))
	}

	unlock := s.locks.Lock(affiliateID)
	defer unlock()

	var payout models.PayoutRequest
	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var available []models.CommissionEntry
		err := tx.Where("affiliate_id = ? AND status = ? AND payout_request_id IS NULL",
			affiliateID, models.CommissionStatusApproved).
			Order("created_at ASC").
			Find(&available).Error
		if err != nil {
			return err
		}

		covered := decimal.Zero
		var reserved []uuid.UUID
		for _, entry := range available {
			if covered.GreaterThanOrEqual(amount) {
				break
			}
			covered = covered.Add(entry.CommissionAmount)
			reserved = append(reserved, entry.ID)
		}
		if covered.LessThan(amount) {
			return ErrInsufficientBalance
		}

		payout = models.PayoutRequest{
			AffiliateID:    affiliateID,
			Amount:         amount,
			PaymentMethod:  method,
			PaymentDetails: details,
			Status:         models.PayoutStatusPending,
			RequestedAt:    now,
		}
		if err := tx.Create(&payout).Error; err != nil {
			return err
		}

		return tx.Model(&models.CommissionEntry{}).
			Where("id IN ?", reserved).
			Update("payout_request_id", payout.ID).Error
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientBalance) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create payout request: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"affiliate_id": affiliateID,
		"payout_id":    payout.ID,
		"amount":       amount.String(),
	}).Info("Payout requested")

	return &payout, nil
}

// ApprovePayout settles a pending request: the reserved commission entries
// become paid and the request completes, recording the external transaction
// id when one is supplied. Terminal.
func (s *PayoutService) ApprovePayout(payoutID uuid.UUID, transactionID string, now time.Time) (*models.PayoutRequest, error) {
	payout, err := s.getPayout(payoutID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(payout.AffiliateID)
	defer unlock()

	payout, err = s.getPayout(payoutID)
	if err != nil {
		return nil, err
	}
	if payout.Status != models.PayoutStatusPending {
		return nil, fmt.Errorf("%w: payout is already %s", ErrInvalidStateTransition, payout.Status)
	}

	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var covering []models.CommissionEntry
		err := tx.Where("payout_request_id = ? AND status = ?", payout.ID, models.CommissionStatusApproved).
			Find(&covering).Error
		if err != nil {
			return err
		}

		settled := decimal.Zero
		for _, entry := range covering {
			settled = settled.Add(entry.CommissionAmount)
		}

		err = tx.Model(&models.CommissionEntry{}).
			Where("payout_request_id = ? AND status = ?", payout.ID, models.CommissionStatusApproved).
			Updates(map[string]interface{}{
				"status":  models.CommissionStatusPaid,
				"paid_at": now,
			}).Error
		if err != nil {
			return err
		}

		payout.Status = models.PayoutStatusCompleted
		payout.ProcessedAt = &now
		payout.TransactionID = transactionID
		if err := tx.Save(payout).Error; err != nil {
			return err
		}

		return tx.Model(&models.Affiliate{}).
			Where("id = ?", payout.AffiliateID).
			Update("total_earnings", gorm.Expr("total_earnings + ?", settled)).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to approve payout: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"payout_id":      payout.ID,
		"transaction_id": transactionID,
	}).Info("Payout completed")

	return payout, nil
}

// RejectPayout fails a pending request and releases its reservation; the
// covering entries stay approved and eligible for a future request. Terminal.
func (s *PayoutService) RejectPayout(payoutID uuid.UUID, now time.Time) (*models.PayoutRequest, error) {
	payout, err := s.getPayout(payoutID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(payout.AffiliateID)
	defer unlock()

	payout, err = s.getPayout(payoutID)
	if err != nil {
		return nil, err
	}
	if payout.Status != models.PayoutStatusPending {
		return nil, fmt.Errorf("%w: payout is already %s", ErrInvalidStateTransition, payout.Status)
	}

	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		err := tx.Model(&models.CommissionEntry{}).
			Where("payout_request_id = ? AND status = ?", payout.ID, models.CommissionStatusApproved).
			Update("payout_request_id", nil).Error
		if err != nil {
			return err
		}

		payout.Status = models.PayoutStatusFailed
		payout.ProcessedAt = &now
		return tx.Save(payout).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reject payout: %w", err)
	}

	return payout, nil
}

func (s *PayoutService) getPayout(payoutID uuid.UUID) (*models.PayoutRequest, error) {
	var payout models.PayoutRequest
	if err := s.db.First(&payout, "id = ?", payoutID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load payout request: %w", err)
	}
	return &payout, nil
}

func validatePaymentDetails(method models.PaymentMethod, details models.JSONB) error {
	switch method {
	case models.PaymentMethodPayPal:
		email, _ := details["email"].(string)
		if !strings.Contains(email, "@") {
			return fmt.Errorf("%w: paypal payouts require an email address", ErrInvalidPaymentDetails)
		}
	case models.PaymentMethodBank:
		for _, field := range []string{"account_name", "account_number", "bank_name"} {
			if value, _ := details[field].(string); value == "" {
				return fmt.Errorf("%w: bank payouts require %s", ErrInvalidPaymentDetails, field)
			}
		}
	default:
		return fmt.Errorf("%w: unsupported payment method %q", ErrInvalidPaymentDetails, method)
	}
	return nil
}
