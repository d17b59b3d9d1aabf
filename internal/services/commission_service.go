// internal/services/commission_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/tabvault/storefront-backend/internal/database"
	"github.com/tabvault/storefront-backend/internal/models"
)

// CommissionService computes and manages the money owed per referred order.
// The reward policy is captured as a snapshot when the order completes; the
// stored commission amount is never recomputed.
type CommissionService struct {
	db          *gorm.DB
	settings    *SettingsService
	attribution *AttributionService
	locks       *AffiliateLocks
}

func NewCommissionService(db *gorm.DB, settings *SettingsService, attribution *AttributionService, locks *AffiliateLocks) *CommissionService {
	return &CommissionService{
		db:          db,
		settings:    settings,
		attribution: attribution,
		locks:       locks,
	}
}

// RecordOrderCommission handles the order completion feed. Returns nil when
// the order carries no active attribution. Replaying the same order id is a
// no-op returning the existing entry; the unique index on
// (affiliate_id, order_id) backstops races from duplicate webhook delivery.
func (s *CommissionService) RecordOrderCommission(orderID string, orderAmount decimal.Decimal, subjectID string, now time.Time) (*models.CommissionEntry, error) {
	affiliate, err := s.attribution.ResolveAttribution(subjectID, now)
	if err != nil {
		return nil, err
	}
	if affiliate == nil {
		return nil, nil
	}

	unlock := s.locks.Lock(affiliate.ID)
	defer unlock()

	if existing, err := s.findEntry(affiliate.ID, orderID); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	settings, err := s.settings.GetSettings()
	if err != nil {
		return nil, err
	}

	rewardType, rewardValue, amount := computeCommission(affiliate, settings, orderAmount)

	entry := models.CommissionEntry{
		AffiliateID:      affiliate.ID,
		OrderID:          orderID,
		OrderAmount:      orderAmount,
		CommissionAmount: amount,
		RewardType:       rewardType,
		RewardValue:      rewardValue,
		Status:           models.CommissionStatusPending,
	}
	entry.CreatedAt = now

	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		return tx.Model(&models.Affiliate{}).
			Where("id = ?", affiliate.ID).
			Updates(map[string]interface{}{
				"total_referrals":   gorm.Expr("total_referrals + 1"),
				"total_commissions": gorm.Expr("total_commissions + ?", amount),
			}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			existing, lookupErr := s.findEntry(affiliate.ID, orderID)
			if lookupErr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("failed to record commission: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"affiliate_id": affiliate.ID,
		"order_id":     orderID,
		"commission":   amount.String(),
	}).Info("Commission recorded")

	return &entry, nil
}

// AutoApproveCommissions approves pending entries whose order amount meets
// the configured threshold. Safe to re-run; already-approved entries are
// untouched. Returns the number of entries approved.
func (s *CommissionService) AutoApproveCommissions(now time.Time) (int64, error) {
	settings, err := s.settings.GetSettings()
	if err != nil {
		return 0, err
	}
	if !settings.AutoApprovalEnabled {
		return 0, nil
	}

	result := s.db.Model(&models.CommissionEntry{}).
		Where("status = ? AND order_amount >= ?", models.CommissionStatusPending, settings.AutoApprovalThreshold).
		Updates(map[string]interface{}{
			"status":      models.CommissionStatusApproved,
			"approved_at": now,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to auto-approve commissions: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		logrus.WithField("count", result.RowsAffected).Info("Commissions auto-approved")
	}
	return result.RowsAffected, nil
}

// ApproveCommission is the manual admin path for entries below the
// auto-approval threshold. Approving an already-approved entry is a no-op.
func (s *CommissionService) ApproveCommission(entryID uuid.UUID, now time.Time) (*models.CommissionEntry, error) {
	entry, err := s.getEntry(entryID)
	if err != nil {
		return nil, err
	}

	switch entry.Status {
	case models.CommissionStatusApproved:
		return entry, nil
	case models.CommissionStatusPending:
	default:
		return nil, fmt.Errorf("%w: cannot approve a %s commission", ErrInvalidStateTransition, entry.Status)
	}

	entry.Status = models.CommissionStatusApproved
	entry.ApprovedAt = &now
	if err := s.db.Save(entry).Error; err != nil {
		return nil, fmt.Errorf("failed to approve commission: %w", err)
	}
	return entry, nil
}

// RejectCommission marks an entry rejected (e.g. the order was refunded).
// Terminal: a rejected amount is never released into a payout. Paid entries
// and entries reserved by an open payout request cannot be rejected.
func (s *CommissionService) RejectCommission(entryID uuid.UUID, reason string) (*models.CommissionEntry, error) {
	entry, err := s.getEntry(entryID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(entry.AffiliateID)
	defer unlock()

	// Re-read under the lock; a payout may have settled it meanwhile.
	entry, err = s.getEntry(entryID)
	if err != nil {
		return nil, err
	}

	switch entry.Status {
	case models.CommissionStatusPending, models.CommissionStatusApproved:
	default:
		return nil, fmt.Errorf("%w: cannot reject a %s commission", ErrInvalidStateTransition, entry.Status)
	}
	if entry.Status == models.CommissionStatusApproved && entry.PayoutRequestID != nil {
		return nil, fmt.Errorf("%w: commission is reserved by an open payout request", ErrInvalidStateTransition)
	}

	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		entry.Status = models.CommissionStatusRejected
		entry.RejectReason = reason
		if err := tx.Save(entry).Error; err != nil {
			return err
		}
		return tx.Model(&models.Affiliate{}).
			Where("id = ?", entry.AffiliateID).
			Update("total_commissions", gorm.Expr("total_commissions - ?", entry.CommissionAmount)).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reject commission: %w", err)
	}
	return entry, nil
}

func (s *CommissionService) getEntry(entryID uuid.UUID) (*models.CommissionEntry, error) {
	var entry models.CommissionEntry
	if err := s.db.First(&entry, "id = ?", entryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load commission entry: %w", err)
	}
	return &entry, nil
}

func (s *CommissionService) findEntry(affiliateID uuid.UUID, orderID string) (*models.CommissionEntry, error) {
	var entry models.CommissionEntry
	err := s.db.Where("affiliate_id = ? AND order_id = ?", affiliateID, orderID).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up commission entry: %w", err)
	}
	return &entry, nil
}

// computeCommission resolves the effective reward policy (affiliate override,
// else global default) and rounds the result to 2 decimal places half-up,
// once, at computation time.
func computeCommission(affiliate *models.Affiliate, settings *models.AffiliateSettings, orderAmount decimal.Decimal) (models.RewardType, decimal.Decimal, decimal.Decimal) {
	rewardType := settings.DefaultRewardType
	if affiliate.RewardType != nil {
		rewardType = *affiliate.RewardType
	}

	if rewardType == models.RewardTypeFixed {
		value := settings.DefaultFixedAmount
		if affiliate.FixedAmount != nil {
			value = *affiliate.FixedAmount
		}
		return rewardType, value, value.Round(2)
	}

	rate := settings.DefaultCommissionRate
	if affiliate.CommissionRate != nil {
		rate = *affiliate.CommissionRate
	}
	amount := orderAmount.Mul(rate).Div(decimal.NewFromInt(100)).Round(2)
	return rewardType, rate, amount
}
