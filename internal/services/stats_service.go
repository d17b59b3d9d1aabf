// internal/services/stats_service.go
package services

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tabvault/storefront-backend/internal/models"
	"github.com/tabvault/storefront-backend/internal/utils"
)

// StatsService is the read-only query surface over the ledger: dashboard
// balances, admin aggregates, rankings and listings. Pure projections, no
// new invariants.
type StatsService struct {
	db *gorm.DB
}

type AffiliateBalance struct {
	PendingCommission  decimal.Decimal `json:"pending_commission"`
	ApprovedCommission decimal.Decimal `json:"approved_commission"`
	ReservedByPayouts  decimal.Decimal `json:"reserved_by_payouts"`
	AvailableForPayout decimal.Decimal `json:"available_for_payout"`
	PaidCommission     decimal.Decimal `json:"paid_commission"`
}

type AffiliateDashboard struct {
	Affiliate *models.Affiliate      `json:"affiliate"`
	Balance   AffiliateBalance       `json:"balance"`
	Payouts   []models.PayoutRequest `json:"recent_payouts"`
}

type AdminStats struct {
	TotalAffiliates      int64           `json:"total_affiliates"`
	TotalReferredOrders  int64           `json:"total_referred_orders"`
	PendingCommissions   int64           `json:"pending_commissions"`
	PendingCommissionSum decimal.Decimal `json:"pending_commission_sum"`
	ApprovedCommissions  int64           `json:"approved_commissions"`
	PaidCommissionSum    decimal.Decimal `json:"paid_commission_sum"`
	PendingPayouts       int64           `json:"pending_payouts"`
	PendingPayoutSum     decimal.Decimal `json:"pending_payout_sum"`
}

func NewStatsService(db *gorm.DB) *StatsService {
	return &StatsService{db: db}
}

func (s *StatsService) GetAffiliateBalance(affiliateID uuid.UUID) (*AffiliateBalance, error) {
	balance := &AffiliateBalance{}

	sums := []struct {
		status models.CommissionStatus
		target *decimal.Decimal
	}{
		{models.CommissionStatusPending, &balance.PendingCommission},
		{models.CommissionStatusApproved, &balance.ApprovedCommission},
		{models.CommissionStatusPaid, &balance.PaidCommission},
	}
	for _, row := range sums {
		if err := s.sumCommissions(affiliateID, row.status, row.target); err != nil {
			return nil, err
		}
	}

	var reserved decimal.NullDecimal
	err := s.db.Model(&models.CommissionEntry{}).
		Where("affiliate_id = ? AND status = ? AND payout_request_id IS NOT NULL",
			affiliateID, models.CommissionStatusApproved).
		Select("COALESCE(SUM(commission_amount), 0)").
		Scan(&reserved).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum reserved commissions: %w", err)
	}
	balance.ReservedByPayouts = reserved.Decimal
	balance.AvailableForPayout = balance.ApprovedCommission.Sub(balance.ReservedByPayouts)

	return balance, nil
}

func (s *StatsService) sumCommissions(affiliateID uuid.UUID, status models.CommissionStatus, target *decimal.Decimal) error {
	var sum decimal.NullDecimal
	err := s.db.Model(&models.CommissionEntry{}).
		Where("affiliate_id = ? AND status = ?", affiliateID, status).
		Select("COALESCE(SUM(commission_amount), 0)").
		Scan(&sum).Error
	if err != nil {
		return fmt.Errorf("failed to sum %s commissions: %w", status, err)
	}
	*target = sum.Decimal
	return nil
}

func (s *StatsService) GetAffiliateDashboard(affiliate *models.Affiliate) (*AffiliateDashboard, error) {
	balance, err := s.GetAffiliateBalance(affiliate.ID)
	if err != nil {
		return nil, err
	}

	var payouts []models.PayoutRequest
	err = s.db.Where("affiliate_id = ?", affiliate.ID).
		Order("requested_at DESC").
		Limit(10).
		Find(&payouts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load recent payouts: %w", err)
	}

	return &AffiliateDashboard{
		Affiliate: affiliate,
		Balance:   *balance,
		Payouts:   payouts,
	}, nil
}

func (s *StatsService) GetAdminStats() (*AdminStats, error) {
	stats := &AdminStats{}

	if err := s.db.Model(&models.Affiliate{}).Count(&stats.TotalAffiliates).Error; err != nil {
		return nil, fmt.Errorf("failed to count affiliates: %w", err)
	}
	if err := s.db.Model(&models.CommissionEntry{}).Count(&stats.TotalReferredOrders).Error; err != nil {
		return nil, fmt.Errorf("failed to count commission entries: %w", err)
	}

	counts := []struct {
		status models.CommissionStatus
		count  *int64
		sum    *decimal.Decimal
	}{
		{models.CommissionStatusPending, &stats.PendingCommissions, &stats.PendingCommissionSum},
		{models.CommissionStatusApproved, &stats.ApprovedCommissions, nil},
		{models.CommissionStatusPaid, nil, &stats.PaidCommissionSum},
	}
	for _, row := range counts {
		query := s.db.Model(&models.CommissionEntry{}).Where("status = ?", row.status)
		if row.count != nil {
			if err := query.Count(row.count).Error; err != nil {
				return nil, fmt.Errorf("failed to count %s commissions: %w", row.status, err)
			}
		}
		if row.sum != nil {
			var sum decimal.NullDecimal
			err := s.db.Model(&models.CommissionEntry{}).
				Where("status = ?", row.status).
				Select("COALESCE(SUM(commission_amount), 0)").
				Scan(&sum).Error
			if err != nil {
				return nil, fmt.Errorf("failed to sum %s commissions: %w", row.status, err)
			}
			*row.sum = sum.Decimal
		}
	}

	err := s.db.Model(&models.PayoutRequest{}).
		Where("status = ?", models.PayoutStatusPending).
		Count(&stats.PendingPayouts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count pending payouts: %w", err)
	}

	var payoutSum decimal.NullDecimal
	err = s.db.Model(&models.PayoutRequest{}).
		Where("status = ?", models.PayoutStatusPending).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&payoutSum).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum pending payouts: %w", err)
	}
	stats.PendingPayoutSum = payoutSum.Decimal

	return stats, nil
}

func (s *StatsService) GetTopAffiliates(limit int) ([]models.Affiliate, error) {
	if limit < 1 || limit > 100 {
		limit = 10
	}

	var affiliates []models.Affiliate
	err := s.db.Preload("User").
		Order("total_earnings DESC, total_referrals DESC").
		Limit(limit).
		Find(&affiliates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load top affiliates: %w", err)
	}
	return affiliates, nil
}

func (s *StatsService) ListCommissions(affiliateID *uuid.UUID, status string, params utils.PaginationParams) ([]models.CommissionEntry, int64, error) {
	query := s.db.Model(&models.CommissionEntry{})
	if affiliateID != nil {
		query = query.Where("affiliate_id = ?", *affiliateID)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count commissions: %w", err)
	}

	allowedSortFields := []string{"created_at", "order_amount", "commission_amount", "status"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var entries []models.CommissionEntry
	if err := query.Find(&entries).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch commissions: %w", err)
	}
	return entries, total, nil
}

func (s *StatsService) ListPayouts(affiliateID *uuid.UUID, status string, params utils.PaginationParams) ([]models.PayoutRequest, int64, error) {
	query := s.db.Model(&models.PayoutRequest{})
	if affiliateID != nil {
		query = query.Where("affiliate_id = ?", *affiliateID)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count payouts: %w", err)
	}

	allowedSortFields := []string{"requested_at", "amount", "status"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var payouts []models.PayoutRequest
	if err := query.Find(&payouts).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch payouts: %w", err)
	}
	return payouts, total, nil
}
