// internal/services/affiliate_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tabvault/storefront-backend/internal/models"
	"github.com/tabvault/storefront-backend/internal/utils"
)

// AffiliateService manages affiliate enrollment and lookups.
type AffiliateService struct {
	db *gorm.DB
}

func NewAffiliateService(db *gorm.DB) *AffiliateService {
	return &AffiliateService{db: db}
}

// JoinProgram enrolls a customer as an affiliate. Idempotent: a customer has
// at most one affiliate record, and joining twice returns the existing one.
func (s *AffiliateService) JoinProgram(userID uuid.UUID) (*models.Affiliate, error) {
	var affiliate models.Affiliate
	err := s.db.Where("user_id = ?", userID).First(&affiliate).Error
	if err == nil {
		return &affiliate, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up affiliate: %w", err)
	}

	// Retry on the rare referral-code collision.
	for attempt := 0; attempt < 3; attempt++ {
		affiliate = models.Affiliate{
			UserID:       userID,
			ReferralCode: utils.GenerateReferralCode(),
		}
		err = s.db.Create(&affiliate).Error
		if err == nil {
			return &affiliate, nil
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Either the code collided or a concurrent join won; prefer the
			// existing record when one exists for this user.
			var existing models.Affiliate
			if lookupErr := s.db.Where("user_id = ?", userID).First(&existing).Error; lookupErr == nil {
				return &existing, nil
			}
			continue
		}
		return nil, fmt.Errorf("failed to create affiliate: %w", err)
	}

	return nil, fmt.Errorf("failed to create affiliate: %w", err)
}

func (s *AffiliateService) GetByUserID(userID uuid.UUID) (*models.Affiliate, error) {
	var affiliate models.Affiliate
	if err := s.db.Where("user_id = ?", userID).First(&affiliate).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to look up affiliate: %w", err)
	}
	return &affiliate, nil
}

func (s *AffiliateService) GetByID(id uuid.UUID) (*models.Affiliate, error) {
	var affiliate models.Affiliate
	if err := s.db.First(&affiliate, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to look up affiliate: %w", err)
	}
	return &affiliate, nil
}

// SetSuspended flips the suspension flag consulted before attribution.
func (s *AffiliateService) SetSuspended(id uuid.UUID, suspended bool) (*models.Affiliate, error) {
	affiliate, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	affiliate.Suspended = suspended
	if err := s.db.Save(affiliate).Error; err != nil {
		return nil, fmt.Errorf("failed to update affiliate: %w", err)
	}
	return affiliate, nil
}
