// internal/services/attribution_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tabvault/storefront-backend/internal/database"
	"github.com/tabvault/storefront-backend/internal/models"
)

// AttributionService converts referral clicks into time-bounded attribution
// records. Policy: first attribution wins; a visit carrying a different
// referral code never overwrites an unexpired attribution.
type AttributionService struct {
	db       *gorm.DB
	settings *SettingsService
}

func NewAttributionService(db *gorm.DB, settings *SettingsService) *AttributionService {
	return &AttributionService{db: db, settings: settings}
}

// RecordVisit handles the referral click feed. When the subject already has
// an active attribution the call is a no-op and returns the existing record;
// that is normal operation, not an error.
func (s *AttributionService) RecordVisit(referralCode, subjectID string, now time.Time) (*models.Attribution, error) {
	var affiliate models.Affiliate
	err := s.db.Where("referral_code = ? AND suspended = ?", referralCode, false).
		First(&affiliate).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidReferralCode
		}
		return nil, fmt.Errorf("failed to resolve referral code: %w", err)
	}

	settings, err := s.settings.GetSettings()
	if err != nil {
		return nil, err
	}

	var attribution models.Attribution
	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var existing models.Attribution
		err := tx.Where("subject_id = ? AND expires_at > ?", subjectID, now).
			Order("created_at ASC").
			First(&existing).Error
		if err == nil {
			// First attribution wins.
			attribution = existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		attribution = models.Attribution{
			AffiliateID: affiliate.ID,
			SubjectID:   subjectID,
			ExpiresAt:   now.AddDate(0, 0, settings.CookieLifetimeDays),
		}
		attribution.CreatedAt = now
		return tx.Create(&attribution).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record visit: %w", err)
	}

	return &attribution, nil
}

// ResolveAttribution returns the affiliate credited for the subject's active
// attribution, or nil when none exists. Called once per completed order, at
// completion time.
func (s *AttributionService) ResolveAttribution(subjectID string, now time.Time) (*models.Affiliate, error) {
	var attribution models.Attribution
	err := s.db.Preload("Affiliate").
		Where("subject_id = ? AND expires_at > ?", subjectID, now).
		Order("created_at ASC").
		First(&attribution).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve attribution: %w", err)
	}

	return &attribution.Affiliate, nil
}
