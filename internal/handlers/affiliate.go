// internal/handlers/affiliate.go
package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tabvault/storefront-backend/internal/models"
	"github.com/tabvault/storefront-backend/internal/services"
	"github.com/tabvault/storefront-backend/internal/utils"
)

// AffiliateHandler serves the affiliate self-service dashboard.
type AffiliateHandler struct {
	affiliateService *services.AffiliateService
	payoutService    *services.PayoutService
	statsService     *services.StatsService
}

type RequestPayoutBody struct {
	Amount         decimal.Decimal `json:"amount"`
	PaymentMethod  string          `json:"payment_method" validate:"required,oneof=paypal bank"`
	PaymentDetails models.JSONB    `json:"payment_details" validate:"required"`
}

func NewAffiliateHandler(affiliateService *services.AffiliateService, payoutService *services.PayoutService, statsService *services.StatsService) *AffiliateHandler {
	return &AffiliateHandler{
		affiliateService: affiliateService,
		payoutService:    payoutService,
		statsService:     statsService,
	}
}

func (h *AffiliateHandler) currentUserID(c *gin.Context) (uuid.UUID, bool) {
	userIDStr, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return uuid.Nil, false
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid user ID", nil)
		return uuid.Nil, false
	}
	return userID, true
}

func (h *AffiliateHandler) currentAffiliate(c *gin.Context) (*models.Affiliate, bool) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return nil, false
	}

	affiliate, err := h.affiliateService.GetByUserID(userID)
	if err != nil {
		serviceErrorResponse(c, err)
		return nil, false
	}
	return affiliate, true
}

// POST /affiliate/join
func (h *AffiliateHandler) JoinProgram(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	affiliate, err := h.affiliateService.JoinProgram(userID)
	if err != nil {
		serviceErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"affiliate": affiliate,
	})
}

// GET /affiliate/dashboard
func (h *AffiliateHandler) GetDashboard(c *gin.Context) {
	affiliate, ok := h.currentAffiliate(c)
	if !ok {
		return
	}

	dashboard, err := h.statsService.GetAffiliateDashboard(affiliate)
	if err != nil {
		serviceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, dashboard)
}

// GET /affiliate/commissions
func (h *AffiliateHandler) GetCommissions(c *gin.Context) {
	affiliate, ok := h.currentAffiliate(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	entries, total, err := h.statsService.ListCommissions(&affiliate.ID, params.Status, params)
	if err != nil {
		serviceErrorResponse(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(entries, total, params))
}

// GET /affiliate/payouts
func (h *AffiliateHandler) GetPayouts(c *gin.Context) {
	affiliate, ok := h.currentAffiliate(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	payouts, total, err := h.statsService.ListPayouts(&affiliate.ID, params.Status, params)
	if err != nil {
		serviceErrorResponse(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(payouts, total, params))
}

// POST /affiliate/payouts
func (h *AffiliateHandler) RequestPayout(c *gin.Context) {
	affiliate, ok := h.currentAffiliate(c)
	if !ok {
		return
	}

	var req RequestPayoutBody
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	payout, err := h.payoutService.RequestPayout(affiliate.ID, req.Amount,
		models.PaymentMethod(req.PaymentMethod), req.PaymentDetails, time.Now())
	if err != nil {
		serviceErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"payout": payout,
	})
}
