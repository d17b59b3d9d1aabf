// internal/handlers/admin.go
package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tabvault/storefront-backend/internal/services"
	"github.com/tabvault/storefront-backend/internal/utils"
)

// AdminHandler is the affiliate-program side of the admin console: reward
// policy settings, the commission approval queue and payout processing.
type AdminHandler struct {
	settingsService   *services.SettingsService
	commissionService *services.CommissionService
	payoutService     *services.PayoutService
	affiliateService  *services.AffiliateService
	statsService      *services.StatsService
}

type RejectCommissionBody struct {
	Reason string `json:"reason" validate:"required,max=255"`
}

type ApprovePayoutBody struct {
	TransactionID string `json:"transaction_id" validate:"max=255"`
}

type SuspendAffiliateBody struct {
	Suspended bool `json:"suspended"`
}

func NewAdminHandler(settingsService *services.SettingsService, commissionService *services.CommissionService, payoutService *services.PayoutService, affiliateService *services.AffiliateService, statsService *services.StatsService) *AdminHandler {
	return &AdminHandler{
		settingsService:   settingsService,
		commissionService: commissionService,
		payoutService:     payoutService,
		affiliateService:  affiliateService,
		statsService:      statsService,
	}
}

func parseIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid id", nil)
		return uuid.Nil, false
	}
	return id, true
}

// GET /admin/affiliate-settings
func (h *AdminHandler) GetSettings(c *gin.Context) {
	settings, err := h.settingsService.GetSettings()
	if err != nil {
		serviceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"settings": settings,
	})
}

// PUT /admin/affiliate-settings
func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	var req services.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	settings, err := h.settingsService.UpdateSettings(&req)
	if err != nil {
		serviceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"settings": settings,
	})
}

// GET /admin/commissions
func (h *AdminHandler) GetCommissions(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	entries, total, err := h.statsService.ListCommissions(nil, params.Status, params)
	if err != nil {
		serviceErrorResponse(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(entries, total, params))
}

// PUT /admin/commissions/:id/approve
func (h *AdminHandler) ApproveCommission(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	entry, err := h.commissionService.ApproveCommission(id, time.Now())
	if err != nil {
		serviceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"commission": entry,
	})
}

// PUT /admin/commissions/:id/reject
func (h *AdminHandler) RejectCommission(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req RejectCommissionBody
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	entry, err := h.commissionService.RejectCommission(id, req.Reason)
	if err != nil {
		serviceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"commission": entry,
	})
}

// POST /admin/commissions/auto-approve
func (h *AdminHandler) RunAutoApproval(c *gin.Context) {
	count, err := h.commissionService.AutoApproveCommissions(time.Now())
	if err != nil {
		serviceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"approved": count,
	})
}

// GET /admin/payouts
func (h *AdminHandler) GetPayouts(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	payouts, total, err := h.statsService.ListPayouts(nil, params.Status, params)
	if err != nil {
		serviceErrorResponse(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(payouts, total, params))
}

// PUT /admin/payouts/:id/approve
func (h *AdminHandler) ApprovePayout(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req ApprovePayoutBody
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	payout, err := h.payoutService.ApprovePayout(id, req.TransactionID, time.Now())
	if err != nil {
		serviceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"payout": payout,
	})
}

// PUT /admin/payouts/:id/reject
func (h *AdminHandler) RejectPayout(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	payout, err := h.payoutService.RejectPayout(id, time.Now())
	if err != nil {
		serviceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"payout": payout,
	})
}

// PUT /admin/affiliates/:id/suspend
func (h *AdminHandler) SuspendAffiliate(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}

	var req SuspendAffiliateBody
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	affiliate, err := h.affiliateService.SetSuspended(id, req.Suspended)
	if err != nil {
		serviceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"affiliate": affiliate,
	})
}

// GET /admin/stats
func (h *AdminHandler) GetStats(c *gin.Context) {
	stats, err := h.statsService.GetAdminStats()
	if err != nil {
		serviceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"stats": stats,
	})
}

// GET /admin/affiliates/top
func (h *AdminHandler) GetTopAffiliates(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	affiliates, err := h.statsService.GetTopAffiliates(limit)
	if err != nil {
		serviceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"affiliates": affiliates,
	})
}
