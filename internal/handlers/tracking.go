// internal/handlers/tracking.go
package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/webhook"

	"github.com/tabvault/storefront-backend/internal/config"
	"github.com/tabvault/storefront-backend/internal/services"
	"github.com/tabvault/storefront-backend/internal/utils"
)

// TrackingHandler ingests the two external feeds: referral clicks from page
// routing and order completions from the payment collaborator.
type TrackingHandler struct {
	attributionService *services.AttributionService
	commissionService  *services.CommissionService
	config             *config.Config
}

type RecordVisitRequest struct {
	ReferralCode string `json:"referral_code" validate:"required,referral_code"`
	SubjectID    string `json:"subject_id" validate:"required,min=8,max=64"`
}

type CompleteOrderRequest struct {
	OrderID     string          `json:"order_id" validate:"required,max=64"`
	OrderAmount decimal.Decimal `json:"order_amount"`
	SubjectID   string          `json:"subject_id" validate:"required,min=8,max=64"`
}

func NewTrackingHandler(attributionService *services.AttributionService, commissionService *services.CommissionService, cfg *config.Config) *TrackingHandler {
	return &TrackingHandler{
		attributionService: attributionService,
		commissionService:  commissionService,
		config:             cfg,
	}
}

// POST /track/visit
func (h *TrackingHandler) RecordVisit(c *gin.Context) {
	var req RecordVisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	attribution, err := h.attributionService.RecordVisit(req.ReferralCode, req.SubjectID, time.Now())
	if err != nil {
		serviceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"attribution": attribution,
	})
}

// POST /orders/complete
func (h *TrackingHandler) CompleteOrder(c *gin.Context) {
	var req CompleteOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}
	if !req.OrderAmount.IsPositive() {
		utils.BadRequestResponse(c, "Order amount must be positive", nil)
		return
	}

	entry, err := h.commissionService.RecordOrderCommission(req.OrderID, req.OrderAmount, req.SubjectID, time.Now())
	if err != nil {
		serviceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"commission": entry,
	})
}

// POST /webhooks/stripe
//
// Stripe retries deliveries until acknowledged, so the commission path must
// be (and is) idempotent on the order id.
func (h *TrackingHandler) StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		utils.BadRequestResponse(c, "Failed to read payload", nil)
		return
	}

	event, err := webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), h.config.Payment.StripeWebhookSecret)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid webhook signature", nil)
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			utils.BadRequestResponse(c, "Malformed checkout session", nil)
			return
		}

		subjectID := session.ClientReferenceID
		if subjectID == "" {
			subjectID = session.Metadata["subject_id"]
		}
		if subjectID == "" {
			// Not a tracked purchase; acknowledge and move on.
			break
		}

		amount := decimal.New(session.AmountTotal, -2)
		if _, err := h.commissionService.RecordOrderCommission(session.ID, amount, subjectID, time.Now()); err != nil {
			logrus.WithError(err).WithField("order_id", session.ID).Error("Failed to record webhook commission")
			utils.InternalErrorResponse(c, "Failed to record commission")
			return
		}

	default:
		logrus.WithField("type", event.Type).Debug("Ignoring stripe event")
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
