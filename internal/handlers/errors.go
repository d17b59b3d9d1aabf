// internal/handlers/errors.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/tabvault/storefront-backend/internal/services"
	"github.com/tabvault/storefront-backend/internal/utils"
)

// serviceErrorResponse maps the engine's typed failures onto HTTP statuses.
// Everything here is a policy violation scoped to one request; transient
// persistence failures surface as 500 and are the caller's retry.
func serviceErrorResponse(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		utils.NotFoundResponse(c, "Record")
	case errors.Is(err, services.ErrInvalidReferralCode):
		utils.UnprocessableResponse(c, "INVALID_REFERRAL_CODE", err.Error())
	case errors.Is(err, services.ErrInvalidStateTransition):
		utils.ConflictResponse(c, err.Error())
	case errors.Is(err, services.ErrInsufficientBalance):
		utils.UnprocessableResponse(c, "INSUFFICIENT_BALANCE", err.Error())
	case errors.Is(err, services.ErrBelowMinimumPayout):
		utils.UnprocessableResponse(c, "BELOW_MINIMUM_PAYOUT", err.Error())
	case errors.Is(err, services.ErrInvalidPaymentDetails):
		utils.UnprocessableResponse(c, "INVALID_PAYMENT_DETAILS", err.Error())
	case errors.Is(err, services.ErrValidation):
		utils.BadRequestResponse(c, err.Error(), nil)
	default:
		utils.InternalErrorResponse(c, err.Error())
	}
}
