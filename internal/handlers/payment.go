// internal/handlers/payment.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/imagestore/image-store-backend/internal/services"
	"github.com/imagestore/image-store-backend/internal/utils"
)

type PaymentHandler struct {
	checkoutService *services.CheckoutService
}

func NewPaymentHandler(checkoutService *services.CheckoutService) *PaymentHandler {
	return &PaymentHandler{
		checkoutService: checkoutService,
	}
}

// POST /api/payment/create-checkout-session
// Works for both anonymous and authenticated callers; authenticated callers
// get the transaction appended to their history.
func (h *PaymentHandler) CreateCheckoutSession(c *gin.Context) {
	// A bad token is an auth failure, not an anonymous checkout.
	if c.GetHeader("Authorization") != "" {
		if _, ok := callerID(c); !ok {
			utils.UnauthorizedResponse(c, "Invalid or expired token")
			return
		}
	}

	var req services.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	var caller *uuid.UUID
	if id, ok := callerID(c); ok {
		caller = &id
	}

	resp, err := h.checkoutService.CreateSession(&req, caller)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrImageNotFound):
			utils.NotFoundResponse(c, "Image")
		case errors.Is(err, services.ErrUserNotFound):
			utils.NotFoundResponse(c, "User")
		default:
			utils.InternalErrorResponse(c, "Failed to create checkout session")
		}
		return
	}

	utils.SuccessResponse(c, resp)
}
