// internal/handlers/webhook.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74/webhook"

	"github.com/imagestore/image-store-backend/internal/config"
	"github.com/imagestore/image-store-backend/internal/services"
)

type WebhookHandler struct {
	checkoutService *services.CheckoutService
	cfg             *config.Config
}

func NewWebhookHandler(checkoutService *services.CheckoutService, cfg *config.Config) *WebhookHandler {
	return &WebhookHandler{
		checkoutService: checkoutService,
		cfg:             cfg,
	}
}

// POST /api/webhook
// Signature failures return 400 before any state changes. Store failures
// return 500 so the provider redelivers; everything else acknowledges with a
// bare 200.
func (h *WebhookHandler) HandleWebhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	event, err := webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), h.cfg.Payment.StripeWebhookSecret)
	if err != nil {
		logrus.WithError(err).Warn("Webhook signature verification failed")
		c.Status(http.StatusBadRequest)
		return
	}

	if err := h.checkoutService.HandleEvent(event); err != nil {
		logrus.WithError(err).WithField("event_id", event.ID).Error("Webhook processing failed")
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Status(http.StatusOK)
}
