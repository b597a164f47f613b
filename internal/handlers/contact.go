// internal/handlers/contact.go
package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/imagestore/image-store-backend/internal/config"
	"github.com/imagestore/image-store-backend/internal/mail"
	"github.com/imagestore/image-store-backend/internal/utils"
)

type ContactHandler struct {
	mailer mail.Mailer
	cfg    *config.Config
}

type ContactRequest struct {
	Name    string `json:"name" validate:"required,min=1,max=100"`
	Email   string `json:"email" validate:"required,email"`
	Message string `json:"message" validate:"required,min=1,max=5000"`
}

func NewContactHandler(mailer mail.Mailer, cfg *config.Config) *ContactHandler {
	return &ContactHandler{
		mailer: mailer,
		cfg:    cfg,
	}
}

// POST /api/contact
// Sends the message to the contact inbox and a copy back to the submitter.
func (h *ContactHandler) SubmitContact(c *gin.Context) {
	var req ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	body := fmt.Sprintf("From: %s <%s>\n\n%s", req.Name, req.Email, req.Message)
	if err := h.mailer.Send(&mail.Message{
		To:      h.cfg.Email.ContactEmail,
		Subject: "Contact form: " + req.Name,
		Body:    body,
	}); err != nil {
		logrus.WithError(err).Error("Failed to deliver contact message")
		utils.InternalErrorResponse(c, "Failed to send message")
		return
	}

	// The copy to the submitter is best effort.
	if err := h.mailer.Send(&mail.Message{
		To:      req.Email,
		Subject: "We received your message",
		Body:    "Thanks for reaching out! Here is a copy of your message:\n\n" + req.Message,
	}); err != nil {
		logrus.WithError(err).Warn("Failed to send contact copy to submitter")
	}

	utils.SuccessResponse(c, gin.H{"sent": true})
}
