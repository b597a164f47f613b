// internal/services/checkout_service.go
package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/checkout/session"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/imagestore/image-store-backend/internal/config"
	"github.com/imagestore/image-store-backend/internal/events"
	"github.com/imagestore/image-store-backend/internal/mail"
	"github.com/imagestore/image-store-backend/internal/models"
	"github.com/imagestore/image-store-backend/internal/storage"
	"github.com/imagestore/image-store-backend/internal/utils"
)

var ErrUserNotFound = errors.New("user not found")

// CheckoutService owns the order lifecycle: session creation and the
// webhook-driven state machine "pending payment" -> Completed | canceled.
// The external session id is the idempotency key for every transition.
type CheckoutService struct {
	db        *gorm.DB
	cfg       *config.Config
	store     *storage.Store
	mailer    mail.Mailer
	publisher *events.Publisher
}

type CreateSessionRequest struct {
	ImageIDs []string `json:"imageIds" validate:"required,min=1,dive,required"`
	Email    string   `json:"email" validate:"omitempty,email"`
}

type CreateSessionResponse struct {
	SessionID string `json:"id"`
}

func NewCheckoutService(db *gorm.DB, cfg *config.Config, store *storage.Store, mailer mail.Mailer, publisher *events.Publisher) *CheckoutService {
	// Initialize Stripe
	stripe.Key = cfg.Payment.StripeSecretKey

	return &CheckoutService{
		db:        db,
		cfg:       cfg,
		store:     store,
		mailer:    mailer,
		publisher: publisher,
	}
}

// PriceInCents converts a decimal price to integer minor-currency units,
// rounded to the nearest cent.
func PriceInCents(price float64) int64 {
	return int64(math.Round(price * 100))
}

// CreateSession resolves the requested entries, opens an external payment
// session with a bounded expiry, and inserts the pending transaction. When a
// caller identity is present the new transaction id is appended to that
// user's history.
func (s *CheckoutService) CreateSession(req *CreateSessionRequest, callerID *uuid.UUID) (*CreateSessionResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var images []models.Image
	if err := s.db.Where("id IN ?", req.ImageIDs).Find(&images).Error; err != nil {
		return nil, fmt.Errorf("failed to resolve images: %w", err)
	}
	if len(images) != len(req.ImageIDs) {
		return nil, ErrImageNotFound
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          s.buildLineItems(images),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		ExpiresAt:          stripe.Int64(time.Now().Add(time.Duration(s.cfg.Payment.SessionTTLMinutes) * time.Minute).Unix()),
		SuccessURL:         stripe.String(s.cfg.Payment.SuccessURL),
		CancelURL:          stripe.String(s.cfg.Payment.CancelURL),
	}

	sess, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	txn := &models.Transaction{
		SessionID: sess.ID,
		Price:     float64(sess.AmountSubtotal) / 100,
		Items:     models.StringList(req.ImageIDs),
		Status:    models.TransactionStatusPending,
		Email:     req.Email,
	}
	if err := s.db.Create(txn).Error; err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	if callerID != nil {
		if err := s.appendToHistory(*callerID, txn.ID.String()); err != nil {
			return nil, err
		}
	}

	return &CreateSessionResponse{SessionID: sess.ID}, nil
}

func (s *CheckoutService) buildLineItems(images []models.Image) []*stripe.CheckoutSessionLineItemParams {
	items := make([]*stripe.CheckoutSessionLineItemParams, 0, len(images))
	for _, img := range images {
		items = append(items, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(s.cfg.Payment.Currency),
				UnitAmount: stripe.Int64(PriceInCents(img.Price)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripe.String(img.Title),
					Description: stripe.String(img.Description),
					Images:      stripe.StringSlice([]string{s.store.PublicURL(img.WatermarkedLocation)}),
				},
			},
			Quantity: stripe.Int64(1),
		})
	}
	return items
}

func (s *CheckoutService) appendToHistory(userID uuid.UUID, txnID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to load user: %w", err)
		}

		user.Transactions = append(user.Transactions, txnID)
		if err := tx.Model(&user).Update("transactions", user.Transactions).Error; err != nil {
			return fmt.Errorf("failed to append transaction to history: %w", err)
		}
		return nil
	})
}

// HandleEvent is the single entry point for authenticated provider events.
// Unrecognized kinds are acknowledged and ignored.
func (s *CheckoutService) HandleEvent(event stripe.Event) error {
	s.recordEvent(event)

	switch event.Type {
	case "checkout.session.completed":
		sess, err := parseSession(event)
		if err != nil {
			return err
		}
		email := ""
		if sess.CustomerDetails != nil {
			email = sess.CustomerDetails.Email
		}
		return s.CompleteSession(sess.ID, email)

	case "checkout.session.expired":
		sess, err := parseSession(event)
		if err != nil {
			return err
		}
		return s.ExpireSession(sess.ID)

	default:
		logrus.WithField("event_type", event.Type).Debug("Ignoring unhandled event type")
		return nil
	}
}

func parseSession(event stripe.Event) (*stripe.CheckoutSession, error) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("failed to parse checkout session payload: %w", err)
	}
	return &sess, nil
}

func (s *CheckoutService) recordEvent(event stripe.Event) {
	sessionID := ""
	if sess, err := parseSession(event); err == nil {
		sessionID = sess.ID
	}

	now := time.Now()
	record := &models.WebhookEvent{
		ProviderEventID: event.ID,
		EventType:       string(event.Type),
		SessionID:       sessionID,
		ProcessedAt:     &now,
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider_event_id"}},
		DoNothing: true,
	}).Create(record).Error
	if err != nil {
		logrus.WithError(err).WithField("event_id", event.ID).Warn("Failed to record webhook event")
	}
}

// CompleteSession moves the matching transaction to Completed and fulfills
// the order. Redelivery is safe: the conditional transition applies only
// while the transaction is still pending, so the fulfillment mail goes out
// at most once. An unknown session id is a logged no-op.
func (s *CheckoutService) CompleteSession(sessionID, email string) error {
	txn, transitioned, err := s.transition(sessionID, models.TransactionStatusCompleted)
	if err != nil {
		return err
	}
	if !transitioned {
		return nil
	}

	if txn.Email == "" && email != "" {
		if err := s.db.Model(txn).Update("email", email).Error; err != nil {
			logrus.WithError(err).WithField("session_id", sessionID).Warn("Failed to backfill buyer email")
		} else {
			txn.Email = email
		}
	}

	// Status is already terminal; mail and event delivery failures must not
	// surface to the provider.
	s.fulfill(txn)

	if err := s.publisher.PublishOrder(orderEvent(txn)); err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Warn("Failed to publish order event")
	}
	return nil
}

// ExpireSession moves the matching transaction to canceled. No mail is sent.
func (s *CheckoutService) ExpireSession(sessionID string) error {
	txn, transitioned, err := s.transition(sessionID, models.TransactionStatusCanceled)
	if err != nil {
		return err
	}
	if !transitioned {
		return nil
	}

	if err := s.publisher.PublishOrder(orderEvent(txn)); err != nil {
		logrus.WithError(err).WithField("session_id", sessionID).Warn("Failed to publish order event")
	}
	return nil
}

// transition atomically applies pending -> status. It reports false for both
// unknown session ids and already-terminal transactions; duplicate
// deliveries cannot race past the conditional update.
func (s *CheckoutService) transition(sessionID string, status models.TransactionStatus) (*models.Transaction, bool, error) {
	res := s.db.Model(&models.Transaction{}).
		Where("session_id = ? AND status = ?", sessionID, models.TransactionStatusPending).
		Update("status", status)
	if res.Error != nil {
		return nil, false, fmt.Errorf("failed to transition transaction: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		var txn models.Transaction
		err := s.db.First(&txn, "session_id = ?", sessionID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			logrus.WithField("session_id", sessionID).Warn("Webhook event for unknown session, ignoring")
		case err != nil:
			return nil, false, fmt.Errorf("failed to look up transaction: %w", err)
		default:
			logrus.WithFields(logrus.Fields{
				"session_id": sessionID,
				"status":     txn.Status,
			}).Info("Transaction already terminal, skipping")
		}
		return nil, false, nil
	}

	var txn models.Transaction
	if err := s.db.First(&txn, "session_id = ?", sessionID).Error; err != nil {
		return nil, false, fmt.Errorf("failed to reload transaction: %w", err)
	}
	return &txn, true, nil
}

// fulfill emails the purchased raw assets to the buyer. Failures are logged,
// never propagated: the transaction is already Completed.
func (s *CheckoutService) fulfill(txn *models.Transaction) {
	if txn.Email == "" {
		logrus.WithField("session_id", txn.SessionID).Warn("Completed transaction has no buyer email, skipping fulfillment mail")
		return
	}

	var images []models.Image
	if err := s.db.Where("id IN ?", []string(txn.Items)).Find(&images).Error; err != nil {
		logrus.WithError(err).WithField("session_id", txn.SessionID).Error("Failed to resolve purchased images")
		return
	}

	attachments := make([]mail.Attachment, 0, len(images))
	for _, img := range images {
		reader, err := s.store.OpenRaw(img.RawLocation)
		if err != nil {
			logrus.WithError(err).WithField("image_id", img.ID).Error("Failed to open raw asset")
			continue
		}
		content, err := io.ReadAll(reader)
		reader.Close()
		if err != nil {
			logrus.WithError(err).WithField("image_id", img.ID).Error("Failed to read raw asset")
			continue
		}
		attachments = append(attachments, mail.Attachment{
			Filename: img.RawLocation,
			Content:  content,
		})
	}

	msg := &mail.Message{
		To:          txn.Email,
		Subject:     "Image Store Order",
		Body:        "Thanks for your order! Enjoy your images",
		Attachments: attachments,
	}
	if err := s.mailer.Send(msg); err != nil {
		logrus.WithError(err).WithField("session_id", txn.SessionID).Error("Failed to send fulfillment email")
	}
}

func orderEvent(txn *models.Transaction) events.OrderEvent {
	return events.OrderEvent{
		SessionID: txn.SessionID,
		Status:    string(txn.Status),
		Price:     txn.Price,
		Items:     []string(txn.Items),
		Email:     txn.Email,
		At:        time.Now(),
	}
}
