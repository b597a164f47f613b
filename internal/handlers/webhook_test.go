// internal/handlers/webhook_test.go
package handlers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/imagestore/image-store-backend/internal/config"
	"github.com/imagestore/image-store-backend/internal/mail"
	"github.com/imagestore/image-store-backend/internal/models"
	"github.com/imagestore/image-store-backend/internal/services"
	"github.com/imagestore/image-store-backend/internal/storage"
)

const testWebhookSecret = "whsec_test_secret"

type webhookEnv struct {
	handler *WebhookHandler
	db      *gorm.DB
	store   *storage.Store
	mailer  *recorderMailer
}

type recorderMailer struct {
	sent []*mail.Message
}

func (m *recorderMailer) Send(msg *mail.Message) error {
	m.sent = append(m.sent, msg)
	return nil
}

func newWebhookEnv(t *testing.T) *webhookEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Image{}, &models.Transaction{}, &models.WebhookEvent{},
	))

	dir := t.TempDir()
	cfg := &config.Config{
		Storage: config.StorageConfig{
			RawDir:         filepath.Join(dir, "raws"),
			WatermarkedDir: filepath.Join(dir, "wm"),
			PublicBaseURL:  "http://localhost:8080",
		},
		Payment: config.PaymentConfig{
			StripeWebhookSecret: testWebhookSecret,
			Currency:            "cad",
			SessionTTLMinutes:   30,
		},
	}
	store, err := storage.New(cfg.Storage)
	require.NoError(t, err)

	mailer := &recorderMailer{}
	svc := services.NewCheckoutService(db, cfg, store, mailer, nil)
	return &webhookEnv{
		handler: NewWebhookHandler(svc, cfg),
		db:      db,
		store:   store,
		mailer:  mailer,
	}
}

// signPayload builds a Stripe-Signature header value for the payload using
// the v1 scheme: HMAC-SHA256 over "<timestamp>.<payload>".
func signPayload(payload []byte, secret string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func (e *webhookEnv) deliver(t *testing.T, payload []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	r := gin.New()
	r.POST("/api/webhook", e.handler.HandleWebhook)

	req := httptest.NewRequest(http.MethodPost, "/api/webhook", bytes.NewReader(payload))
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func completedEventPayload(sessionID, email string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "evt_%s",
		"api_version": "2022-11-15",
		"type": "checkout.session.completed",
		"data": {"object": {"id": %q, "customer_details": {"email": %q}}}
	}`, sessionID, sessionID, email))
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	env := newWebhookEnv(t)
	payload := completedEventPayload("cs_sig", "b@example.com")

	w := env.deliver(t, payload, "t=1,v1=deadbeef")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.deliver(t, payload, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// A rejected delivery must not have touched the store.
	var count int64
	require.NoError(t, env.db.Model(&models.WebhookEvent{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
	assert.Empty(t, env.mailer.sent)
}

func TestWebhookCompletesSignedSession(t *testing.T) {
	env := newWebhookEnv(t)

	rawName, err := env.store.SaveRaw([]byte("asset"), ".jpg")
	require.NoError(t, err)
	img := &models.Image{
		Title:               "sold",
		Status:              models.ImageStatusActive,
		Price:               5,
		Tags:                models.StringList{"x"},
		RawLocation:         rawName,
		WatermarkedLocation: "WM-1-1000.jpg",
	}
	require.NoError(t, env.db.Create(img).Error)
	txn := &models.Transaction{
		SessionID: "cs_signed",
		Price:     5,
		Items:     models.StringList{img.ID.String()},
		Status:    models.TransactionStatusPending,
	}
	require.NoError(t, env.db.Create(txn).Error)

	payload := completedEventPayload("cs_signed", "buyer@example.com")
	w := env.deliver(t, payload, signPayload(payload, testWebhookSecret))
	assert.Equal(t, http.StatusOK, w.Code)

	var got models.Transaction
	require.NoError(t, env.db.First(&got, "session_id = ?", "cs_signed").Error)
	assert.Equal(t, models.TransactionStatusCompleted, got.Status)
	assert.Equal(t, "buyer@example.com", got.Email)

	require.Len(t, env.mailer.sent, 1)
	require.Len(t, env.mailer.sent[0].Attachments, 1)
	assert.Equal(t, []byte("asset"), env.mailer.sent[0].Attachments[0].Content)

	// Redelivery acknowledges without a second fulfillment.
	w = env.deliver(t, payload, signPayload(payload, testWebhookSecret))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, env.mailer.sent, 1)
}

func TestWebhookIgnoresUnknownEventKind(t *testing.T) {
	env := newWebhookEnv(t)

	payload := []byte(`{
		"id": "evt_other",
		"api_version": "2022-11-15",
		"type": "invoice.paid",
		"data": {"object": {"id": "in_1"}}
	}`)
	w := env.deliver(t, payload, signPayload(payload, testWebhookSecret))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, env.mailer.sent)
}
