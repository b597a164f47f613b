// internal/services/catalog_service_test.go
package services

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/imagestore/image-store-backend/internal/config"
	"github.com/imagestore/image-store-backend/internal/models"
	"github.com/imagestore/image-store-backend/internal/storage"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// In-memory sqlite gives each connection its own database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Image{},
		&models.Transaction{},
		&models.WebhookEvent{},
	))
	return db
}

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()

	dir := t.TempDir()
	return &config.Config{
		JWT: config.JWTConfig{
			SecretKey:      "test-secret",
			AccessTokenTTL: 24,
		},
		Storage: config.StorageConfig{
			RawDir:         filepath.Join(dir, "raws"),
			WatermarkedDir: filepath.Join(dir, "wm"),
			PublicBaseURL:  "http://localhost:8080",
		},
		Watermark: config.WatermarkConfig{
			Text:       "Image Store",
			BoxSize:    600,
			FontSize:   16,
			OffsetStep: 100,
		},
		Payment: config.PaymentConfig{
			Currency:          "cad",
			SessionTTLMinutes: 30,
		},
		Email: config.EmailConfig{
			FromEmail:    "noreply@test.local",
			ContactEmail: "contact@test.local",
		},
	}
}

func newTestStore(t *testing.T, cfg *config.Config) *storage.Store {
	t.Helper()
	store, err := storage.New(cfg.Storage)
	require.NoError(t, err)
	return store
}

func newTestCatalog(t *testing.T) (*CatalogService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	cfg := newTestConfig(t)
	return NewCatalogService(db, newTestStore(t, cfg), cfg), db
}

func seedImage(t *testing.T, db *gorm.DB, title string, status models.ImageStatus, tags ...string) *models.Image {
	t.Helper()
	img := &models.Image{
		Title:               title,
		SellerID:            uuid.New(),
		Status:              status,
		Price:               5,
		Tags:                models.StringList(tags),
		RawLocation:         "OR-1-1000.jpg",
		WatermarkedLocation: "WM-1-1000.jpg",
	}
	require.NoError(t, db.Create(img).Error)
	return img
}

func TestListImagesEmptyCatalog(t *testing.T) {
	svc, _ := newTestCatalog(t)

	page, err := svc.ListImages(ListImagesParams{Page: 1, PerPage: 10})
	require.NoError(t, err)
	assert.Empty(t, page.Images)
	assert.Equal(t, 0, page.TotalPages)
}

func TestListImagesSinglePageReturnsWholeSet(t *testing.T) {
	svc, db := newTestCatalog(t)
	for i := 0; i < 5; i++ {
		seedImage(t, db, "img", models.ImageStatusActive)
	}

	// When everything fits in one page the requested page number is moot.
	for _, pageNum := range []int{1, 3, 99} {
		page, err := svc.ListImages(ListImagesParams{Page: pageNum, PerPage: 10})
		require.NoError(t, err)
		assert.Len(t, page.Images, 5, "page %d", pageNum)
		assert.Equal(t, 1, page.TotalPages)
	}
}

func TestListImagesPaginates(t *testing.T) {
	svc, db := newTestCatalog(t)
	for i := 0; i < 25; i++ {
		seedImage(t, db, "img", models.ImageStatusActive)
	}

	page, err := svc.ListImages(ListImagesParams{Page: 1, PerPage: 10})
	require.NoError(t, err)
	assert.Len(t, page.Images, 10)
	assert.Equal(t, 3, page.TotalPages)

	// Short final page
	page, err = svc.ListImages(ListImagesParams{Page: 3, PerPage: 10})
	require.NoError(t, err)
	assert.Len(t, page.Images, 5)

	// Pages never overlap and cover the whole set
	seen := make(map[uuid.UUID]bool)
	for p := 1; p <= 3; p++ {
		page, err := svc.ListImages(ListImagesParams{Page: p, PerPage: 10})
		require.NoError(t, err)
		for _, v := range page.Images {
			assert.False(t, seen[v.ID], "image appeared on two pages")
			seen[v.ID] = true
		}
	}
	assert.Len(t, seen, 25)
}

func TestListImagesHidesInactiveByDefault(t *testing.T) {
	svc, db := newTestCatalog(t)
	seedImage(t, db, "visible", models.ImageStatusActive)
	seedImage(t, db, "hidden", models.ImageStatusInactive)

	page, err := svc.ListImages(ListImagesParams{Page: 1, PerPage: 10})
	require.NoError(t, err)
	require.Len(t, page.Images, 1)
	assert.Equal(t, "visible", page.Images[0].Title)

	page, err = svc.ListImages(ListImagesParams{Page: 1, PerPage: 10, All: true})
	require.NoError(t, err)
	assert.Len(t, page.Images, 2)
}

func TestListImagesTagFilter(t *testing.T) {
	svc, db := newTestCatalog(t)
	seedImage(t, db, "sunset", models.ImageStatusActive, "nature", "sky")
	seedImage(t, db, "office", models.ImageStatusActive, "work")

	page, err := svc.ListImages(ListImagesParams{Page: 1, PerPage: 10, Tag: "nature"})
	require.NoError(t, err)
	require.Len(t, page.Images, 1)
	assert.Equal(t, "sunset", page.Images[0].Title)

	page, err = svc.ListImages(ListImagesParams{Page: 1, PerPage: 10, Tag: "missing"})
	require.NoError(t, err)
	assert.Empty(t, page.Images)
}

func TestGetImageNotFound(t *testing.T) {
	svc, _ := newTestCatalog(t)

	_, err := svc.GetImage(uuid.New())
	assert.ErrorIs(t, err, ErrImageNotFound)
}

func TestGetImageProjectsPublicURL(t *testing.T) {
	svc, db := newTestCatalog(t)
	img := seedImage(t, db, "sunset", models.ImageStatusActive, "nature")

	view, err := svc.GetImage(img.ID)
	require.NoError(t, err)
	assert.Equal(t, img.ID, view.ID)
	assert.Contains(t, view.ImageLocation, "/images/wm/WM-1-1000.jpg")
}

func TestUpdateImagePartial(t *testing.T) {
	svc, db := newTestCatalog(t)
	img := seedImage(t, db, "original title", models.ImageStatusActive)
	before := img.UpdatedAt

	time.Sleep(20 * time.Millisecond)

	price := 9.5
	require.NoError(t, svc.UpdateImage(img.ID, &UpdateImageRequest{Price: &price}))

	var got models.Image
	require.NoError(t, db.First(&got, "id = ?", img.ID).Error)
	assert.Equal(t, 9.5, got.Price)
	assert.Equal(t, "original title", got.Title, "absent fields must not change")
	assert.True(t, got.UpdatedAt.After(before))
}

func TestUpdateImageNotFound(t *testing.T) {
	svc, _ := newTestCatalog(t)

	title := "anything"
	err := svc.UpdateImage(uuid.New(), &UpdateImageRequest{Title: &title})
	assert.ErrorIs(t, err, ErrImageNotFound)
}

func TestUploadImagePipeline(t *testing.T) {
	db := newTestDB(t)
	cfg := newTestConfig(t)
	svc := NewCatalogService(db, newTestStore(t, cfg), cfg)

	src := image.NewRGBA(image.Rect(0, 0, 1800, 1200))
	for y := 0; y < 1200; y++ {
		for x := 0; x < 1800; x++ {
			src.Set(x, y, color.RGBA{B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, src, imaging.PNG))

	img, err := svc.UploadImage(uuid.New(), &UploadImageRequest{
		Title: "blue field",
		Tags:  []string{"abstract"},
		Price: 3.5,
	}, &buf, "upload.png")
	require.NoError(t, err)

	// Both artifacts exist on disk under their generated names.
	rawPath := filepath.Join(cfg.Storage.RawDir, img.RawLocation)
	wmPath := filepath.Join(cfg.Storage.WatermarkedDir, img.WatermarkedLocation)
	_, err = os.Stat(rawPath)
	require.NoError(t, err)
	_, err = os.Stat(wmPath)
	require.NoError(t, err)

	// The raw original is stored untouched at full size; the preview fits the box.
	raw, err := imaging.Open(rawPath)
	require.NoError(t, err)
	assert.Equal(t, 1800, raw.Bounds().Dx())

	wm, err := imaging.Open(wmPath)
	require.NoError(t, err)
	assert.Equal(t, 600, wm.Bounds().Dx())
	assert.Equal(t, 400, wm.Bounds().Dy())

	assert.Equal(t, models.ImageStatusActive, img.Status)
}

func TestUploadImageRejectsGarbage(t *testing.T) {
	svc, _ := newTestCatalog(t)

	_, err := svc.UploadImage(uuid.New(), &UploadImageRequest{
		Title: "bad",
		Tags:  []string{"x"},
	}, bytes.NewReader([]byte("not an image")), "bad.jpg")
	assert.ErrorIs(t, err, ErrImageDecode)
}

func TestUploadImageValidation(t *testing.T) {
	svc, _ := newTestCatalog(t)

	_, err := svc.UploadImage(uuid.New(), &UploadImageRequest{
		Title: "",
		Tags:  []string{"x"},
	}, bytes.NewReader(nil), "x.jpg")
	assert.Error(t, err)

	_, err = svc.UploadImage(uuid.New(), &UploadImageRequest{
		Title: "no tags",
		Tags:  nil,
	}, bytes.NewReader(nil), "x.jpg")
	assert.Error(t, err)
}
