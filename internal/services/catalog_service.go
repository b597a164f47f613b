// internal/services/catalog_service.go
package services

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/imagestore/image-store-backend/internal/config"
	"github.com/imagestore/image-store-backend/internal/models"
	"github.com/imagestore/image-store-backend/internal/storage"
	"github.com/imagestore/image-store-backend/internal/utils"
	"github.com/imagestore/image-store-backend/internal/watermark"
)

var (
	ErrImageNotFound = errors.New("image not found")
	ErrImageDecode   = errors.New("failed to decode image")
)

type CatalogService struct {
	db    *gorm.DB
	store *storage.Store
	cfg   *config.Config
}

type UploadImageRequest struct {
	Title       string   `json:"title" validate:"required,min=1,max=255"`
	Description string   `json:"description"`
	Tags        []string `json:"tags" validate:"required,min=1,dive,required"`
	Price       float64  `json:"price" validate:"min=0"`
}

type UpdateImageRequest struct {
	Title       *string             `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	Description *string             `json:"description,omitempty"`
	Price       *float64            `json:"price,omitempty" validate:"omitempty,min=0"`
	Tags        []string            `json:"tags,omitempty" validate:"omitempty,min=1,dive,required"`
	Status      *models.ImageStatus `json:"status,omitempty"`
}

type ListImagesParams struct {
	Page    int
	PerPage int
	All     bool   // include non-Active entries
	Tag     string // optional tag filter
}

type ImagePage struct {
	Images     []models.ImageView `json:"images"`
	TotalPages int                `json:"totalPages"`
}

func NewCatalogService(db *gorm.DB, store *storage.Store, cfg *config.Config) *CatalogService {
	return &CatalogService{
		db:    db,
		store: store,
		cfg:   cfg,
	}
}

// UploadImage runs the full ingestion pipeline: validate metadata, decode,
// store the raw original, composite the watermarked preview, store it, and
// insert one catalog entry. Validation and decoding happen before any file
// write so a bad request leaves no artifacts behind.
func (s *CatalogService) UploadImage(sellerID uuid.UUID, req *UploadImageRequest, file io.Reader, originalName string) (*models.Image, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	src, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	format, err := imaging.FormatFromExtension(ext)
	if err != nil {
		ext = ".jpg"
		format = imaging.JPEG
	}

	marked, err := watermark.Apply(src, watermark.Options{
		Text:       s.cfg.Watermark.Text,
		BoxSize:    s.cfg.Watermark.BoxSize,
		FontSize:   s.cfg.Watermark.FontSize,
		OffsetStep: s.cfg.Watermark.OffsetStep,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to watermark image: %w", err)
	}

	var encoded bytes.Buffer
	if err := imaging.Encode(&encoded, marked, format); err != nil {
		return nil, fmt.Errorf("failed to encode watermarked image: %w", err)
	}

	rawName, err := s.store.SaveRaw(data, ext)
	if err != nil {
		return nil, fmt.Errorf("failed to store raw asset: %w", err)
	}

	wmName, err := s.store.SaveWatermarked(encoded.Bytes(), ext)
	if err != nil {
		return nil, fmt.Errorf("failed to store watermarked asset: %w", err)
	}

	image := &models.Image{
		Title:               req.Title,
		Description:         req.Description,
		SellerID:            sellerID,
		Likes:               0,
		Views:               0,
		Status:              models.ImageStatusActive,
		Price:               req.Price,
		Tags:                models.StringList(req.Tags),
		RawLocation:         rawName,
		WatermarkedLocation: wmName,
	}

	if err := s.db.Create(image).Error; err != nil {
		return nil, fmt.Errorf("failed to create catalog entry: %w", err)
	}

	return image, nil
}

// ListImages returns one page of the filtered catalog plus the total page
// count. When the filtered set fits in a single page the whole set is
// returned regardless of the requested page.
func (s *CatalogService) ListImages(params ListImagesParams) (*ImagePage, error) {
	query := s.filtered(params)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count images: %w", err)
	}

	query = s.filtered(params).Order("created_at DESC, id")
	if total > int64(params.PerPage) {
		offset := (params.Page - 1) * params.PerPage
		query = query.Offset(offset).Limit(params.PerPage)
	}

	var images []models.Image
	if err := query.Find(&images).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch images: %w", err)
	}

	return &ImagePage{
		Images:     s.Project(images),
		TotalPages: utils.TotalPages(total, params.PerPage),
	}, nil
}

func (s *CatalogService) filtered(params ListImagesParams) *gorm.DB {
	query := s.db.Model(&models.Image{})
	if !params.All {
		query = query.Where("status = ?", models.ImageStatusActive)
	}
	if params.Tag != "" {
		// Tags are stored JSON-encoded; match the quoted element.
		query = query.Where("tags LIKE ?", "%"+`"`+params.Tag+`"`+"%")
	}
	return query
}

// GetImage fetches a single projected entry and bumps its view counter.
func (s *CatalogService) GetImage(id uuid.UUID) (*models.ImageView, error) {
	var image models.Image
	if err := s.db.First(&image, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrImageNotFound
		}
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}

	go s.incrementViewCount(id)

	view := s.project(image)
	return &view, nil
}

func (s *CatalogService) incrementViewCount(id uuid.UUID) {
	err := s.db.Model(&models.Image{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + 1")).Error
	if err != nil {
		logrus.WithError(err).WithField("image_id", id).Warn("Failed to increment view count")
	}
}

// UpdateImage applies a partial update: only fields present in the request
// change, and the edit timestamp is always refreshed.
func (s *CatalogService) UpdateImage(id uuid.UUID, req *UpdateImageRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	// The edit timestamp is refreshed even when no other field is supplied.
	updates := map[string]interface{}{"updated_at": time.Now()}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Price != nil {
		updates["price"] = *req.Price
	}
	if req.Tags != nil {
		updates["tags"] = models.StringList(req.Tags)
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}

	res := s.db.Model(&models.Image{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update image: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrImageNotFound
	}
	return nil
}

// ResolveImages loads catalog entries by id, failing when any id is unknown.
func (s *CatalogService) ResolveImages(ids []string) ([]models.Image, error) {
	var images []models.Image
	if err := s.db.Where("id IN ?", ids).Find(&images).Error; err != nil {
		return nil, fmt.Errorf("failed to resolve images: %w", err)
	}
	if len(images) != len(ids) {
		return nil, ErrImageNotFound
	}
	return images, nil
}

// Project maps catalog entries to their buyer-facing views.
func (s *CatalogService) Project(images []models.Image) []models.ImageView {
	views := make([]models.ImageView, 0, len(images))
	for _, img := range images {
		views = append(views, s.project(img))
	}
	return views
}

func (s *CatalogService) project(img models.Image) models.ImageView {
	return models.ImageView{
		ID:            img.ID,
		Title:         img.Title,
		Description:   img.Description,
		SellerID:      img.SellerID,
		Likes:         img.Likes,
		Views:         img.Views,
		Status:        img.Status,
		ImageLocation: s.store.PublicURL(img.WatermarkedLocation),
		Tags:          img.Tags,
		Price:         img.Price,
	}
}
