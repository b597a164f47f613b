// internal/handlers/image.go
package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/imagestore/image-store-backend/internal/services"
	"github.com/imagestore/image-store-backend/internal/utils"
)

type ImageHandler struct {
	catalogService *services.CatalogService
}

func NewImageHandler(catalogService *services.CatalogService) *ImageHandler {
	return &ImageHandler{
		catalogService: catalogService,
	}
}

// GET /api/images
// Query: page, perPage, status=All (include hidden entries), cat (tag filter).
func (h *ImageHandler) GetImages(c *gin.Context) {
	pagination := utils.GetPaginationParams(c)

	page, err := h.catalogService.ListImages(services.ListImagesParams{
		Page:    pagination.Page,
		PerPage: pagination.PerPage,
		All:     c.Query("status") == "All",
		Tag:     c.Query("cat"),
	})
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to fetch images")
		return
	}

	utils.SuccessResponseWithMeta(c, page.Images, gin.H{
		"totalPages": page.TotalPages,
		"page":       pagination.Page,
		"perPage":    pagination.PerPage,
	})
}

// GET /api/images/:imageId
func (h *ImageHandler) GetImage(c *gin.Context) {
	id, err := uuid.Parse(c.Param("imageId"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid image id", nil)
		return
	}

	view, err := h.catalogService.GetImage(id)
	if err != nil {
		if errors.Is(err, services.ErrImageNotFound) {
			utils.NotFoundResponse(c, "Image")
			return
		}
		utils.InternalErrorResponse(c, "Failed to fetch image")
		return
	}

	utils.SuccessResponse(c, view)
}

// POST /api/images/upload
// Multipart form: imageFile plus title, description, tags (comma separated)
// and price fields.
func (h *ImageHandler) UploadImage(c *gin.Context) {
	sellerID, ok := callerID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	fileHeader, err := c.FormFile("imageFile")
	if err != nil {
		utils.BadRequestResponse(c, "imageFile is required", nil)
		return
	}

	price, err := strconv.ParseFloat(c.DefaultPostForm("price", "0"), 64)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid price", nil)
		return
	}

	var tags []string
	for _, t := range strings.Split(c.PostForm("tags"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}

	req := &services.UploadImageRequest{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Tags:        tags,
		Price:       price,
	}

	file, err := fileHeader.Open()
	if err != nil {
		utils.InternalErrorResponse(c, "Failed to read upload")
		return
	}
	defer file.Close()

	image, err := h.catalogService.UploadImage(sellerID, req, file, fileHeader.Filename)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrImageDecode):
			utils.BadRequestResponse(c, "Unsupported or corrupt image file", nil)
		case strings.Contains(err.Error(), "validation failed"):
			utils.ValidationErrorResponse(c, utils.GetValidationErrors(utils.ValidateStruct(req)))
		default:
			utils.InternalErrorResponse(c, "Failed to store image")
		}
		return
	}

	utils.CreatedResponse(c, image)
}

// PATCH /api/images/:imageId
func (h *ImageHandler) UpdateImage(c *gin.Context) {
	id, err := uuid.Parse(c.Param("imageId"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid image id", nil)
		return
	}

	var req services.UpdateImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	if err := h.catalogService.UpdateImage(id, &req); err != nil {
		if errors.Is(err, services.ErrImageNotFound) {
			utils.NotFoundResponse(c, "Image")
			return
		}
		utils.InternalErrorResponse(c, "Failed to update image")
		return
	}

	utils.SuccessResponse(c, gin.H{"updated": true})
}

// callerID extracts the authenticated user id set by the auth middleware.
func callerID(c *gin.Context) (uuid.UUID, bool) {
	raw, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
