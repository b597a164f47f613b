// internal/handlers/user.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/imagestore/image-store-backend/internal/services"
	"github.com/imagestore/image-store-backend/internal/utils"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// GET /api/user/profile
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	profile, err := h.userService.GetProfile(userID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			utils.NotFoundResponse(c, "User")
			return
		}
		utils.InternalErrorResponse(c, "Failed to fetch profile")
		return
	}

	utils.SuccessResponse(c, profile)
}

// PATCH /api/user/profile
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid input", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	user, err := h.userService.UpdateProfile(userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			utils.NotFoundResponse(c, "User")
		case errors.Is(err, services.ErrEmailTaken):
			utils.ErrorResponse(c, 409, "EMAIL_TAKEN", err.Error(), nil)
		default:
			utils.InternalErrorResponse(c, "Failed to update profile")
		}
		return
	}

	utils.SuccessResponse(c, user)
}

// POST /api/user/cart/:imageId
func (h *UserHandler) AddToCart(c *gin.Context) {
	h.mutateList(c, h.userService.AddToCart)
}

// DELETE /api/user/cart/:imageId
func (h *UserHandler) RemoveFromCart(c *gin.Context) {
	h.mutateList(c, h.userService.RemoveFromCart)
}

// POST /api/user/likes/:imageId
func (h *UserHandler) AddLike(c *gin.Context) {
	h.mutateList(c, h.userService.AddLike)
}

// DELETE /api/user/likes/:imageId
func (h *UserHandler) RemoveLike(c *gin.Context) {
	h.mutateList(c, h.userService.RemoveLike)
}

func (h *UserHandler) mutateList(c *gin.Context, op func(userID, imageID uuid.UUID) error) {
	userID, ok := callerID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	imageID, err := uuid.Parse(c.Param("imageId"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid image id", nil)
		return
	}

	if err := op(userID, imageID); err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			utils.NotFoundResponse(c, "User")
		case errors.Is(err, services.ErrImageNotFound):
			utils.NotFoundResponse(c, "Image")
		default:
			utils.InternalErrorResponse(c, "")
		}
		return
	}

	utils.SuccessResponse(c, gin.H{"ok": true})
}
