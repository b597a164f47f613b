// internal/services/user_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/imagestore/image-store-backend/internal/models"
	"github.com/imagestore/image-store-backend/internal/utils"
)

// UserService manages profiles and the server-side reference lists. Cart and
// like mutations go through dedicated append/remove operations; the lists are
// never replaced wholesale from client input.
type UserService struct {
	db      *gorm.DB
	catalog *CatalogService
}

type UpdateProfileRequest struct {
	Email     *string `json:"email,omitempty" validate:"omitempty,email"`
	FirstName *string `json:"firstName,omitempty" validate:"omitempty,min=1,max=100"`
	LastName  *string `json:"lastName,omitempty" validate:"omitempty,min=1,max=100"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Address   *string `json:"address,omitempty" validate:"omitempty,max=255"`
}

// Profile is the rendered view of a user: the reference lists joined out to
// their catalog entries and transactions.
type Profile struct {
	User         *models.User         `json:"user"`
	Cart         []models.ImageView   `json:"cart"`
	Likes        []models.ImageView   `json:"likes"`
	Transactions []models.Transaction `json:"transactions"`
}

func NewUserService(db *gorm.DB, catalog *CatalogService) *UserService {
	return &UserService{db: db, catalog: catalog}
}

// GetProfile loads a user and resolves the cart, likes and transaction
// history. Dangling references are dropped rather than failing the whole
// profile.
func (s *UserService) GetProfile(userID uuid.UUID) (*Profile, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	cart, err := s.resolveViews(user.Cart)
	if err != nil {
		return nil, err
	}
	likes, err := s.resolveViews(user.Likes)
	if err != nil {
		return nil, err
	}

	transactions := []models.Transaction{}
	if len(user.Transactions) > 0 {
		if err := s.db.Where("id IN ?", []string(user.Transactions)).
			Order("created_at DESC").Find(&transactions).Error; err != nil {
			return nil, fmt.Errorf("failed to fetch transactions: %w", err)
		}
	}

	return &Profile{
		User:         &user,
		Cart:         cart,
		Likes:        likes,
		Transactions: transactions,
	}, nil
}

func (s *UserService) resolveViews(ids models.StringList) ([]models.ImageView, error) {
	if len(ids) == 0 {
		return []models.ImageView{}, nil
	}
	var images []models.Image
	if err := s.db.Where("id IN ?", []string(ids)).Find(&images).Error; err != nil {
		return nil, fmt.Errorf("failed to resolve images: %w", err)
	}
	return s.catalog.Project(images), nil
}

// UpdateProfile applies a partial update to the mutable profile fields.
func (s *UserService) UpdateProfile(userID uuid.UUID, req *UpdateProfileRequest) (*models.User, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	updates := map[string]interface{}{"updated_at": time.Now()}
	if req.Email != nil {
		var count int64
		err := s.db.Model(&models.User{}).
			Where("email = ? AND id <> ?", *req.Email, userID).
			Count(&count).Error
		if err != nil {
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
		if count > 0 {
			return nil, ErrEmailTaken
		}
		updates["email"] = *req.Email
	}
	if req.FirstName != nil {
		updates["first_name"] = *req.FirstName
	}
	if req.LastName != nil {
		updates["last_name"] = *req.LastName
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}

	res := s.db.Model(&models.User{}).Where("id = ?", userID).Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrUserNotFound
	}

	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("failed to reload user: %w", err)
	}
	return &user, nil
}

// AddToCart appends an image id to the user's cart. Adding an id already in
// the cart is a no-op.
func (s *UserService) AddToCart(userID, imageID uuid.UUID) error {
	if err := s.ensureImageExists(imageID); err != nil {
		return err
	}
	return s.mutateList(userID, "cart", func(list models.StringList) (models.StringList, bool) {
		if list.Contains(imageID.String()) {
			return list, false
		}
		return append(list, imageID.String()), true
	}, nil)
}

// RemoveFromCart drops an image id from the user's cart.
func (s *UserService) RemoveFromCart(userID, imageID uuid.UUID) error {
	return s.mutateList(userID, "cart", removeEntry(imageID.String()), nil)
}

// AddLike records a like and bumps the image's like counter. Liking an
// already-liked image changes nothing.
func (s *UserService) AddLike(userID, imageID uuid.UUID) error {
	if err := s.ensureImageExists(imageID); err != nil {
		return err
	}
	return s.mutateList(userID, "likes", func(list models.StringList) (models.StringList, bool) {
		if list.Contains(imageID.String()) {
			return list, false
		}
		return append(list, imageID.String()), true
	}, func(tx *gorm.DB) error {
		return tx.Model(&models.Image{}).Where("id = ?", imageID).
			UpdateColumn("likes", gorm.Expr("likes + 1")).Error
	})
}

// RemoveLike withdraws a like and decrements the image's counter.
func (s *UserService) RemoveLike(userID, imageID uuid.UUID) error {
	return s.mutateList(userID, "likes", removeEntry(imageID.String()), func(tx *gorm.DB) error {
		return tx.Model(&models.Image{}).Where("id = ? AND likes > 0", imageID).
			UpdateColumn("likes", gorm.Expr("likes - 1")).Error
	})
}

func removeEntry(id string) func(models.StringList) (models.StringList, bool) {
	return func(list models.StringList) (models.StringList, bool) {
		out := make(models.StringList, 0, len(list))
		removed := false
		for _, v := range list {
			if v == id {
				removed = true
				continue
			}
			out = append(out, v)
		}
		return out, removed
	}
}

// mutateList rewrites one reference list under a row lock so concurrent
// mutations cannot lose entries. The side effect runs in the same transaction
// and only when the list actually changed.
func (s *UserService) mutateList(userID uuid.UUID, column string, apply func(models.StringList) (models.StringList, bool), sideEffect func(*gorm.DB) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to load user: %w", err)
		}

		var list models.StringList
		switch column {
		case "cart":
			list = user.Cart
		case "likes":
			list = user.Likes
		default:
			return fmt.Errorf("unknown reference list %q", column)
		}

		next, changed := apply(list)
		if !changed {
			return nil
		}

		if err := tx.Model(&user).Update(column, next).Error; err != nil {
			return fmt.Errorf("failed to update %s: %w", column, err)
		}
		if sideEffect != nil {
			if err := sideEffect(tx); err != nil {
				return fmt.Errorf("failed to apply %s side effect: %w", column, err)
			}
		}
		return nil
	})
}

func (s *UserService) ensureImageExists(imageID uuid.UUID) error {
	var count int64
	if err := s.db.Model(&models.Image{}).Where("id = ?", imageID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check image: %w", err)
	}
	if count == 0 {
		return ErrImageNotFound
	}
	return nil
}
