// internal/services/user_service_test.go
package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/imagestore/image-store-backend/internal/models"
)

func newTestUserService(t *testing.T) (*UserService, *gorm.DB) {
	t.Helper()
	catalog, db := newTestCatalog(t)
	return NewUserService(db, catalog), db
}

func seedUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	user := &models.User{
		Email:        "bob@example.com",
		PasswordHash: "x",
		FirstName:    "Bob",
		Role:         models.UserRoleUser,
		Cart:         models.StringList{},
		Likes:        models.StringList{},
		Transactions: models.StringList{},
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestAddToCartIsIdempotent(t *testing.T) {
	svc, db := newTestUserService(t)
	user := seedUser(t, db)
	img := seedImage(t, db, "wanted", models.ImageStatusActive)

	require.NoError(t, svc.AddToCart(user.ID, img.ID))
	require.NoError(t, svc.AddToCart(user.ID, img.ID))

	var got models.User
	require.NoError(t, db.First(&got, "id = ?", user.ID).Error)
	assert.Equal(t, models.StringList{img.ID.String()}, got.Cart)
}

func TestRemoveFromCart(t *testing.T) {
	svc, db := newTestUserService(t)
	user := seedUser(t, db)
	img := seedImage(t, db, "wanted", models.ImageStatusActive)

	require.NoError(t, svc.AddToCart(user.ID, img.ID))
	require.NoError(t, svc.RemoveFromCart(user.ID, img.ID))

	var got models.User
	require.NoError(t, db.First(&got, "id = ?", user.ID).Error)
	assert.Empty(t, got.Cart)

	// Removing again is harmless
	require.NoError(t, svc.RemoveFromCart(user.ID, img.ID))
}

func TestAddToCartUnknownImage(t *testing.T) {
	svc, db := newTestUserService(t)
	user := seedUser(t, db)

	err := svc.AddToCart(user.ID, uuid.New())
	assert.ErrorIs(t, err, ErrImageNotFound)
}

func TestLikeCounterTracksLikeList(t *testing.T) {
	svc, db := newTestUserService(t)
	user := seedUser(t, db)
	img := seedImage(t, db, "liked", models.ImageStatusActive)

	likes := func() int64 {
		var got models.Image
		require.NoError(t, db.First(&got, "id = ?", img.ID).Error)
		return got.Likes
	}

	require.NoError(t, svc.AddLike(user.ID, img.ID))
	assert.Equal(t, int64(1), likes())

	// A second like from the same user changes nothing.
	require.NoError(t, svc.AddLike(user.ID, img.ID))
	assert.Equal(t, int64(1), likes())

	require.NoError(t, svc.RemoveLike(user.ID, img.ID))
	assert.Equal(t, int64(0), likes())

	// Withdrawing a like that was never given leaves the counter alone.
	require.NoError(t, svc.RemoveLike(user.ID, img.ID))
	assert.Equal(t, int64(0), likes())
}

func TestUpdateProfilePartial(t *testing.T) {
	svc, db := newTestUserService(t)
	user := seedUser(t, db)

	phone := "555-0101"
	got, err := svc.UpdateProfile(user.ID, &UpdateProfileRequest{Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "555-0101", got.Phone)
	assert.Equal(t, "Bob", got.FirstName, "absent fields must not change")
}

func TestUpdateProfileUnknownUser(t *testing.T) {
	svc, _ := newTestUserService(t)

	phone := "555-0101"
	_, err := svc.UpdateProfile(uuid.New(), &UpdateProfileRequest{Phone: &phone})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestGetProfileResolvesReferences(t *testing.T) {
	svc, db := newTestUserService(t)
	user := seedUser(t, db)
	img := seedImage(t, db, "in cart", models.ImageStatusActive)

	require.NoError(t, svc.AddToCart(user.ID, img.ID))

	txn := &models.Transaction{
		SessionID: "cs_profile",
		Price:     5,
		Items:     models.StringList{img.ID.String()},
		Status:    models.TransactionStatusCompleted,
	}
	require.NoError(t, db.Create(txn).Error)
	require.NoError(t, db.Model(user).Update("transactions", models.StringList{txn.ID.String()}).Error)

	profile, err := svc.GetProfile(user.ID)
	require.NoError(t, err)
	require.Len(t, profile.Cart, 1)
	assert.Equal(t, "in cart", profile.Cart[0].Title)
	require.Len(t, profile.Transactions, 1)
	assert.Equal(t, "cs_profile", profile.Transactions[0].SessionID)
	assert.Empty(t, profile.Likes)
}

func TestGetProfileUnknownUser(t *testing.T) {
	svc, _ := newTestUserService(t)

	_, err := svc.GetProfile(uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
}
