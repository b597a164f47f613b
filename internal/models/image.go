// internal/models/image.go
package models

import "github.com/google/uuid"

// Image is a catalog entry: one sellable image with a private raw asset and
// a public watermarked preview. Both locations are filenames, not URLs; the
// preview URL is derived at read time. Entries are never hard-deleted;
// Status is the visibility mechanism.
type Image struct {
	BaseModel
	Title               string      `json:"title" gorm:"size:255;not null"`
	Description         string      `json:"description" gorm:"type:text"`
	SellerID            uuid.UUID   `json:"seller_id" gorm:"type:uuid;index"`
	Likes               int64       `json:"likes" gorm:"default:0"`
	Views               int64       `json:"views" gorm:"default:0"`
	Status              ImageStatus `json:"status" gorm:"type:varchar(20);default:'Active';index"`
	Price               float64     `json:"price" gorm:"type:decimal(10,2);not null"`
	Tags                StringList  `json:"tags" gorm:"type:text;not null"`
	RawLocation         string      `json:"-" gorm:"size:255;not null"`
	WatermarkedLocation string      `json:"-" gorm:"size:255;not null"`
}

// ImageView is the buyer-facing projection of an Image. Raw location and
// timestamps never leave this process through the catalog read path.
type ImageView struct {
	ID            uuid.UUID   `json:"id"`
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	SellerID      uuid.UUID   `json:"seller_id"`
	Likes         int64       `json:"likes"`
	Views         int64       `json:"views"`
	Status        ImageStatus `json:"status"`
	ImageLocation string      `json:"image_location"`
	Tags          StringList  `json:"tags"`
	Price         float64     `json:"price"`
}
