// internal/models/user.go
package models

import "golang.org/x/crypto/bcrypt"

// User holds profile fields plus reference lists. Cart, likes and transaction
// history store ids only; rendering a profile joins against images and
// transactions. Reference lists are mutated server-side (append/remove),
// never replaced wholesale from client input.
type User struct {
	BaseModel
	Email        string     `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string     `json:"-" gorm:"size:255;not null"`
	FirstName    string     `json:"first_name" gorm:"size:100"`
	LastName     string     `json:"last_name" gorm:"size:100"`
	Phone        string     `json:"phone" gorm:"size:50"`
	Address      string     `json:"address" gorm:"size:255"`
	Role         UserRole   `json:"role" gorm:"type:varchar(20);default:'user'"`
	Cart         StringList `json:"cart" gorm:"type:text"`
	Likes        StringList `json:"likes" gorm:"type:text"`
	Transactions StringList `json:"transactions" gorm:"type:text"`
}

func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}
