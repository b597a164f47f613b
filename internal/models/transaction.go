// internal/models/transaction.go
package models

// Transaction tracks one purchase attempt. SessionID is the external payment
// session id and the idempotency key for all webhook-driven updates: status
// moves from "pending payment" to exactly one terminal state and never again.
type Transaction struct {
	BaseModel
	SessionID string            `json:"session_id" gorm:"size:255;uniqueIndex;not null"`
	Price     float64           `json:"price" gorm:"type:decimal(10,2);not null"`
	Items     StringList        `json:"purchased_images" gorm:"type:text;not null"`
	Status    TransactionStatus `json:"status" gorm:"type:varchar(20);default:'pending payment';index"`
	Email     string            `json:"email" gorm:"size:255"`
}
