package purchasedb

import "gorm.io/gorm"

// SQLitePurchase represents a purchase attempt in the audit table
type SQLitePurchase struct {
	gorm.Model
	PurchaseID  string `gorm:"uniqueIndex"`
	RequesterID int64  `gorm:"index"`
	Recipient   string `gorm:"index"`
	Quantity    int64
	Status      string `gorm:"index"` // pending, completed, failed
	RequestID   string `gorm:"index"`
	TxRef       string
	NeedsReview bool
	ErrorDetail string
	IsTest      bool
}
