package purchasedb

import "time"

// Purchase statuses
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// PurchaseRecord is one attempted stars purchase. Records are append-only:
// a record is created pending and updated exactly once to a terminal status.
type PurchaseRecord struct {
	ID          string
	RequesterID int64
	Recipient   string
	Quantity    int64
	Status      string
	RequestID   string // marketplace request id, set once a buy slot is granted
	TxRef       string // set only when the broadcast reference looks genuine
	NeedsReview bool   // completed without a usable tx reference
	ErrorDetail string
	IsTest      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
