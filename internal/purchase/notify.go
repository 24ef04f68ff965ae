package purchase

import (
	"fmt"

	purchasedb "github.com/stargazerlabs/tonstars/internal/database"
	"github.com/stargazerlabs/tonstars/internal/logger"
)

// Notifier receives the terminal outcome of a purchase. Implementations must
// not block for long; they run inside the single terminal step.
type Notifier interface {
	OnSuccess(record *purchasedb.PurchaseRecord)
	OnError(kind, detail string)
}

// LogNotifier reports outcomes to stdout and the log file.
type LogNotifier struct{}

func (LogNotifier) OnSuccess(record *purchasedb.PurchaseRecord) {
	logger.Infof("purchase %s completed: %d stars for %s (request %s, tx %s)",
		record.ID, record.Quantity, record.Recipient, record.RequestID, record.TxRef)
	fmt.Printf("Purchased %d stars for %s\n", record.Quantity, record.Recipient)
	if record.NeedsReview {
		fmt.Println("Warning: no transaction reference captured, flagged for manual follow-up")
	}
}

func (LogNotifier) OnError(kind, detail string) {
	logger.Errorf("purchase failed (%s): %s", kind, detail)
	fmt.Printf("Purchase failed (%s): %s\n", kind, detail)
}
