package purchasedb

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the global SQLite database instance
var DB *gorm.DB

// InitSQLiteDB initializes the SQLite database
func InitSQLiteDB(dbPath string) error {
	var err error

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %v", err)
		}
	}

	// Configure GORM to be less verbose
	config := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	}

	DB, err = gorm.Open(sqlite.Open(dbPath), config)
	if err != nil {
		return fmt.Errorf("failed to open database: %v", err)
	}

	err = DB.AutoMigrate(&SQLitePurchase{})
	if err != nil {
		return fmt.Errorf("failed to migrate database: %v", err)
	}

	log.Println("SQLite database initialized successfully")
	return nil
}

// SavePurchase inserts a new purchase record
func SavePurchase(record *PurchaseRecord) error {
	row := toRow(record)
	if err := DB.Create(row).Error; err != nil {
		return fmt.Errorf("failed to save purchase: %v", err)
	}
	record.CreatedAt = row.CreatedAt
	record.UpdatedAt = row.UpdatedAt
	return nil
}

// UpdatePurchase writes the terminal state of an existing purchase record
func UpdatePurchase(record *PurchaseRecord) error {
	result := DB.Model(&SQLitePurchase{}).
		Where("purchase_id = ?", record.ID).
		Updates(map[string]interface{}{
			"status":       record.Status,
			"request_id":   record.RequestID,
			"tx_ref":       record.TxRef,
			"needs_review": record.NeedsReview,
			"error_detail": record.ErrorDetail,
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("purchase %s not found", record.ID)
	}

	return nil
}

// FindPurchaseByRequestID retrieves a purchase by its marketplace request id
func FindPurchaseByRequestID(requestID string) (*PurchaseRecord, error) {
	var row SQLitePurchase

	if err := DB.Where("request_id = ?", requestID).First(&row).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("purchase with request id %s not found", requestID)
		}
		return nil, err
	}

	return fromRow(&row), nil
}

// FindPurchaseByID retrieves a purchase by its opaque id
func FindPurchaseByID(id string) (*PurchaseRecord, error) {
	var row SQLitePurchase

	if err := DB.Where("purchase_id = ?", id).First(&row).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("purchase %s not found", id)
		}
		return nil, err
	}

	return fromRow(&row), nil
}

// RecentPurchases retrieves the most recent purchase attempts, newest first
func RecentPurchases(limit int) ([]PurchaseRecord, error) {
	var rows []SQLitePurchase

	if err := DB.Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}

	records := make([]PurchaseRecord, len(rows))
	for i := range rows {
		records[i] = *fromRow(&rows[i])
	}

	return records, nil
}

func toRow(record *PurchaseRecord) *SQLitePurchase {
	return &SQLitePurchase{
		PurchaseID:  record.ID,
		RequesterID: record.RequesterID,
		Recipient:   record.Recipient,
		Quantity:    record.Quantity,
		Status:      record.Status,
		RequestID:   record.RequestID,
		TxRef:       record.TxRef,
		NeedsReview: record.NeedsReview,
		ErrorDetail: record.ErrorDetail,
		IsTest:      record.IsTest,
	}
}

func fromRow(row *SQLitePurchase) *PurchaseRecord {
	return &PurchaseRecord{
		ID:          row.PurchaseID,
		RequesterID: row.RequesterID,
		Recipient:   row.Recipient,
		Quantity:    row.Quantity,
		Status:      row.Status,
		RequestID:   row.RequestID,
		TxRef:       row.TxRef,
		NeedsReview: row.NeedsReview,
		ErrorDetail: row.ErrorDetail,
		IsTest:      row.IsTest,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}
