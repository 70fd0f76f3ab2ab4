package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"propstack/server/internal/models"
)

// storedRecord is the single table backing every collection. Payloads are
// JSON so the store stays a plain key/value surface regardless of record
// shape.
type storedRecord struct {
	Collection string `gorm:"primaryKey"`
	ID         string `gorm:"primaryKey"`
	Payload    string
}

func (storedRecord) TableName() string { return "records" }

// SQLiteStore persists records in a local sqlite database via gorm.
type SQLiteStore struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewSQLiteStore opens (or creates) the database at dbPath and migrates the
// records table.
func NewSQLiteStore(dbPath string, logger *logrus.Logger) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := db.AutoMigrate(&storedRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate records table: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// decodeRecord rebuilds the concrete model for a collection's payload.
func decodeRecord(collection, payload string) (Record, error) {
	switch collection {
	case CollectionListings:
		var listing models.Listing
		if err := json.Unmarshal([]byte(payload), &listing); err != nil {
			return nil, err
		}
		return &listing, nil
	case CollectionObjects:
		var object models.RealEstateObject
		if err := json.Unmarshal([]byte(payload), &object); err != nil {
			return nil, err
		}
		return &object, nil
	case CollectionAddresses:
		var address models.Address
		if err := json.Unmarshal([]byte(payload), &address); err != nil {
			return nil, err
		}
		return &address, nil
	default:
		return nil, fmt.Errorf("unknown collection %q", collection)
	}
}

// GetAll returns every record in a collection ordered by id.
func (s *SQLiteStore) GetAll(ctx context.Context, collection string) ([]Record, error) {
	var rows []storedRecord
	err := s.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, models.PersistenceError("get all "+collection, err)
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		record, err := decodeRecord(collection, row.Payload)
		if err != nil {
			s.logger.WithError(err).WithField("id", row.ID).Warn("Skipping undecodable record")
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// Get returns one record or a NotFoundError.
func (s *SQLiteStore) Get(ctx context.Context, collection, id string) (Record, error) {
	var row storedRecord
	err := s.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NotFoundError(collection, id)
	}
	if err != nil {
		return nil, models.PersistenceError("get "+collection, err)
	}

	record, err := decodeRecord(collection, row.Payload)
	if err != nil {
		return nil, models.PersistenceError("decode "+collection, err)
	}
	return record, nil
}

// Add inserts a record; an existing id fails validation.
func (s *SQLiteStore) Add(ctx context.Context, collection string, record Record) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return models.PersistenceError("encode "+collection, err)
	}

	row := storedRecord{Collection: collection, ID: record.RecordID(), Payload: string(payload)}
	result := s.db.WithContext(ctx).Create(&row)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return models.ValidationError("record %q already exists in %s", record.RecordID(), collection)
		}
		return models.PersistenceError("add "+collection, result.Error)
	}
	return nil
}

// Update replaces an existing record.
func (s *SQLiteStore) Update(ctx context.Context, collection string, record Record) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return models.PersistenceError("encode "+collection, err)
	}

	result := s.db.WithContext(ctx).
		Model(&storedRecord{}).
		Where("collection = ? AND id = ?", collection, record.RecordID()).
		Update("payload", string(payload))
	if result.Error != nil {
		return models.PersistenceError("update "+collection, result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NotFoundError(collection, record.RecordID())
	}
	return nil
}

// Delete removes a record by id.
func (s *SQLiteStore) Delete(ctx context.Context, collection, id string) error {
	result := s.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		Delete(&storedRecord{})
	if result.Error != nil {
		return models.PersistenceError("delete "+collection, result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NotFoundError(collection, id)
	}
	return nil
}
