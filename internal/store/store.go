package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/llopes04/fieldsync/internal/records"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var errMissingDatabase = errors.New("store: database handle is required")

// snapshotRow is one record inside a collection snapshot. A collection
// is always written as a whole: Save deletes the kind's rows and
// re-inserts them in order inside a single transaction, so readers see
// either the previous snapshot or the new one, never a partial mix.
type snapshotRow struct {
	Kind        string `gorm:"column:kind;primaryKey;size:64;not null"`
	Position    int    `gorm:"column:position;primaryKey;not null"`
	RecordID    string `gorm:"column:record_id;size:190;not null"`
	PayloadJSON string `gorm:"column:payload_json;type:text;not null"`
}

// TableName provides the explicit table binding for GORM.
func (snapshotRow) TableName() string {
	return "record_snapshots"
}

// Migrations lists the models the backing database must migrate.
func Migrations() []any {
	return []any{&snapshotRow{}}
}

// Collection is the durable local cache for one entity type. Reads are
// synchronous and reflect the last completed Save; there is no
// write-behind and no partial-update primitive.
type Collection[T any] struct {
	db       *gorm.DB
	kind     records.Kind
	recordID func(T) string
	logger   *zap.Logger
}

// NewCollection binds a typed collection to its snapshot kind.
func NewCollection[T any](db *gorm.DB, kind records.Kind, recordID func(T) string, logger *zap.Logger) (*Collection[T], error) {
	if db == nil {
		return nil, errMissingDatabase
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collection[T]{db: db, kind: kind, recordID: recordID, logger: logger}, nil
}

// Load returns the collection in stored order. An absent snapshot is an
// empty collection, not an error.
func (c *Collection[T]) Load(ctx context.Context) ([]T, error) {
	var rows []snapshotRow
	err := c.db.WithContext(ctx).
		Where("kind = ?", string(c.kind)).
		Order("position ASC").
		Find(&rows).Error
	if err != nil {
		c.logger.Error("snapshot load failed", zap.String("kind", string(c.kind)), zap.Error(err))
		return nil, fmt.Errorf("load %s: %w", c.kind, err)
	}

	list := make([]T, 0, len(rows))
	for _, row := range rows {
		var record T
		if err := json.Unmarshal([]byte(row.PayloadJSON), &record); err != nil {
			c.logger.Error("snapshot row corrupt",
				zap.String("kind", string(c.kind)),
				zap.String("record_id", row.RecordID),
				zap.Error(err))
			return nil, fmt.Errorf("load %s record %s: %w", c.kind, row.RecordID, err)
		}
		list = append(list, record)
	}
	return list, nil
}

// Save atomically replaces the whole collection with the provided list.
func (c *Collection[T]) Save(ctx context.Context, list []T) error {
	rows := make([]snapshotRow, 0, len(list))
	for position, record := range list {
		payload, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("save %s: %w", c.kind, err)
		}
		rows = append(rows, snapshotRow{
			Kind:        string(c.kind),
			Position:    position,
			RecordID:    c.recordID(record),
			PayloadJSON: string(payload),
		})
	}

	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("kind = ?", string(c.kind)).Delete(&snapshotRow{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		c.logger.Error("snapshot save failed", zap.String("kind", string(c.kind)), zap.Error(err))
		return fmt.Errorf("save %s: %w", c.kind, err)
	}
	return nil
}

// Count reports the stored record count without decoding payloads.
func (c *Collection[T]) Count(ctx context.Context) (int64, error) {
	var count int64
	err := c.db.WithContext(ctx).
		Model(&snapshotRow{}).
		Where("kind = ?", string(c.kind)).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", c.kind, err)
	}
	return count, nil
}

// Store bundles the per-entity collections backed by one database file.
type Store struct {
	Clients *Collection[records.Client]
	Orders  *Collection[records.ServiceOrder]
	Users   *Collection[records.User]
	RTIs    *Collection[records.RTI]
}

// Config describes the dependencies for the local record store.
type Config struct {
	Database *gorm.DB
	Logger   *zap.Logger
}

// New wires the typed collections over the shared snapshot table.
func New(cfg Config) (*Store, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}

	clients, err := NewCollection(cfg.Database, records.KindClient, func(c records.Client) string { return c.ID }, cfg.Logger)
	if err != nil {
		return nil, err
	}
	orders, err := NewCollection(cfg.Database, records.KindServiceOrder, func(o records.ServiceOrder) string { return o.ID }, cfg.Logger)
	if err != nil {
		return nil, err
	}
	users, err := NewCollection(cfg.Database, records.KindUser, func(u records.User) string { return u.ID }, cfg.Logger)
	if err != nil {
		return nil, err
	}
	rtis, err := NewCollection(cfg.Database, records.KindRTI, func(r records.RTI) string { return r.ID }, cfg.Logger)
	if err != nil {
		return nil, err
	}

	return &Store{Clients: clients, Orders: orders, Users: users, RTIs: rtis}, nil
}
