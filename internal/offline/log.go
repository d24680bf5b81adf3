package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/llopes04/fieldsync/internal/records"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ActionType classifies a queued intent.
type ActionType string

const (
	ActionCreate ActionType = "create"
	ActionUpdate ActionType = "update"
	ActionDelete ActionType = "delete"
)

var (
	errMissingDatabase = errors.New("offline: database handle is required")
	errInvalidAction   = errors.New("offline: invalid action")
)

// Action is one create/update/delete intent recorded while
// disconnected, awaiting replay once connectivity returns.
type Action struct {
	Sequence    uint         `gorm:"column:sequence;primaryKey;autoIncrement" json:"sequence"`
	Type        ActionType   `gorm:"column:action_type;size:16;not null" json:"type"`
	EntityKind  records.Kind `gorm:"column:entity_kind;size:64;not null" json:"entity_kind"`
	TargetID    string       `gorm:"column:target_id;size:190" json:"target_id,omitempty"`
	PayloadJSON string       `gorm:"column:payload_json;type:text;not null" json:"payload"`
	QueuedAt    time.Time    `gorm:"column:queued_at;not null" json:"queued_at"`
}

// TableName provides the explicit table binding for GORM.
func (Action) TableName() string {
	return "offline_actions"
}

// Migrations lists the models the backing database must migrate.
func Migrations() []any {
	return []any{&Action{}}
}

// Config describes the dependencies for the action log.
type Config struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Log is the durable offline queue. It lives in its own database file,
// a different durability domain from the record store, so a failure
// here can never take the primary cache with it.
type Log struct {
	db     *gorm.DB
	clock  func() time.Time
	logger *zap.Logger
}

// NewLog constructs the action log.
func NewLog(cfg Config) (*Log, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{db: cfg.Database, clock: clock, logger: logger}, nil
}

// Enqueue appends one action. Callers on a user-facing write path must
// treat a returned error as a non-blocking notification, never as a
// reason to fail the write itself.
func (l *Log) Enqueue(ctx context.Context, actionType ActionType, kind records.Kind, targetID string, payload any) error {
	if actionType != ActionCreate && actionType != ActionUpdate && actionType != ActionDelete {
		return fmt.Errorf("%w: unknown type %q", errInvalidAction, actionType)
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("offline: encode payload: %w", err)
	}

	action := Action{
		Type:        actionType,
		EntityKind:  kind,
		TargetID:    targetID,
		PayloadJSON: string(encoded),
		QueuedAt:    l.clock().UTC(),
	}
	if err := l.db.WithContext(ctx).Create(&action).Error; err != nil {
		l.logger.Error("offline enqueue failed",
			zap.String("type", string(actionType)),
			zap.String("kind", string(kind)),
			zap.Error(err))
		return fmt.Errorf("offline: enqueue: %w", err)
	}

	l.logger.Info("offline action queued",
		zap.String("type", string(actionType)),
		zap.String("kind", string(kind)),
		zap.Uint("sequence", action.Sequence))
	return nil
}

// Drain returns every queued action in enqueue order without removing
// anything; pair with Clear after a successful replay.
func (l *Log) Drain(ctx context.Context) ([]Action, error) {
	var actions []Action
	err := l.db.WithContext(ctx).Order("sequence ASC").Find(&actions).Error
	if err != nil {
		return nil, fmt.Errorf("offline: drain: %w", err)
	}
	return actions, nil
}

// Clear removes all queued actions.
func (l *Log) Clear(ctx context.Context) error {
	if err := l.db.WithContext(ctx).Where("1 = 1").Delete(&Action{}).Error; err != nil {
		return fmt.Errorf("offline: clear: %w", err)
	}
	return nil
}

// Count reports how many actions are waiting for replay. Callers using
// the value for display should default to zero on error.
func (l *Log) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := l.db.WithContext(ctx).Model(&Action{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("offline: count: %w", err)
	}
	return count, nil
}
