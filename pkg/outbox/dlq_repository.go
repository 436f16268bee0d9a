package outbox

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pennyekart/pennyekart-backend/pkg/db/models"
	"github.com/pennyekart/pennyekart-backend/pkg/enums"
)

const (
	maxStoredErrorLen = 1024
	defaultDLQLimit   = 50
	maxDLQLimit       = 500
)

var ErrDeadLetterNotFound = errors.New("dead-lettered event not found")

// DLQFilter narrows a dead-letter listing.
type DLQFilter struct {
	EventType enums.OutboxEventType
	Reason    enums.OutboxDLQErrorReason
	Limit     int
}

// DLQRepository parks events the relay stopped retrying and lets an operator
// put them back in the queue.
type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db}
}

func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if entry.ErrorMessage != nil {
		msg := truncateError(*entry.ErrorMessage)
		entry.ErrorMessage = &msg
	}
	return tx.Create(&entry).Error
}

// Recent lists dead letters newest first.
func (r *DLQRepository) Recent(ctx context.Context, filter DLQFilter) ([]models.OutboxDLQ, error) {
	limit := filter.Limit
	switch {
	case limit <= 0:
		limit = defaultDLQLimit
	case limit > maxDLQLimit:
		limit = maxDLQLimit
	}
	q := r.db.WithContext(ctx).Model(&models.OutboxDLQ{})
	if filter.EventType != "" {
		q = q.Where("event_type = ?", filter.EventType)
	}
	if filter.Reason != "" {
		q = q.Where("error_reason = ?", filter.Reason)
	}
	var rows []models.OutboxDLQ
	err := q.Order("failed_at DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

// Redrive returns a dead-lettered event to the pending queue with a fresh
// attempt budget. If retention already removed the outbox row it is
// recreated from the parked payload under the same id, so consumers still
// dedupe on it.
func (r *DLQRepository) Redrive(ctx context.Context, eventID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entries []models.OutboxDLQ
		if err := tx.Where("event_id = ?", eventID).Order("failed_at DESC").Find(&entries).Error; err != nil {
			return err
		}
		if len(entries) == 0 {
			return ErrDeadLetterNotFound
		}

		var existing int64
		if err := tx.Model(&models.OutboxEvent{}).Where("id = ?", eventID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			err := tx.Model(&models.OutboxEvent{}).
				Where("id = ?", eventID).
				Updates(map[string]any{"attempt_count": 0, "last_error": nil, "published_at": nil}).Error
			if err != nil {
				return err
			}
		} else {
			latest := entries[0]
			restored := models.OutboxEvent{
				ID:            latest.EventID,
				EventType:     latest.EventType,
				AggregateType: latest.AggregateType,
				AggregateID:   latest.AggregateID,
				Payload:       latest.Payload,
			}
			if err := tx.Create(&restored).Error; err != nil {
				return err
			}
		}
		return tx.Where("event_id = ?", eventID).Delete(&models.OutboxDLQ{}).Error
	})
}

// PruneBefore drops dead letters that failed before cutoff.
func (r *DLQRepository) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("failed_at < ?", cutoff).Delete(&models.OutboxDLQ{})
	return res.RowsAffected, res.Error
}

// truncateError caps stored error text without splitting a rune.
func truncateError(message string) string {
	if len(message) <= maxStoredErrorLen {
		return message
	}
	cut := maxStoredErrorLen
	for cut > 0 && !utf8.RuneStart(message[cut]) {
		cut--
	}
	return message[:cut]
}
