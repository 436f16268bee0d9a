package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pennyekart/pennyekart-backend/pkg/db/models"
	pkgredis "github.com/pennyekart/pennyekart-backend/pkg/redis"
)

// Store persists a user's cart lines. The service saves after every mutation.
type Store interface {
	Load(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	Save(ctx context.Context, userID uuid.UUID, items []models.CartItem) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

type redisClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CartKey(userID string) string
}

// RedisStore keeps carts as JSON documents under pk:cart:<user>.
type RedisStore struct {
	client redisClient
	ttl    time.Duration
}

func NewRedisStore(client redisClient, ttl time.Duration) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func (s *RedisStore) Load(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	raw, err := s.client.Get(ctx, s.client.CartKey(userID.String()))
	if err != nil {
		if pkgredis.IsNil(err) {
			return []models.CartItem{}, nil
		}
		return nil, err
	}
	var items []models.CartItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	if items == nil {
		items = []models.CartItem{}
	}
	return items, nil
}

func (s *RedisStore) Save(ctx context.Context, userID uuid.UUID, items []models.CartItem) error {
	if len(items) == 0 {
		return s.Clear(ctx, userID)
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	return s.client.Set(ctx, s.client.CartKey(userID.String()), string(payload), s.ttl)
}

func (s *RedisStore) Clear(ctx context.Context, userID uuid.UUID) error {
	return s.client.Del(ctx, s.client.CartKey(userID.String()))
}

// GormStore keeps carts in the carts table, one row per user.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Load(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	var record models.CartRecord
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []models.CartItem{}, nil
		}
		return nil, err
	}
	if record.Items == nil {
		return []models.CartItem{}, nil
	}
	return record.Items, nil
}

func (s *GormStore) Save(ctx context.Context, userID uuid.UUID, items []models.CartItem) error {
	if items == nil {
		items = []models.CartItem{}
	}
	record := models.CartRecord{UserID: userID, Items: items}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"items", "updated_at"}),
		}).
		Create(&record).Error
}

func (s *GormStore) Clear(ctx context.Context, userID uuid.UUID) error {
	return s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.CartRecord{}).Error
}
