// Package dbtest opens an in-memory sqlite database carrying the storefront
// schema so repository tests run without Postgres.
package dbtest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// schema mirrors pkg/migrate/migrations with sqlite column types.
var schema = []string{
	`CREATE TABLE locations_districts (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL UNIQUE
);`,
	`CREATE TABLE locations_local_bodies (
  id TEXT PRIMARY KEY,
  district_id TEXT NOT NULL,
  name TEXT NOT NULL,
  body_type TEXT NOT NULL DEFAULT 'panchayath',
  ward_count INTEGER NOT NULL DEFAULT 0
);`,
	`CREATE TABLE profiles (
  user_id TEXT PRIMARY KEY,
  full_name TEXT NOT NULL DEFAULT '',
  role TEXT NOT NULL DEFAULT 'customer',
  local_body_id TEXT,
  ward_number INTEGER,
  is_approved INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT,
  price NUMERIC NOT NULL,
  mrp NUMERIC NOT NULL,
  discount_rate NUMERIC NOT NULL DEFAULT 0,
  category TEXT,
  section TEXT,
  image_url TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  stock INTEGER NOT NULL DEFAULT 0,
  coming_soon INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE godowns (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  godown_type TEXT NOT NULL CHECK (godown_type IN ('micro', 'local', 'area')),
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE godown_local_bodies (
  id TEXT PRIMARY KEY,
  godown_id TEXT NOT NULL,
  local_body_id TEXT NOT NULL,
  created_at DATETIME,
  UNIQUE (godown_id, local_body_id)
);`,
	`CREATE TABLE godown_wards (
  id TEXT PRIMARY KEY,
  godown_id TEXT NOT NULL,
  local_body_id TEXT NOT NULL,
  ward_number INTEGER NOT NULL CHECK (ward_number > 0),
  created_at DATETIME,
  UNIQUE (godown_id, local_body_id, ward_number)
);`,
	`CREATE TABLE godown_stock (
  id TEXT PRIMARY KEY,
  godown_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL CHECK (quantity >= 0),
  purchase_price NUMERIC NOT NULL DEFAULT 0,
  batch_number TEXT,
  purchase_number TEXT,
  expiry_date DATETIME,
  created_at DATETIME
);`,
	`CREATE TABLE seller_products (
  id TEXT PRIMARY KEY,
  seller_id TEXT NOT NULL,
  name TEXT NOT NULL,
  description TEXT,
  price NUMERIC NOT NULL,
  mrp NUMERIC NOT NULL,
  discount_rate NUMERIC NOT NULL DEFAULT 0,
  category TEXT,
  image_url TEXT,
  stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
  area_godown_id TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  is_approved INTEGER NOT NULL DEFAULT 0,
  coming_soon INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE carts (
  user_id TEXT PRIMARY KEY,
  items TEXT NOT NULL DEFAULT '[]',
  updated_at DATETIME
);`,
	`CREATE TABLE checkout_groups (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  idempotency_key TEXT NOT NULL,
  cart_subtotal NUMERIC NOT NULL,
  platform_fee NUMERIC NOT NULL,
  coupon_discount NUMERIC NOT NULL DEFAULT 0,
  wallet_deduction NUMERIC NOT NULL DEFAULT 0,
  payment_method TEXT NOT NULL,
  created_at DATETIME,
  UNIQUE (user_id, idempotency_key)
);`,
	`CREATE TABLE orders (
  id TEXT PRIMARY KEY,
  checkout_group_id TEXT,
  user_id TEXT NOT NULL,
  seller_id TEXT,
  items TEXT NOT NULL,
  subtotal NUMERIC NOT NULL,
  fee_share NUMERIC NOT NULL DEFAULT 0,
  coupon_share NUMERIC NOT NULL DEFAULT 0,
  wallet_share NUMERIC NOT NULL DEFAULT 0,
  total NUMERIC NOT NULL,
  status TEXT NOT NULL,
  shipping_address TEXT NOT NULL DEFAULT '',
  payment_method TEXT NOT NULL DEFAULT 'cod',
  assigned_delivery_staff_id TEXT,
  delivered_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE order_status_transitions (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  from_status TEXT NOT NULL,
  to_status TEXT NOT NULL,
  actor_id TEXT NOT NULL,
  idempotency_key TEXT NOT NULL UNIQUE,
  created_at DATETIME,
  UNIQUE (order_id, to_status)
);`,
	`CREATE TABLE delivery_staff_wallets (
  id TEXT PRIMARY KEY,
  staff_user_id TEXT NOT NULL UNIQUE,
  created_at DATETIME
);`,
	`CREATE TABLE delivery_staff_wallet_transactions (
  id TEXT PRIMARY KEY,
  wallet_id TEXT NOT NULL,
  staff_user_id TEXT NOT NULL,
  order_id TEXT,
  amount NUMERIC NOT NULL CHECK (amount > 0),
  type TEXT NOT NULL CHECK (type IN ('credit', 'debit')),
  description TEXT NOT NULL DEFAULT '',
  idempotency_key TEXT NOT NULL UNIQUE,
  created_at DATETIME
);`,
	`CREATE TABLE delivery_staff_ward_assignments (
  id TEXT PRIMARY KEY,
  staff_user_id TEXT NOT NULL,
  local_body_id TEXT NOT NULL,
  ward_number INTEGER NOT NULL,
  created_at DATETIME,
  UNIQUE (staff_user_id, local_body_id, ward_number)
);`,
	`CREATE TABLE outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`,
	`CREATE TABLE outbox_dlq (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload_json TEXT NOT NULL,
  error_reason TEXT NOT NULL,
  error_message TEXT,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  failed_at DATETIME
);`,
}

// Open returns a fresh, isolated database with every table created.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection keeps the in-memory database alive and serializes writers
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}
