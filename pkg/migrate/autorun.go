package migrate

import (
	"context"
	"fmt"

	"github.com/pennyekart/pennyekart-backend/pkg/config"
	"github.com/pennyekart/pennyekart-backend/pkg/db"
	"github.com/pennyekart/pennyekart-backend/pkg/logger"
)

// MaybeRunDev applies the embedded migrations when running in dev with
// PENNYEKART_AUTO_MIGRATE set. SQLite databases are skipped: the schema is
// written for postgres.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})
	if cfg.FeatureFlags.UseSQLite {
		logg.Warn(ctx, "auto migrate skipped for sqlite")
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	m, err := New(sqlDB, Migrations(), logg)
	if err != nil {
		return err
	}
	pending, err := m.Pending(ctx)
	if err != nil {
		return err
	}
	if pending == 0 {
		logg.Debug(ctx, "schema up to date")
		return nil
	}
	logg.Info(logg.WithField(ctx, "pending", pending), "applying migrations (dev auto-run)")
	return m.Up(ctx)
}
