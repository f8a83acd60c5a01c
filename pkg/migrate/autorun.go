package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/carline-backend/pkg/config"
	"github.com/angelmondragon/carline-backend/pkg/db"
	"github.com/angelmondragon/carline-backend/pkg/db/models"
	"github.com/angelmondragon/carline-backend/pkg/logger"
)

// MaybeRunDev applies the embedded migrations on startup when running in dev
// with CARLINE_AUTO_MIGRATE enabled. Other environments use cmd/migrate.
// The goose files are postgres SQL, so a sqlite database is built from the
// gorm models instead.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	ctx = logg.WithField(ctx, "env", cfg.App.Env)
	if cfg.DB.IsSQLite() {
		if err := models.Migrate(client.DB().WithContext(ctx)); err != nil {
			return fmt.Errorf("automigrate sqlite: %w", err)
		}
		logg.Info(ctx, "sqlite schema synced from models")
		return nil
	}
	sqlDB, err := client.SQL()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	fsys, err := Source("")
	if err != nil {
		return err
	}
	m, err := New(sqlDB, fsys)
	if err != nil {
		return err
	}

	applied, err := m.Up(ctx)
	if err != nil {
		return err
	}
	logg.Info(logg.WithField(ctx, "applied", len(applied)), "dev migrations applied")
	return nil
}
