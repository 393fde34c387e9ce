package database

import (
	"fmt"

	"github.com/scandicu/iftcohort/pkg/common/config"
	"github.com/scandicu/iftcohort/pkg/common/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to the configured registry source. The pipeline runs either
// against an offline SQLite snapshot of the extract or against the registry
// Postgres database directly.
func Open(cfg config.SourceConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}

	switch cfg.Driver {
	case "sqlite":
		db, err := gorm.Open(sqlite.Open(cfg.SQLitePath), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("open sqlite snapshot %s: %w", cfg.SQLitePath, err)
		}
		logger.Log.WithField("path", cfg.SQLitePath).Info("opened registry snapshot")
		return db, nil
	case "postgres":
		dsn := fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			cfg.PostgresHost,
			cfg.PostgresUser,
			cfg.PostgresPassword,
			cfg.PostgresDB,
			cfg.PostgresPort,
			cfg.PostgresSSLMode,
		)
		db, err := gorm.Open(postgres.Open(dsn), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("connect to registry postgres: %w", err)
		}
		logger.Log.WithField("host", cfg.PostgresHost).Info("connected to registry database")
		return db, nil
	default:
		return nil, fmt.Errorf("source driver '%s' not supported", cfg.Driver)
	}
}

func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
