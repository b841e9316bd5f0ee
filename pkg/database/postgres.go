package database

import (
	"fmt"

	"go-recycling-ledger/pkg/config"
	"go-recycling-ledger/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Connect opens the Postgres pool described by cfg.
func Connect(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	// Force simple protocol so transaction-mode poolers (pgbouncer, Supabase) work
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger:      logger.NewGormLogger(log, cfg.DBLogLevel),
		PrepareStmt: false,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

	log.Info("database connection established", zap.String("host", cfg.DBHost), zap.String("name", cfg.DBName))
	return db, nil
}
