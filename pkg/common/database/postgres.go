package database

import (
	"fmt"
	"sync"

	"github.com/clerapp/platform/pkg/common/config"
	"github.com/clerapp/platform/pkg/common/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	db   *gorm.DB
	dbMu sync.Mutex
)

// Get returns the process-wide connection for the configured driver. A failed
// open is not cached, so callers may retry.
func Get(cfg *config.Config) (*gorm.DB, error) {
	dbMu.Lock()
	defer dbMu.Unlock()
	if db != nil {
		return db, nil
	}

	var (
		conn *gorm.DB
		err  error
	)
	switch cfg.DatabaseDriver {
	case "sqlite":
		conn, err = OpenSQLite(cfg.SQLitePath)
	case "postgres", "":
		conn, err = OpenPostgres(cfg)
	default:
		err = fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
	if err != nil {
		logger.Log.WithError(err).WithField("driver", cfg.DatabaseDriver).Error("Failed to open database")
		return nil, err
	}
	logger.Log.WithField("driver", cfg.DatabaseDriver).Info("Connected to database")
	db = conn
	return db, nil
}

func OpenPostgres(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		cfg.PostgresHost,
		cfg.PostgresUser,
		cfg.PostgresPassword,
		cfg.PostgresDB,
		cfg.PostgresPort,
		cfg.PostgresSSLMode,
	)

	return gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
}

func Close() error {
	dbMu.Lock()
	defer dbMu.Unlock()
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	db = nil
	return sqlDB.Close()
}
