package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"taskboard/internal/models"
)

type BootstrapConfig struct {
	MaxRetries int
	RetryDelay time.Duration
	Logger     *logrus.Logger
}

func DefaultBootstrapConfig() *BootstrapConfig {
	return &BootstrapConfig{
		MaxRetries: 3,
		RetryDelay: 2 * time.Second,
	}
}

// Bootstrap waits for the database and creates any missing table, column or
// index for the entity models. It never drops or rewrites existing columns.
func Bootstrap(db *gorm.DB, config *BootstrapConfig) error {
	if config == nil {
		config = DefaultBootstrapConfig()
	}
	log := config.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if err := waitForDatabase(sqlDB, config.MaxRetries, config.RetryDelay, log); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}

	entities := []interface{}{&models.Task{}, &models.Category{}, &models.Note{}, &models.User{}}
	if err := db.AutoMigrate(entities...); err != nil {
		return fmt.Errorf("failed to bootstrap tables: %w", err)
	}

	tables, err := db.Migrator().GetTables()
	if err != nil {
		log.WithError(err).Warn("could not list tables after bootstrap")
		return nil
	}
	log.WithField("tables", tables).Info("database tables ready")
	return nil
}

func waitForDatabase(db *sql.DB, maxRetries int, retryDelay time.Duration, log *logrus.Logger) error {
	if maxRetries < 1 {
		maxRetries = 1
	}
	for i := 0; i < maxRetries; i++ {
		if err := db.Ping(); err == nil {
			return nil
		}
		if i < maxRetries-1 {
			log.WithFields(logrus.Fields{
				"attempt": i + 1,
				"max":     maxRetries,
				"delay":   retryDelay.String(),
			}).Warn("database not ready, retrying")
			time.Sleep(retryDelay)
		}
	}
	return fmt.Errorf("database not ready after %d attempts", maxRetries)
}
