package database

import (
	"fmt"
	"sync"

	"github.com/wardwatch/platform/pkg/common/config"
	"github.com/wardwatch/platform/pkg/common/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	operationalDB   *gorm.DB
	operationalOnce sync.Once
)

// GetOperational returns the shared handle to the operational store. All
// read-write tables (alerts, detections, embeddings, queue entries) live here.
func GetOperational() (*gorm.DB, error) {
	var err error
	operationalOnce.Do(func() {
		cfg := config.Load()
		dsn := fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			cfg.PostgresHost,
			cfg.PostgresUser,
			cfg.PostgresPassword,
			cfg.PostgresDB,
			cfg.PostgresPort,
			cfg.PostgresSSLMode,
		)

		operationalDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			TranslateError: true,
		})
		if err != nil {
			logger.Log.WithError(err).Error("Failed to connect to operational store")
			return
		}

		logger.Log.Info("Connected to operational store")
	})

	return operationalDB, err
}

func CloseOperational() error {
	if operationalDB != nil {
		sqlDB, err := operationalDB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}
