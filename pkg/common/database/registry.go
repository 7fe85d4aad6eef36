package database

import (
	"errors"
	"fmt"
	"sync"

	"github.com/wardwatch/platform/pkg/common/config"
	"github.com/wardwatch/platform/pkg/common/logger"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// ErrReadOnlyStore is returned by any attempt to write through the registry
// handle. The clinical registry is owned by the hospital information system;
// this layer only reads it.
var ErrReadOnlyStore = errors.New("registry store is read-only")

var (
	registryDB   *gorm.DB
	registryOnce sync.Once
)

// GetRegistry returns the shared handle to the clinical registry store.
// Create/update/delete callbacks are replaced with a guard so that a write
// through this handle fails immediately instead of reaching the registry.
func GetRegistry() (*gorm.DB, error) {
	var err error
	registryOnce.Do(func() {
		cfg := config.Load()
		dsn := fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			cfg.RegistryUser,
			cfg.RegistryPassword,
			cfg.RegistryHost,
			cfg.RegistryPort,
			cfg.RegistryDB,
		)

		registryDB, err = gorm.Open(mysql.Open(dsn), &gorm.Config{})
		if err != nil {
			logger.Log.WithError(err).Error("Failed to connect to registry store")
			return
		}

		guard := func(db *gorm.DB) { db.AddError(ErrReadOnlyStore) }
		registryDB.Callback().Create().Replace("gorm:create", guard)
		registryDB.Callback().Update().Replace("gorm:update", guard)
		registryDB.Callback().Delete().Replace("gorm:delete", guard)

		logger.Log.Info("Connected to registry store (read-only)")
	})

	return registryDB, err
}

func CloseRegistry() error {
	if registryDB != nil {
		sqlDB, err := registryDB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}
