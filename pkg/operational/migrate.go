package operational

import "gorm.io/gorm"

// AutoMigrate creates the operational tables and their indexes. The registry
// store is never migrated by this layer.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&AlertModel{},
		&DetectionModel{},
		&FaceEmbeddingModel{},
		&QueueEntryModel{},
	)
}
