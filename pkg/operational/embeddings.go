package operational

import (
	"context"
	"time"

	"github.com/wardwatch/platform/pkg/store"
	"gorm.io/datatypes"
)

// FaceEmbeddingModel stores one enrollment embedding per row. The vector is
// opaque to this layer; similarity search happens in the vision pipeline.
// Many embeddings may exist per patient code.
type FaceEmbeddingModel struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	PatientCode string `gorm:"size:64;index:idx_embeddings_code_active,priority:1"`
	Vector      datatypes.JSON
	Model       string `gorm:"size:64"`
	Dimensions  int
	Active      bool `gorm:"index:idx_embeddings_code_active,priority:2"`
	CreatedAt   time.Time
	CreatedBy   string `gorm:"size:64"`
}

func (FaceEmbeddingModel) TableName() string {
	return "face_embeddings"
}

type FaceEmbeddingRepository struct {
	*store.GormStore[FaceEmbeddingModel]
	conn store.Conn
}

func NewFaceEmbeddingRepository(conn store.Conn) *FaceEmbeddingRepository {
	return &FaceEmbeddingRepository{
		GormStore: store.NewGormStore[FaceEmbeddingModel](conn),
		conn:      conn,
	}
}

func (r *FaceEmbeddingRepository) Create(ctx context.Context, embedding *FaceEmbeddingModel) error {
	return r.conn.DB(ctx).WithContext(ctx).Create(embedding).Error
}

// ActiveByCode is the recognition-time lookup; it rides the
// (patient_code, active) index.
func (r *FaceEmbeddingRepository) ActiveByCode(ctx context.Context, code string) ([]FaceEmbeddingModel, error) {
	var embeddings []FaceEmbeddingModel
	err := r.conn.DB(ctx).WithContext(ctx).
		Where("patient_code = ? AND active = ?", code, true).
		Find(&embeddings).Error
	return embeddings, err
}

// Deactivate soft-deletes a single embedding.
func (r *FaceEmbeddingRepository) Deactivate(ctx context.Context, id int64) error {
	result := r.conn.DB(ctx).WithContext(ctx).
		Model(&FaceEmbeddingModel{}).
		Where("id = ?", id).
		Update("active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteByCode hard-deletes every embedding for a patient, used on
// re-enrollment and patient removal.
func (r *FaceEmbeddingRepository) DeleteByCode(ctx context.Context, code string) (int64, error) {
	result := r.conn.DB(ctx).WithContext(ctx).
		Where("patient_code = ?", code).
		Delete(&FaceEmbeddingModel{})
	return result.RowsAffected, result.Error
}
