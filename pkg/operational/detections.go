package operational

import (
	"context"
	"errors"
	"time"

	"github.com/wardwatch/platform/pkg/store"
	"gorm.io/gorm"
)

// SessionDateFormat is the calendar-date key for detection uniqueness.
const SessionDateFormat = "2006-01-02"

// DetectionModel is one sighting per (patient, session day). The composite
// unique index is the real invariant; the application-level check is only an
// optimization on top of it.
type DetectionModel struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	PatientCode string `gorm:"size:64;uniqueIndex:idx_detections_code_day"`
	SessionDate string `gorm:"size:10;uniqueIndex:idx_detections_code_day"`
	Confidence  float64
	Camera      string `gorm:"size:64"`
	Location    string `gorm:"size:64"`
	DetectedAt  time.Time
}

func (DetectionModel) TableName() string {
	return "detection_records"
}

type DetectionRepository struct {
	*store.GormStore[DetectionModel]
	conn store.Conn
}

func NewDetectionRepository(conn store.Conn) *DetectionRepository {
	return &DetectionRepository{
		GormStore: store.NewGormStore[DetectionModel](conn),
		conn:      conn,
	}
}

// Create inserts a detection row. A concurrent insert for the same
// (code, session date) pair returns gorm.ErrDuplicatedKey.
func (r *DetectionRepository) Create(ctx context.Context, detection *DetectionModel) error {
	return r.conn.DB(ctx).WithContext(ctx).Create(detection).Error
}

func (r *DetectionRepository) GetByCodeAndDate(ctx context.Context, code, sessionDate string) (DetectionModel, error) {
	var detection DetectionModel
	err := r.conn.DB(ctx).WithContext(ctx).
		Where("patient_code = ? AND session_date = ?", code, sessionDate).
		First(&detection).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return DetectionModel{}, store.ErrNotFound
	}
	return detection, err
}

func (r *DetectionRepository) ListByDate(ctx context.Context, sessionDate string) ([]DetectionModel, error) {
	var detections []DetectionModel
	err := r.conn.DB(ctx).WithContext(ctx).
		Where("session_date = ?", sessionDate).
		Order("detected_at DESC").
		Find(&detections).Error
	return detections, err
}

func (r *DetectionRepository) DistinctCodesByDate(ctx context.Context, sessionDate string) ([]string, error) {
	var codes []string
	err := r.conn.DB(ctx).WithContext(ctx).
		Model(&DetectionModel{}).
		Where("session_date = ?", sessionDate).
		Distinct("patient_code").
		Pluck("patient_code", &codes).Error
	return codes, err
}

func (r *DetectionRepository) Recent(ctx context.Context, limit int) ([]DetectionModel, error) {
	var detections []DetectionModel
	err := r.conn.DB(ctx).WithContext(ctx).
		Order("detected_at DESC").
		Limit(limit).
		Find(&detections).Error
	return detections, err
}
