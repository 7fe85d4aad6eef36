package operational

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/wardwatch/platform/pkg/store"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AlertModel is the persisted safety alert. Rows are never deleted; terminal
// lifecycle states stand in for deletion.
type AlertModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Type        string    `gorm:"size:32;index"`
	Severity    string    `gorm:"size:16"`
	Status      string    `gorm:"size:16;index:idx_alerts_status_created,priority:1"`
	Title       string
	Description string
	PatientCode string `gorm:"size:64;index"`
	PatientName string
	Camera      string `gorm:"size:64"`
	Location    string `gorm:"size:64"`
	Confidence  float64
	Evidence    []byte            `gorm:"type:bytea"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt   time.Time         `gorm:"index:idx_alerts_status_created,priority:2,sort:desc"`
	AckBy       string            `gorm:"size:64"`
	AckAt       *time.Time
	ResolvedBy  string `gorm:"size:64"`
	ResolvedAt  *time.Time
	Notes       string
}

func (AlertModel) TableName() string {
	return "alerts"
}

type AlertRepository struct {
	*store.GormStore[AlertModel]
	conn store.Conn
}

func NewAlertRepository(conn store.Conn) *AlertRepository {
	return &AlertRepository{
		GormStore: store.NewGormStore[AlertModel](conn),
		conn:      conn,
	}
}

func (r *AlertRepository) Create(ctx context.Context, alert *AlertModel) error {
	return r.conn.DB(ctx).WithContext(ctx).Create(alert).Error
}

func (r *AlertRepository) GetByID(ctx context.Context, id uuid.UUID) (AlertModel, error) {
	var alert AlertModel
	err := r.conn.DB(ctx).WithContext(ctx).Where("id = ?", id).First(&alert).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return AlertModel{}, store.ErrNotFound
	}
	return alert, err
}

// List returns alerts most-recent-first, optionally restricted to a status
// set, without loading the full table.
func (r *AlertRepository) List(ctx context.Context, statuses []string, offset, limit int) ([]AlertModel, error) {
	var alerts []AlertModel
	query := r.conn.DB(ctx).WithContext(ctx).Order("created_at DESC")
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Offset(offset).Find(&alerts).Error
	return alerts, err
}

func (r *AlertRepository) CountByStatus(ctx context.Context, statuses []string) (int64, error) {
	var count int64
	query := r.conn.DB(ctx).WithContext(ctx).Model(&AlertModel{})
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	err := query.Count(&count).Error
	return count, err
}

// Transition applies a lifecycle update guarded by a source-status
// precondition. A lost race between two concurrent transitions surfaces to
// the loser as zero affected rows rather than a corrupted record.
func (r *AlertRepository) Transition(ctx context.Context, id uuid.UUID, fromStatuses []string, updates map[string]interface{}) (int64, error) {
	result := r.conn.DB(ctx).WithContext(ctx).
		Model(&AlertModel{}).
		Where("id = ? AND status IN ?", id, fromStatuses).
		Updates(updates)
	return result.RowsAffected, result.Error
}
