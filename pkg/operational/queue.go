package operational

import (
	"context"

	"github.com/wardwatch/platform/pkg/store"
)

// QueueEntryModel mirrors the department visit queue. Read-mostly here: it
// answers "is this patient expected today" without touching the registry.
type QueueEntryModel struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	PatientCode string `gorm:"size:64;index:idx_queue_code_date,priority:1"`
	Department  string `gorm:"size:64;index"`
	VisitDate   string `gorm:"size:10;index:idx_queue_code_date,priority:2"`
	Position    int
	Status      string `gorm:"size:16"`
}

func (QueueEntryModel) TableName() string {
	return "queue_entries"
}

type QueueRepository struct {
	*store.GormStore[QueueEntryModel]
	conn store.Conn
}

func NewQueueRepository(conn store.Conn) *QueueRepository {
	return &QueueRepository{
		GormStore: store.NewGormStore[QueueEntryModel](conn),
		conn:      conn,
	}
}

// ActiveForPatient returns the patient's non-cancelled entries for a visit
// date. Empty result means the patient is not expected that day.
func (r *QueueRepository) ActiveForPatient(ctx context.Context, code, visitDate string) ([]QueueEntryModel, error) {
	var entries []QueueEntryModel
	err := r.conn.DB(ctx).WithContext(ctx).
		Where("patient_code = ? AND visit_date = ? AND status <> ?", code, visitDate, "cancelled").
		Order("position ASC").
		Find(&entries).Error
	return entries, err
}

func (r *QueueRepository) ListForDepartment(ctx context.Context, department, visitDate string) ([]QueueEntryModel, error) {
	var entries []QueueEntryModel
	err := r.conn.DB(ctx).WithContext(ctx).
		Where("department = ? AND visit_date = ?", department, visitDate).
		Order("position ASC").
		Find(&entries).Error
	return entries, err
}
