package registry

import (
	"context"
	"errors"
	"time"

	"github.com/wardwatch/platform/pkg/common/models"
	"gorm.io/gorm"
)

// ErrPatientNotFound is returned when no registry row matches the
// medical-record code.
var ErrPatientNotFound = errors.New("patient not found in registry")

// PatientModel maps the registry's existing patients table. Column names are
// fixed by the hospital information system; this layer never migrates or
// writes them.
type PatientModel struct {
	ID        int64     `gorm:"column:id;primaryKey"`
	Code      string    `gorm:"column:mrn_code"`
	Name      string    `gorm:"column:full_name"`
	BirthDate time.Time `gorm:"column:birth_date"`
	Contact   string    `gorm:"column:contact_info"`
	PhotoRef  string    `gorm:"column:photo_ref"`
}

func (PatientModel) TableName() string {
	return "patients"
}

// Repository is the read-only view onto the clinical registry. It exposes no
// write methods; writes through the underlying handle are additionally
// rejected by the read-only callback guard on the registry connection.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetByCode looks a patient up by medical-record code, the cross-store key.
func (r *Repository) GetByCode(ctx context.Context, code string) (models.PatientIdentity, error) {
	var patient PatientModel
	err := r.db.WithContext(ctx).Where("mrn_code = ?", code).First(&patient).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.PatientIdentity{}, ErrPatientNotFound
	}
	if err != nil {
		return models.PatientIdentity{}, err
	}
	return mapPatientModel(patient), nil
}

func (r *Repository) List(ctx context.Context, offset, limit int) ([]models.PatientIdentity, error) {
	var patients []PatientModel
	query := r.db.WithContext(ctx).Order("mrn_code ASC").Offset(offset)
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&patients).Error; err != nil {
		return nil, err
	}

	identities := make([]models.PatientIdentity, 0, len(patients))
	for _, patient := range patients {
		identities = append(identities, mapPatientModel(patient))
	}
	return identities, nil
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&PatientModel{}).Count(&count).Error
	return count, err
}

func mapPatientModel(patient PatientModel) models.PatientIdentity {
	return models.PatientIdentity{
		ID:        patient.ID,
		Code:      patient.Code,
		Name:      patient.Name,
		BirthDate: patient.BirthDate,
		Contact:   patient.Contact,
		PhotoRef:  patient.PhotoRef,
	}
}
