package enrollment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/wardwatch/platform/pkg/common/models"
	"github.com/wardwatch/platform/pkg/operational"
	"github.com/wardwatch/platform/pkg/store"
)

// ErrNoVectors is returned when an enrollment carries no embeddings.
var ErrNoVectors = errors.New("enrollment requires at least one embedding vector")

// EmbeddingStore is the slice of the embedding repository this service uses.
type EmbeddingStore interface {
	Create(ctx context.Context, embedding *operational.FaceEmbeddingModel) error
	ActiveByCode(ctx context.Context, code string) ([]operational.FaceEmbeddingModel, error)
	Deactivate(ctx context.Context, id int64) error
	DeleteByCode(ctx context.Context, code string) (int64, error)
}

// Unit is the per-operation view of the unit of work.
type Unit interface {
	FaceEmbeddings() EmbeddingStore
	Begin(ctx context.Context) error
	SaveChanges(ctx context.Context) error
	Rollback() error
	Close()
}

type UnitFactory func() Unit

// Service manages enrollment embeddings for face recognition. Re-enrollment
// replaces a patient's embeddings atomically: the bulk delete and the new
// inserts share one transaction scope so recognition never observes a
// half-replaced set.
type Service struct {
	units UnitFactory
	now   func() time.Time
}

func NewService(units UnitFactory) *Service {
	return &Service{units: units, now: time.Now}
}

// Enroll replaces the patient's embeddings with the given vectors.
func (s *Service) Enroll(ctx context.Context, code, model, actor string, vectors [][]float64) ([]models.FaceEmbedding, error) {
	if len(vectors) == 0 {
		return nil, ErrNoVectors
	}

	unit := s.units()
	defer unit.Close()
	repo := unit.FaceEmbeddings()

	if err := unit.Begin(ctx); err != nil {
		return nil, err
	}

	if _, err := repo.DeleteByCode(ctx, code); err != nil {
		unit.Rollback()
		return nil, err
	}

	created := make([]*operational.FaceEmbeddingModel, 0, len(vectors))
	for _, vector := range vectors {
		encoded, err := json.Marshal(vector)
		if err != nil {
			unit.Rollback()
			return nil, fmt.Errorf("failed to encode embedding vector: %w", err)
		}

		embedding := &operational.FaceEmbeddingModel{
			PatientCode: code,
			Vector:      encoded,
			Model:       model,
			Dimensions:  len(vector),
			Active:      true,
			CreatedAt:   s.now().UTC(),
			CreatedBy:   actor,
		}
		if err := repo.Create(ctx, embedding); err != nil {
			unit.Rollback()
			return nil, err
		}
		created = append(created, embedding)
	}

	if err := unit.SaveChanges(ctx); err != nil {
		unit.Rollback()
		return nil, err
	}

	views := make([]models.FaceEmbedding, 0, len(created))
	for _, embedding := range created {
		views = append(views, mapEmbeddingModel(*embedding))
	}
	return views, nil
}

// Active lists the patient's active embeddings.
func (s *Service) Active(ctx context.Context, code string) ([]models.FaceEmbedding, error) {
	unit := s.units()
	defer unit.Close()

	rows, err := unit.FaceEmbeddings().ActiveByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	views := make([]models.FaceEmbedding, 0, len(rows))
	for _, row := range rows {
		views = append(views, mapEmbeddingModel(row))
	}
	return views, nil
}

// Deactivate soft-deletes one embedding.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	unit := s.units()
	defer unit.Close()

	err := unit.FaceEmbeddings().Deactivate(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return store.ErrNotFound
	}
	return err
}

// Remove hard-deletes every embedding for a patient.
func (s *Service) Remove(ctx context.Context, code string) (int64, error) {
	unit := s.units()
	defer unit.Close()

	return unit.FaceEmbeddings().DeleteByCode(ctx, code)
}

func mapEmbeddingModel(embedding operational.FaceEmbeddingModel) models.FaceEmbedding {
	return models.FaceEmbedding{
		ID:          embedding.ID,
		PatientCode: embedding.PatientCode,
		Model:       embedding.Model,
		Dimensions:  embedding.Dimensions,
		Active:      embedding.Active,
		CreatedAt:   embedding.CreatedAt,
	}
}
