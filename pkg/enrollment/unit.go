package enrollment

import (
	"context"

	"github.com/wardwatch/platform/pkg/uow"
	"gorm.io/gorm"
)

type uowUnit struct {
	unit *uow.UnitOfWork
}

func (w uowUnit) FaceEmbeddings() EmbeddingStore        { return w.unit.FaceEmbeddings() }
func (w uowUnit) Begin(ctx context.Context) error       { return w.unit.Begin(ctx) }
func (w uowUnit) SaveChanges(ctx context.Context) error { return w.unit.SaveChanges(ctx) }
func (w uowUnit) Rollback() error                       { return w.unit.Rollback() }
func (w uowUnit) Close()                                { w.unit.Close() }

// NewUnitFactory wires enrollment to real units of work.
func NewUnitFactory(operationalDB *gorm.DB) UnitFactory {
	return func() Unit {
		return uowUnit{unit: uow.New(operationalDB, nil)}
	}
}
