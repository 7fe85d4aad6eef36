package alerts

import (
	"context"

	"github.com/wardwatch/platform/pkg/uow"
	"gorm.io/gorm"
)

type uowUnit struct {
	unit *uow.UnitOfWork
}

func (w uowUnit) Alerts() AlertStore { return w.unit.Alerts() }

func (w uowUnit) Patients() NameResolver {
	if patients := w.unit.Patients(); patients != nil {
		return patients
	}
	return nil
}

func (w uowUnit) Begin(ctx context.Context) error       { return w.unit.Begin(ctx) }
func (w uowUnit) SaveChanges(ctx context.Context) error { return w.unit.SaveChanges(ctx) }
func (w uowUnit) Rollback() error                       { return w.unit.Rollback() }
func (w uowUnit) Close()                                { w.unit.Close() }

// NewUnitFactory wires the lifecycle manager to real units of work over the
// shared store handles. registryDB may be nil; name resolution then degrades.
func NewUnitFactory(operationalDB, registryDB *gorm.DB) UnitFactory {
	return func() Unit {
		return uowUnit{unit: uow.New(operationalDB, registryDB)}
	}
}
