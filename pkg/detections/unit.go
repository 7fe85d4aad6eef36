package detections

import (
	"github.com/wardwatch/platform/pkg/uow"
	"gorm.io/gorm"
)

type uowUnit struct {
	unit *uow.UnitOfWork
}

func (w uowUnit) Detections() DetectionStore { return w.unit.Detections() }
func (w uowUnit) Close()                     { w.unit.Close() }

// NewUnitFactory wires the recording service to real units of work. Detection
// recording never touches the registry store.
func NewUnitFactory(operationalDB *gorm.DB) UnitFactory {
	return func() Unit {
		return uowUnit{unit: uow.New(operationalDB, nil)}
	}
}
