package uow

import (
	"context"
	"errors"
	"sync"

	"github.com/wardwatch/platform/pkg/common/logger"
	"github.com/wardwatch/platform/pkg/operational"
	"github.com/wardwatch/platform/pkg/registry"
	"github.com/wardwatch/platform/pkg/store"
	"gorm.io/gorm"
)

// ErrTransactionOpen is returned by Begin when a transaction is already open
// on this unit. Replacing the scope silently would orphan its writes.
var ErrTransactionOpen = errors.New("transaction already open")

// UnitOfWork composes the two stores into one operation-scoped unit. It owns
// one handle per store, constructs each repository on first use, and scopes
// explicit transaction boundaries to the operational store only. A unit is
// meant for a single logical operation; it is not safe to share across
// concurrent operations beyond the guarded lazy initialization.
type UnitOfWork struct {
	operational *gorm.DB
	registry    *gorm.DB

	mu        sync.Mutex
	tx        *gorm.DB
	stopWatch func() bool

	alertsOnce     sync.Once
	alerts         *operational.AlertRepository
	detectionsOnce sync.Once
	detections     *operational.DetectionRepository
	embeddingsOnce sync.Once
	embeddings     *operational.FaceEmbeddingRepository
	queueOnce      sync.Once
	queue          *operational.QueueRepository
	patientsOnce   sync.Once
	patients       *registry.Repository
}

// New builds a unit over the shared store handles. The registry handle may be
// nil when the clinical registry is unreachable; Patients then returns nil and
// callers degrade to code-only views.
func New(operationalDB, registryDB *gorm.DB) *UnitOfWork {
	return &UnitOfWork{operational: operationalDB, registry: registryDB}
}

// DB implements store.Conn for the operational repositories: the open
// transaction when one exists, the base handle otherwise. Cached repositories
// therefore observe Begin/Commit without reconstruction.
func (u *UnitOfWork) DB(ctx context.Context) *gorm.DB {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.tx != nil {
		return u.tx
	}
	return u.operational
}

func (u *UnitOfWork) Alerts() *operational.AlertRepository {
	u.alertsOnce.Do(func() {
		u.alerts = operational.NewAlertRepository(u)
	})
	return u.alerts
}

func (u *UnitOfWork) Detections() *operational.DetectionRepository {
	u.detectionsOnce.Do(func() {
		u.detections = operational.NewDetectionRepository(u)
	})
	return u.detections
}

func (u *UnitOfWork) FaceEmbeddings() *operational.FaceEmbeddingRepository {
	u.embeddingsOnce.Do(func() {
		u.embeddings = operational.NewFaceEmbeddingRepository(u)
	})
	return u.embeddings
}

func (u *UnitOfWork) Queue() *operational.QueueRepository {
	u.queueOnce.Do(func() {
		u.queue = operational.NewQueueRepository(u)
	})
	return u.queue
}

// Patients returns the read-only registry repository. It never participates
// in the operational transaction.
func (u *UnitOfWork) Patients() *registry.Repository {
	u.patientsOnce.Do(func() {
		if u.registry != nil {
			u.patients = registry.NewRepository(u.registry)
		}
	})
	return u.patients
}

// Begin opens a transaction scope on the operational store. Cancelling ctx
// while the scope is open rolls it back.
func (u *UnitOfWork) Begin(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.tx != nil {
		return ErrTransactionOpen
	}

	tx := u.operational.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	u.tx = tx
	u.stopWatch = context.AfterFunc(ctx, func() {
		u.rollbackTx(tx)
	})
	return nil
}

// Commit closes the open transaction scope. A commit with no open scope is a
// no-op, so callers wrapping optional batched writes need no conditionals.
func (u *UnitOfWork) Commit() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.tx == nil {
		return nil
	}
	err := u.tx.Commit().Error
	u.clearTxLocked()
	return err
}

// Rollback discards the open transaction scope. No-op when none is open.
func (u *UnitOfWork) Rollback() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.tx == nil {
		return nil
	}
	err := u.tx.Rollback().Error
	u.clearTxLocked()
	return err
}

// SaveChanges makes the unit's pending writes durable on the operational
// store. Repositories write through immediately, so outside a transaction
// this is a successful no-op; inside one it commits the scope.
func (u *UnitOfWork) SaveChanges(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return u.Commit()
}

// Close releases any transaction still open. It never closes the underlying
// store handles; those belong to a longer-lived scope.
func (u *UnitOfWork) Close() {
	if err := u.Rollback(); err != nil {
		logger.Log.WithError(err).Warn("rollback on unit close failed")
	}
}

// rollbackTx rolls back only if the given transaction is still the open one,
// so a late cancellation watcher cannot touch a newer scope.
func (u *UnitOfWork) rollbackTx(tx *gorm.DB) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.tx != tx {
		return
	}
	if err := u.tx.Rollback().Error; err != nil {
		logger.Log.WithError(err).Warn("rollback on cancellation failed")
	}
	u.clearTxLocked()
}

func (u *UnitOfWork) clearTxLocked() {
	u.tx = nil
	if u.stopWatch != nil {
		u.stopWatch()
		u.stopWatch = nil
	}
}

var _ store.Conn = (*UnitOfWork)(nil)
