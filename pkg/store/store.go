package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound is returned by Get when no row matches the id.
var ErrNotFound = errors.New("record not found")

// Conn supplies the gorm handle a repository should use for the current
// operation. A unit of work returns its open transaction here; standalone
// wiring returns a fixed handle.
type Conn interface {
	DB(ctx context.Context) *gorm.DB
}

type staticConn struct {
	db *gorm.DB
}

func (c staticConn) DB(ctx context.Context) *gorm.DB {
	return c.db
}

// NewConn wraps a fixed gorm handle as a Conn.
func NewConn(db *gorm.DB) Conn {
	return staticConn{db: db}
}

// Store is the minimal CRUD contract every concrete repository builds on.
type Store[T any] interface {
	Get(ctx context.Context, id interface{}) (T, error)
	List(ctx context.Context, offset, limit int) ([]T, error)
	Add(ctx context.Context, record *T) error
	Remove(ctx context.Context, id interface{}) error
	Count(ctx context.Context) (int64, error)
}

// GormStore implements Store against a gorm-mapped entity type.
type GormStore[T any] struct {
	conn Conn
}

func NewGormStore[T any](conn Conn) *GormStore[T] {
	return &GormStore[T]{conn: conn}
}

func (s *GormStore[T]) Get(ctx context.Context, id interface{}) (T, error) {
	var record T
	err := s.conn.DB(ctx).WithContext(ctx).Where("id = ?", id).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return record, ErrNotFound
	}
	return record, err
}

func (s *GormStore[T]) List(ctx context.Context, offset, limit int) ([]T, error) {
	var records []T
	query := s.conn.DB(ctx).WithContext(ctx).Offset(offset)
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&records).Error
	return records, err
}

func (s *GormStore[T]) Add(ctx context.Context, record *T) error {
	return s.conn.DB(ctx).WithContext(ctx).Create(record).Error
}

func (s *GormStore[T]) Remove(ctx context.Context, id interface{}) error {
	var record T
	result := s.conn.DB(ctx).WithContext(ctx).Where("id = ?", id).Delete(&record)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore[T]) Count(ctx context.Context) (int64, error) {
	var record T
	var count int64
	err := s.conn.DB(ctx).WithContext(ctx).Model(&record).Count(&count).Error
	return count, err
}
