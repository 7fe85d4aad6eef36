package detections

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wardwatch/platform/pkg/broadcast"
	"github.com/wardwatch/platform/pkg/common/logger"
	"github.com/wardwatch/platform/pkg/common/models"
	"github.com/wardwatch/platform/pkg/operational"
	"github.com/wardwatch/platform/pkg/store"
	"gorm.io/gorm"
)

const seenKeyPrefix = "detections:seen:"

// DetectionStore is the slice of the detection repository this service uses.
type DetectionStore interface {
	Create(ctx context.Context, detection *operational.DetectionModel) error
	GetByCodeAndDate(ctx context.Context, code, sessionDate string) (operational.DetectionModel, error)
	ListByDate(ctx context.Context, sessionDate string) ([]operational.DetectionModel, error)
	DistinctCodesByDate(ctx context.Context, sessionDate string) ([]string, error)
	Recent(ctx context.Context, limit int) ([]operational.DetectionModel, error)
}

// Unit is the per-operation view of the unit of work.
type Unit interface {
	Detections() DetectionStore
	Close()
}

type UnitFactory func() Unit

// Service records patient sightings with at most one row per patient per
// session day. The store's unique index is the enforcement mechanism; the
// redis seen-today set and the pre-insert read only save constraint-violation
// round-trips. First write wins: later sightings of the same day return the
// stored row unchanged.
type Service struct {
	units       UnitFactory
	cache       *redis.Client
	broadcaster broadcast.Broadcaster
	now         func() time.Time
}

func NewService(units UnitFactory, cache *redis.Client, broadcaster broadcast.Broadcaster) *Service {
	return &Service{
		units:       units,
		cache:       cache,
		broadcaster: broadcaster,
		now:         time.Now,
	}
}

// Record stores a detection for today's session day. The second return value
// is false when the patient was already recorded today, including when a
// concurrent recognition won the insert race.
func (s *Service) Record(ctx context.Context, req models.PatientDetectedRequest) (models.DetectionRecord, bool, error) {
	unit := s.units()
	defer unit.Close()
	repo := unit.Detections()

	now := s.now().UTC()
	sessionDate := now.Format(operational.SessionDateFormat)

	if s.seenInCache(ctx, req.PatientID, sessionDate) {
		existing, err := repo.GetByCodeAndDate(ctx, req.PatientID, sessionDate)
		if err == nil {
			return mapDetectionModel(existing), false, nil
		}
		// Stale cache entry; fall through to the store.
		if !errors.Is(err, store.ErrNotFound) {
			return models.DetectionRecord{}, false, err
		}
	}

	existing, err := repo.GetByCodeAndDate(ctx, req.PatientID, sessionDate)
	if err == nil {
		s.markSeen(ctx, req.PatientID, sessionDate, now)
		return mapDetectionModel(existing), false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return models.DetectionRecord{}, false, err
	}

	// The camera's own clock is the detection time; receive time is only the
	// fallback, so consumer lag does not shift the record.
	detectedAt := now
	if !req.Timestamp.IsZero() {
		detectedAt = req.Timestamp.UTC()
	}

	detection := &operational.DetectionModel{
		PatientCode: req.PatientID,
		SessionDate: sessionDate,
		Confidence:  req.Confidence,
		Camera:      req.Camera,
		Location:    req.Location,
		DetectedAt:  detectedAt,
	}

	if err := repo.Create(ctx, detection); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the race to a concurrent recognition; the stored row is
			// authoritative.
			winner, getErr := repo.GetByCodeAndDate(ctx, req.PatientID, sessionDate)
			if getErr != nil {
				return models.DetectionRecord{}, false, getErr
			}
			s.markSeen(ctx, req.PatientID, sessionDate, now)
			return mapDetectionModel(winner), false, nil
		}
		return models.DetectionRecord{}, false, err
	}

	s.markSeen(ctx, req.PatientID, sessionDate, now)

	view := mapDetectionModel(*detection)
	s.publish(ctx, view)
	return view, true, nil
}

// Today returns all of today's detection records, newest first.
func (s *Service) Today(ctx context.Context) ([]models.DetectionRecord, error) {
	unit := s.units()
	defer unit.Close()

	rows, err := unit.Detections().ListByDate(ctx, s.now().UTC().Format(operational.SessionDateFormat))
	if err != nil {
		return nil, err
	}
	return mapDetectionModels(rows), nil
}

// CodesSeenToday returns the distinct medical-record codes seen today.
func (s *Service) CodesSeenToday(ctx context.Context) ([]string, error) {
	unit := s.units()
	defer unit.Close()

	return unit.Detections().DistinctCodesByDate(ctx, s.now().UTC().Format(operational.SessionDateFormat))
}

// Recent returns the most recent detections across all patients, for
// activity feeds.
func (s *Service) Recent(ctx context.Context, limit int) ([]models.DetectionRecord, error) {
	if limit < 1 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}

	unit := s.units()
	defer unit.Close()

	rows, err := unit.Detections().Recent(ctx, limit)
	if err != nil {
		return nil, err
	}
	return mapDetectionModels(rows), nil
}

func (s *Service) seenInCache(ctx context.Context, code, sessionDate string) bool {
	if s.cache == nil || code == "" {
		return false
	}
	seen, err := s.cache.SIsMember(ctx, seenKeyPrefix+sessionDate, code).Result()
	if err != nil {
		logger.Log.WithError(err).Debug("seen-today cache read failed")
		return false
	}
	return seen
}

// markSeen adds the code to today's seen set. The key expires shortly after
// the session day ends, which is the cache's only invalidation rule.
func (s *Service) markSeen(ctx context.Context, code, sessionDate string, now time.Time) {
	if s.cache == nil || code == "" {
		return
	}
	key := seenKeyPrefix + sessionDate
	if err := s.cache.SAdd(ctx, key, code).Err(); err != nil {
		logger.Log.WithError(err).Debug("seen-today cache write failed")
		return
	}
	endOfDay := now.Truncate(24 * time.Hour).Add(25 * time.Hour)
	s.cache.Expire(ctx, key, endOfDay.Sub(now))
}

func (s *Service) publish(ctx context.Context, detection models.DetectionRecord) {
	if s.broadcaster == nil {
		return
	}
	event := models.Event{
		Type:     models.EventPatientDetected,
		Source:   "detections",
		Location: detection.Location,
		Data:     map[string]interface{}{"detection": detection},
	}
	if err := s.broadcaster.Broadcast(ctx, event); err != nil {
		logger.Log.WithError(err).WithField("patient_code", detection.PatientCode).
			Warn("detection broadcast failed")
	}
}

func mapDetectionModel(detection operational.DetectionModel) models.DetectionRecord {
	return models.DetectionRecord{
		ID:          detection.ID,
		PatientCode: detection.PatientCode,
		SessionDate: detection.SessionDate,
		Confidence:  detection.Confidence,
		Camera:      detection.Camera,
		Location:    detection.Location,
		DetectedAt:  detection.DetectedAt,
	}
}

func mapDetectionModels(rows []operational.DetectionModel) []models.DetectionRecord {
	views := make([]models.DetectionRecord, 0, len(rows))
	for _, row := range rows {
		views = append(views, mapDetectionModel(row))
	}
	return views
}
