package alerts

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/wardwatch/platform/pkg/broadcast"
	"github.com/wardwatch/platform/pkg/common/logger"
	"github.com/wardwatch/platform/pkg/common/models"
	"github.com/wardwatch/platform/pkg/operational"
	"github.com/wardwatch/platform/pkg/store"
	"gorm.io/datatypes"
)

var (
	// ErrNotFound means the alert id does not exist. Distinct from
	// ErrInvalidTransition so staff tooling can tell "already handled" from
	// "no such alert".
	ErrNotFound = errors.New("alert not found")

	// ErrInvalidTransition means the alert exists but its current status does
	// not permit the requested transition.
	ErrInvalidTransition = errors.New("invalid alert status transition")
)

// AlertStore is the slice of the alert repository the lifecycle manager uses.
type AlertStore interface {
	Create(ctx context.Context, alert *operational.AlertModel) error
	GetByID(ctx context.Context, id uuid.UUID) (operational.AlertModel, error)
	List(ctx context.Context, statuses []string, offset, limit int) ([]operational.AlertModel, error)
	CountByStatus(ctx context.Context, statuses []string) (int64, error)
	Transition(ctx context.Context, id uuid.UUID, fromStatuses []string, updates map[string]interface{}) (int64, error)
}

// NameResolver resolves a medical-record code to a registry identity.
type NameResolver interface {
	GetByCode(ctx context.Context, code string) (models.PatientIdentity, error)
}

// Unit is the per-operation view of the unit of work.
type Unit interface {
	Alerts() AlertStore
	Patients() NameResolver
	Begin(ctx context.Context) error
	SaveChanges(ctx context.Context) error
	Rollback() error
	Close()
}

// UnitFactory yields a fresh unit per inbound operation; units are not shared
// across concurrent operations.
type UnitFactory func() Unit

// Service is the alert lifecycle manager. Every successful transition
// persists first, then broadcasts; a broadcast failure is logged and never
// unwinds the persisted transition. Concurrent transitions against the same
// alert id are last-committed-wins: the status precondition in the store
// update turns the losing request into ErrInvalidTransition.
type Service struct {
	units         UnitFactory
	broadcaster   broadcast.Broadcaster
	rules         Rules
	lookupTimeout time.Duration
	now           func() time.Time
}

func NewService(units UnitFactory, broadcaster broadcast.Broadcaster, rules Rules, lookupTimeout time.Duration) *Service {
	if lookupTimeout <= 0 {
		lookupTimeout = 2 * time.Second
	}
	return &Service{
		units:         units,
		broadcaster:   broadcaster,
		rules:         rules,
		lookupTimeout: lookupTimeout,
		now:           time.Now,
	}
}

// Create persists a new alert from an inbound safety event and broadcasts it.
// The registry name lookup is best-effort with a short timeout and happens
// before any write: a slow or unavailable registry never suppresses an alert,
// it only degrades the display name.
func (s *Service) Create(ctx context.Context, req models.FallAlertRequest) (models.Alert, error) {
	unit := s.units()
	defer unit.Close()

	alertType := strings.ToLower(strings.TrimSpace(req.AlertType))
	if alertType == "" {
		alertType = "fall"
	}

	patientName := s.resolveName(ctx, unit.Patients(), req.PatientID)

	// Keep the camera's observation time alongside the server-side CreatedAt,
	// which orders the lifecycle.
	var metadata datatypes.JSONMap
	if !req.Timestamp.IsZero() {
		metadata = datatypes.JSONMap{"observed_at": req.Timestamp.UTC().Format(time.RFC3339Nano)}
	}

	var evidence []byte
	if req.FrameData != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.FrameData)
		if err != nil {
			logger.Log.WithError(err).Warn("discarding undecodable evidence frame")
		} else {
			evidence = decoded
		}
	}

	alert := &operational.AlertModel{
		ID:          uuid.New(),
		Type:        alertType,
		Severity:    s.rules.SeverityFor(alertType, req.Confidence),
		Status:      string(StatusNew),
		Title:       titleFor(alertType),
		PatientCode: req.PatientID,
		PatientName: patientName,
		Camera:      req.Camera,
		Location:    req.Location,
		Confidence:  req.Confidence,
		Evidence:    evidence,
		Metadata:    metadata,
		CreatedAt:   s.now().UTC(),
	}

	if err := unit.Alerts().Create(ctx, alert); err != nil {
		return models.Alert{}, err
	}

	view := mapAlertModel(*alert)
	s.publish(ctx, models.EventAlertCreated, view)
	return view, nil
}

// Acknowledge moves an alert from new to acknowledged, recording the actor
// and timestamp exactly once.
func (s *Service) Acknowledge(ctx context.Context, id uuid.UUID, actor string) (models.Alert, error) {
	return s.transition(ctx, id, []Status{StatusNew}, map[string]interface{}{
		"status": string(StatusAcknowledged),
		"ack_by": actor,
		"ack_at": s.now().UTC(),
	})
}

// Resolve ends the lifecycle in the resolved terminal state, from new or
// acknowledged.
func (s *Service) Resolve(ctx context.Context, id uuid.UUID, actor, notes string) (models.Alert, error) {
	return s.transition(ctx, id, []Status{StatusNew, StatusAcknowledged}, map[string]interface{}{
		"status":      string(StatusResolved),
		"resolved_by": actor,
		"resolved_at": s.now().UTC(),
		"notes":       notes,
	})
}

// Ignore dismisses a false positive, ending the lifecycle in the ignored
// terminal state.
func (s *Service) Ignore(ctx context.Context, id uuid.UUID, actor string) (models.Alert, error) {
	return s.transition(ctx, id, []Status{StatusNew, StatusAcknowledged}, map[string]interface{}{
		"status":      string(StatusIgnored),
		"resolved_by": actor,
		"resolved_at": s.now().UTC(),
	})
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, from []Status, updates map[string]interface{}) (models.Alert, error) {
	unit := s.units()
	defer unit.Close()
	repo := unit.Alerts()

	if err := unit.Begin(ctx); err != nil {
		return models.Alert{}, err
	}

	fromStatuses := make([]string, 0, len(from))
	for _, status := range from {
		fromStatuses = append(fromStatuses, string(status))
	}

	affected, err := repo.Transition(ctx, id, fromStatuses, updates)
	if err != nil {
		unit.Rollback()
		return models.Alert{}, err
	}
	if affected == 0 {
		unit.Rollback()
		if _, err := repo.GetByID(ctx, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return models.Alert{}, ErrNotFound
			}
			return models.Alert{}, err
		}
		return models.Alert{}, ErrInvalidTransition
	}

	if err := unit.SaveChanges(ctx); err != nil {
		unit.Rollback()
		return models.Alert{}, err
	}

	updated, err := repo.GetByID(ctx, id)
	if err != nil {
		return models.Alert{}, err
	}

	view := mapAlertModel(updated)
	s.publish(ctx, models.EventAlertStatusChanged, view)
	return view, nil
}

// Get is the detail read path.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (models.Alert, error) {
	unit := s.units()
	defer unit.Close()

	alert, err := unit.Alerts().GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return models.Alert{}, ErrNotFound
	}
	if err != nil {
		return models.Alert{}, err
	}
	return mapAlertModel(alert), nil
}

type ListFilter struct {
	Statuses []Status
	Page     int
	PageSize int
}

type ListResult struct {
	Items    []models.Alert `json:"items"`
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

// List returns alerts most-recent-first with status filtering and pagination.
func (s *Service) List(ctx context.Context, filter ListFilter) (ListResult, error) {
	unit := s.units()
	defer unit.Close()
	repo := unit.Alerts()

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 50
	}
	if pageSize > 200 {
		pageSize = 200
	}

	statuses := make([]string, 0, len(filter.Statuses))
	for _, status := range filter.Statuses {
		statuses = append(statuses, string(status))
	}

	total, err := repo.CountByStatus(ctx, statuses)
	if err != nil {
		return ListResult{}, err
	}

	rows, err := repo.List(ctx, statuses, (page-1)*pageSize, pageSize)
	if err != nil {
		return ListResult{}, err
	}

	items := make([]models.Alert, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapAlertModel(row))
	}

	return ListResult{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

// resolveName performs the best-effort registry lookup. Any failure degrades
// to an empty name; alerts are safety-critical and must never wait on the
// registry.
func (s *Service) resolveName(ctx context.Context, names NameResolver, code string) string {
	if names == nil || code == "" {
		return ""
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	defer cancel()

	identity, err := names.GetByCode(lookupCtx, code)
	if err != nil {
		logger.Log.WithError(err).WithField("patient_code", code).
			Warn("registry lookup failed, creating alert without patient name")
		return ""
	}
	return identity.Name
}

func (s *Service) publish(ctx context.Context, eventType string, alert models.Alert) {
	if s.broadcaster == nil {
		return
	}
	event := models.Event{
		Type:     eventType,
		Source:   "alerts",
		Location: alert.Location,
		Data:     map[string]interface{}{"alert": alert},
	}
	if err := s.broadcaster.Broadcast(ctx, event); err != nil {
		logger.Log.WithError(err).WithField("alert_id", alert.ID).Warn("alert broadcast failed")
	}
}

func titleFor(alertType string) string {
	if alertType == "" {
		return "Safety alert"
	}
	first, size := utf8.DecodeRuneInString(alertType)
	return string(unicode.ToUpper(first)) + alertType[size:] + " detected"
}

func mapAlertModel(alert operational.AlertModel) models.Alert {
	return models.Alert{
		ID:          alert.ID,
		Type:        alert.Type,
		Severity:    alert.Severity,
		Status:      alert.Status,
		Title:       alert.Title,
		Description: alert.Description,
		PatientCode: alert.PatientCode,
		PatientName: alert.PatientName,
		Camera:      alert.Camera,
		Location:    alert.Location,
		Confidence:  alert.Confidence,
		HasEvidence: len(alert.Evidence) > 0,
		CreatedAt:   alert.CreatedAt,
		AckBy:       alert.AckBy,
		AckAt:       alert.AckAt,
		ResolvedBy:  alert.ResolvedBy,
		ResolvedAt:  alert.ResolvedAt,
		Notes:       alert.Notes,
	}
}
