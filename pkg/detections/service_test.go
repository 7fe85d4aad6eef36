package detections

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/wardwatch/platform/pkg/common/logger"
	"github.com/wardwatch/platform/pkg/common/models"
	"github.com/wardwatch/platform/pkg/operational"
	"github.com/wardwatch/platform/pkg/store"
	"gorm.io/gorm"
)

func init() {
	logger.Init()
}

type fakeDetectionStore struct {
	rows        map[string]operational.DetectionModel
	nextID      int64
	createCalls int
	getCalls    int

	// raceWinner simulates a concurrent recognition committing between the
	// pre-insert read and the insert.
	raceWinner    *operational.DetectionModel
	raceTriggered bool
}

func newFakeDetectionStore() *fakeDetectionStore {
	return &fakeDetectionStore{rows: make(map[string]operational.DetectionModel)}
}

func (f *fakeDetectionStore) key(code, sessionDate string) string {
	return code + "|" + sessionDate
}

func (f *fakeDetectionStore) Create(ctx context.Context, detection *operational.DetectionModel) error {
	f.createCalls++
	if f.raceWinner != nil && !f.raceTriggered {
		f.raceTriggered = true
		f.rows[f.key(f.raceWinner.PatientCode, f.raceWinner.SessionDate)] = *f.raceWinner
		return gorm.ErrDuplicatedKey
	}
	if _, ok := f.rows[f.key(detection.PatientCode, detection.SessionDate)]; ok {
		return gorm.ErrDuplicatedKey
	}
	f.nextID++
	detection.ID = f.nextID
	f.rows[f.key(detection.PatientCode, detection.SessionDate)] = *detection
	return nil
}

func (f *fakeDetectionStore) GetByCodeAndDate(ctx context.Context, code, sessionDate string) (operational.DetectionModel, error) {
	f.getCalls++
	row, ok := f.rows[f.key(code, sessionDate)]
	if !ok {
		return operational.DetectionModel{}, store.ErrNotFound
	}
	return row, nil
}

func (f *fakeDetectionStore) ListByDate(ctx context.Context, sessionDate string) ([]operational.DetectionModel, error) {
	var rows []operational.DetectionModel
	for _, row := range f.rows {
		if row.SessionDate == sessionDate {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (f *fakeDetectionStore) DistinctCodesByDate(ctx context.Context, sessionDate string) ([]string, error) {
	var codes []string
	for _, row := range f.rows {
		if row.SessionDate == sessionDate {
			codes = append(codes, row.PatientCode)
		}
	}
	return codes, nil
}

func (f *fakeDetectionStore) Recent(ctx context.Context, limit int) ([]operational.DetectionModel, error) {
	var rows []operational.DetectionModel
	for _, row := range f.rows {
		rows = append(rows, row)
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

type fakeDetectionUnit struct {
	store  *fakeDetectionStore
	closed int
}

func (f *fakeDetectionUnit) Detections() DetectionStore { return f.store }
func (f *fakeDetectionUnit) Close()                     { f.closed++ }

type countingBroadcaster struct {
	events []models.Event
}

func (c *countingBroadcaster) Broadcast(ctx context.Context, event models.Event) error {
	c.events = append(c.events, event)
	return nil
}

func newTestService(t *testing.T, detectionStore *fakeDetectionStore) (*Service, *countingBroadcaster, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	sink := &countingBroadcaster{}
	unit := &fakeDetectionUnit{store: detectionStore}
	svc := NewService(func() Unit { return unit }, client, sink)
	svc.now = func() time.Time {
		return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	}
	return svc, sink, mr
}

func TestRecordFirstWriteWins(t *testing.T) {
	detectionStore := newFakeDetectionStore()
	svc, sink, _ := newTestService(t, detectionStore)
	ctx := context.Background()

	first, created, err := svc.Record(ctx, models.PatientDetectedRequest{
		PatientID: "MYT001", Confidence: 0.9, Camera: "cam-entrance",
	})
	if err != nil || !created {
		t.Fatalf("expected first record to be created, got created=%v err=%v", created, err)
	}
	if first.Camera != "cam-entrance" || first.Confidence != 0.9 {
		t.Fatalf("unexpected first record: %+v", first)
	}

	// Same patient, same session day, different sighting details.
	svc.now = func() time.Time {
		return time.Date(2026, 3, 14, 14, 0, 0, 0, time.UTC)
	}
	second, created, err := svc.Record(ctx, models.PatientDetectedRequest{
		PatientID: "MYT001", Confidence: 0.5, Camera: "cam-hallway",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Fatal("expected duplicate sighting not to create a record")
	}
	if second.Camera != "cam-entrance" || second.Confidence != 0.9 {
		t.Fatalf("expected the first sighting to be returned unchanged, got %+v", second)
	}
	if len(detectionStore.rows) != 1 {
		t.Fatalf("expected exactly one stored row, got %d", len(detectionStore.rows))
	}
	if len(sink.events) != 1 {
		t.Fatalf("expected exactly one broadcast, got %d", len(sink.events))
	}
}

func TestRecordNextDayCreatesNewRecord(t *testing.T) {
	detectionStore := newFakeDetectionStore()
	svc, sink, _ := newTestService(t, detectionStore)
	ctx := context.Background()

	if _, created, err := svc.Record(ctx, models.PatientDetectedRequest{PatientID: "MYT001", Confidence: 0.9}); err != nil || !created {
		t.Fatalf("day one record failed: created=%v err=%v", created, err)
	}

	svc.now = func() time.Time {
		return time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC)
	}
	_, created, err := svc.Record(ctx, models.PatientDetectedRequest{PatientID: "MYT001", Confidence: 0.8})
	if err != nil || !created {
		t.Fatalf("expected a fresh record on the next session day, got created=%v err=%v", created, err)
	}
	if len(detectionStore.rows) != 2 {
		t.Fatalf("expected two stored rows, got %d", len(detectionStore.rows))
	}
	if len(sink.events) != 2 {
		t.Fatalf("expected two broadcasts, got %d", len(sink.events))
	}
}

func TestRecordKeepsCameraObservationTime(t *testing.T) {
	detectionStore := newFakeDetectionStore()
	svc, _, _ := newTestService(t, detectionStore)
	ctx := context.Background()

	observed := time.Date(2026, 3, 14, 7, 45, 12, 0, time.UTC)
	record, created, err := svc.Record(ctx, models.PatientDetectedRequest{
		PatientID: "MYT001", Confidence: 0.9, Timestamp: observed,
	})
	if err != nil || !created {
		t.Fatalf("record failed: created=%v err=%v", created, err)
	}
	if !record.DetectedAt.Equal(observed) {
		t.Fatalf("expected the camera timestamp, got %v", record.DetectedAt)
	}

	// A payload without a timestamp falls back to receive time.
	record, created, err = svc.Record(ctx, models.PatientDetectedRequest{PatientID: "MYT002", Confidence: 0.9})
	if err != nil || !created {
		t.Fatalf("record failed: created=%v err=%v", created, err)
	}
	if !record.DetectedAt.Equal(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected receive-time fallback, got %v", record.DetectedAt)
	}
}

func TestRecordRecoversLostInsertRace(t *testing.T) {
	detectionStore := newFakeDetectionStore()
	detectionStore.raceWinner = &operational.DetectionModel{
		ID:          99,
		PatientCode: "MYT001",
		SessionDate: "2026-03-14",
		Confidence:  0.95,
		Camera:      "cam-ward",
		DetectedAt:  time.Date(2026, 3, 14, 8, 59, 0, 0, time.UTC),
	}
	svc, sink, _ := newTestService(t, detectionStore)

	record, created, err := svc.Record(context.Background(), models.PatientDetectedRequest{
		PatientID: "MYT001", Confidence: 0.6, Camera: "cam-entrance",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Fatal("losing the insert race must not report a new record")
	}
	if record.ID != 99 || record.Camera != "cam-ward" {
		t.Fatalf("expected the winner's row, got %+v", record)
	}
	if len(sink.events) != 0 {
		t.Fatalf("expected no broadcast for a lost race, got %d", len(sink.events))
	}
}

func TestRecordCacheHitSkipsPreInsertReadPath(t *testing.T) {
	detectionStore := newFakeDetectionStore()
	svc, _, mr := newTestService(t, detectionStore)
	ctx := context.Background()

	if _, _, err := svc.Record(ctx, models.PatientDetectedRequest{PatientID: "MYT001", Confidence: 0.9}); err != nil {
		t.Fatalf("first record failed: %v", err)
	}
	if !mr.Exists(seenKeyPrefix + "2026-03-14") {
		t.Fatal("expected the seen-today set to be populated")
	}
	if ttl := mr.TTL(seenKeyPrefix + "2026-03-14"); ttl <= 0 {
		t.Fatalf("expected a positive expiry on the seen-today set, got %v", ttl)
	}

	getCallsBefore := detectionStore.getCalls
	_, created, err := svc.Record(ctx, models.PatientDetectedRequest{PatientID: "MYT001", Confidence: 0.5})
	if err != nil || created {
		t.Fatalf("expected duplicate via cache path, got created=%v err=%v", created, err)
	}
	if detectionStore.createCalls != 1 {
		t.Fatalf("expected no second insert attempt, got %d creates", detectionStore.createCalls)
	}
	if detectionStore.getCalls != getCallsBefore+1 {
		t.Fatalf("expected a single authoritative read on cache hit, got %d", detectionStore.getCalls-getCallsBefore)
	}
}

func TestRecordSurvivesCacheOutage(t *testing.T) {
	detectionStore := newFakeDetectionStore()
	svc, sink, mr := newTestService(t, detectionStore)
	mr.Close()

	_, created, err := svc.Record(context.Background(), models.PatientDetectedRequest{PatientID: "MYT001", Confidence: 0.9})
	if err != nil {
		t.Fatalf("cache outage must not fail recording: %v", err)
	}
	if !created {
		t.Fatal("expected the record to be created despite the cache outage")
	}
	if len(sink.events) != 1 {
		t.Fatalf("expected one broadcast, got %d", len(sink.events))
	}
}

func TestTodayAndCodes(t *testing.T) {
	detectionStore := newFakeDetectionStore()
	svc, _, _ := newTestService(t, detectionStore)
	ctx := context.Background()

	for _, code := range []string{"MYT001", "MYT002"} {
		if _, _, err := svc.Record(ctx, models.PatientDetectedRequest{PatientID: code, Confidence: 0.9}); err != nil {
			t.Fatalf("record %s failed: %v", code, err)
		}
	}

	today, err := svc.Today(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(today) != 2 {
		t.Fatalf("expected 2 records today, got %d", len(today))
	}

	codes, err := svc.CodesSeenToday(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(codes) != 2 {
		t.Fatalf("expected 2 codes, got %d", len(codes))
	}
}
