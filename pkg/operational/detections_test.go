package operational

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/wardwatch/platform/pkg/store"
	"gorm.io/gorm"
)

func TestDetectionCreateTranslatesDuplicateKey(t *testing.T) {
	conn, mock := newMockConn(t)
	repo := NewDetectionRepository(conn)

	mock.ExpectQuery(`INSERT INTO "detection_records"`).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Create(context.Background(), &DetectionModel{
		PatientCode: "MYT001",
		SessionDate: "2026-03-14",
		Confidence:  0.91,
	})
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("expected gorm.ErrDuplicatedKey, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDetectionGetByCodeAndDate(t *testing.T) {
	conn, mock := newMockConn(t)
	repo := NewDetectionRepository(conn)

	detected := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT (.+) FROM "detection_records" WHERE patient_code = (.+) AND session_date =`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "patient_code", "session_date", "confidence", "camera", "detected_at"}).
			AddRow(1, "MYT001", "2026-03-14", 0.91, "cam-entrance", detected))

	detection, err := repo.GetByCodeAndDate(context.Background(), "MYT001", "2026-03-14")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if detection.PatientCode != "MYT001" || detection.Camera != "cam-entrance" {
		t.Fatalf("unexpected row: %+v", detection)
	}

	mock.ExpectQuery(`SELECT (.+) FROM "detection_records"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := repo.GetByCodeAndDate(context.Background(), "MYT404", "2026-03-14"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected store.ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDetectionDistinctCodesByDate(t *testing.T) {
	conn, mock := newMockConn(t)
	repo := NewDetectionRepository(conn)

	mock.ExpectQuery(`SELECT DISTINCT (.+) FROM "detection_records" WHERE session_date =`).
		WillReturnRows(sqlmock.NewRows([]string{"patient_code"}).
			AddRow("MYT001").
			AddRow("MYT002"))

	codes, err := repo.DistinctCodesByDate(context.Background(), "2026-03-14")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(codes) != 2 || codes[0] != "MYT001" || codes[1] != "MYT002" {
		t.Fatalf("unexpected codes: %v", codes)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDetectionRecentOrdersByTime(t *testing.T) {
	conn, mock := newMockConn(t)
	repo := NewDetectionRepository(conn)

	later := time.Date(2026, 3, 14, 14, 0, 0, 0, time.UTC)
	earlier := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT (.+) FROM "detection_records" ORDER BY detected_at DESC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "patient_code", "detected_at"}).
			AddRow(2, "MYT002", later).
			AddRow(1, "MYT001", earlier))

	detections, err := repo.Recent(context.Background(), 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(detections) != 2 || detections[0].PatientCode != "MYT002" {
		t.Fatalf("unexpected rows: %+v", detections)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
