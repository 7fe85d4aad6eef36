package models

import (
	"time"

	"github.com/google/uuid"
)

// Stream event types delivered to dashboards and published on the monitoring
// topic. The vision pipeline produces the same two detection/fall kinds on its
// inbound topic.
const (
	EventAlertCreated       = "alert.created"
	EventAlertStatusChanged = "alert.status_changed"
	EventPatientDetected    = "patient.detected"
)

// Event is the envelope carried on Kafka topics and the live stream.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Location  string                 `json:"location,omitempty"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}

// PatientIdentity is the registry-side patient record. Owned by the clinical
// registry; immutable from this layer.
type PatientIdentity struct {
	ID         int64     `json:"id"`
	Code       string    `json:"code"` // medical-record code, the cross-store key
	Name       string    `json:"name"`
	BirthDate  time.Time `json:"birth_date"`
	Contact    string    `json:"contact,omitempty"`
	PhotoRef   string    `json:"photo_ref,omitempty"`
}

// Alert is the public view of a safety alert.
type Alert struct {
	ID          uuid.UUID  `json:"id"`
	Type        string     `json:"type"`
	Severity    string     `json:"severity"`
	Status      string     `json:"status"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	PatientCode string     `json:"patient_code,omitempty"`
	PatientName string     `json:"patient_name,omitempty"`
	Camera      string     `json:"camera,omitempty"`
	Location    string     `json:"location,omitempty"`
	Confidence  float64    `json:"confidence,omitempty"`
	HasEvidence bool       `json:"has_evidence"`
	CreatedAt   time.Time  `json:"created_at"`
	AckBy       string     `json:"acknowledged_by,omitempty"`
	AckAt       *time.Time `json:"acknowledged_at,omitempty"`
	ResolvedBy  string     `json:"resolved_by,omitempty"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	Notes       string     `json:"notes,omitempty"`
}

// DetectionRecord is the public view of one (patient, session-day) sighting.
type DetectionRecord struct {
	ID          int64     `json:"id"`
	PatientCode string    `json:"patient_code"`
	SessionDate string    `json:"session_date"` // calendar date, YYYY-MM-DD
	Confidence  float64   `json:"confidence"`
	Camera      string    `json:"camera,omitempty"`
	Location    string    `json:"location,omitempty"`
	DetectedAt  time.Time `json:"detected_at"`
}

// FaceEmbedding is the public view of an enrollment embedding.
type FaceEmbedding struct {
	ID          int64     `json:"id"`
	PatientCode string    `json:"patient_code"`
	Model       string    `json:"model"`
	Dimensions  int       `json:"dimensions"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// QueueEntry associates a registry patient with a department visit slot.
type QueueEntry struct {
	ID          int64  `json:"id"`
	PatientCode string `json:"patient_code"`
	Department  string `json:"department"`
	VisitDate   string `json:"visit_date"` // calendar date, YYYY-MM-DD
	Position    int    `json:"position"`
	Status      string `json:"status"`
}

// PatientView is the combined registry + presence read. Identity is nil when
// the registry has no row for the code; the operational side is still served.
type PatientView struct {
	Code          string           `json:"code"`
	Identity      *PatientIdentity `json:"identity,omitempty"`
	SeenToday     bool             `json:"seen_today"`
	ExpectedToday bool             `json:"expected_today"`
	LastDetection *DetectionRecord `json:"last_detection,omitempty"`
}

// FallAlertRequest is the inbound payload from the vision pipeline. Field
// names match the camera-side client.
type FallAlertRequest struct {
	PatientID  string    `json:"patient_id"`
	Timestamp  time.Time `json:"timestamp"`
	Location   string    `json:"location"`
	Camera     string    `json:"camera,omitempty"`
	Confidence float64   `json:"confidence"`
	AlertType  string    `json:"alert_type"`
	FrameData  string    `json:"frame_data,omitempty"` // base64 evidence image
}

// PatientDetectedRequest is the inbound recognition payload.
type PatientDetectedRequest struct {
	PatientID  string    `json:"patient_id"`
	Timestamp  time.Time `json:"timestamp"`
	Location   string    `json:"location"`
	Camera     string    `json:"camera,omitempty"`
	Confidence float64   `json:"confidence"`
}
