// internal/model/event.go
package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event
type EventType string

const (
	EventCameraConnected    EventType = "camera.connected"
	EventCameraDisconnected EventType = "camera.disconnected"
	EventCameraError        EventType = "camera.error"
	EventCatalogRefreshed   EventType = "catalog.refreshed"
	EventSnapshotTaken      EventType = "camera.snapshot"
	EventTransferStarted    EventType = "transfer.started"
	EventTransferProgress   EventType = "transfer.progress"
	EventTransferCompleted  EventType = "transfer.completed"
	EventTransferFailed     EventType = "transfer.failed"
)

// Severity levels
const (
	SeverityInfo    = "INFO"
	SeverityWarning = "WARNING"
	SeverityError   = "ERROR"
)

// JSONObject type for PostgreSQL JSONB objects
type JSONObject map[string]any

func (j *JSONObject) Scan(value any) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

func (j JSONObject) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Event represents an event in the system
type Event struct {
	ID        uuid.UUID  `json:"id"`
	EventType EventType  `json:"event_type"`
	Data      JSONObject `json:"data"`
	Timestamp time.Time  `json:"timestamp"`
	Source    string     `json:"source"`
	Severity  string     `json:"severity"`
}

// NewEvent stamps a new event
func NewEvent(eventType EventType, severity string, data JSONObject) *Event {
	return &Event{
		ID:        uuid.New(),
		EventType: eventType,
		Data:      data,
		Timestamp: time.Now().UTC(),
		Source:    "camera-service",
		Severity:  severity,
	}
}

// TransferProgressData is the payload of transfer.progress events
type TransferProgressData struct {
	TransferID uuid.UUID `json:"transfer_id"`
	ImageName  string    `json:"image_name"`
	Bytes      int64     `json:"bytes"`
	Total      int64     `json:"total"`
	Percent    float64   `json:"percent"`
}

// ToJSONObject converts any JSON-encodable value for an event payload
func ToJSONObject(v any) JSONObject {
	b, err := json.Marshal(v)
	if err != nil {
		return JSONObject{"error": err.Error()}
	}
	var obj JSONObject
	if err := json.Unmarshal(b, &obj); err != nil {
		return JSONObject{"error": err.Error()}
	}
	return obj
}
