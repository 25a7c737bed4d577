package realtime

import "time"

type EventType string

const (
	EventIngestStarted   EventType = "ingest.started"
	EventIngestProgress  EventType = "ingest.progress"
	EventIngestCompleted EventType = "ingest.completed"
	EventIngestFailed    EventType = "ingest.failed"
)

// Event is one ingestion progress notification. Channel is the course id.
type Event struct {
	Channel string                 `json:"channel"`
	Type    EventType              `json:"type"`
	BatchID string                 `json:"batch_id,omitempty"`
	At      time.Time              `json:"at"`
	Data    map[string]interface{} `json:"data,omitempty"`
}
