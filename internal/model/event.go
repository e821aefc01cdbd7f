// internal/model/event.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of printer event
type EventType string

const (
	EventConnected      EventType = "CONNECTED"
	EventDisconnected   EventType = "DISCONNECTED"
	EventError          EventType = "ERROR"
	EventReceive        EventType = "RECEIVE"
	EventStatusChange   EventType = "STATUS_CHANGE"
	EventOnline         EventType = "ONLINE"
	EventOffline        EventType = "OFFLINE"
	EventPowerOff       EventType = "POWER_OFF"
	EventCoverOK        EventType = "COVER_OK"
	EventCoverOpen      EventType = "COVER_OPEN"
	EventPaperOK        EventType = "PAPER_OK"
	EventPaperNearEnd   EventType = "PAPER_NEAR_END"
	EventPaperEnd       EventType = "PAPER_END"
	EventDrawerClosed   EventType = "DRAWER_CLOSED"
	EventDrawerOpen     EventType = "DRAWER_OPEN"
	EventJobCompleted   EventType = "JOB_COMPLETED"
	EventSettingsUpdate EventType = "SETTINGS_UPDATE"
)

// PrinterEvent is published on the service event bus
type PrinterEvent struct {
	ID        uuid.UUID  `json:"id"`
	EventType EventType  `json:"event_type"`
	DeviceID  string     `json:"device_id"`
	Data      JSONObject `json:"data,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
	Severity  string     `json:"severity"` // INFO, WARNING, ERROR
}

// NewPrinterEvent stamps an event with an id and time.
func NewPrinterEvent(eventType EventType, deviceID string, data JSONObject) PrinterEvent {
	return PrinterEvent{
		ID:        uuid.New(),
		EventType: eventType,
		DeviceID:  deviceID,
		Data:      data,
		Timestamp: time.Now(),
		Severity:  severityOf(eventType),
	}
}

func severityOf(t EventType) string {
	switch t {
	case EventError, EventPowerOff, EventPaperEnd, EventCoverOpen:
		return "ERROR"
	case EventOffline, EventPaperNearEnd, EventDisconnected:
		return "WARNING"
	default:
		return "INFO"
	}
}
