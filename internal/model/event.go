package model

import (
	"errors"
	"fmt"
	"time"
)

// EventStatus is the coarse processing outcome an event type maps to.
type EventStatus string

const (
	StatusInformation         EventStatus = "INFORMATION"
	StatusManualProcessing    EventStatus = "MANUAL_PROCESSING"
	StatusWarning             EventStatus = "WARNING"
	StatusError               EventStatus = "ERROR"
	StatusFatalError          EventStatus = "FATAL_ERROR"
	StatusProcessingCompleted EventStatus = "PROCESSING_COMPLETED"
	StatusCreated             EventStatus = "CREATED"
)

// UnknownPlaceholder is rendered wherever a value cannot be derived.
const UnknownPlaceholder = "Unknown"

// ErrUnknownStatus is returned when a stored or requested status is not a member of EventStatus.
var ErrUnknownStatus = errors.New("unknown event status")

var eventStatuses = []EventStatus{
	StatusInformation,
	StatusManualProcessing,
	StatusWarning,
	StatusError,
	StatusFatalError,
	StatusProcessingCompleted,
	StatusCreated,
}

// EventStatuses returns every valid status.
func EventStatuses() []EventStatus {
	out := make([]EventStatus, len(eventStatuses))
	copy(out, eventStatuses)
	return out
}

// ParseEventStatus converts a stored value into an EventStatus.
func ParseEventStatus(s string) (EventStatus, error) {
	for _, st := range eventStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

// Event type codes with a fixed meaning in the projection layer.
const (
	EventTypeMessageReceivedViaSMTP  = 1
	EventTypeMessageReceivedViaHTTP  = 2
	EventTypeMessageValidated        = 3
	EventTypeValidationFailed        = 4
	EventTypeSignatureCheckFailed    = 5
	EventTypeReferenceRetrieved      = 6
	EventTypeSenderIdentified        = 7
	EventTypeMessageSentViaSMTP      = 8
	EventTypeMessageSentViaHTTP      = 9
	EventTypeMessageDeliveredToQueue = 10
	EventTypeErrorWhileSending       = 11
)

// Keys read from event payloads when a message detail lacks the value itself.
const (
	EventDataReference = "reference"
	EventDataSender    = "sender"
)

// Event is one append-only entry in a request's processing log.
type Event struct {
	EventID   string         `json:"eventId"`
	EventType int            `json:"eventType"`
	RequestID string         `json:"requestId"`
	ContentID *string        `json:"contentId,omitempty"`
	MessageID string         `json:"messageId"`
	EventData map[string]any `json:"eventData,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// EventTypeInfo is a row of the event type reference table.
type EventTypeInfo struct {
	TypeID      int         `json:"typeId" db:"type_id"`
	Description string      `json:"description" db:"description"`
	Status      EventStatus `json:"status" db:"status"`
}

// EventInfo is an event enriched with its reference data.
type EventInfo struct {
	EventID     string         `json:"eventId"`
	EventType   int            `json:"eventType"`
	Description string         `json:"description"`
	Status      string         `json:"status"`
	RequestID   string         `json:"requestId"`
	ContentID   *string        `json:"contentId,omitempty"`
	MessageID   string         `json:"messageId"`
	EventData   map[string]any `json:"eventData,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}
