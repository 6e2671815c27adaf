package service

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/capitalize-ai/event-tracker/internal/model"
	"github.com/capitalize-ai/event-tracker/internal/store"
	"github.com/capitalize-ai/event-tracker/pkg/logger"
)

// EventTypeSource reads the event type reference table.
type EventTypeSource interface {
	EventTypes(ctx context.Context) ([]store.EventTypeRow, error)
}

// Classifier maps event type codes to status categories. The table is loaded
// once and is read-only afterwards, so lookups need no locking.
type Classifier struct {
	source EventTypeSource
	logger *logger.Logger
	types  atomic.Pointer[map[int]model.EventTypeInfo]
}

// NewClassifier creates a classifier. Call Load before use.
func NewClassifier(source EventTypeSource, log *logger.Logger) *Classifier {
	c := &Classifier{
		source: source,
		logger: log,
	}
	empty := map[int]model.EventTypeInfo{}
	c.types.Store(&empty)
	return c
}

// Load reads the reference table and replaces the cached copy.
// A row with an unknown status fails the whole load.
func (c *Classifier) Load(ctx context.Context) error {
	rows, err := c.source.EventTypes(ctx)
	if err != nil {
		return fmt.Errorf("failed to load event types: %w", err)
	}

	types := make(map[int]model.EventTypeInfo, len(rows))
	for _, r := range rows {
		status, err := model.ParseEventStatus(r.Status)
		if err != nil {
			return fmt.Errorf("event type %d: %w", r.TypeID, err)
		}
		types[r.TypeID] = model.EventTypeInfo{
			TypeID:      r.TypeID,
			Description: r.Description,
			Status:      status,
		}
	}
	c.types.Store(&types)

	c.logger.Info("event types loaded", zap.Int("count", len(types)))
	return nil
}

// Classify returns the status category of an event type.
func (c *Classifier) Classify(eventType int) (model.EventStatus, bool) {
	info, ok := (*c.types.Load())[eventType]
	if !ok {
		return "", false
	}
	return info.Status, true
}

// Describe returns the description of an event type, or the unknown placeholder.
func (c *Classifier) Describe(eventType int) string {
	info, ok := (*c.types.Load())[eventType]
	if !ok {
		return model.UnknownPlaceholder
	}
	return info.Description
}

// statusPriority lists the categories that take part in status derivation,
// strongest first.
var statusPriority = []model.EventStatus{
	model.StatusProcessingCompleted,
	model.StatusError,
	model.StatusInformation,
}

// DeriveStatus rolls a set of events up into one status: PROCESSING_COMPLETED
// beats ERROR, which beats INFORMATION. Arrival order does not matter. Without
// any of those categories the result is the unknown placeholder.
func (c *Classifier) DeriveStatus(events []model.Event) string {
	seen := make(map[model.EventStatus]bool, len(statusPriority))
	for _, e := range events {
		if status, ok := c.Classify(e.EventType); ok {
			seen[status] = true
		}
	}
	for _, status := range statusPriority {
		if seen[status] {
			return string(status)
		}
	}
	return model.UnknownPlaceholder
}
