// Package service implements ingestion of message-event records and the
// read-side projections served by the API.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/capitalize-ai/event-tracker/internal/model"
	"github.com/capitalize-ai/event-tracker/pkg/logger"
	"github.com/capitalize-ai/event-tracker/pkg/metrics"
)

// Ingest outcomes recorded per record.
const (
	outcomeStored  = "stored"
	outcomeDropped = "dropped"
	outcomeFailed  = "failed"
)

var errMissingField = errors.New("missing required field")

// IngestStore is the write side of the store used by ingestion.
type IngestStore interface {
	InsertMessageDetail(ctx context.Context, d *model.MessageDetail) (string, error)
	UpdateMessageDetail(ctx context.Context, d *model.MessageDetail) (bool, error)
	FindByRequestID(ctx context.Context, requestID string) (*model.MessageDetailView, error)
	InsertEvent(ctx context.Context, e *model.Event) (string, error)
	InsertConversationStatus(ctx context.Context, conversationID string) (bool, error)
	UpdateConversationStatus(ctx context.Context, conversationID string, status model.EventStatus) (bool, error)
}

// Ingestor turns raw stream payloads into stored message details, events and
// conversation status. Every write is replay-safe, so a redelivered payload
// converges to the same state.
type Ingestor struct {
	store      IngestStore
	duplicates *DuplicateChecker
	classifier *Classifier
	logger     *logger.Logger
	now        func() time.Time
}

// NewIngestor creates a new ingestor.
func NewIngestor(store IngestStore, duplicates *DuplicateChecker, classifier *Classifier, log *logger.Logger) *Ingestor {
	return &Ingestor{
		store:      store,
		duplicates: duplicates,
		classifier: classifier,
		logger:     log,
		now:        time.Now,
	}
}

// Handle processes one payload delivered on subject. The record kind is the
// last subject token. Undecodable payloads are logged with their raw bytes and
// dropped (nil error) so they never block the stream; store failures are
// returned so the delivery is retried.
func (i *Ingestor) Handle(ctx context.Context, subject, key string, data []byte) (err error) {
	kind := subject
	if idx := strings.LastIndexByte(subject, '.'); idx >= 0 {
		kind = subject[idx+1:]
	}

	ctx, span := tracer.Start(ctx, "Ingestor.Handle", trace.WithAttributes(
		attribute.String("messaging.destination", subject),
		attribute.String("record.kind", kind),
	))
	defer endSpan(span, &err)

	switch kind {
	case model.RecordKindMessageDetail:
		err = i.handleMessageDetail(ctx, key, data)
	case model.RecordKindEvent:
		err = i.handleEvent(ctx, key, data)
	default:
		i.logger.Warn("dropping payload on unknown subject",
			zap.String("subject", subject),
			zap.String("key", key),
		)
		metrics.RecordIngest("unknown", outcomeDropped)
		return nil
	}

	if err != nil {
		metrics.RecordIngest(kind, outcomeFailed)
		return err
	}
	return nil
}

func (i *Ingestor) drop(kind, key string, data []byte, err error) {
	i.logger.Error("dropping undecodable payload",
		zap.String("kind", kind),
		zap.String("key", key),
		zap.ByteString("payload", data),
		zap.Error(err),
	)
	metrics.RecordDecodeFailure(kind)
	metrics.RecordIngest(kind, outcomeDropped)
}

func decodeMessageDetail(data []byte) (*model.MessageDetail, error) {
	var d model.MessageDetail
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	for name, v := range map[string]string{
		"requestId":      d.RequestID,
		"conversationId": d.ConversationID,
		"messageId":      d.MessageID,
		"cpaId":          d.CpaID,
	} {
		if strings.TrimSpace(v) == "" {
			return nil, fmt.Errorf("%w: %s", errMissingField, name)
		}
	}
	// savedAt feeds the readable id and the time window, so it must come from
	// the payload; a clock-derived value would move the row on every redelivery.
	if d.SavedAt.IsZero() {
		return nil, fmt.Errorf("%w: savedAt", errMissingField)
	}
	return &d, nil
}

func (i *Ingestor) handleMessageDetail(ctx context.Context, key string, data []byte) error {
	d, err := decodeMessageDetail(data)
	if err != nil {
		i.drop(model.RecordKindMessageDetail, key, data, err)
		return nil
	}
	log := i.logger.WithRequest(d.RequestID, d.ConversationID)

	updated, err := i.store.UpdateMessageDetail(ctx, d)
	if err != nil {
		return err
	}
	if !updated {
		if !d.IsOutbound() {
			dup, err := i.duplicates.IsDuplicate(ctx, d.MessageID, d.ConversationID, d.CpaID)
			if err != nil {
				return err
			}
			if dup {
				log.Warn("duplicate inbound message",
					zap.String("message_id", d.MessageID),
					zap.String("cpa_id", d.CpaID),
				)
				metrics.RecordDuplicate()
			}
		}
		if _, err := i.store.InsertMessageDetail(ctx, d); err != nil {
			return err
		}
	}

	created, err := i.store.InsertConversationStatus(ctx, d.ConversationID)
	if err != nil {
		return err
	}

	log.Debug("message detail stored",
		zap.Bool("replaced", updated),
		zap.Bool("conversation_created", created),
	)
	metrics.RecordIngest(model.RecordKindMessageDetail, outcomeStored)
	return nil
}

// eventPayload accepts eventType as a pointer so a missing type can be told
// apart from type 0.
type eventPayload struct {
	EventID   string         `json:"eventId"`
	EventType *int           `json:"eventType"`
	RequestID string         `json:"requestId"`
	ContentID *string        `json:"contentId"`
	MessageID string         `json:"messageId"`
	EventData map[string]any `json:"eventData"`
	CreatedAt time.Time      `json:"createdAt"`
}

func decodeEvent(data []byte) (*model.Event, error) {
	var p eventPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.RequestID) == "" {
		return nil, fmt.Errorf("%w: requestId", errMissingField)
	}
	if p.EventType == nil {
		return nil, fmt.Errorf("%w: eventType", errMissingField)
	}
	return &model.Event{
		EventID:   p.EventID,
		EventType: *p.EventType,
		RequestID: p.RequestID,
		ContentID: p.ContentID,
		MessageID: p.MessageID,
		EventData: p.EventData,
		CreatedAt: p.CreatedAt,
	}, nil
}

func (i *Ingestor) handleEvent(ctx context.Context, key string, data []byte) error {
	e, err := decodeEvent(data)
	if err != nil {
		i.drop(model.RecordKindEvent, key, data, err)
		return nil
	}
	if e.EventID == "" {
		e.EventID = derivedEventID(key, data)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = i.now()
	}

	if _, err := i.store.InsertEvent(ctx, e); err != nil {
		return err
	}
	metrics.RecordIngest(model.RecordKindEvent, outcomeStored)

	status, ok := i.classifier.Classify(e.EventType)
	if !ok {
		i.logger.Debug("event type has no status",
			zap.Int("event_type", e.EventType),
			zap.String("request_id", e.RequestID),
		)
		return nil
	}

	detail, err := i.store.FindByRequestID(ctx, e.RequestID)
	if err != nil {
		return err
	}
	if detail == nil {
		// The detail may still be in flight; its arrival creates the status row.
		i.logger.Debug("event for unknown request",
			zap.String("request_id", e.RequestID),
			zap.String("event_id", e.EventID),
		)
		return nil
	}

	return i.recordStatus(ctx, detail.ConversationID, status)
}

// eventIDSpace namespaces ids derived for events that arrive without one.
var eventIDSpace = uuid.MustParse("6f1c2b7e-4d0a-5e8b-9a43-0c5e2f1d7b96")

// derivedEventID names an event by its stream message id, or by its payload
// when the publisher set none, so redeliveries hit the same row.
func derivedEventID(key string, data []byte) string {
	if key != "" {
		return uuid.NewSHA1(eventIDSpace, []byte("key:"+key)).String()
	}
	return uuid.NewSHA1(eventIDSpace, append([]byte("payload:"), data...)).String()
}

func (i *Ingestor) recordStatus(ctx context.Context, conversationID string, status model.EventStatus) error {
	updated, err := i.store.UpdateConversationStatus(ctx, conversationID, status)
	if err != nil {
		return err
	}
	if !updated {
		if _, err := i.store.InsertConversationStatus(ctx, conversationID); err != nil {
			return err
		}
		if _, err := i.store.UpdateConversationStatus(ctx, conversationID, status); err != nil {
			return err
		}
	}

	metrics.RecordStatusTransition(string(status))
	i.logger.Debug("conversation status updated",
		zap.String("conversation_id", conversationID),
		zap.String("status", string(status)),
	)
	return nil
}
