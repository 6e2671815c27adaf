package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/capitalize-ai/event-tracker/internal/model"
	"github.com/capitalize-ai/event-tracker/pkg/logger"
)

var tracer = otel.Tracer("github.com/capitalize-ai/event-tracker/internal/service")

// QueryStore is the read side of the store used by the projection layer.
type QueryStore interface {
	FindByRequestID(ctx context.Context, requestID string) (*model.MessageDetailView, error)
	FindByTimeInterval(ctx context.Context, from, to time.Time, f model.MessageFilter, p model.Pageable) (*model.Page[model.MessageDetailView], error)
	FindRelatedRequestIDs(ctx context.Context, requestIDs []string) (map[string]string, error)
	FindRelatedReadableIDs(ctx context.Context, requestIDs []string) (map[string]string, error)
	FindEventsByRequestID(ctx context.Context, requestID string) ([]model.Event, error)
	FindEventsByRequestIDs(ctx context.Context, requestIDs []string) ([]model.Event, error)
	FindConversationStatuses(ctx context.Context, from, to time.Time, f model.ConversationStatusFilter, p model.Pageable) (*model.Page[model.ConversationStatusInfo], error)
	Facets(ctx context.Context) (*model.Facets, error)
	RefreshFacets(ctx context.Context) (time.Time, error)
}

// QueryService builds the read views served by the API.
type QueryService struct {
	store      QueryStore
	classifier *Classifier
	logger     *logger.Logger
}

// NewQueryService creates a new query service.
func NewQueryService(store QueryStore, classifier *Classifier, log *logger.Logger) *QueryService {
	return &QueryService{
		store:      store,
		classifier: classifier,
		logger:     log,
	}
}

// MessageInfo returns one page of message views saved within [from, to].
func (s *QueryService) MessageInfo(ctx context.Context, from, to time.Time, f model.MessageFilter, p model.Pageable) (_ *model.Page[model.MessageInfo], err error) {
	ctx, span := tracer.Start(ctx, "QueryService.MessageInfo", trace.WithAttributes(
		attribute.Int("page", p.Page),
		attribute.Int("page_size", p.PageSize),
	))
	defer endSpan(span, &err)

	details, err := s.store.FindByTimeInterval(ctx, from, to, f, p)
	if err != nil {
		return nil, err
	}
	requestIDs := make([]string, len(details.Content))
	for i, d := range details.Content {
		requestIDs[i] = d.RequestID
	}

	relatedRequests, err := s.store.FindRelatedRequestIDs(ctx, requestIDs)
	if err != nil {
		return nil, err
	}
	relatedReadable, err := s.store.FindRelatedReadableIDs(ctx, requestIDs)
	if err != nil {
		return nil, err
	}
	events, err := s.store.FindEventsByRequestIDs(ctx, requestIDs)
	if err != nil {
		return nil, err
	}

	byRequest := make(map[string][]model.Event, len(requestIDs))
	for _, e := range events {
		byRequest[e.RequestID] = append(byRequest[e.RequestID], e)
	}

	span.SetAttributes(attribute.Int("messages", len(requestIDs)), attribute.Int("events", len(events)))

	return model.MapPage(details, func(d model.MessageDetailView) model.MessageInfo {
		evs := byRequest[d.RequestID]
		return model.MessageInfo{
			ReadableID:         d.ReadableID,
			RequestID:          d.RequestID,
			ReceivedAt:         d.SavedAt.In(model.Location),
			CpaID:              d.CpaID,
			ConversationID:     d.ConversationID,
			MessageID:          d.MessageID,
			RefToMessageID:     d.RefToMessageID,
			Role:               valueOrUnknown(d.FromRole),
			Service:            d.Service,
			Action:             d.Action,
			Sender:             resolveSender(&d.MessageDetail, evs),
			Reference:          resolveReference(&d.MessageDetail, evs),
			Status:             s.classifier.DeriveStatus(evs),
			RelatedRequestIDs:  relatedRequests[d.RequestID],
			RelatedReadableIDs: relatedReadable[d.RequestID],
		}
	}), nil
}

// ConversationStatusInfo returns one page of conversation views created within
// [from, to], with instants in local time.
func (s *QueryService) ConversationStatusInfo(ctx context.Context, from, to time.Time, f model.ConversationStatusFilter, p model.Pageable) (_ *model.Page[model.ConversationStatusInfo], err error) {
	ctx, span := tracer.Start(ctx, "QueryService.ConversationStatusInfo")
	defer endSpan(span, &err)

	page, err := s.store.FindConversationStatuses(ctx, from, to, f, p)
	if err != nil {
		return nil, err
	}
	return model.MapPage(page, func(c model.ConversationStatusInfo) model.ConversationStatusInfo {
		c.CreatedAt = c.CreatedAt.In(model.Location)
		c.StatusAt = c.StatusAt.In(model.Location)
		return c
	}), nil
}

// MessageDetail returns one message detail with its readable id, or nil.
func (s *QueryService) MessageDetail(ctx context.Context, requestID string) (*model.MessageDetailView, error) {
	d, err := s.store.FindByRequestID(ctx, requestID)
	if err != nil || d == nil {
		return nil, err
	}
	d.SavedAt = d.SavedAt.In(model.Location)
	if d.SentAt != nil {
		sent := d.SentAt.In(model.Location)
		d.SentAt = &sent
	}
	return d, nil
}

// MessageEvents returns the classified events of one request in creation order.
func (s *QueryService) MessageEvents(ctx context.Context, requestID string) ([]model.EventInfo, error) {
	events, err := s.store.FindEventsByRequestID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	out := make([]model.EventInfo, len(events))
	for i, e := range events {
		status := model.UnknownPlaceholder
		if st, ok := s.classifier.Classify(e.EventType); ok {
			status = string(st)
		}
		out[i] = model.EventInfo{
			EventID:     e.EventID,
			EventType:   e.EventType,
			Description: s.classifier.Describe(e.EventType),
			Status:      status,
			RequestID:   e.RequestID,
			ContentID:   e.ContentID,
			MessageID:   e.MessageID,
			EventData:   e.EventData,
			CreatedAt:   e.CreatedAt.In(model.Location),
		}
	}
	return out, nil
}

// Facets returns the cached filter values, or nil before the first refresh.
func (s *QueryService) Facets(ctx context.Context) (*model.Facets, error) {
	f, err := s.store.Facets(ctx)
	if err != nil || f == nil {
		return nil, err
	}
	f.RefreshedAt = f.RefreshedAt.In(model.Location)
	return f, nil
}

// RefreshFacets rebuilds the cached filter values.
func (s *QueryService) RefreshFacets(ctx context.Context) (_ time.Time, err error) {
	ctx, span := tracer.Start(ctx, "QueryService.RefreshFacets")
	defer endSpan(span, &err)

	at, err := s.store.RefreshFacets(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to refresh facets: %w", err)
	}
	return at.In(model.Location), nil
}

// resolveSender prefers the detail's own display name and falls back to the
// first sender-identified event carrying a sender.
func resolveSender(d *model.MessageDetail, events []model.Event) string {
	if name := model.ResolveSenderName(d); name != nil && *name != "" {
		return *name
	}
	if v, ok := eventDataValue(events, model.EventTypeSenderIdentified, model.EventDataSender); ok {
		return v
	}
	return model.UnknownPlaceholder
}

// resolveReference prefers the detail's ref param and falls back to the first
// reference-retrieved event carrying a reference.
func resolveReference(d *model.MessageDetail, events []model.Event) string {
	if d.RefParam != nil && *d.RefParam != "" {
		return *d.RefParam
	}
	if v, ok := eventDataValue(events, model.EventTypeReferenceRetrieved, model.EventDataReference); ok {
		return v
	}
	return model.UnknownPlaceholder
}

func eventDataValue(events []model.Event, eventType int, key string) (string, bool) {
	for _, e := range events {
		if e.EventType != eventType {
			continue
		}
		if v, ok := e.EventData[key].(string); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

func valueOrUnknown(s *string) string {
	if s == nil || *s == "" {
		return model.UnknownPlaceholder
	}
	return *s
}

func endSpan(span trace.Span, err *error) {
	if err != nil && *err != nil {
		span.RecordError(*err)
		span.SetStatus(codes.Error, (*err).Error())
	}
	span.End()
}
