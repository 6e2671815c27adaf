package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/event-tracker/internal/model"
)

func insertEvent(t *testing.T, f *fixture, requestID string, eventType int, data map[string]any, at time.Time) {
	t.Helper()
	_, err := f.store.InsertEvent(context.Background(), &model.Event{
		EventType: eventType,
		RequestID: requestID,
		MessageID: "msg-" + requestID,
		EventData: data,
		CreatedAt: at,
	})
	require.NoError(t, err)
}

func TestQueryService_MessageInfo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inbound := newDetail("req-000001", "conv-1")
	outbound := newDetail("req-000002", "conv-1")
	outbound.SavedAt = baseTime.Add(time.Minute)
	outbound.RefToMessageID = strPtr(inbound.MessageID)
	outbound.RefParam = strPtr("ref-42")
	outbound.FromRole = nil
	other := newDetail("req-000003", "conv-2")
	other.SavedAt = baseTime.Add(2 * time.Minute)

	for _, d := range []*model.MessageDetail{inbound, outbound, other} {
		_, err := f.store.InsertMessageDetail(ctx, d)
		require.NoError(t, err)
	}

	insertEvent(t, f, "req-000001", model.EventTypeMessageReceivedViaHTTP, nil, baseTime)
	insertEvent(t, f, "req-000001", model.EventTypeSenderIdentified,
		map[string]any{model.EventDataSender: "Legekontoret Bryn"}, baseTime.Add(time.Second))
	insertEvent(t, f, "req-000001", model.EventTypeReferenceRetrieved,
		map[string]any{model.EventDataReference: "ref-from-event"}, baseTime.Add(2*time.Second))
	insertEvent(t, f, "req-000002", model.EventTypeErrorWhileSending, nil, baseTime.Add(time.Minute))

	page, err := f.query.MessageInfo(ctx, baseTime.Add(-time.Hour), baseTime.Add(time.Hour),
		model.MessageFilter{}, model.Pageable{Order: model.OrderAsc})
	require.NoError(t, err)
	require.Equal(t, int64(3), page.TotalElements)
	require.Len(t, page.Content, 3)

	in := page.Content[0]
	require.Equal(t, "req-000001", in.RequestID)
	require.Equal(t, "IN.2403051407.ukjt.000001", in.ReadableID)
	require.Equal(t, "Legekontoret Bryn", in.Sender)
	require.Equal(t, "ref-from-event", in.Reference)
	require.Equal(t, "Behandler", in.Role)
	require.Equal(t, string(model.StatusInformation), in.Status)
	require.Equal(t, "req-000001,req-000002", in.RelatedRequestIDs)
	require.Equal(t, "IN.2403051407.ukjt.000001,OUT.2403051408.navo.000002", in.RelatedReadableIDs)
	require.Equal(t, 14, in.ReceivedAt.Hour())

	out := page.Content[1]
	require.Equal(t, model.SystemOperatorName, out.Sender)
	require.Equal(t, "ref-42", out.Reference)
	require.Equal(t, model.UnknownPlaceholder, out.Role)
	require.Equal(t, string(model.StatusError), out.Status)
	require.Equal(t, in.RelatedRequestIDs, out.RelatedRequestIDs)

	alone := page.Content[2]
	require.Equal(t, model.UnknownPlaceholder, alone.Sender)
	require.Equal(t, model.UnknownPlaceholder, alone.Reference)
	require.Equal(t, model.UnknownPlaceholder, alone.Status)
	require.Equal(t, "req-000003", alone.RelatedRequestIDs)
}

func TestQueryService_MessageInfoEmptyWindow(t *testing.T) {
	f := newFixture(t)

	page, err := f.query.MessageInfo(context.Background(), baseTime, baseTime.Add(time.Hour),
		model.MessageFilter{}, model.Pageable{})
	require.NoError(t, err)
	require.NotNil(t, page.Content)
	require.Empty(t, page.Content)
	require.Equal(t, 0, page.TotalPages)
}

func TestQueryService_MessageDetailAndEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.store.InsertMessageDetail(ctx, newDetail("req-1", "conv-1"))
	require.NoError(t, err)
	insertEvent(t, f, "req-1", model.EventTypeMessageReceivedViaSMTP, nil, baseTime)
	insertEvent(t, f, "req-1", 999, nil, baseTime.Add(time.Second))

	d, err := f.query.MessageDetail(ctx, "req-1")
	require.NoError(t, err)
	require.NotNil(t, d)
	require.Equal(t, model.Location, d.SavedAt.Location())

	missing, err := f.query.MessageDetail(ctx, "req-missing")
	require.NoError(t, err)
	require.Nil(t, missing)

	events, err := f.query.MessageEvents(ctx, "req-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "Message received via SMTP", events[0].Description)
	require.Equal(t, string(model.StatusInformation), events[0].Status)
	require.Equal(t, model.UnknownPlaceholder, events[1].Description)
	require.Equal(t, model.UnknownPlaceholder, events[1].Status)
}

func TestQueryService_ConversationStatusInfo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.store.InsertMessageDetail(ctx, newDetail("req-1", "conv-1"))
	require.NoError(t, err)
	_, err = f.store.InsertConversationStatus(ctx, "conv-1")
	require.NoError(t, err)

	now := time.Now()
	page, err := f.query.ConversationStatusInfo(ctx, now.Add(-time.Hour), now.Add(time.Hour),
		model.ConversationStatusFilter{Statuses: []model.EventStatus{model.StatusInformation}}, model.Pageable{})
	require.NoError(t, err)
	require.Len(t, page.Content, 1)

	c := page.Content[0]
	require.Equal(t, "nav:qass:31162", c.CpaID)
	require.Equal(t, "BehandlerKrav", c.Service)
	require.Equal(t, model.Location, c.CreatedAt.Location())
	require.Equal(t, model.Location, c.StatusAt.Location())
}

func TestQueryService_Facets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	facets, err := f.query.Facets(ctx)
	require.NoError(t, err)
	require.Nil(t, facets)

	_, err = f.store.InsertMessageDetail(ctx, newDetail("req-1", "conv-1"))
	require.NoError(t, err)

	_, err = f.query.RefreshFacets(ctx)
	require.NoError(t, err)

	facets, err = f.query.Facets(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"Behandler", "Fordringshaver"}, facets.Roles)
}

func TestQueryService_RefreshFacetsEvery(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	_, err := f.store.InsertMessageDetail(ctx, newDetail("req-1", "conv-1"))
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		f.query.RefreshFacetsEvery(ctx, time.Hour)
		close(done)
	}()

	require.Eventually(t, func() bool {
		facets, err := f.query.Facets(context.Background())
		return err == nil && facets != nil
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestQueryService_RefreshFacetsEveryDisabled(t *testing.T) {
	f := newFixture(t)

	// Returns immediately without refreshing.
	f.query.RefreshFacetsEvery(context.Background(), 0)

	facets, err := f.query.Facets(context.Background())
	require.NoError(t, err)
	require.Nil(t, facets)
}
