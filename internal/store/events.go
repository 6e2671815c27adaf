package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/capitalize-ai/event-tracker/internal/model"
	"github.com/capitalize-ai/event-tracker/pkg/metrics"
)

const eventColumns = `seq, event_id, event_type, request_id, content_id, message_id, event_data, created_at`

type eventRow struct {
	Seq       int64     `db:"seq"`
	EventID   string    `db:"event_id"`
	EventType int       `db:"event_type"`
	RequestID string    `db:"request_id"`
	ContentID *string   `db:"content_id"`
	MessageID string    `db:"message_id"`
	EventData string    `db:"event_data"`
	CreatedAt time.Time `db:"created_at"`
}

func (r *eventRow) event() (model.Event, error) {
	e := model.Event{
		EventID:   r.EventID,
		EventType: r.EventType,
		RequestID: r.RequestID,
		ContentID: r.ContentID,
		MessageID: r.MessageID,
		CreatedAt: r.CreatedAt,
	}
	if r.EventData != "" {
		if err := json.Unmarshal([]byte(r.EventData), &e.EventData); err != nil {
			return model.Event{}, fmt.Errorf("failed to unmarshal event data for %s: %w", r.EventID, err)
		}
	}
	return e, nil
}

func eventsFromRows(rows []eventRow) ([]model.Event, error) {
	out := make([]model.Event, 0, len(rows))
	for i := range rows {
		e, err := rows[i].event()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// EventTypeRow is a raw row of the event type reference table.
type EventTypeRow struct {
	TypeID      int    `db:"type_id"`
	Description string `db:"description"`
	Status      string `db:"status"`
}

// InsertEvent appends an event and returns its id. An id is generated when the
// event has none; inserting an id that already exists is a no-op, so replays
// of the same upstream event are safe.
func (s *Store) InsertEvent(ctx context.Context, e *model.Event) (string, error) {
	defer metrics.ObserveStoreOperation("insert_event", time.Now())

	if e.EventID == "" {
		e.EventID = uuid.Must(uuid.NewV7()).String()
	}

	data := []byte("{}")
	if len(e.EventData) > 0 {
		var err error
		if data, err = json.Marshal(e.EventData); err != nil {
			return "", fmt.Errorf("failed to marshal event data: %w", err)
		}
	}

	query := s.rebind(`INSERT INTO events (event_id, event_type, request_id, content_id, message_id, event_data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (event_id) DO NOTHING`)

	if _, err := s.db.ExecContext(ctx, query,
		e.EventID, e.EventType, e.RequestID, e.ContentID, e.MessageID, string(data), utc(e.CreatedAt)); err != nil {
		return "", writeError("insert event", err)
	}
	return e.EventID, nil
}

// FindEventByID returns the event with the given id, or nil.
func (s *Store) FindEventByID(ctx context.Context, eventID string) (*model.Event, error) {
	defer metrics.ObserveStoreOperation("find_event", time.Now())

	var row eventRow
	err := s.db.GetContext(ctx, &row, s.rebind(`SELECT `+eventColumns+` FROM events WHERE event_id = ?`), eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, readError("find event", err)
	}
	e, err := row.event()
	if err != nil {
		return nil, readError("find event", err)
	}
	return &e, nil
}

// FindEventsByRequestID returns the events of one request in creation order.
func (s *Store) FindEventsByRequestID(ctx context.Context, requestID string) ([]model.Event, error) {
	defer metrics.ObserveStoreOperation("find_events_by_request", time.Now())

	var rows []eventRow
	query := s.rebind(`SELECT ` + eventColumns + ` FROM events WHERE request_id = ? ORDER BY created_at, seq`)
	if err := s.db.SelectContext(ctx, &rows, query, requestID); err != nil {
		return nil, readError("find events by request", err)
	}
	events, err := eventsFromRows(rows)
	if err != nil {
		return nil, readError("find events by request", err)
	}
	return events, nil
}

// FindEventsByRequestIDs returns the events of several requests as one flat
// list in creation order. Callers group by request id.
func (s *Store) FindEventsByRequestIDs(ctx context.Context, requestIDs []string) ([]model.Event, error) {
	if len(requestIDs) == 0 {
		return []model.Event{}, nil
	}
	defer metrics.ObserveStoreOperation("find_events_by_requests", time.Now())

	query, args, err := s.in(`SELECT `+eventColumns+` FROM events WHERE request_id IN (?) ORDER BY created_at, seq`, requestIDs)
	if err != nil {
		return nil, readError("find events by requests", err)
	}

	var rows []eventRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, readError("find events by requests", err)
	}
	events, err := eventsFromRows(rows)
	if err != nil {
		return nil, readError("find events by requests", err)
	}
	return events, nil
}

// FindEventsByTimeInterval returns events created within [from, to] in creation order.
func (s *Store) FindEventsByTimeInterval(ctx context.Context, from, to time.Time) ([]model.Event, error) {
	defer metrics.ObserveStoreOperation("find_events_by_interval", time.Now())

	var rows []eventRow
	query := s.rebind(`SELECT ` + eventColumns + ` FROM events WHERE created_at >= ? AND created_at <= ? ORDER BY created_at, seq`)
	if err := s.db.SelectContext(ctx, &rows, query, utc(from), utc(to)); err != nil {
		return nil, readError("find events by interval", err)
	}
	events, err := eventsFromRows(rows)
	if err != nil {
		return nil, readError("find events by interval", err)
	}
	return events, nil
}

// EventTypes returns the event type reference table.
func (s *Store) EventTypes(ctx context.Context) ([]EventTypeRow, error) {
	var rows []EventTypeRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT type_id, description, status FROM event_types ORDER BY type_id`); err != nil {
		return nil, readError("load event types", err)
	}
	return rows, nil
}
