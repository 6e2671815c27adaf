package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/capitalize-ai/event-tracker/internal/model"
	"github.com/capitalize-ai/event-tracker/pkg/metrics"
)

const detailColumns = `seq, request_id, readable_id, cpa_id, conversation_id, message_id,
	ref_to_message_id, from_party_id, from_role, to_party_id, to_role,
	service, action, ref_param, sender, sent_at, saved_at`

type detailRow struct {
	Seq        int64  `db:"seq"`
	ReadableID string `db:"readable_id"`
	model.MessageDetail
}

func (r *detailRow) view() model.MessageDetailView {
	return model.MessageDetailView{MessageDetail: r.MessageDetail, ReadableID: r.ReadableID}
}

// detailArgs returns the column values after request_id, in schema order.
func detailArgs(d *model.MessageDetail) []any {
	return []any{
		model.GenerateReadableID(d),
		d.CpaID,
		d.ConversationID,
		d.MessageID,
		d.RefToMessageID,
		d.FromPartyID,
		d.FromRole,
		d.ToPartyID,
		d.ToRole,
		d.Service,
		d.Action,
		d.RefParam,
		d.Sender,
		utcPtr(d.SentAt),
		utc(d.SavedAt),
	}
}

// InsertMessageDetail appends a message detail and returns its request id.
// Rows sharing a business key with an existing row are accepted.
func (s *Store) InsertMessageDetail(ctx context.Context, d *model.MessageDetail) (string, error) {
	defer metrics.ObserveStoreOperation("insert_message_detail", time.Now())

	query := s.rebind(`INSERT INTO message_details (
		request_id, readable_id, cpa_id, conversation_id, message_id,
		ref_to_message_id, from_party_id, from_role, to_party_id, to_role,
		service, action, ref_param, sender, sent_at, saved_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	args := append([]any{d.RequestID}, detailArgs(d)...)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return "", writeError("insert message detail", err)
	}
	return d.RequestID, nil
}

// UpdateMessageDetail replaces the row with the same request id. It reports
// false when no such row exists. Insertion order is preserved.
func (s *Store) UpdateMessageDetail(ctx context.Context, d *model.MessageDetail) (bool, error) {
	defer metrics.ObserveStoreOperation("update_message_detail", time.Now())

	query := s.rebind(`UPDATE message_details SET
		readable_id = ?, cpa_id = ?, conversation_id = ?, message_id = ?,
		ref_to_message_id = ?, from_party_id = ?, from_role = ?, to_party_id = ?, to_role = ?,
		service = ?, action = ?, ref_param = ?, sender = ?, sent_at = ?, saved_at = ?
	WHERE request_id = ?`)

	args := append(detailArgs(d), d.RequestID)
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, writeError("update message detail", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, writeError("update message detail", err)
	}
	return n > 0, nil
}

// FindByRequestID returns the message detail with the given request id, or nil.
func (s *Store) FindByRequestID(ctx context.Context, requestID string) (*model.MessageDetailView, error) {
	defer metrics.ObserveStoreOperation("find_message_detail", time.Now())

	var row detailRow
	err := s.db.GetContext(ctx, &row, s.rebind(`SELECT `+detailColumns+` FROM message_details WHERE request_id = ?`), requestID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, readError("find message detail", err)
	}
	v := row.view()
	return &v, nil
}

// FindByRequestIDs returns the matching message details keyed by request id.
// Unknown ids are omitted.
func (s *Store) FindByRequestIDs(ctx context.Context, requestIDs []string) (map[string]*model.MessageDetailView, error) {
	out := make(map[string]*model.MessageDetailView, len(requestIDs))
	if len(requestIDs) == 0 {
		return out, nil
	}
	defer metrics.ObserveStoreOperation("find_message_details", time.Now())

	query, args, err := s.in(`SELECT `+detailColumns+` FROM message_details WHERE request_id IN (?) ORDER BY seq`, requestIDs)
	if err != nil {
		return nil, readError("find message details", err)
	}

	var rows []detailRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, readError("find message details", err)
	}
	for i := range rows {
		v := rows[i].view()
		out[v.RequestID] = &v
	}
	return out, nil
}

// FindByMessageIDConversationIDAndCpaID returns every row matching the business key exactly.
func (s *Store) FindByMessageIDConversationIDAndCpaID(ctx context.Context, messageID, conversationID, cpaID string) ([]model.MessageDetailView, error) {
	defer metrics.ObserveStoreOperation("find_by_business_key", time.Now())

	query := s.rebind(`SELECT ` + detailColumns + ` FROM message_details
		WHERE message_id = ? AND conversation_id = ? AND cpa_id = ?
		ORDER BY seq`)

	var rows []detailRow
	if err := s.db.SelectContext(ctx, &rows, query, messageID, conversationID, cpaID); err != nil {
		return nil, readError("find by business key", err)
	}
	out := make([]model.MessageDetailView, len(rows))
	for i := range rows {
		out[i] = rows[i].view()
	}
	return out, nil
}

// FindByTimeInterval returns one page of message details saved within [from, to],
// ordered by saved time with insertion order breaking ties.
func (s *Store) FindByTimeInterval(ctx context.Context, from, to time.Time, f model.MessageFilter, p model.Pageable) (*model.Page[model.MessageDetailView], error) {
	defer metrics.ObserveStoreOperation("find_message_details_by_interval", time.Now())
	p = p.Normalized()

	where, args := detailFilter(from, to, f)

	var total int64
	if err := s.db.GetContext(ctx, &total, s.rebind(`SELECT COUNT(*) FROM message_details WHERE `+where), args...); err != nil {
		return nil, readError("count message details", err)
	}

	dir := orderKeyword(p.Order == model.OrderDesc)
	query := s.rebind(`SELECT ` + detailColumns + ` FROM message_details WHERE ` + where +
		` ORDER BY saved_at ` + dir + `, seq ` + dir + ` LIMIT ? OFFSET ?`)

	var rows []detailRow
	if err := s.db.SelectContext(ctx, &rows, query, append(args, p.PageSize, p.Offset())...); err != nil {
		return nil, readError("find message details by interval", err)
	}

	content := make([]model.MessageDetailView, len(rows))
	for i := range rows {
		content[i] = rows[i].view()
	}
	return model.NewPage(p, total, content), nil
}

func detailFilter(from, to time.Time, f model.MessageFilter) (string, []any) {
	conds := []string{"saved_at >= ?", "saved_at <= ?"}
	args := []any{utc(from), utc(to)}

	like := func(column, pattern string) {
		if pattern == "" {
			return
		}
		conds = append(conds, "LOWER("+column+") LIKE ? ESCAPE '\\'")
		args = append(args, containsPattern(pattern))
	}
	like("readable_id", f.ReadableIDPattern)
	like("cpa_id", f.CpaIDPattern)
	like("message_id", f.MessageIDPattern)

	if f.Role != "" {
		conds = append(conds, "(from_role = ? OR to_role = ?)")
		args = append(args, f.Role, f.Role)
	}
	if f.Service != "" {
		conds = append(conds, "service = ?")
		args = append(args, f.Service)
	}
	if f.Action != "" {
		conds = append(conds, "action = ?")
		args = append(args, f.Action)
	}
	return strings.Join(conds, " AND "), args
}

// FindRelatedRequestIDs maps each given request id to the comma-joined request
// ids of every message in the same conversation, itself included, in insertion order.
func (s *Store) FindRelatedRequestIDs(ctx context.Context, requestIDs []string) (map[string]string, error) {
	return s.findRelated(ctx, "request_id", requestIDs)
}

// FindRelatedReadableIDs is FindRelatedRequestIDs emitting readable ids.
func (s *Store) FindRelatedReadableIDs(ctx context.Context, requestIDs []string) (map[string]string, error) {
	return s.findRelated(ctx, "readable_id", requestIDs)
}

func (s *Store) findRelated(ctx context.Context, column string, requestIDs []string) (map[string]string, error) {
	out := make(map[string]string, len(requestIDs))
	if len(requestIDs) == 0 {
		return out, nil
	}
	defer metrics.ObserveStoreOperation("find_related_"+column, time.Now())

	query, args, err := s.in(`SELECT md.request_id AS request_id, peer.`+column+` AS related
		FROM message_details md
		JOIN message_details peer ON peer.conversation_id = md.conversation_id
		WHERE md.request_id IN (?)
		ORDER BY md.request_id, peer.seq`, requestIDs)
	if err != nil {
		return nil, readError("find related ids", err)
	}

	var rows []struct {
		RequestID string `db:"request_id"`
		Related   string `db:"related"`
	}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, readError("find related ids", err)
	}

	grouped := make(map[string][]string, len(requestIDs))
	for _, r := range rows {
		grouped[r.RequestID] = append(grouped[r.RequestID], r.Related)
	}
	for id, related := range grouped {
		out[id] = strings.Join(related, ",")
	}
	return out, nil
}
