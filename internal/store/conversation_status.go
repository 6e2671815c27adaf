package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/capitalize-ai/event-tracker/internal/model"
	"github.com/capitalize-ai/event-tracker/pkg/metrics"
)

type conversationStatusRow struct {
	ConversationID string    `db:"conversation_id"`
	CreatedAt      time.Time `db:"created_at"`
	LatestStatus   string    `db:"latest_status"`
	StatusAt       time.Time `db:"status_at"`
	CpaID          string    `db:"cpa_id"`
	Service        string    `db:"service"`
}

func (r *conversationStatusRow) info() (model.ConversationStatusInfo, error) {
	st, err := model.ParseEventStatus(r.LatestStatus)
	if err != nil {
		return model.ConversationStatusInfo{}, fmt.Errorf("conversation %s: %w", r.ConversationID, err)
	}
	return model.ConversationStatusInfo{
		ConversationID: r.ConversationID,
		CreatedAt:      r.CreatedAt,
		CpaID:          r.CpaID,
		Service:        r.Service,
		LatestStatus:   st,
		StatusAt:       r.StatusAt,
	}, nil
}

// InsertConversationStatus creates the status row for a conversation with
// status INFORMATION. It reports false, without error, when the row already exists.
func (s *Store) InsertConversationStatus(ctx context.Context, conversationID string) (bool, error) {
	defer metrics.ObserveStoreOperation("insert_conversation_status", time.Now())

	now := utc(s.now())
	query := s.rebind(`INSERT INTO conversation_status (conversation_id, created_at, latest_status, status_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (conversation_id) DO NOTHING`)

	res, err := s.db.ExecContext(ctx, query, conversationID, now, string(model.StatusInformation), now)
	if err != nil {
		return false, writeError("insert conversation status", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, writeError("insert conversation status", err)
	}
	return n > 0, nil
}

// UpdateConversationStatus records status as the latest observed status of the
// conversation. Any status may follow any other. It reports false when the
// conversation has no status row.
func (s *Store) UpdateConversationStatus(ctx context.Context, conversationID string, status model.EventStatus) (bool, error) {
	defer metrics.ObserveStoreOperation("update_conversation_status", time.Now())

	query := s.rebind(`UPDATE conversation_status SET latest_status = ?, status_at = ? WHERE conversation_id = ?`)
	res, err := s.db.ExecContext(ctx, query, string(status), utc(s.now()), conversationID)
	if err != nil {
		return false, writeError("update conversation status", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, writeError("update conversation status", err)
	}
	return n > 0, nil
}

// FindConversationStatus returns the status row of a conversation, or nil.
func (s *Store) FindConversationStatus(ctx context.Context, conversationID string) (*model.ConversationStatus, error) {
	defer metrics.ObserveStoreOperation("find_conversation_status", time.Now())

	var row conversationStatusRow
	err := s.db.GetContext(ctx, &row, s.rebind(`SELECT conversation_id, created_at, latest_status, status_at
		FROM conversation_status WHERE conversation_id = ?`), conversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, readError("find conversation status", err)
	}

	info, err := row.info()
	if err != nil {
		return nil, readError("find conversation status", err)
	}
	return &model.ConversationStatus{
		ConversationID: info.ConversationID,
		CreatedAt:      info.CreatedAt,
		LatestStatus:   info.LatestStatus,
		StatusAt:       info.StatusAt,
	}, nil
}

// FindConversationStatuses returns one page of conversations created within
// [from, to]. cpaId and service come from the conversation's first message.
func (s *Store) FindConversationStatuses(ctx context.Context, from, to time.Time, f model.ConversationStatusFilter, p model.Pageable) (*model.Page[model.ConversationStatusInfo], error) {
	defer metrics.ObserveStoreOperation("find_conversation_statuses", time.Now())
	p = p.Normalized()

	conds := []string{"cs.created_at >= ?", "cs.created_at <= ?"}
	args := []any{utc(from), utc(to)}
	if f.CpaIDPattern != "" {
		conds = append(conds, "LOWER(md.cpa_id) LIKE ? ESCAPE '\\'")
		args = append(args, containsPattern(f.CpaIDPattern))
	}
	if f.Service != "" {
		conds = append(conds, "md.service = ?")
		args = append(args, f.Service)
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			statuses[i] = string(st)
		}
		conds = append(conds, "cs.latest_status IN (?)")
		args = append(args, statuses)
	}

	fromClause := `FROM conversation_status cs
		LEFT JOIN message_details md ON md.seq = (
			SELECT MIN(m2.seq) FROM message_details m2
			WHERE m2.conversation_id = cs.conversation_id
		)
		WHERE ` + strings.Join(conds, " AND ")

	countQuery, countArgs, err := s.in(`SELECT COUNT(*) `+fromClause, args...)
	if err != nil {
		return nil, readError("count conversation statuses", err)
	}
	var total int64
	if err := s.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, readError("count conversation statuses", err)
	}

	dir := orderKeyword(p.Order == model.OrderDesc)
	pageQuery, pageArgs, err := s.in(`SELECT cs.conversation_id, cs.created_at, cs.latest_status, cs.status_at,
			COALESCE(md.cpa_id, '') AS cpa_id, COALESCE(md.service, '') AS service `+fromClause+
		` ORDER BY cs.created_at `+dir+`, cs.conversation_id `+dir+` LIMIT ? OFFSET ?`,
		append(args, p.PageSize, p.Offset())...)
	if err != nil {
		return nil, readError("find conversation statuses", err)
	}

	var rows []conversationStatusRow
	if err := s.db.SelectContext(ctx, &rows, pageQuery, pageArgs...); err != nil {
		return nil, readError("find conversation statuses", err)
	}

	content := make([]model.ConversationStatusInfo, 0, len(rows))
	for i := range rows {
		info, err := rows[i].info()
		if err != nil {
			return nil, readError("find conversation statuses", err)
		}
		content = append(content, info)
	}
	return model.NewPage(p, total, content), nil
}
