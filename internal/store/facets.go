package store

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/capitalize-ai/event-tracker/internal/model"
	"github.com/capitalize-ai/event-tracker/pkg/metrics"
)

const (
	facetRole    = "role"
	facetService = "service"
	facetAction  = "action"
)

// RefreshFacets rebuilds the distinct role, service and action values from
// all message details in one transaction and returns the refresh time.
// It scans the whole table and must stay off the request path.
func (s *Store) RefreshFacets(ctx context.Context) (time.Time, error) {
	start := time.Now()
	defer metrics.ObserveStoreOperation("refresh_facets", start)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return time.Time{}, writeError("refresh facets", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM distinct_facets`); err != nil {
		return time.Time{}, writeError("refresh facets", err)
	}

	fill := `INSERT INTO distinct_facets (kind, value)
		SELECT '` + facetRole + `', from_role FROM message_details WHERE from_role IS NOT NULL
		UNION
		SELECT '` + facetRole + `', to_role FROM message_details WHERE to_role IS NOT NULL
		UNION
		SELECT '` + facetService + `', service FROM message_details
		UNION
		SELECT '` + facetAction + `', action FROM message_details`
	if _, err := tx.ExecContext(ctx, fill); err != nil {
		return time.Time{}, writeError("refresh facets", err)
	}

	refreshedAt := utc(s.now())
	stamp := s.rebind(`INSERT INTO facet_refreshes (id, refreshed_at) VALUES (1, ?)
		ON CONFLICT (id) DO UPDATE SET refreshed_at = excluded.refreshed_at`)
	if _, err := tx.ExecContext(ctx, stamp, refreshedAt); err != nil {
		return time.Time{}, writeError("refresh facets", err)
	}

	if err := tx.Commit(); err != nil {
		return time.Time{}, writeError("refresh facets", err)
	}

	metrics.RecordFacetRefresh(refreshedAt, time.Since(start))
	return refreshedAt, nil
}

// Facets returns the last refreshed facet values, or nil before the first refresh.
func (s *Store) Facets(ctx context.Context) (*model.Facets, error) {
	var refreshedAt time.Time
	err := s.db.GetContext(ctx, &refreshedAt, `SELECT refreshed_at FROM facet_refreshes WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, readError("read facets", err)
	}

	var rows []struct {
		Kind  string `db:"kind"`
		Value string `db:"value"`
	}
	if err := s.db.SelectContext(ctx, &rows, `SELECT kind, value FROM distinct_facets`); err != nil {
		return nil, readError("read facets", err)
	}

	f := &model.Facets{
		Roles:       []string{},
		Services:    []string{},
		Actions:     []string{},
		RefreshedAt: refreshedAt,
	}
	for _, r := range rows {
		switch r.Kind {
		case facetRole:
			f.Roles = append(f.Roles, r.Value)
		case facetService:
			f.Services = append(f.Services, r.Value)
		case facetAction:
			f.Actions = append(f.Actions, r.Value)
		}
	}
	sort.Strings(f.Roles)
	sort.Strings(f.Services)
	sort.Strings(f.Actions)
	return f, nil
}
