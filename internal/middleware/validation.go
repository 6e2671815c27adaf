package middleware

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/capitalize-ai/event-tracker/internal/model"
)

const (
	maxIDLength      = 256
	maxPatternLength = 256
)

// ValidateIdentifier validates an opaque identifier taken from the path or query.
func ValidateIdentifier(name, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	if len(id) > maxIDLength {
		return fmt.Errorf("%s exceeds maximum length", name)
	}
	if !utf8.ValidString(id) {
		return fmt.Errorf("%s must be valid UTF-8", name)
	}
	return nil
}

// ValidatePattern validates an optional search pattern.
func ValidatePattern(name, pattern string) error {
	if len(pattern) > maxPatternLength {
		return fmt.Errorf("%s exceeds maximum length", name)
	}
	if !utf8.ValidString(pattern) {
		return fmt.Errorf("%s must be valid UTF-8", name)
	}
	return nil
}

// ParseTimeWindow reads the required fromDate and toDate parameters as RFC 3339 instants.
func ParseTimeWindow(q url.Values) (time.Time, time.Time, error) {
	from, err := parseInstant(q, "fromDate")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := parseInstant(q, "toDate")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, errors.New("toDate must not be before fromDate")
	}
	return from, to, nil
}

func parseInstant(q url.Values, name string) (time.Time, error) {
	raw := q.Get(name)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%s is required", name)
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be an RFC 3339 timestamp", name)
	}
	return t, nil
}

// ParsePageable reads page, pageSize and order, applying defaults when absent.
func ParsePageable(q url.Values) (model.Pageable, error) {
	p := model.Pageable{Page: 1, PageSize: model.DefaultPageSize}

	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > model.MaxPage {
			return p, fmt.Errorf("page must be between 1 and %d", model.MaxPage)
		}
		p.Page = n
	}
	if raw := q.Get("pageSize"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > model.MaxPageSize {
			return p, fmt.Errorf("pageSize must be between 1 and %d", model.MaxPageSize)
		}
		p.PageSize = n
	}

	order, ok := model.ParseSortOrder(q.Get("order"))
	if !ok {
		return p, errors.New("order must be asc or desc")
	}
	p.Order = order
	return p, nil
}

// ParseStatuses reads a comma-separated or repeated statuses parameter.
func ParseStatuses(q url.Values) ([]model.EventStatus, error) {
	var out []model.EventStatus
	for _, raw := range q["statuses"] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			st, err := model.ParseEventStatus(strings.ToUpper(part))
			if err != nil {
				return nil, fmt.Errorf("invalid status %q", part)
			}
			out = append(out, st)
		}
	}
	return out, nil
}
