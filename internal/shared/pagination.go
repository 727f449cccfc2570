package shared

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultLimit caps list responses when no limit is requested.
	DefaultLimit = 100
	// MaxLimit is the largest page a list endpoint returns.
	MaxLimit = 500
)

// ListFilter carries the common list query parameters.
type ListFilter struct {
	Page       int
	Limit      int
	Search     string
	BusinessID *int64
}

// ParseListFilter reads page, limit, search and businessId from the query.
func ParseListFilter(q url.Values) (ListFilter, error) {
	f := ListFilter{Page: 1, Limit: DefaultLimit, Search: strings.TrimSpace(q.Get("search"))}
	fields := map[string]string{}
	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			fields["page"] = "must be a positive integer"
		} else {
			f.Page = page
		}
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			fields["limit"] = "must be a positive integer"
		} else if limit > MaxLimit {
			f.Limit = MaxLimit
		} else {
			f.Limit = limit
		}
	}
	if raw := q.Get("businessId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			fields["businessId"] = "must be a positive integer"
		} else {
			f.BusinessID = &id
		}
	}
	if len(fields) > 0 {
		return ListFilter{}, InvalidFields(fields)
	}
	return f, nil
}

// Offset returns the number of rows to skip.
func (f ListFilter) Offset() uint64 {
	if f.Page <= 1 || f.Limit <= 0 {
		return 0
	}
	return uint64((f.Page - 1) * f.Limit)
}
