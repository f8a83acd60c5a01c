package pagination

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 50
	// MaxLimit caps how many rows any page can request.
	MaxLimit = 100
)

// Params holds page-based pagination inputs from controllers or services.
type Params struct {
	Page  int
	Limit int
}

// Meta is the pagination block returned alongside list payloads.
type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Normalize returns params with page >= 1 and a bounded limit.
func (p Params) Normalize() Params {
	page := p.Page
	if page < 1 {
		page = 1
	}
	return Params{Page: page, Limit: NormalizeLimit(p.Limit)}
}

// Offset is the number of rows to skip for the normalized page.
func (p Params) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

// TotalPages rounds total/limit up.
func TotalPages(total int64, limit int) int {
	limit = NormalizeLimit(limit)
	if total <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

// NewMeta builds the response block for a normalized page.
func NewMeta(p Params, total int64) Meta {
	n := p.Normalize()
	return Meta{
		Page:       n.Page,
		Limit:      n.Limit,
		Total:      total,
		TotalPages: TotalPages(total, n.Limit),
	}
}

// ParseParams reads page/limit query values. Empty values fall back to defaults.
func ParseParams(page, limit string) (Params, error) {
	var params Params
	if v := strings.TrimSpace(page); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Params{}, fmt.Errorf("page must be a positive integer")
		}
		params.Page = n
	}
	if v := strings.TrimSpace(limit); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Params{}, fmt.Errorf("limit must be a positive integer")
		}
		params.Limit = n
	}
	return params.Normalize(), nil
}
