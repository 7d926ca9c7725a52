package audit

import (
	"context"
	"fmt"
	"time"

	"mercator-hq/concierge/pkg/synthesis/guardrails"
)

const (
	// DefaultLimit is the number of records returned when Limit is zero.
	DefaultLimit = 100

	// MaxLimit is the largest accepted Limit.
	MaxLimit = 10000
)

// Validate checks query parameters.
func (q *Query) Validate() error {
	if q.Limit < 0 {
		return NewQueryError(q, fmt.Errorf("limit must be >= 0, got %d", q.Limit))
	}
	if q.Limit > MaxLimit {
		return NewQueryError(q, fmt.Errorf("limit must be <= %d, got %d", MaxLimit, q.Limit))
	}
	if q.Offset < 0 {
		return NewQueryError(q, fmt.Errorf("offset must be >= 0, got %d", q.Offset))
	}
	switch q.SortOrder {
	case "", "asc", "desc":
	default:
		return NewQueryError(q, fmt.Errorf("invalid sort order: %s (must be 'asc' or 'desc')", q.SortOrder))
	}
	if q.StartTime != nil && q.EndTime != nil && q.StartTime.After(*q.EndTime) {
		return NewQueryError(q, fmt.Errorf("start_time must be before end_time"))
	}
	if q.MinRiskLevel != nil && (*q.MinRiskLevel < guardrails.RiskLow || *q.MinRiskLevel > guardrails.RiskCritical) {
		return NewQueryError(q, fmt.Errorf("invalid min_risk_level: %d", *q.MinRiskLevel))
	}
	return nil
}

// ApplyDefaults fills in the default limit and sort order.
func (q *Query) ApplyDefaults() {
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	if q.SortOrder == "" {
		q.SortOrder = "desc"
	}
}

// Prune deletes records older than cutoff.
func Prune(ctx context.Context, storage Storage, cutoff time.Time) (int64, error) {
	return storage.Delete(ctx, &Query{EndTime: &cutoff})
}

// RetentionCutoff returns the prune cutoff for a retention period in days.
// A non-positive period keeps records forever and returns the zero time.
func RetentionCutoff(now time.Time, days int) time.Time {
	if days <= 0 {
		return time.Time{}
	}
	return now.AddDate(0, 0, -days)
}
