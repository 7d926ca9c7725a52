package retention

import (
	"context"
	"time"

	"mercator-hq/concierge/pkg/audit"
	"mercator-hq/concierge/pkg/sessions"
)

// Pruner deletes expired data and reports how many items were removed.
type Pruner interface {
	Prune(ctx context.Context) (int64, error)
}

// PrunerFunc adapts a function to the Pruner interface.
type PrunerFunc func(ctx context.Context) (int64, error)

// Prune calls f(ctx).
func (f PrunerFunc) Prune(ctx context.Context) (int64, error) {
	return f(ctx)
}

// AuditPruner deletes audit records older than the retention period.
type AuditPruner struct {
	storage       audit.Storage
	retentionDays int
	now           func() time.Time
}

// NewAuditPruner creates a pruner for storage. A non-positive retention
// period keeps records forever.
func NewAuditPruner(storage audit.Storage, retentionDays int) *AuditPruner {
	return &AuditPruner{storage: storage, retentionDays: retentionDays, now: time.Now}
}

// Prune implements Pruner.
func (p *AuditPruner) Prune(ctx context.Context) (int64, error) {
	if p.retentionDays <= 0 {
		return 0, nil
	}
	return audit.Prune(ctx, p.storage, audit.RetentionCutoff(p.now(), p.retentionDays))
}

// SessionPruner deletes non-escalated sessions idle for longer than the TTL.
type SessionPruner struct {
	store   sessions.Store
	idleTTL time.Duration
	now     func() time.Time
}

// NewSessionPruner creates a pruner for store. A non-positive TTL disables
// pruning.
func NewSessionPruner(store sessions.Store, idleTTL time.Duration) *SessionPruner {
	return &SessionPruner{store: store, idleTTL: idleTTL, now: time.Now}
}

// Prune implements Pruner.
func (p *SessionPruner) Prune(ctx context.Context) (int64, error) {
	if p.idleTTL <= 0 {
		return 0, nil
	}
	n, err := p.store.Cleanup(ctx, p.now().Add(-p.idleTTL))
	return int64(n), err
}
