package memory

import (
	"context"
	"maps"

	"github.com/google/uuid"

	"github.com/gosuda/agileboard/internal/domain"
)

type auditRepo struct {
	s *Store
}

func (r *auditRepo) Record(_ context.Context, entry *domain.AuditEntry) error {
	stored := *entry
	stored.Details = maps.Clone(entry.Details)

	r.s.mu.Lock()
	r.s.audit = append(r.s.audit, stored)
	r.s.mu.Unlock()

	return nil
}

// ListByProject returns the newest entries first.
func (r *auditRepo) ListByProject(_ context.Context, projectID uuid.UUID, limit, offset int) ([]*domain.AuditEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*domain.AuditEntry
	skipped := 0
	for i := len(r.s.audit) - 1; i >= 0 && len(out) < limit; i-- {
		e := r.s.audit[i]
		if e.ProjectID != projectID {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		e.Details = maps.Clone(e.Details)
		out = append(out, &e)
	}

	return out, nil
}
