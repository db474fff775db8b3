package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/opsdesk/incident-service/internal/domain"
	"github.com/opsdesk/incident-service/internal/repository"
	"github.com/opsdesk/incident-service/pkg/util"
)

// StatusResolver maps status labels to their reference rows and semantic
// roles. It memoizes lookups for the lifetime of a single operation, so one
// update referencing the same label twice hits the store once. Not safe for
// concurrent use; construct one per operation.
type StatusResolver struct {
	statuses repository.StatusRepository
	roles    domain.StatusRoleTable
	memo     map[string]*domain.Status
}

// NewStatusResolver builds a resolver scoped to one operation.
func NewStatusResolver(statuses repository.StatusRepository, roles domain.StatusRoleTable) *StatusResolver {
	return &StatusResolver{
		statuses: statuses,
		roles:    roles,
		memo:     make(map[string]*domain.Status),
	}
}

// Resolve returns the status row with the exact given name and its semantic
// role. Fails NotFound when no such status exists.
func (r *StatusResolver) Resolve(ctx context.Context, name string) (*domain.Status, domain.StatusRole, error) {
	if status, ok := r.memo[name]; ok {
		return status, r.roles.RoleOf(status.Name), nil
	}

	status, err := r.statuses.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.RoleOther, util.NewNotFound(fmt.Sprintf("status %q not found", name))
		}
		return nil, domain.RoleOther, util.NewInternalError(err)
	}

	r.memo[name] = status
	return status, r.roles.RoleOf(status.Name), nil
}
