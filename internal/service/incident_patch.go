package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/opsdesk/incident-service/internal/domain"
	"github.com/opsdesk/incident-service/internal/repository"
	"github.com/opsdesk/incident-service/pkg/util"
)

// incidentUpdatableFields is the whitelist of caller-modifiable incident
// fields, iterated in this fixed order so generated statements are
// deterministic regardless of patch map iteration order.
var incidentUpdatableFields = []string{
	"title",
	"description",
	"category",
	"affected_asset",
	"status",
	"in_progress_details",
	"assigned_to_id",
	"resolution_comments",
}

// assignmentSet is an insertion-ordered column→value map. Later writes to the
// same column overwrite the pending value without changing its position, so
// more specific rules win deterministically and a column can never receive
// two conflicting assignments in one statement.
type assignmentSet struct {
	order  []string
	values map[string]any
}

func newAssignmentSet() *assignmentSet {
	return &assignmentSet{values: make(map[string]any)}
}

func (s *assignmentSet) set(column string, value any) {
	if _, ok := s.values[column]; !ok {
		s.order = append(s.order, column)
	}
	s.values[column] = value
}

func (s *assignmentSet) has(column string) bool {
	_, ok := s.values[column]
	return ok
}

func (s *assignmentSet) setIfAbsent(column string, value any) {
	if !s.has(column) {
		s.set(column, value)
	}
}

func (s *assignmentSet) empty() bool {
	return len(s.order) == 0
}

func (s *assignmentSet) assignments() []repository.Assignment {
	result := make([]repository.Assignment, 0, len(s.order))
	for _, column := range s.order {
		result = append(result, repository.Assignment{Column: column, Value: s.values[column]})
	}
	return result
}

// buildIncidentPatch turns an arbitrary key/value patch into an ordered list
// of column assignments plus the derived assigned_at/resolved_at updates.
// Unknown fields are silently skipped. now is the timestamp bound for derived
// "= now" assignments so the whole patch lands in one statement.
func buildIncidentPatch(ctx context.Context, resolver *StatusResolver, patch map[string]any, now time.Time) ([]repository.Assignment, error) {
	set := newAssignmentSet()
	deferAssignedAt := false
	deferResolvedAt := false

	for _, field := range incidentUpdatableFields {
		raw, present := patch[field]
		if !present {
			continue
		}

		switch field {
		case "status":
			if raw == nil {
				continue
			}
			label := stringValue(raw)
			if label == "" {
				continue
			}
			status, role, err := resolver.Resolve(ctx, label)
			if err != nil {
				// A bad label is a business-rule conflict, not a
				// missing resource.
				if isNotFound(err) {
					return nil, util.NewConflict(fmt.Sprintf("status %q is not a valid status", label), nil)
				}
				return nil, err
			}
			set.set("status_id", status.ID)
			switch role {
			case domain.RoleResolved, domain.RoleClosed:
				deferResolvedAt = true
			default:
				// Moving away from a resolved/closed role always
				// clears the resolution time in the same statement.
				set.set("resolved_at", nil)
			}
			if role == domain.RoleInProgress {
				deferAssignedAt = true
			}

		case "assigned_to_id":
			if raw == nil || raw == "" {
				// Assignment and its timestamp are cleared as a pair.
				set.set("assigned_to_id", nil)
				set.set("assigned_at", nil)
				continue
			}
			id, ok := parsePositiveID(raw)
			if !ok {
				return nil, util.NewValidationError("invalid assigned user id", nil)
			}
			set.set("assigned_to_id", id)
			deferAssignedAt = true

		default:
			if raw == nil {
				set.set(field, nil)
				continue
			}
			set.set(field, stringValue(raw))
		}
	}

	// Deferred derived assignments apply only when the column was not
	// already explicitly set this pass; an explicit NULL always wins.
	if deferResolvedAt {
		set.setIfAbsent("resolved_at", now)
	}
	if deferAssignedAt {
		set.setIfAbsent("assigned_at", now)
	}

	if set.empty() {
		return nil, util.NewValidationError("nothing to update", nil)
	}
	return set.assignments(), nil
}

func parsePositiveID(v any) (int64, bool) {
	switch t := v.(type) {
	case float64:
		if t <= 0 || t != math.Trunc(t) {
			return 0, false
		}
		return int64(t), true
	case int64:
		if t <= 0 {
			return 0, false
		}
		return t, true
	case int:
		if t <= 0 {
			return 0, false
		}
		return int64(t), true
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil || id <= 0 {
			return 0, false
		}
		return id, true
	}
	return 0, false
}

func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func isNotFound(err error) bool {
	var domainErr *util.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.HTTPStatus == http.StatusNotFound
	}
	return false
}
