package service

import (
	"context"
	"strings"
	"time"

	"github.com/opsdesk/incident-service/internal/domain"
	"github.com/opsdesk/incident-service/internal/events"
	"github.com/opsdesk/incident-service/internal/repository"
	"github.com/opsdesk/incident-service/pkg/util"
)

// pendingStatusName is the label every new incident starts with. Resolved by
// name against the status catalog rather than assuming a numeric id.
const pendingStatusName = "Pending"

// IncidentService coordinates incident workflows.
type IncidentService struct {
	incidents  repository.IncidentRepository
	statuses   repository.StatusRepository
	roles      domain.StatusRoleTable
	dispatcher events.Dispatcher
	now        func() time.Time
}

// IncidentDependencies bundles collaborators for the incident service.
type IncidentDependencies struct {
	IncidentRepo repository.IncidentRepository
	StatusRepo   repository.StatusRepository
	Roles        domain.StatusRoleTable
	Dispatcher   events.Dispatcher
}

// IncidentCreateInput describes incident creation payload.
type IncidentCreateInput struct {
	Title         string
	Description   string
	Category      string
	AffectedAsset *string
	RequestorID   int64
}

// NewIncidentService constructs the service.
func NewIncidentService(deps IncidentDependencies) *IncidentService {
	return &IncidentService{
		incidents:  deps.IncidentRepo,
		statuses:   deps.StatusRepo,
		roles:      deps.Roles,
		dispatcher: deps.Dispatcher,
		now:        time.Now,
	}
}

// List returns incidents with joined display names, newest first. By default
// incidents whose status occupies the resolved or closed role are excluded;
// includeSolved lists everything.
func (s *IncidentService) List(ctx context.Context, includeSolved bool) ([]domain.Incident, error) {
	var exclude []string
	if !includeSolved {
		exclude = s.roles.TerminalNames()
	}
	incidents, err := s.incidents.List(ctx, exclude)
	if err != nil {
		return nil, util.NewInternalError(err)
	}
	return incidents, nil
}

// Get fetches a single incident by id.
func (s *IncidentService) Get(ctx context.Context, id int64) (*domain.Incident, error) {
	if id <= 0 {
		return nil, util.NewValidationError("invalid incident id", nil)
	}
	incident, err := s.incidents.GetByID(ctx, id)
	if err != nil {
		return nil, util.ClassifyStoreError(err, "constraint violation")
	}
	return incident, nil
}

// Create registers a new incident in the pending state.
func (s *IncidentService) Create(ctx context.Context, input IncidentCreateInput) (*domain.Incident, error) {
	if strings.TrimSpace(input.Title) == "" ||
		strings.TrimSpace(input.Description) == "" ||
		strings.TrimSpace(input.Category) == "" {
		return nil, util.NewValidationError("title, description and category are required", nil)
	}
	if input.RequestorID <= 0 {
		return nil, util.NewValidationError("invalid requestor id", nil)
	}

	resolver := NewStatusResolver(s.statuses, s.roles)
	pending, _, err := resolver.Resolve(ctx, pendingStatusName)
	if err != nil {
		// A missing pending status means the catalog is misconfigured,
		// not that the caller did anything wrong.
		return nil, util.NewInternalError(err)
	}

	incident := &domain.Incident{
		Title:         strings.TrimSpace(input.Title),
		Description:   strings.TrimSpace(input.Description),
		Category:      strings.TrimSpace(input.Category),
		AffectedAsset: input.AffectedAsset,
		RequestorID:   input.RequestorID,
		StatusID:      pending.ID,
		StatusName:    pending.Name,
		ReportedAt:    s.now(),
	}
	if err := s.incidents.Insert(ctx, incident); err != nil {
		return nil, util.ClassifyStoreError(err, "requestor does not exist")
	}

	s.publishEvent(ctx, events.Event{
		Type:      events.EventIncidentCreated,
		SubjectID: incident.ID,
		Payload: events.IncidentCreatedPayload{
			Title:       incident.Title,
			Category:    incident.Category,
			RequestorID: incident.RequestorID,
		},
	})
	return incident, nil
}

// Update applies a whitelisted partial update to an incident in a single
// statement and classifies the outcome.
func (s *IncidentService) Update(ctx context.Context, id int64, patch map[string]any) error {
	if id <= 0 {
		return util.NewValidationError("invalid incident id", nil)
	}
	if len(patch) == 0 {
		return util.NewValidationError("nothing to update", nil)
	}

	resolver := NewStatusResolver(s.statuses, s.roles)
	assigns, err := buildIncidentPatch(ctx, resolver, patch, s.now())
	if err != nil {
		return err
	}

	rows, err := s.incidents.ApplyPatch(ctx, id, assigns)
	if err != nil {
		return util.ClassifyStoreError(err, "assigned user does not exist")
	}
	if rows == 0 {
		// Cannot distinguish "id absent" from "values identical"
		// without a pre-read; both report as NotFound.
		return util.NewNotFound("incident not found or no effective change")
	}

	columns := make([]string, 0, len(assigns))
	for _, a := range assigns {
		columns = append(columns, a.Column)
	}
	s.publishEvent(ctx, events.Event{
		Type:      events.EventIncidentUpdated,
		SubjectID: id,
		Payload:   events.IncidentUpdatedPayload{Columns: columns},
	})
	return nil
}

// Delete removes an incident by id.
func (s *IncidentService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return util.NewValidationError("invalid incident id", nil)
	}
	rows, err := s.incidents.Delete(ctx, id)
	if err != nil {
		return util.ClassifyStoreError(err, "incident has dependent records")
	}
	if rows == 0 {
		return util.NewNotFound("incident not found")
	}
	s.publishEvent(ctx, events.Event{
		Type:      events.EventIncidentDeleted,
		SubjectID: id,
	})
	return nil
}

func (s *IncidentService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}
