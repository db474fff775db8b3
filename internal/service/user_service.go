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

// userUpdatableFields is the whitelist of caller-modifiable user fields.
var userUpdatableFields = []string{"name", "email"}

// UserService coordinates user workflows.
type UserService struct {
	users      repository.UserRepository
	dispatcher events.Dispatcher
	now        func() time.Time
}

// NewUserService constructs the service.
func NewUserService(users repository.UserRepository, dispatcher events.Dispatcher) *UserService {
	return &UserService{
		users:      users,
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

// List returns all users.
func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, util.NewInternalError(err)
	}
	return users, nil
}

// Get fetches a single user by id.
func (s *UserService) Get(ctx context.Context, id int64) (*domain.User, error) {
	if id <= 0 {
		return nil, util.NewValidationError("invalid user id", nil)
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, util.ClassifyStoreError(err, "constraint violation")
	}
	return user, nil
}

// Create registers a new user. The email uniqueness pre-check runs before the
// write; the unique constraint on users.email is the backstop for the race
// between check and insert, and also maps to Conflict.
func (s *UserService) Create(ctx context.Context, name, email string) (*domain.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" {
		return nil, util.NewValidationError("name and email are required", nil)
	}

	inUse, err := s.users.EmailInUse(ctx, email, 0)
	if err != nil {
		return nil, util.NewInternalError(err)
	}
	if inUse {
		return nil, util.NewConflict("email already registered", nil)
	}

	user := &domain.User{Name: name, Email: email}
	if err := s.users.Insert(ctx, user); err != nil {
		return nil, util.ClassifyStoreError(err, "email already registered")
	}

	s.publishEvent(ctx, events.Event{
		Type:      events.EventUserCreated,
		SubjectID: user.ID,
		Payload:   events.UserCreatedPayload{Name: user.Name, Email: user.Email},
	})
	return user, nil
}

// Update applies a whitelisted partial update to a user. A zero-row outcome
// triggers an existence probe: absent ids report NotFound, while an existing
// row with identical values counts as success without effective change.
func (s *UserService) Update(ctx context.Context, id int64, patch map[string]any) error {
	if id <= 0 {
		return util.NewValidationError("invalid user id", nil)
	}
	if len(patch) == 0 {
		return util.NewValidationError("nothing to update", nil)
	}

	set := newAssignmentSet()
	for _, field := range userUpdatableFields {
		raw, present := patch[field]
		if !present {
			continue
		}
		if raw == nil {
			set.set(field, nil)
			continue
		}
		value := stringValue(raw)

		if field == "email" && value != "" {
			inUse, err := s.users.EmailInUse(ctx, value, id)
			if err != nil {
				return util.NewInternalError(err)
			}
			if inUse {
				return util.NewConflict("email already registered by another user", nil)
			}
		}
		set.set(field, value)
	}

	if set.empty() {
		return util.NewValidationError("nothing to update", nil)
	}
	set.set("updated_at", s.now())

	rows, err := s.users.ApplyPatch(ctx, id, set.assignments())
	if err != nil {
		return util.ClassifyStoreError(err, "email already registered by another user")
	}
	if rows == 0 {
		exists, probeErr := s.users.Exists(ctx, id)
		if probeErr != nil {
			return util.NewInternalError(probeErr)
		}
		if !exists {
			return util.NewNotFound("user not found")
		}
	}

	s.publishEvent(ctx, events.Event{
		Type:      events.EventUserUpdated,
		SubjectID: id,
	})
	return nil
}

// Delete removes a user by id. Users referenced by incidents cannot be
// deleted; the foreign-key violation surfaces as Conflict.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return util.NewValidationError("invalid user id", nil)
	}
	rows, err := s.users.Delete(ctx, id)
	if err != nil {
		return util.ClassifyStoreError(err, "user has associated incidents")
	}
	if rows == 0 {
		return util.NewNotFound("user not found")
	}
	s.publishEvent(ctx, events.Event{
		Type:      events.EventUserDeleted,
		SubjectID: id,
	})
	return nil
}

func (s *UserService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}
