package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opsdesk/incident-service/internal/api/http/handlers"
	"github.com/opsdesk/incident-service/internal/domain"
	"github.com/opsdesk/incident-service/internal/observability"
	"github.com/opsdesk/incident-service/internal/repository"
	"github.com/opsdesk/incident-service/internal/service"
)

type stubIncidentRepo struct {
	incidents    map[int64]*domain.Incident
	patchRows    int64
	deleteRows   int64
	nextID       int64
	listExcluded []string
}

func (s *stubIncidentRepo) Insert(_ context.Context, incident *domain.Incident) error {
	s.nextID++
	incident.ID = s.nextID
	return nil
}

func (s *stubIncidentRepo) GetByID(_ context.Context, id int64) (*domain.Incident, error) {
	incident, ok := s.incidents[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return incident, nil
}

func (s *stubIncidentRepo) List(_ context.Context, exclude []string) ([]domain.Incident, error) {
	s.listExcluded = exclude
	return nil, nil
}

func (s *stubIncidentRepo) ApplyPatch(_ context.Context, _ int64, _ []repository.Assignment) (int64, error) {
	return s.patchRows, nil
}

func (s *stubIncidentRepo) Delete(_ context.Context, _ int64) (int64, error) {
	return s.deleteRows, nil
}

type stubStatusRepo struct{}

func (stubStatusRepo) GetByName(_ context.Context, name string) (*domain.Status, error) {
	ids := map[string]int64{
		"Pending": 1, "In Progress": 2, "Solved": 3,
		"Closed": 4, "Reopened": 5, "Cancelled": 6,
	}
	id, ok := ids[name]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &domain.Status{ID: id, Name: name}, nil
}

type stubUserRepo struct {
	users      map[int64]*domain.User
	deleteRows int64
}

func (s *stubUserRepo) Insert(_ context.Context, user *domain.User) error {
	user.ID = 1
	return nil
}

func (s *stubUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return user, nil
}

func (s *stubUserRepo) List(_ context.Context) ([]domain.User, error) { return nil, nil }

func (s *stubUserRepo) ApplyPatch(_ context.Context, _ int64, _ []repository.Assignment) (int64, error) {
	return 1, nil
}

func (s *stubUserRepo) Delete(_ context.Context, _ int64) (int64, error) {
	return s.deleteRows, nil
}

func (s *stubUserRepo) Exists(_ context.Context, _ int64) (bool, error) { return false, nil }

func (s *stubUserRepo) EmailInUse(_ context.Context, _ string, _ int64) (bool, error) {
	return false, nil
}

func newTestApp(incidentRepo *stubIncidentRepo, userRepo *stubUserRepo) *fiber.App {
	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	incidentService := service.NewIncidentService(service.IncidentDependencies{
		IncidentRepo: incidentRepo,
		StatusRepo:   stubStatusRepo{},
		Roles:        domain.DefaultStatusRoles(),
	})
	userService := service.NewUserService(userRepo, nil)

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 0)
	RegisterRoutes(app, RouteConfig{
		Health:    handlers.NewHealthHandler("incident-service", "test", nil, nil, metrics),
		Incidents: handlers.NewIncidentsHandler(incidentService),
		Users:     handlers.NewUsersHandler(userService),
	})
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, target, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp.StatusCode, decoded
}

func TestUpdateIncidentRejectsNonNumericID(t *testing.T) {
	app := newTestApp(&stubIncidentRepo{}, &stubUserRepo{})

	status, body := doJSON(t, app, http.MethodPut, "/api/incidents/abc", `{"title":"x"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid incident id", body["error"])
}

func TestUpdateIncidentUnknownStatusIsConflict(t *testing.T) {
	app := newTestApp(&stubIncidentRepo{patchRows: 1}, &stubUserRepo{})

	status, body := doJSON(t, app, http.MethodPut, "/api/incidents/5", `{"status":"Nonexistent"}`)
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, body["error"], "Nonexistent")
}

func TestUpdateIncidentSucceeds(t *testing.T) {
	app := newTestApp(&stubIncidentRepo{patchRows: 1}, &stubUserRepo{})

	status, body := doJSON(t, app, http.MethodPut, "/api/incidents/5", `{"status":"Solved","resolution_comments":"replaced cable"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "incident updated", body["message"])
}

func TestUpdateIncidentZeroRowsIsNotFound(t *testing.T) {
	app := newTestApp(&stubIncidentRepo{patchRows: 0}, &stubUserRepo{})

	status, body := doJSON(t, app, http.MethodPut, "/api/incidents/5", `{"title":"x"}`)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "incident not found or no effective change", body["error"])
}

func TestCreateIncidentReturnsNewID(t *testing.T) {
	app := newTestApp(&stubIncidentRepo{}, &stubUserRepo{})

	status, body := doJSON(t, app, http.MethodPost, "/api/incidents/",
		`{"title":"Printer jam","description":"Paper stuck","category":"Hardware","requestor_id":1}`)
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, float64(1), body["incident_id"])
}

func TestDeleteIncidentMissingIsNotFound(t *testing.T) {
	app := newTestApp(&stubIncidentRepo{deleteRows: 0}, &stubUserRepo{})

	status, _ := doJSON(t, app, http.MethodDelete, "/api/incidents/99", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestListIncidentsFilterAll(t *testing.T) {
	repo := &stubIncidentRepo{}
	app := newTestApp(repo, &stubUserRepo{})

	status, _ := doJSON(t, app, http.MethodGet, "/api/incidents/", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"Closed", "Solved"}, repo.listExcluded)

	status, _ = doJSON(t, app, http.MethodGet, "/api/incidents/?filter=all", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Nil(t, repo.listExcluded)
}

func TestDeleteUserMissingIsNotFound(t *testing.T) {
	app := newTestApp(&stubIncidentRepo{}, &stubUserRepo{deleteRows: 0})

	status, body := doJSON(t, app, http.MethodDelete, "/api/users/4", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "user not found", body["error"])
}

func TestHealthLive(t *testing.T) {
	app := newTestApp(&stubIncidentRepo{}, &stubUserRepo{})

	status, body := doJSON(t, app, http.MethodGet, "/health/live", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alive", body["status"])
}
