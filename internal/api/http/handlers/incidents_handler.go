package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/opsdesk/incident-service/internal/api/dto"
	"github.com/opsdesk/incident-service/internal/service"
	"github.com/opsdesk/incident-service/pkg/util"
)

// IncidentsHandler manages incident endpoints.
type IncidentsHandler struct {
	service *service.IncidentService
}

// NewIncidentsHandler constructs handler.
func NewIncidentsHandler(incidentService *service.IncidentService) *IncidentsHandler {
	return &IncidentsHandler{service: incidentService}
}

// List GET /api/incidents. Unsolved incidents by default; ?filter=all lists
// everything.
func (h *IncidentsHandler) List(c *fiber.Ctx) error {
	includeSolved := c.Query("filter") == "all"
	incidents, err := h.service.List(c.UserContext(), includeSolved)
	if err != nil {
		return err
	}
	items := make([]dto.IncidentResponse, 0, len(incidents))
	for i := range incidents {
		items = append(items, dto.FromIncident(&incidents[i]))
	}
	return c.JSON(items)
}

// Get GET /api/incidents/:id.
func (h *IncidentsHandler) Get(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "invalid incident id")
	if err != nil {
		return err
	}
	incident, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(dto.FromIncident(incident))
}

// Create POST /api/incidents.
func (h *IncidentsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateIncidentRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}

	incident, err := h.service.Create(c.UserContext(), service.IncidentCreateInput{
		Title:         req.Title,
		Description:   req.Description,
		Category:      req.Category,
		AffectedAsset: req.AffectedAsset,
		RequestorID:   req.RequestorID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.CreateIncidentResponse{
		Message:    "incident created",
		IncidentID: incident.ID,
	})
}

// Update PUT /api/incidents/:id. The body is an arbitrary field→value patch;
// explicit nulls are preserved to distinguish "clear" from "absent".
func (h *IncidentsHandler) Update(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "invalid incident id")
	if err != nil {
		return err
	}
	patch, err := parsePatchBody(c)
	if err != nil {
		return err
	}
	if err := h.service.Update(c.UserContext(), id, patch); err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "incident updated"})
}

// Delete DELETE /api/incidents/:id.
func (h *IncidentsHandler) Delete(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "invalid incident id")
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "incident deleted"})
}

func parseIDParam(c *fiber.Ctx, message string) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, util.NewValidationError(message, nil)
	}
	return id, nil
}

func parsePatchBody(c *fiber.Ctx) (map[string]any, error) {
	var patch map[string]any
	if err := json.Unmarshal(c.Body(), &patch); err != nil {
		return nil, util.NewValidationError("invalid payload", nil)
	}
	return patch, nil
}
