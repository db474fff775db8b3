package dto

import (
	"time"

	"github.com/opsdesk/incident-service/internal/domain"
)

// CreateIncidentRequest payload.
type CreateIncidentRequest struct {
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	Category      string  `json:"category"`
	AffectedAsset *string `json:"affected_asset"`
	RequestorID   int64   `json:"requestor_id"`
}

// IncidentResponse mirrors the joined incident row.
type IncidentResponse struct {
	IncidentID         int64      `json:"incident_id"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	Category           string     `json:"category"`
	AffectedAsset      *string    `json:"affected_asset"`
	RequestorID        int64      `json:"requestor_id"`
	ReportedAt         time.Time  `json:"reported_at"`
	StatusID           int64      `json:"status_id"`
	StatusName         string     `json:"status_name"`
	InProgressDetails  *string    `json:"in_progress_details"`
	AssignedToID       *int64     `json:"assigned_to_id"`
	AssignedAt         *time.Time `json:"assigned_at"`
	ResolvedAt         *time.Time `json:"resolved_at"`
	ResolutionComments *string    `json:"resolution_comments"`
	RequestorName      string     `json:"requestor_name"`
	AssignedToName     *string    `json:"assigned_to_name"`
}

// CreateIncidentResponse acknowledges creation with the new id.
type CreateIncidentResponse struct {
	Message    string `json:"message"`
	IncidentID int64  `json:"incident_id"`
}

// MessageResponse carries a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// FromIncident maps the domain model to its response shape.
func FromIncident(incident *domain.Incident) IncidentResponse {
	return IncidentResponse{
		IncidentID:         incident.ID,
		Title:              incident.Title,
		Description:        incident.Description,
		Category:           incident.Category,
		AffectedAsset:      incident.AffectedAsset,
		RequestorID:        incident.RequestorID,
		ReportedAt:         incident.ReportedAt,
		StatusID:           incident.StatusID,
		StatusName:         incident.StatusName,
		InProgressDetails:  incident.InProgressDetails,
		AssignedToID:       incident.AssignedToID,
		AssignedAt:         incident.AssignedAt,
		ResolvedAt:         incident.ResolvedAt,
		ResolutionComments: incident.ResolutionComments,
		RequestorName:      incident.RequestorName,
		AssignedToName:     incident.AssignedToName,
	}
}
