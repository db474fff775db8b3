package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opsdesk/incident-service/internal/domain"
)

const incidentColumns = `
        i.incident_id, i.title, i.description, i.category, i.affected_asset,
        i.requestor_id, i.status_id, s.status_name, i.in_progress_details,
        i.assigned_to_id, i.assigned_at, i.resolved_at, i.resolution_comments,
        i.reported_at, r.name AS requestor_name, a.name AS assigned_to_name`

const incidentJoins = `
        FROM incidents i
        JOIN users r ON i.requestor_id = r.user_id
        JOIN incident_statuses s ON i.status_id = s.status_id
        LEFT JOIN users a ON i.assigned_to_id = a.user_id`

// IncidentRepository encapsulates incident persistence.
type IncidentRepository interface {
	Insert(ctx context.Context, incident *domain.Incident) error
	GetByID(ctx context.Context, id int64) (*domain.Incident, error)
	List(ctx context.Context, excludeStatusNames []string) ([]domain.Incident, error)
	ApplyPatch(ctx context.Context, id int64, assigns []Assignment) (int64, error)
	Delete(ctx context.Context, id int64) (int64, error)
}

type incidentRepository struct {
	pool *pgxpool.Pool
}

// NewIncidentRepository instantiates repository.
func NewIncidentRepository(pool *pgxpool.Pool) IncidentRepository {
	return &incidentRepository{pool: pool}
}

func (r *incidentRepository) Insert(ctx context.Context, incident *domain.Incident) error {
	const query = `
        INSERT INTO incidents (title, description, category, affected_asset, requestor_id, status_id, reported_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING incident_id`
	return r.pool.QueryRow(ctx, query,
		incident.Title,
		incident.Description,
		incident.Category,
		incident.AffectedAsset,
		incident.RequestorID,
		incident.StatusID,
		incident.ReportedAt,
	).Scan(&incident.ID)
}

func (r *incidentRepository) GetByID(ctx context.Context, id int64) (*domain.Incident, error) {
	query := `SELECT` + incidentColumns + incidentJoins + ` WHERE i.incident_id = $1`

	var incident domain.Incident
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&incident.ID,
		&incident.Title,
		&incident.Description,
		&incident.Category,
		&incident.AffectedAsset,
		&incident.RequestorID,
		&incident.StatusID,
		&incident.StatusName,
		&incident.InProgressDetails,
		&incident.AssignedToID,
		&incident.AssignedAt,
		&incident.ResolvedAt,
		&incident.ResolutionComments,
		&incident.ReportedAt,
		&incident.RequestorName,
		&incident.AssignedToName,
	); err != nil {
		return nil, err
	}
	return &incident, nil
}

// List fetches incidents with joined display names, newest first. Statuses
// named in excludeStatusNames are filtered out; pass nil to list everything.
func (r *incidentRepository) List(ctx context.Context, excludeStatusNames []string) ([]domain.Incident, error) {
	query := `SELECT` + incidentColumns + incidentJoins
	args := []any{}

	if len(excludeStatusNames) > 0 {
		placeholders := make([]string, len(excludeStatusNames))
		for i, name := range excludeStatusNames {
			args = append(args, name)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		query += fmt.Sprintf(" WHERE s.status_name NOT IN (%s)", strings.Join(placeholders, ","))
	}

	query += " ORDER BY i.reported_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIncidents(rows)
}

// ApplyPatch executes a single UPDATE scoped by id and reports the number of
// rows matched. Zero rows means the id is absent or nothing changed.
func (r *incidentRepository) ApplyPatch(ctx context.Context, id int64, assigns []Assignment) (int64, error) {
	args := []any{}
	setClause := renderSetClause(assigns, &args)
	args = append(args, id)

	query := fmt.Sprintf("UPDATE incidents SET %s WHERE incident_id = $%d", setClause, len(args))
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *incidentRepository) Delete(ctx context.Context, id int64) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM incidents WHERE incident_id = $1`, id)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func scanIncidents(rows pgx.Rows) ([]domain.Incident, error) {
	var result []domain.Incident
	for rows.Next() {
		var incident domain.Incident
		if err := rows.Scan(
			&incident.ID,
			&incident.Title,
			&incident.Description,
			&incident.Category,
			&incident.AffectedAsset,
			&incident.RequestorID,
			&incident.StatusID,
			&incident.StatusName,
			&incident.InProgressDetails,
			&incident.AssignedToID,
			&incident.AssignedAt,
			&incident.ResolvedAt,
			&incident.ResolutionComments,
			&incident.ReportedAt,
			&incident.RequestorName,
			&incident.AssignedToName,
		); err != nil {
			return nil, err
		}
		result = append(result, incident)
	}
	return result, rows.Err()
}
