package domain

import "time"

// Incident is the aggregate for reported incidents. Display names for the
// requestor, assignee and status are populated by joined queries.
type Incident struct {
	ID                 int64
	Title              string
	Description        string
	Category           string
	AffectedAsset      *string
	RequestorID        int64
	StatusID           int64
	StatusName         string
	InProgressDetails  *string
	AssignedToID       *int64
	AssignedAt         *time.Time
	ResolvedAt         *time.Time
	ResolutionComments *string
	ReportedAt         time.Time
	RequestorName      string
	AssignedToName     *string
}
