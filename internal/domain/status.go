package domain

import "sort"

// Status is a row of the incident_statuses reference table.
type Status struct {
	ID   int64
	Name string
}

// StatusRole is a coarse classification of a status used to drive derived
// timestamp behavior, independent of the status's identifier.
type StatusRole string

const (
	RolePending    StatusRole = "pending"
	RoleInProgress StatusRole = "in_progress"
	RoleResolved   StatusRole = "resolved"
	RoleClosed     StatusRole = "closed"
	RoleOther      StatusRole = "other"
)

// StatusRoleTable maps status names to semantic roles. Statuses are defined
// by the data store; roles are declared here by name rather than by numeric
// id so that renumbering the reference table cannot silently change behavior.
type StatusRoleTable map[string]StatusRole

// DefaultStatusRoles is the role table for the seeded status catalog, loaded
// once at startup and treated as immutable configuration.
func DefaultStatusRoles() StatusRoleTable {
	return StatusRoleTable{
		"Pending":     RolePending,
		"In Progress": RoleInProgress,
		"Solved":      RoleResolved,
		"Closed":      RoleClosed,
		"Reopened":    RoleOther,
		"Cancelled":   RoleOther,
	}
}

// RoleOf returns the semantic role for a status name, RoleOther when the name
// is not declared.
func (t StatusRoleTable) RoleOf(name string) StatusRole {
	if role, ok := t[name]; ok {
		return role
	}
	return RoleOther
}

// TerminalNames returns the names whose role is resolved or closed. The
// default incident listing excludes these.
func (t StatusRoleTable) TerminalNames() []string {
	names := make([]string, 0, 2)
	for name, role := range t {
		if role == RoleResolved || role == RoleClosed {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
