package domain

import "time"

// User is the domain model for people who report or handle incidents.
type User struct {
	ID        int64
	Name      string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
