package domain

import "time"

// User is the domain entity for a staff account. DisplayName is what the
// itinerary editor stamps as the default assignee on new tasks.
type User struct {
	ID           int64
	Email        string
	DisplayName  string
	PasswordHash string
	CreatedAt    time.Time
}
