package domain

import "time"

// Order statuses. The listing UI additionally filters on the priority and
// issue flags, which are not statuses.
const (
	StatusPlanning  = "Planning"
	StatusConfirmed = "Confirmed"
)

// Order is a tour-group booking record, parent of a day-by-day task list.
// The ID is a staff-entered group code such as "JP-001".
type Order struct {
	ID          string
	ClientName  string
	StartDate   time.Time
	EndDate     time.Time
	MainContact string
	Status      string
	IsPriority  bool
	HasIssue    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
