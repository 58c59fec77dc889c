package domain

import "time"

// Task categories offered by the itinerary editor. Imported rows without a
// category fall back to CategoryOther.
const (
	CategoryLodging    = "住宿"
	CategoryAttraction = "景點"
	CategoryRestaurant = "餐廳"
	CategoryOther      = "其他"
)

// Categories lists every valid task category in display order.
var Categories = []string{CategoryLodging, CategoryAttraction, CategoryRestaurant, CategoryOther}

// Task is one itinerary line item belonging to an order, scheduled on a
// given day. IDs are client-generated UUIDs so records created in the editor
// exist before they are ever persisted.
type Task struct {
	ID           string
	OrderID      string
	DayNumber    int
	Category     string
	ItemName     string
	StartTime    string // "HH:MM", empty = unscheduled
	ContactPhone string
	Remarks      string
	Assignee     string
	IsCompleted  bool
	IsPriority   bool
	HasIssue     bool
	UpdatedAt    time.Time
}
