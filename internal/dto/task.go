package dto

import (
	"time"

	"github.com/middle0128/Aitravel/internal/recon"
)

// TaskRecord is the wire shape of one itinerary line item. Field names
// match the table columns so the web editor round-trips records untouched.
type TaskRecord struct {
	ID           string    `json:"id"`
	OrderID      string    `json:"order_id"`
	DayNumber    int       `json:"day_number"`
	Category     string    `json:"category"`
	ItemName     string    `json:"item_name"`
	StartTime    string    `json:"start_time"`
	ContactPhone string    `json:"contact_phone"`
	Remarks      string    `json:"remarks"`
	Assignee     string    `json:"assignee"`
	IsCompleted  bool      `json:"is_completed"`
	IsPriority   bool      `json:"is_priority"`
	HasIssue     bool      `json:"has_issue"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ListTasksResponse is the editor's load payload: the sorted working set
// plus the order's save watermark.
type ListTasksResponse struct {
	Items       []TaskRecord `json:"items"`
	LastUpdated *time.Time   `json:"last_updated"`
}

// CommitTasksRequest replays one editing session: the full edited record
// list plus the ids the user deleted.
type CommitTasksRequest struct {
	Records    []TaskRecord `json:"records"`
	DeletedIDs []string     `json:"deleted_ids"`
}

// CommitTasksResponse reports a successful commit.
type CommitTasksResponse struct {
	OK          bool         `json:"ok"`
	Upserted    int          `json:"upserted"`
	Deleted     int          `json:"deleted"`
	Items       []TaskRecord `json:"items"`
	LastUpdated *time.Time   `json:"last_updated"`
}

// ValidationErrorResponse names the record fields that blocked a commit.
type ValidationErrorResponse struct {
	Error  string             `json:"error"`
	Fields []recon.FieldError `json:"fields"`
}

// ImportImageRequest is the JSON body for the AI image import call.
type ImportImageRequest struct {
	Image string `json:"image" binding:"required"`
}

// ImportImageResponse carries the webhook's cleaned text reply, expected
// to be a JSON array of itinerary rows.
type ImportImageResponse struct {
	Payload string `json:"payload"`
}

// ImportParseRequest is the JSON body for the import preview call.
type ImportParseRequest struct {
	Payload string `json:"payload" binding:"required"`
}

// ImportParseResponse lists the records the payload would add.
type ImportParseResponse struct {
	Count int          `json:"count"`
	Items []TaskRecord `json:"items"`
}
