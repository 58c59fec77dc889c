package dto

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Date parses a JSON string as a calendar date ("2006-01-02"), also
// accepting RFC3339 for clients that send full timestamps. Stored as start
// of the day in UTC.
type Date struct{ t time.Time }

func (d *Date) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s := strings.TrimSpace(raw)
	if s == "" {
		d.t = time.Time{}
		return nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			d.t = time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
			return nil
		}
	}
	return fmt.Errorf("date: use YYYY-MM-DD")
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(d.t.Format("2006-01-02"))
}

// Time returns the parsed value for use in service/domain.
func (d Date) Time() time.Time { return d.t }

// NewDate wraps a time.Time for responses.
func NewDate(t time.Time) Date { return Date{t: t} }

// CreateOrderRequest is the JSON body for POST /orders. The ID is the
// staff-entered group code.
type CreateOrderRequest struct {
	ID          string `json:"id" binding:"required,min=1,max=40"`
	ClientName  string `json:"client_name" binding:"required,min=1,max=120"`
	StartDate   Date   `json:"start_date" binding:"required"`
	EndDate     Date   `json:"end_date" binding:"required"`
	MainContact string `json:"main_contact" binding:"max=120"`
}

// OrderResponse is one order in API responses.
type OrderResponse struct {
	ID          string    `json:"id"`
	ClientName  string    `json:"client_name"`
	StartDate   Date      `json:"start_date"`
	EndDate     Date      `json:"end_date"`
	MainContact string    `json:"main_contact"`
	Status      string    `json:"status"`
	IsPriority  bool      `json:"is_priority"`
	HasIssue    bool      `json:"has_issue"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ListOrdersResponse is one page of the order listing.
type ListOrdersResponse struct {
	Items    []OrderResponse `json:"items"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

// ExistsResponse answers the duplicate group-code pre-check.
type ExistsResponse struct {
	Exists bool `json:"exists"`
}
