package repo

import (
	"context"
	"fmt"

	dom "github.com/middle0128/Aitravel/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ListFilter narrows the order listing. Status is one of "", "All",
// "Planning", "Confirmed", "is_priority", "has_issue"; the last two filter
// on the flags rather than the status column, matching the listing tabs.
type ListFilter struct {
	Status string
	Search string
	Limit  int
	Offset int
}

// OrderRepo provides order persistence.
type OrderRepo interface {
	List(ctx context.Context, f ListFilter) ([]dom.Order, int, error)
	GetByID(ctx context.Context, id string) (dom.Order, error)
	Exists(ctx context.Context, id string) (bool, error)
	Create(ctx context.Context, o dom.Order) (dom.Order, error)
	Delete(ctx context.Context, id string) error
}

// PGOrderRepo implements OrderRepo with Postgres.
type PGOrderRepo struct {
	db *pgxpool.Pool
}

// NewPGOrderRepo returns a new PGOrderRepo.
func NewPGOrderRepo(db *pgxpool.Pool) *PGOrderRepo {
	return &PGOrderRepo{db: db}
}

const orderColumns = `id, client_name, start_date, end_date, main_contact,
	status, is_priority, has_issue, created_at, updated_at`

// List returns one page of orders plus the total match count, newest
// activity first.
func (r *PGOrderRepo) List(ctx context.Context, f ListFilter) ([]dom.Order, int, error) {
	where := "TRUE"
	args := []any{}

	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		where += fmt.Sprintf(` AND (id ILIKE $%d OR client_name ILIKE $%d OR main_contact ILIKE $%d)`,
			len(args), len(args), len(args))
	}
	switch f.Status {
	case "", "All":
	case "is_priority":
		where += ` AND is_priority = TRUE`
	case "has_issue":
		where += ` AND has_issue = TRUE`
	default:
		args = append(args, f.Status)
		where += fmt.Sprintf(` AND status = $%d`, len(args))
	}

	args = append(args, f.Limit)
	limitPos := len(args)
	args = append(args, f.Offset)
	offsetPos := len(args)

	query := `
		SELECT ` + orderColumns + `, COUNT(*) OVER() AS total
		FROM orders WHERE ` + where + `
		ORDER BY updated_at DESC
		LIMIT $` + fmt.Sprint(limitPos) + ` OFFSET $` + fmt.Sprint(offsetPos)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []dom.Order
	total := 0
	for rows.Next() {
		var o dom.Order
		if err := rows.Scan(&o.ID, &o.ClientName, &o.StartDate, &o.EndDate, &o.MainContact,
			&o.Status, &o.IsPriority, &o.HasIssue, &o.CreatedAt, &o.UpdatedAt, &total); err != nil {
			return nil, 0, err
		}
		list = append(list, o)
	}
	return list, total, rows.Err()
}

// GetByID returns the order by its group code.
func (r *PGOrderRepo) GetByID(ctx context.Context, id string) (dom.Order, error) {
	var o dom.Order
	err := r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id).Scan(
		&o.ID, &o.ClientName, &o.StartDate, &o.EndDate, &o.MainContact,
		&o.Status, &o.IsPriority, &o.HasIssue, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

// Exists reports whether the group code is already taken.
func (r *PGOrderRepo) Exists(ctx context.Context, id string) (bool, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(1) FROM orders WHERE id = $1`, id).Scan(&n)
	return n > 0, err
}

// Create inserts a new order and returns it.
func (r *PGOrderRepo) Create(ctx context.Context, o dom.Order) (dom.Order, error) {
	query := `
		INSERT INTO orders (id, client_name, start_date, end_date, main_contact, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + orderColumns
	var out dom.Order
	err := r.db.QueryRow(ctx, query, o.ID, o.ClientName, o.StartDate, o.EndDate, o.MainContact, o.Status).Scan(
		&out.ID, &out.ClientName, &out.StartDate, &out.EndDate, &out.MainContact,
		&out.Status, &out.IsPriority, &out.HasIssue, &out.CreatedAt, &out.UpdatedAt,
	)
	return out, err
}

// Delete removes the order; tasks cascade at the schema level.
func (r *PGOrderRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	return err
}
