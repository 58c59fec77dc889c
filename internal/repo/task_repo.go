package repo

import (
	"context"
	"fmt"

	dom "github.com/middle0128/Aitravel/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TaskRepo provides task persistence for the reconciliation engine. Both
// write methods are all-or-nothing per call: batches run inside one
// transaction, a failing row rolls back the whole call.
type TaskRepo interface {
	FetchTasks(ctx context.Context, orderID string) ([]dom.Task, error)
	UpsertTasks(ctx context.Context, tasks []dom.Task) error
	DeleteTasks(ctx context.Context, ids []string) error
}

// PGTaskRepo implements TaskRepo with Postgres.
type PGTaskRepo struct {
	db *pgxpool.Pool
}

// NewPGTaskRepo returns a new PGTaskRepo.
func NewPGTaskRepo(db *pgxpool.Pool) *PGTaskRepo {
	return &PGTaskRepo{db: db}
}

const taskColumns = `id, order_id, day_number, category, item_name, start_time,
	contact_phone, remarks, assignee, is_completed, is_priority, has_issue, updated_at`

func scanTask(row pgx.Row) (dom.Task, error) {
	var t dom.Task
	err := row.Scan(&t.ID, &t.OrderID, &t.DayNumber, &t.Category, &t.ItemName,
		&t.StartTime, &t.ContactPhone, &t.Remarks, &t.Assignee,
		&t.IsCompleted, &t.IsPriority, &t.HasIssue, &t.UpdatedAt)
	return t, err
}

// FetchTasks returns every task of the order. The engine re-sorts, but
// day order from the database keeps scans cheap for large orders.
func (r *PGTaskRepo) FetchTasks(ctx context.Context, orderID string) ([]dom.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks WHERE order_id = $1 ORDER BY day_number ASC`
	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []dom.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// UpsertTasks writes the batch in one transaction, inserting new ids and
// updating existing ones. The parent order's updated_at is bumped so the
// order list re-sorts by recent activity. The batch must belong to a single
// order: the engine builds its batches from one order's working set, and the
// bump uses tasks[0].OrderID for the whole call.
func (r *PGTaskRepo) UpsertTasks(ctx context.Context, tasks []dom.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("upsert begin: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			day_number = EXCLUDED.day_number,
			category = EXCLUDED.category,
			item_name = EXCLUDED.item_name,
			start_time = EXCLUDED.start_time,
			contact_phone = EXCLUDED.contact_phone,
			remarks = EXCLUDED.remarks,
			assignee = EXCLUDED.assignee,
			is_completed = EXCLUDED.is_completed,
			is_priority = EXCLUDED.is_priority,
			has_issue = EXCLUDED.has_issue,
			updated_at = EXCLUDED.updated_at`
	for _, t := range tasks {
		batch.Queue(query, t.ID, t.OrderID, t.DayNumber, t.Category, t.ItemName,
			t.StartTime, t.ContactPhone, t.Remarks, t.Assignee,
			t.IsCompleted, t.IsPriority, t.HasIssue, t.UpdatedAt)
	}
	batch.Queue(`UPDATE orders SET updated_at = $2 WHERE id = $1`, tasks[0].OrderID, tasks[0].UpdatedAt)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert batch: %w", err)
	}
	return tx.Commit(ctx)
}

// DeleteTasks removes the ids in one statement.
func (r *PGTaskRepo) DeleteTasks(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx, `DELETE FROM tasks WHERE id = ANY($1)`, ids)
	return err
}
