// Package recon implements the itinerary editor's dirty-tracking and
// batched-save reconciliation engine. An Engine holds the in-memory working
// copy of one order's task list, tracks edits and deletions against the
// last-synced snapshot, validates the pending change set and replays it
// against the task store as one delete call plus one upsert call.
package recon

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	dom "github.com/middle0128/Aitravel/internal/domain"
)

// TaskStore is the remote record store the engine reconciles against.
// Both write calls are all-or-nothing per call; there is no transaction
// spanning the two.
type TaskStore interface {
	FetchTasks(ctx context.Context, orderID string) ([]dom.Task, error)
	UpsertTasks(ctx context.Context, tasks []dom.Task) error
	DeleteTasks(ctx context.Context, ids []string) error
}

// Engine reconciles one order's working set against the task store.
// Lifetime is one editing session: created empty, populated by Load,
// discarded when the user navigates away. All methods are safe for use
// from the handler goroutine plus status probes; Load and Commit are the
// only ones that touch the network.
type Engine struct {
	store TaskStore
	actor string
	now   func() time.Time
	newID func() string

	mu         sync.Mutex
	orderID    string
	working    []dom.Task
	snapshot   map[string]dom.Task
	pendingDel map[string]struct{}
	committing bool
}

// Option customizes an Engine; used by tests to pin the clock and id source.
type Option func(*Engine)

// WithClock replaces the commit timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator replaces the id source for new records.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) { e.newID = gen }
}

// New returns an empty engine for the given actor. The actor's display name
// becomes the default assignee on records created in this session.
func New(store TaskStore, actor string, opts ...Option) *Engine {
	e := &Engine{
		store:      store,
		actor:      actor,
		now:        time.Now,
		newID:      uuid.NewString,
		snapshot:   make(map[string]dom.Task),
		pendingDel: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Load replaces the working set with the order's records from the store,
// re-sorted, and rebuilds the snapshot. Pending deletions are cleared.
// On fetch failure the engine's prior state is left untouched.
func (e *Engine) Load(ctx context.Context, orderID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.committing {
		return ErrCommitInFlight
	}

	fetched, err := e.store.FetchTasks(ctx, orderID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLoad, err)
	}

	e.orderID = orderID
	e.working = make([]dom.Task, len(fetched))
	copy(e.working, fetched)
	sortTasks(e.working)

	// Task holds only value fields, so struct copies are deep copies.
	e.snapshot = make(map[string]dom.Task, len(e.working))
	for _, t := range e.working {
		e.snapshot[t.ID] = t
	}
	e.pendingDel = make(map[string]struct{})
	return nil
}

// IsDirty reports whether the record differs from its last-synced snapshot.
// A record with no snapshot entry was created this session and is always
// dirty. ID, OrderID and UpdatedAt are identity/bookkeeping fields and are
// excluded from the comparison.
func (e *Engine) IsDirty(t dom.Task) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isDirty(t)
}

func (e *Engine) isDirty(t dom.Task) bool {
	orig, ok := e.snapshot[t.ID]
	if !ok {
		return true
	}
	return t.IsCompleted != orig.IsCompleted ||
		t.ItemName != orig.ItemName ||
		t.Remarks != orig.Remarks ||
		t.DayNumber != orig.DayNumber ||
		t.Category != orig.Category ||
		t.StartTime != orig.StartTime ||
		t.ContactPhone != orig.ContactPhone ||
		t.Assignee != orig.Assignee ||
		t.IsPriority != orig.IsPriority ||
		t.HasIssue != orig.HasIssue
}

// ChangedRecords returns the dirty subsequence of the working set.
// Recomputed on every call so it always reflects the current state.
func (e *Engine) ChangedRecords() []dom.Task {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.changed()
}

func (e *Engine) changed() []dom.Task {
	var out []dom.Task
	for _, t := range e.working {
		if e.isDirty(t) {
			out = append(out, t)
		}
	}
	return out
}

// NewRecord carries the user-supplied fields for a record added in the editor.
type NewRecord struct {
	DayNumber    int
	Category     string
	ItemName     string
	StartTime    string
	ContactPhone string
	Remarks      string
	Assignee     string
}

// AddRecord appends a fresh record to the working set. The sort invariant is
// deliberately not re-established here so a row added mid-edit stays where
// the user put it until the next load, import or successful commit.
func (e *Engine) AddRecord(f NewRecord) dom.Task {
	e.mu.Lock()
	defer e.mu.Unlock()

	t := dom.Task{
		ID:           e.newID(),
		OrderID:      e.orderID,
		DayNumber:    f.DayNumber,
		Category:     f.Category,
		ItemName:     f.ItemName,
		StartTime:    f.StartTime,
		ContactPhone: f.ContactPhone,
		Remarks:      f.Remarks,
		Assignee:     f.Assignee,
	}
	if t.DayNumber < 1 {
		t.DayNumber = 1
	}
	if t.Assignee == "" {
		t.Assignee = e.actor
	}
	e.working = append(e.working, t)
	return t
}

// Apply replaces the working copy of an edited record, or appends it when
// the id is new to this engine (the transport replay path: records created
// in a remote editor arrive with their ids already assigned). Identity
// fields of an existing entry are preserved.
func (e *Engine) Apply(rec dom.Task) dom.Task {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.working {
		if e.working[i].ID == rec.ID {
			rec.OrderID = e.working[i].OrderID
			rec.UpdatedAt = e.working[i].UpdatedAt
			e.working[i] = rec
			return rec
		}
	}
	if rec.ID == "" {
		rec.ID = e.newID()
	}
	rec.OrderID = e.orderID
	rec.UpdatedAt = time.Time{}
	if rec.Assignee == "" {
		rec.Assignee = e.actor
	}
	e.working = append(e.working, rec)
	return rec
}

// MarkDeleted removes the record from the working set immediately. Only a
// previously-synced record (one with a snapshot entry) joins the pending
// deletion set; a same-session addition is simply discarded with no remote
// effect. Membership is idempotent.
func (e *Engine) MarkDeleted(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := -1
	for i, t := range e.working {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		if _, pending := e.pendingDel[id]; pending {
			return nil // already marked; membership is idempotent
		}
		return ErrUnknownRecord
	}
	e.working = append(e.working[:idx], e.working[idx+1:]...)
	if _, synced := e.snapshot[id]; synced {
		e.pendingDel[id] = struct{}{}
	}
	return nil
}

// ImportItem is one loosely-shaped row from the AI import payload. Field
// names match what the webhook's model emits.
type ImportItem struct {
	Category     string `json:"category"`
	Day          int    `json:"day"`
	Time         string `json:"time"`
	ItemName     string `json:"item_name"`
	Remarks      string `json:"remarks"`
	ContactPhone string `json:"contact_phone"`
}

// ImportBatch converts a JSON array of import items into fresh working-set
// records and re-sorts. A payload whose top level is not an array is
// rejected wholesale and the working set is unchanged. The snapshot is not
// touched: imported records are dirty by definition until committed.
func (e *Engine) ImportBatch(payload []byte) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var items []ImportItem
	if err := json.Unmarshal(payload, &items); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrImportFormat, err)
	}
	// A literal null unmarshals into a nil slice without error; an empty
	// array does not. Null is not an array and rejects like any other
	// non-array payload.
	if items == nil {
		return 0, fmt.Errorf("%w: payload is null, not an array", ErrImportFormat)
	}

	for _, it := range items {
		t := dom.Task{
			ID:           e.newID(),
			OrderID:      e.orderID,
			DayNumber:    it.Day,
			Category:     it.Category,
			ItemName:     it.ItemName,
			StartTime:    it.Time,
			Remarks:      it.Remarks,
			ContactPhone: it.ContactPhone,
			Assignee:     e.actor,
		}
		if t.Category == "" {
			t.Category = dom.CategoryOther
		}
		if t.DayNumber < 1 {
			t.DayNumber = 1
		}
		e.working = append(e.working, t)
	}
	sortTasks(e.working)
	return len(items), nil
}

// DiscardEdits reverts every snapshotted record to its last-synced state,
// drops same-session additions and clears pending deletions without any
// remote call. The confirmation prompt is the caller's responsibility; the
// engine performs the transition unconditionally.
func (e *Engine) DiscardEdits() {
	e.mu.Lock()
	defer e.mu.Unlock()

	var kept []dom.Task
	for _, t := range e.working {
		if orig, ok := e.snapshot[t.ID]; ok {
			kept = append(kept, orig)
		}
	}
	e.working = kept
	e.pendingDel = make(map[string]struct{})
}

// Validate runs the field checks over the changed records only; records
// untouched since last sync were already persisted and are assumed valid.
func (e *Engine) Validate() []FieldError {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.validate()
}

func (e *Engine) validate() []FieldError {
	var errs []FieldError
	for _, t := range e.changed() {
		if strings.TrimSpace(t.ItemName) == "" {
			errs = append(errs, FieldError{RecordID: t.ID, Field: "item_name"})
		}
		if t.DayNumber < 1 {
			errs = append(errs, FieldError{RecordID: t.ID, Field: "day_number"})
		}
		if strings.TrimSpace(t.Category) == "" {
			errs = append(errs, FieldError{RecordID: t.ID, Field: "category"})
		}
		if strings.TrimSpace(t.StartTime) == "" {
			errs = append(errs, FieldError{RecordID: t.ID, Field: "start_time"})
		}
		if strings.TrimSpace(t.Assignee) == "" {
			errs = append(errs, FieldError{RecordID: t.ID, Field: "assignee"})
		}
	}
	return errs
}

// CanCommit reports whether Commit would proceed right now: no commit in
// flight, something to write, and a clean validation pass.
func (e *Engine) CanCommit() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.committing {
		return false
	}
	if len(e.changed()) == 0 && len(e.pendingDel) == 0 {
		return false
	}
	return len(e.validate()) == 0
}

// HasUnsavedChanges reports whether discarding now would lose work. Callers
// gate DiscardEdits behind a confirmation prompt when this is true.
func (e *Engine) HasUnsavedChanges() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.changed()) > 0 || len(e.pendingDel) > 0
}

// Commit propagates the pending change set as two store calls: one delete
// for the pending ids, then one upsert for the changed records with
// UpdatedAt stamped to now. A delete failure aborts the whole commit with
// everything preserved; an upsert failure leaves the deletions committed
// (there is no remote transaction spanning both calls). On success the
// snapshot is refreshed for the upserted ids and the working set re-sorted.
func (e *Engine) Commit(ctx context.Context) error {
	e.mu.Lock()
	if e.committing {
		e.mu.Unlock()
		return ErrCommitInFlight
	}
	changed := e.changed()
	delIDs := make([]string, 0, len(e.pendingDel))
	for id := range e.pendingDel {
		delIDs = append(delIDs, id)
	}
	sort.Strings(delIDs)
	if len(changed) == 0 && len(delIDs) == 0 {
		e.mu.Unlock()
		return ErrNothingToCommit
	}
	if errs := e.validate(); len(errs) > 0 {
		e.mu.Unlock()
		return &ValidationError{Fields: errs}
	}
	// The lock is released for the store calls so status probes stay
	// responsive; the committing flag keeps a second Commit (and Load) out.
	// A mutator racing into this window loses its edit to the snapshot
	// refresh below — the editor is single-actor per session, so the only
	// concurrent callers are probes.
	e.committing = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.committing = false
		e.mu.Unlock()
	}()

	if len(delIDs) > 0 {
		if err := e.store.DeleteTasks(ctx, delIDs); err != nil {
			return fmt.Errorf("%w: %v", ErrDeletePropagation, err)
		}
		e.mu.Lock()
		e.pendingDel = make(map[string]struct{})
		e.mu.Unlock()
	}

	if len(changed) > 0 {
		now := e.now()
		for i := range changed {
			changed[i].UpdatedAt = now
		}
		if err := e.store.UpsertTasks(ctx, changed); err != nil {
			return fmt.Errorf("%w: %v", ErrUpsertPropagation, err)
		}
		e.mu.Lock()
		for _, t := range changed {
			e.snapshot[t.ID] = t
			for i := range e.working {
				if e.working[i].ID == t.ID {
					e.working[i].UpdatedAt = now
					break
				}
			}
		}
	} else {
		e.mu.Lock()
	}
	sortTasks(e.working)
	e.mu.Unlock()
	return nil
}

// Records returns a copy of the working set in its current order.
func (e *Engine) Records() []dom.Task {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]dom.Task, len(e.working))
	copy(out, e.working)
	return out
}

// PendingDeletions returns the ids currently marked for deletion, sorted.
func (e *Engine) PendingDeletions() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.pendingDel))
	for id := range e.pendingDel {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// LastUpdated returns the newest UpdatedAt across the working set, the
// order's save watermark shown in the editor header. Zero when nothing has
// a timestamp yet.
func (e *Engine) LastUpdated() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	var max time.Time
	for _, t := range e.working {
		if t.UpdatedAt.After(max) {
			max = t.UpdatedAt
		}
	}
	return max
}

// sortTasks re-establishes the ordering invariant: day ascending, then start
// time ascending with unscheduled items last within their day.
func sortTasks(list []dom.Task) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.DayNumber != b.DayNumber {
			return a.DayNumber < b.DayNumber
		}
		if (a.StartTime == "") != (b.StartTime == "") {
			return b.StartTime == ""
		}
		return a.StartTime < b.StartTime
	})
}
