package recon

import (
	"context"
	"errors"
	"testing"
	"time"

	dom "github.com/middle0128/Aitravel/internal/domain"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func seedTask(id, orderID string, day int, start, name string) dom.Task {
	return dom.Task{
		ID:        id,
		OrderID:   orderID,
		DayNumber: day,
		StartTime: start,
		ItemName:  name,
		Category:  dom.CategoryAttraction,
		Assignee:  "Amy",
		UpdatedAt: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
	}
}

// =============================================================================
// Test: Load
// =============================================================================

func TestEngine_Load(t *testing.T) {
	ctx := context.Background()

	t.Run("Given unsorted records When Load Then working set is sorted day asc, unscheduled last", func(t *testing.T) {
		store := NewMockTaskStore(
			seedTask("t2", "JP-001", 2, "", "Free day"),
			seedTask("t1", "JP-001", 1, "09:00", "Airport pickup"),
		)
		eng := New(store, "Amy")

		if err := eng.Load(ctx, "JP-001"); err != nil {
			t.Fatalf("Load failed: %v", err)
		}

		recs := eng.Records()
		if len(recs) != 2 {
			t.Fatalf("expected 2 records, got %d", len(recs))
		}
		if recs[0].ID != "t1" || recs[1].ID != "t2" {
			t.Errorf("expected order [t1 t2], got [%s %s]", recs[0].ID, recs[1].ID)
		}
	})

	t.Run("Given a fetch failure When Load Then prior state is untouched", func(t *testing.T) {
		store := NewMockTaskStore(seedTask("t1", "JP-001", 1, "09:00", "Airport pickup"))
		eng := New(store, "Amy")
		if err := eng.Load(ctx, "JP-001"); err != nil {
			t.Fatalf("first Load failed: %v", err)
		}

		store.mu.Lock()
		store.FetchErr = ErrMockFetch
		store.mu.Unlock()

		err := eng.Load(ctx, "JP-002")
		if !errors.Is(err, ErrLoad) {
			t.Fatalf("expected ErrLoad, got %v", err)
		}
		recs := eng.Records()
		if len(recs) != 1 || recs[0].ID != "t1" {
			t.Errorf("prior working set lost after failed Load: %+v", recs)
		}
	})

	t.Run("Given an unscheduled item and a 23:59 item same day When Load Then unscheduled sorts after", func(t *testing.T) {
		store := NewMockTaskStore(
			seedTask("a", "JP-001", 1, "", "No time"),
			seedTask("b", "JP-001", 1, "23:59", "Night bus"),
		)
		eng := New(store, "Amy")
		if err := eng.Load(ctx, "JP-001"); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		recs := eng.Records()
		if recs[0].ID != "b" || recs[1].ID != "a" {
			t.Errorf("expected [b a], got [%s %s]", recs[0].ID, recs[1].ID)
		}
	})
}

// =============================================================================
// Test: dirty detection
// =============================================================================

func TestEngine_IsDirty(t *testing.T) {
	ctx := context.Background()

	t.Run("Given a record without snapshot entry Then it is dirty", func(t *testing.T) {
		eng := New(NewMockTaskStore(), "Amy")
		rec := eng.AddRecord(NewRecord{DayNumber: 1, ItemName: "Temple Visit"})
		if !eng.IsDirty(rec) {
			t.Error("same-session addition must be dirty")
		}
	})

	t.Run("Given an unedited loaded record Then it is clean", func(t *testing.T) {
		store := NewMockTaskStore(seedTask("t1", "JP-001", 1, "09:00", "Airport pickup"))
		eng := New(store, "Amy")
		if err := eng.Load(ctx, "JP-001"); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if eng.IsDirty(eng.Records()[0]) {
			t.Error("unedited record reported dirty")
		}
	})

	t.Run("Given each compared field edited in turn Then each edit alone reports dirty", func(t *testing.T) {
		store := NewMockTaskStore(seedTask("t1", "JP-001", 1, "09:00", "Airport pickup"))
		eng := New(store, "Amy")
		if err := eng.Load(ctx, "JP-001"); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		base := eng.Records()[0]

		edits := map[string]func(*dom.Task){
			"is_completed":  func(r *dom.Task) { r.IsCompleted = true },
			"item_name":     func(r *dom.Task) { r.ItemName = "Temple Visit" },
			"remarks":       func(r *dom.Task) { r.Remarks = "bring cash" },
			"day_number":    func(r *dom.Task) { r.DayNumber = 3 },
			"category":      func(r *dom.Task) { r.Category = dom.CategoryRestaurant },
			"start_time":    func(r *dom.Task) { r.StartTime = "10:30" },
			"contact_phone": func(r *dom.Task) { r.ContactPhone = "0912345678" },
			"assignee":      func(r *dom.Task) { r.Assignee = "Bob" },
			"is_priority":   func(r *dom.Task) { r.IsPriority = true },
			"has_issue":     func(r *dom.Task) { r.HasIssue = true },
		}
		for field, apply := range edits {
			rec := base
			apply(&rec)
			if !eng.IsDirty(rec) {
				t.Errorf("edit to %s not detected as dirty", field)
			}
		}
	})

	t.Run("Given only UpdatedAt differs Then the record is clean", func(t *testing.T) {
		store := NewMockTaskStore(seedTask("t1", "JP-001", 1, "09:00", "Airport pickup"))
		eng := New(store, "Amy")
		if err := eng.Load(ctx, "JP-001"); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		rec := eng.Records()[0]
		rec.UpdatedAt = rec.UpdatedAt.Add(time.Hour)
		if eng.IsDirty(rec) {
			t.Error("UpdatedAt must be excluded from the dirty comparison")
		}
	})
}

// =============================================================================
// Test: MarkDeleted
// =============================================================================

func TestEngine_MarkDeleted(t *testing.T) {
	ctx := context.Background()

	t.Run("Given a synced record When marked deleted twice Then pending set holds it once", func(t *testing.T) {
		store := NewMockTaskStore(seedTask("t1", "JP-001", 1, "09:00", "Airport pickup"))
		eng := New(store, "Amy")
		if err := eng.Load(ctx, "JP-001"); err != nil {
			t.Fatalf("Load failed: %v", err)
		}

		if err := eng.MarkDeleted("t1"); err != nil {
			t.Fatalf("MarkDeleted failed: %v", err)
		}
		if err := eng.MarkDeleted("t1"); err != nil {
			t.Fatalf("repeated MarkDeleted must be idempotent, got %v", err)
		}

		if got := eng.PendingDeletions(); len(got) != 1 || got[0] != "t1" {
			t.Errorf("expected pending deletions [t1], got %v", got)
		}
		if len(eng.Records()) != 0 {
			t.Error("record still visible after MarkDeleted")
		}
	})

	t.Run("Given a same-session addition When marked deleted Then it vanishes with no pending deletion", func(t *testing.T) {
		eng := New(NewMockTaskStore(), "Amy")
		rec := eng.AddRecord(NewRecord{DayNumber: 1, ItemName: "Temple Visit"})

		if err := eng.MarkDeleted(rec.ID); err != nil {
			t.Fatalf("MarkDeleted failed: %v", err)
		}
		if len(eng.PendingDeletions()) != 0 {
			t.Error("never-synced record must not join the pending deletion set")
		}
		if len(eng.Records()) != 0 {
			t.Error("record still in working set")
		}
	})
}

// =============================================================================
// Test: AddRecord / ImportBatch
// =============================================================================

func TestEngine_AddRecord(t *testing.T) {
	t.Run("Given empty assignee When AddRecord Then actor name is defaulted and booleans are false", func(t *testing.T) {
		eng := New(NewMockTaskStore(), "Amy", WithIDGenerator(sequentialIDs()))
		rec := eng.AddRecord(NewRecord{DayNumber: 2, ItemName: "Onsen", Category: dom.CategoryLodging})

		if rec.ID != "new-1" {
			t.Errorf("expected generated id new-1, got %s", rec.ID)
		}
		if rec.Assignee != "Amy" {
			t.Errorf("expected defaulted assignee Amy, got %q", rec.Assignee)
		}
		if rec.IsCompleted || rec.IsPriority || rec.HasIssue {
			t.Error("new record booleans must default to false")
		}
	})

	t.Run("Given records out of order When AddRecord Then insertion position is kept until next sort event", func(t *testing.T) {
		ctx := context.Background()
		store := NewMockTaskStore(seedTask("t1", "JP-001", 3, "09:00", "Day three"))
		eng := New(store, "Amy")
		if err := eng.Load(ctx, "JP-001"); err != nil {
			t.Fatalf("Load failed: %v", err)
		}

		eng.AddRecord(NewRecord{DayNumber: 1, ItemName: "Early stop", StartTime: "08:00"})
		recs := eng.Records()
		if recs[len(recs)-1].ItemName != "Early stop" {
			t.Error("AddRecord must append, not re-sort")
		}
	})
}

func TestEngine_ImportBatch(t *testing.T) {
	t.Run("Given a JSON array with gaps When ImportBatch Then defaults applied and working set re-sorted", func(t *testing.T) {
		eng := New(NewMockTaskStore(), "Amy", WithIDGenerator(sequentialIDs()))

		payload := []byte(`[
			{"day": 2, "time": "12:00", "item_name": "Ramen lunch", "category": "餐廳"},
			{"item_name": "Check in"}
		]`)
		n, err := eng.ImportBatch(payload)
		if err != nil {
			t.Fatalf("ImportBatch failed: %v", err)
		}
		if n != 2 {
			t.Fatalf("expected 2 imported, got %d", n)
		}

		recs := eng.Records()
		// "Check in": day defaults to 1, category to 其他, so it sorts first.
		if recs[0].ItemName != "Check in" {
			t.Errorf("expected re-sorted working set, first record is %q", recs[0].ItemName)
		}
		if recs[0].DayNumber != 1 || recs[0].Category != dom.CategoryOther {
			t.Errorf("defaults not applied: day=%d category=%q", recs[0].DayNumber, recs[0].Category)
		}
		if recs[0].Assignee != "Amy" {
			t.Errorf("imported record assignee = %q, want Amy", recs[0].Assignee)
		}
	})

	t.Run("Given a non-array payload When ImportBatch Then whole batch rejected and working set unchanged", func(t *testing.T) {
		eng := New(NewMockTaskStore(), "Amy")
		eng.AddRecord(NewRecord{DayNumber: 1, ItemName: "Existing"})
		before := eng.Records()

		for _, payload := range []string{`{"item_name": "oops"}`, `null`, `"text"`, `42`} {
			n, err := eng.ImportBatch([]byte(payload))
			if !errors.Is(err, ErrImportFormat) {
				t.Fatalf("payload %s: expected ErrImportFormat, got n=%d err=%v", payload, n, err)
			}
		}

		after := eng.Records()
		if len(after) != len(before) || after[0].ItemName != "Existing" {
			t.Errorf("working set changed by rejected import: %+v", after)
		}
	})

	t.Run("Given an empty array When ImportBatch Then zero imported and no error", func(t *testing.T) {
		eng := New(NewMockTaskStore(), "Amy")

		n, err := eng.ImportBatch([]byte(`[]`))
		if err != nil {
			t.Fatalf("empty array must be accepted, got %v", err)
		}
		if n != 0 {
			t.Errorf("expected 0 imported, got %d", n)
		}
	})
}

// =============================================================================
// Test: DiscardEdits
// =============================================================================

func TestEngine_DiscardEdits(t *testing.T) {
	ctx := context.Background()

	t.Run("Given edits, additions and pending deletions When DiscardEdits Then state returns to last sync", func(t *testing.T) {
		store := NewMockTaskStore(
			seedTask("t1", "JP-001", 1, "09:00", "Airport pickup"),
			seedTask("t2", "JP-001", 2, "10:00", "Museum"),
		)
		eng := New(store, "Amy")
		if err := eng.Load(ctx, "JP-001"); err != nil {
			t.Fatalf("Load failed: %v", err)
		}

		edited := eng.Records()[0]
		edited.ItemName = "Changed"
		eng.Apply(edited)
		eng.AddRecord(NewRecord{DayNumber: 3, ItemName: "Extra"})
		if err := eng.MarkDeleted("t2"); err != nil {
			t.Fatalf("MarkDeleted failed: %v", err)
		}

		eng.DiscardEdits()

		if got := eng.ChangedRecords(); len(got) != 0 {
			t.Errorf("changed records after discard: %+v", got)
		}
		if len(eng.PendingDeletions()) != 0 {
			t.Error("pending deletions survived discard")
		}
		recs := eng.Records()
		if len(recs) != 1 || recs[0].ItemName != "Airport pickup" {
			t.Errorf("expected reverted [Airport pickup], got %+v", recs)
		}
	})
}

// =============================================================================
// Test: Validate / CanCommit
// =============================================================================

func TestEngine_Validate(t *testing.T) {
	t.Run("Given an added record with empty item name Then exactly one error for that field", func(t *testing.T) {
		eng := New(NewMockTaskStore(), "Amy")
		rec := eng.AddRecord(NewRecord{
			ItemName:  "",
			DayNumber: 1,
			Category:  dom.CategoryAttraction,
			StartTime: "10:00",
			Assignee:  "Amy",
		})

		errs := eng.Validate()
		if len(errs) != 1 {
			t.Fatalf("expected 1 validation error, got %d: %v", len(errs), errs)
		}
		if errs[0].RecordID != rec.ID || errs[0].Field != "item_name" {
			t.Errorf("unexpected error %+v", errs[0])
		}
		if eng.CanCommit() {
			t.Error("CanCommit must be false with validation errors")
		}
	})

	t.Run("Given only clean records Then Validate is empty and CanCommit false for lack of changes", func(t *testing.T) {
		ctx := context.Background()
		store := NewMockTaskStore(seedTask("t1", "JP-001", 1, "09:00", "Airport pickup"))
		eng := New(store, "Amy")
		if err := eng.Load(ctx, "JP-001"); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if errs := eng.Validate(); len(errs) != 0 {
			t.Errorf("unexpected validation errors: %v", errs)
		}
		if eng.CanCommit() {
			t.Error("CanCommit must be false with nothing to write")
		}
	})
}

// =============================================================================
// Test: Commit
// =============================================================================

func TestEngine_Commit(t *testing.T) {
	ctx := context.Background()
	commitTime := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Given one edited record When Commit Then record is upserted, stamped and clean afterwards", func(t *testing.T) {
		store := NewMockTaskStore(
			seedTask("t2", "JP-001", 2, "", "Free day"),
			seedTask("t1", "JP-001", 1, "09:00", "Airport pickup"),
		)
		eng := New(store, "Amy", WithClock(fixedClock(commitTime)))
		if err := eng.Load(ctx, "JP-001"); err != nil {
			t.Fatalf("Load failed: %v", err)
		}

		rec := eng.Records()[1] // day 2, unscheduled
		rec.ItemName = "Temple Visit"
		rec.StartTime = "14:00" // dirty records must carry a start time
		eng.Apply(rec)

		changed := eng.ChangedRecords()
		if len(changed) != 1 || changed[0].ID != "t2" {
			t.Fatalf("expected exactly t2 changed, got %+v", changed)
		}
		if !eng.CanCommit() {
			t.Fatal("CanCommit should be true")
		}

		if err := eng.Commit(ctx); err != nil {
			t.Fatalf("Commit failed: %v", err)
		}

		if got := eng.ChangedRecords(); len(got) != 0 {
			t.Errorf("records still dirty after commit: %+v", got)
		}
		if len(store.UpsertCalls) != 1 || len(store.UpsertCalls[0]) != 1 {
			t.Fatalf("expected one upsert call with one record, got %+v", store.UpsertCalls)
		}
		saved := store.UpsertCalls[0][0]
		if !saved.UpdatedAt.Equal(commitTime) {
			t.Errorf("UpdatedAt not stamped: %v", saved.UpdatedAt)
		}
		if got := eng.LastUpdated(); !got.Equal(commitTime) {
			t.Errorf("LastUpdated = %v, want %v", got, commitTime)
		}
	})

	t.Run("Given nothing pending When Commit Then ErrNothingToCommit and no store calls", func(t *testing.T) {
		store := NewMockTaskStore(seedTask("t1", "JP-001", 1, "09:00", "Airport pickup"))
		eng := New(store, "Amy")
		if err := eng.Load(ctx, "JP-001"); err != nil {
			t.Fatalf("Load failed: %v", err)
		}

		if err := eng.Commit(ctx); !errors.Is(err, ErrNothingToCommit) {
			t.Fatalf("expected ErrNothingToCommit, got %v", err)
		}
		if len(store.UpsertCalls) != 0 || len(store.DeleteCalls) != 0 {
			t.Error("no-op commit must not call the store")
		}
	})

	t.Run("Given the delete call fails When Commit Then pending set and changes are preserved", func(t *testing.T) {
		store := NewMockTaskStore(
			seedTask("t1", "JP-001", 1, "09:00", "Airport pickup"),
			seedTask("t2", "JP-001", 2, "10:00", "Museum"),
		)
		eng := New(store, "Amy")
		if err := eng.Load(ctx, "JP-001"); err != nil {
			t.Fatalf("Load failed: %v", err)
		}

		rec := eng.Records()[0]
		rec.Remarks = "call ahead"
		eng.Apply(rec)
		if err := eng.MarkDeleted("t2"); err != nil {
			t.Fatalf("MarkDeleted failed: %v", err)
		}

		store.mu.Lock()
		store.DeleteErr = ErrMockDelete
		store.mu.Unlock()

		err := eng.Commit(ctx)
		if !errors.Is(err, ErrDeletePropagation) {
			t.Fatalf("expected ErrDeletePropagation, got %v", err)
		}
		if got := eng.PendingDeletions(); len(got) != 1 || got[0] != "t2" {
			t.Errorf("pending deletions not preserved: %v", got)
		}
		if got := eng.ChangedRecords(); len(got) != 1 {
			t.Errorf("changed records not preserved: %+v", got)
		}
		if len(store.UpsertCalls) != 0 {
			t.Error("upsert must not run after a failed delete")
		}
	})

	t.Run("Given the upsert fails after deletions succeed When Commit Then deletions stay committed", func(t *testing.T) {
		store := NewMockTaskStore(
			seedTask("t1", "JP-001", 1, "09:00", "Airport pickup"),
			seedTask("t2", "JP-001", 2, "10:00", "Museum"),
		)
		eng := New(store, "Amy")
		if err := eng.Load(ctx, "JP-001"); err != nil {
			t.Fatalf("Load failed: %v", err)
		}

		rec := eng.Records()[0]
		rec.Remarks = "call ahead"
		eng.Apply(rec)
		if err := eng.MarkDeleted("t2"); err != nil {
			t.Fatalf("MarkDeleted failed: %v", err)
		}

		store.mu.Lock()
		store.UpsertErr = ErrMockUpsert
		store.mu.Unlock()

		err := eng.Commit(ctx)
		if !errors.Is(err, ErrUpsertPropagation) {
			t.Fatalf("expected ErrUpsertPropagation, got %v", err)
		}
		if len(store.DeleteCalls) != 1 {
			t.Fatalf("expected delete phase to have run, calls: %+v", store.DeleteCalls)
		}
		if got := eng.PendingDeletions(); len(got) != 0 {
			t.Errorf("succeeded deletions must not be retried: %v", got)
		}
		if got := eng.ChangedRecords(); len(got) != 1 {
			t.Errorf("failed upserts must stay dirty: %+v", got)
		}
	})

	t.Run("Given invalid dirty records When Commit Then ValidationError is returned directly", func(t *testing.T) {
		eng := New(NewMockTaskStore(), "Amy")
		eng.AddRecord(NewRecord{ItemName: "", DayNumber: 1, Category: dom.CategoryOther, StartTime: "10:00"})

		err := eng.Commit(ctx)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected *ValidationError, got %v", err)
		}
		if len(verr.Fields) != 1 || verr.Fields[0].Field != "item_name" {
			t.Errorf("unexpected validation payload: %+v", verr.Fields)
		}
	})

	t.Run("Given a commit in flight When CanCommit probed Then it reports false", func(t *testing.T) {
		store := NewMockTaskStore(seedTask("t1", "JP-001", 1, "09:00", "Airport pickup"))
		eng := New(store, "Amy")
		if err := eng.Load(ctx, "JP-001"); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		rec := eng.Records()[0]
		rec.IsCompleted = true
		eng.Apply(rec)

		entered := make(chan struct{})
		release := make(chan struct{})
		store.mu.Lock()
		store.UpsertHook = func() {
			close(entered)
			<-release
		}
		store.mu.Unlock()

		done := make(chan error, 1)
		go func() { done <- eng.Commit(ctx) }()

		<-entered
		if eng.CanCommit() {
			t.Error("CanCommit must be false while a commit is in flight")
		}
		close(release)
		if err := <-done; err != nil {
			t.Fatalf("Commit failed: %v", err)
		}
	})
}
