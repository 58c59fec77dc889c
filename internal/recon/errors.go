package recon

import (
	"errors"
	"fmt"
)

var (
	// ErrLoad wraps a failed remote fetch. Prior engine state is untouched.
	ErrLoad = errors.New("task load failed")
	// ErrImportFormat rejects an import payload whose top level is not a JSON array.
	ErrImportFormat = errors.New("import payload must be a JSON array")
	// ErrDeletePropagation wraps a failed remote delete during commit.
	// Pending deletions and changed records are preserved for retry.
	ErrDeletePropagation = errors.New("pending deletions could not be propagated")
	// ErrUpsertPropagation wraps a failed remote upsert during commit.
	// Deletions already committed in the same call stay committed.
	ErrUpsertPropagation = errors.New("changed records could not be propagated")
	// ErrCommitInFlight rejects a commit while another one is running.
	ErrCommitInFlight = errors.New("commit already in progress")
	// ErrNothingToCommit signals an empty change set, not a failure.
	ErrNothingToCommit = errors.New("nothing to commit")
	// ErrUnknownRecord is returned for an id not in the working set.
	ErrUnknownRecord = errors.New("record not in working set")
)

// FieldError names one failing check on one record.
type FieldError struct {
	RecordID string `json:"record_id"`
	Field    string `json:"field"`
}

// ValidationError carries every field check that failed over the pending
// change set. A commit attempted while these exist is refused.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %d record field(s)", len(e.Fields))
}
