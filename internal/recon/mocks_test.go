package recon

import (
	"context"
	"errors"
	"strconv"
	"sync"

	dom "github.com/middle0128/Aitravel/internal/domain"
)

// Common test errors
var (
	ErrMockFetch  = errors.New("mock fetch error")
	ErrMockUpsert = errors.New("mock upsert error")
	ErrMockDelete = errors.New("mock delete error")
)

// MockTaskStore implements TaskStore for testing.
type MockTaskStore struct {
	mu sync.Mutex

	Tasks     []dom.Task
	FetchErr  error
	UpsertErr error
	DeleteErr error

	// UpsertHook, when set, runs inside UpsertTasks before the error check.
	// Used to observe engine state mid-commit.
	UpsertHook func()

	FetchCalls  int
	UpsertCalls [][]dom.Task
	DeleteCalls [][]string
}

func NewMockTaskStore(tasks ...dom.Task) *MockTaskStore {
	return &MockTaskStore{Tasks: tasks}
}

func (m *MockTaskStore) FetchTasks(_ context.Context, orderID string) ([]dom.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FetchCalls++
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	var out []dom.Task
	for _, t := range m.Tasks {
		if t.OrderID == orderID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *MockTaskStore) UpsertTasks(_ context.Context, tasks []dom.Task) error {
	m.mu.Lock()
	hook := m.UpsertHook
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpsertErr != nil {
		return m.UpsertErr
	}
	cp := make([]dom.Task, len(tasks))
	copy(cp, tasks)
	m.UpsertCalls = append(m.UpsertCalls, cp)
	return nil
}

func (m *MockTaskStore) DeleteTasks(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	cp := make([]string, len(ids))
	copy(cp, ids)
	m.DeleteCalls = append(m.DeleteCalls, cp)
	return nil
}

// sequentialIDs returns an id generator yielding new-1, new-2, ...
func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return "new-" + strconv.Itoa(n)
	}
}
