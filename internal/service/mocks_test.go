package service

import (
	"context"

	dom "github.com/middle0128/Aitravel/internal/domain"
	"github.com/middle0128/Aitravel/internal/repo"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ============================================================
// Mock order repo
// ============================================================

type mockOrderRepo struct {
	Orders map[string]dom.Order

	ListErr   error
	GetErr    error
	ExistsErr error
	CreateErr error
	DeleteErr error

	CreateCalls []dom.Order
	DeleteCalls []string
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{Orders: map[string]dom.Order{}}
}

func (m *mockOrderRepo) List(ctx context.Context, f repo.ListFilter) ([]dom.Order, int, error) {
	if m.ListErr != nil {
		return nil, 0, m.ListErr
	}
	out := make([]dom.Order, 0, len(m.Orders))
	for _, o := range m.Orders {
		out = append(out, o)
	}
	return out, len(out), nil
}

func (m *mockOrderRepo) GetByID(ctx context.Context, id string) (dom.Order, error) {
	if m.GetErr != nil {
		return dom.Order{}, m.GetErr
	}
	o, ok := m.Orders[id]
	if !ok {
		return dom.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (m *mockOrderRepo) Exists(ctx context.Context, id string) (bool, error) {
	if m.ExistsErr != nil {
		return false, m.ExistsErr
	}
	_, ok := m.Orders[id]
	return ok, nil
}

func (m *mockOrderRepo) Create(ctx context.Context, o dom.Order) (dom.Order, error) {
	m.CreateCalls = append(m.CreateCalls, o)
	if m.CreateErr != nil {
		return dom.Order{}, m.CreateErr
	}
	if _, ok := m.Orders[o.ID]; ok {
		return dom.Order{}, &pgconn.PgError{Code: "23505"}
	}
	m.Orders[o.ID] = o
	return o, nil
}

func (m *mockOrderRepo) Delete(ctx context.Context, id string) error {
	m.DeleteCalls = append(m.DeleteCalls, id)
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	delete(m.Orders, id)
	return nil
}

// ============================================================
// Mock user repo
// ============================================================

type mockUserRepo struct {
	Users map[string]dom.User // keyed by email

	nextID    int64
	CreateErr error
	UpdateErr error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{Users: map[string]dom.User{}}
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (dom.User, error) {
	u, ok := m.Users[email]
	if !ok {
		return dom.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (dom.User, error) {
	for _, u := range m.Users {
		if u.ID == id {
			return u, nil
		}
	}
	return dom.User{}, pgx.ErrNoRows
}

func (m *mockUserRepo) Create(ctx context.Context, email, displayName, passwordHash string) (dom.User, error) {
	if m.CreateErr != nil {
		return dom.User{}, m.CreateErr
	}
	if _, ok := m.Users[email]; ok {
		return dom.User{}, &pgconn.PgError{Code: "23505"}
	}
	m.nextID++
	u := dom.User{ID: m.nextID, Email: email, DisplayName: displayName, PasswordHash: passwordHash}
	m.Users[email] = u
	return u, nil
}

func (m *mockUserRepo) Update(ctx context.Context, id int64, displayName, passwordHash string) (dom.User, error) {
	if m.UpdateErr != nil {
		return dom.User{}, m.UpdateErr
	}
	for email, u := range m.Users {
		if u.ID == id {
			u.DisplayName = displayName
			u.PasswordHash = passwordHash
			m.Users[email] = u
			return u, nil
		}
	}
	return dom.User{}, pgx.ErrNoRows
}
