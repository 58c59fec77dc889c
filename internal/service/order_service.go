package service

import (
	"context"
	"errors"
	"strings"

	"github.com/middle0128/Aitravel/internal/cache"
	dom "github.com/middle0128/Aitravel/internal/domain"
	"github.com/middle0128/Aitravel/internal/repo"
	"github.com/middle0128/Aitravel/internal/utils"

	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/singleflight"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrOrderIDTaken     = errors.New("order id already exists")
	ErrInvalidDateRange = errors.New("end date is before start date")
	ErrMissingFields    = errors.New("required order fields missing")
)

// OrderService handles order listing, creation and deletion. The listing
// path is cached per filter with singleflight collapsing concurrent misses.
type OrderService struct {
	repo  repo.OrderRepo
	cache *cache.OrderCache
	sf    singleflight.Group
}

// NewOrderService creates an OrderService. If c is nil, caching is disabled.
func NewOrderService(r repo.OrderRepo, c *cache.OrderCache) *OrderService {
	return &OrderService{repo: r, cache: c}
}

// List returns one page of orders plus the total match count.
func (s *OrderService) List(ctx context.Context, f repo.ListFilter) ([]dom.Order, int, error) {
	if f.Limit <= 0 {
		f.Limit = 10
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	f.Search = strings.TrimSpace(f.Search)

	if s.cache != nil {
		key := cache.Key(f)
		v, err, _ := s.sf.Do(key, func() (interface{}, error) {
			if page, err := s.cache.GetPage(ctx, key); err == nil && page != nil {
				return *page, nil
			}
			items, total, err := s.repo.List(ctx, f)
			if err != nil {
				return nil, err
			}
			page := cache.ListPage{Items: items, Total: total}
			_ = s.cache.SetPage(ctx, key, page)
			return page, nil
		})
		if err != nil {
			return nil, 0, err
		}
		page := v.(cache.ListPage)
		return page.Items, page.Total, nil
	}
	items, total, err := s.repo.List(ctx, f)
	return items, total, err
}

// GetByID returns one order.
func (s *OrderService) GetByID(ctx context.Context, id string) (dom.Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.Order{}, ErrNotFound
		}
		return dom.Order{}, err
	}
	return o, nil
}

// Exists reports whether the group code is taken; the creation form calls
// this on blur before submitting.
func (s *OrderService) Exists(ctx context.Context, id string) (bool, error) {
	return s.repo.Exists(ctx, strings.TrimSpace(id))
}

// Create validates and inserts a new order. Status defaults to Planning,
// the main contact defaults to the creating actor.
func (s *OrderService) Create(ctx context.Context, o dom.Order, actor string) (dom.Order, error) {
	o.ID = strings.TrimSpace(o.ID)
	o.ClientName = strings.TrimSpace(o.ClientName)
	if o.ID == "" || o.ClientName == "" || o.StartDate.IsZero() || o.EndDate.IsZero() {
		return dom.Order{}, ErrMissingFields
	}
	if o.EndDate.Before(o.StartDate) {
		return dom.Order{}, ErrInvalidDateRange
	}
	if o.MainContact == "" {
		o.MainContact = actor
	}
	if o.Status == "" {
		o.Status = dom.StatusPlanning
	}

	taken, err := s.repo.Exists(ctx, o.ID)
	if err != nil {
		return dom.Order{}, err
	}
	if taken {
		return dom.Order{}, ErrOrderIDTaken
	}

	out, err := s.repo.Create(ctx, o)
	if err != nil {
		// Exists check and insert race under concurrent creation.
		if utils.IsPGUniqueViolation(err) {
			return dom.Order{}, ErrOrderIDTaken
		}
		return dom.Order{}, err
	}
	s.InvalidateCache(ctx)
	return out, nil
}

// Delete removes the order and, through the schema cascade, all of its tasks.
func (s *OrderService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.InvalidateCache(ctx)
	return nil
}

// InvalidateCache drops every cached listing page. Task commits call this
// too, since they bump the parent order's updated_at.
func (s *OrderService) InvalidateCache(ctx context.Context) {
	if s.cache != nil {
		_ = s.cache.InvalidateAll(ctx)
	}
}
