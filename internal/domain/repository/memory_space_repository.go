package repository

import (
	"context"
	"fmt"
	"impactlab/internal/common"
	"impactlab/internal/domain/model"
	"sort"
	"strings"
	"sync"
	"time"
)

type memorySpaceRepository struct {
	mu     sync.RWMutex
	byID   map[string]model.Space
	bySlug map[string]string
	now    func() time.Time
}

func NewMemorySpaceRepository() SpaceRepository {
	return &memorySpaceRepository{
		byID:   make(map[string]model.Space),
		bySlug: make(map[string]string),
		now:    time.Now,
	}
}

func cloneSpace(s model.Space) model.Space {
	s.Amenities = append([]string{}, s.Amenities...)
	s.Images = append([]string{}, s.Images...)
	return s
}

func (r *memorySpaceRepository) Create(_ context.Context, s *model.Space) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bySlug[s.Slug]; exists {
		return fmt.Errorf("space with this slug already exists: %w", common.ErrConflict)
	}
	now := r.now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
	r.byID[s.ID] = cloneSpace(*s)
	r.bySlug[s.Slug] = s.ID
	return nil
}

func (r *memorySpaceRepository) Update(_ context.Context, s *model.Space) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[s.ID]
	if !ok {
		return common.ErrNotFound
	}
	if owner, taken := r.bySlug[s.Slug]; taken && owner != s.ID {
		return fmt.Errorf("space with this slug already exists: %w", common.ErrConflict)
	}
	delete(r.bySlug, existing.Slug)
	s.CreatedAt = existing.CreatedAt
	s.UpdatedAt = r.now().UTC()
	r.byID[s.ID] = cloneSpace(*s)
	r.bySlug[s.Slug] = s.ID
	return nil
}

func (r *memorySpaceRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byID[id]
	if !ok {
		return common.ErrNotFound
	}
	delete(r.byID, id)
	delete(r.bySlug, s.Slug)
	return nil
}

func (r *memorySpaceRepository) FindByID(_ context.Context, id string) (*model.Space, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	out := cloneSpace(s)
	return &out, nil
}

func (r *memorySpaceRepository) FindBySlug(ctx context.Context, slug string) (*model.Space, error) {
	r.mu.RLock()
	id, ok := r.bySlug[slug]
	r.mu.RUnlock()
	if !ok {
		return nil, common.ErrNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *memorySpaceRepository) List(_ context.Context, limit, offset int, filter model.SpaceFilter) ([]model.Space, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := []model.Space{}
	for _, s := range r.byID {
		if matchesFilter(s, filter) {
			matched = append(matched, cloneSpace(s))
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return paginate(matched, limit, offset), len(matched), nil
}

func matchesFilter(s model.Space, f model.SpaceFilter) bool {
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	if f.Type != "" && s.Type != f.Type {
		return false
	}
	if f.MinCapacity > 0 && s.Capacity < f.MinCapacity {
		return false
	}
	if f.MaxPrice != nil && s.PricePerHour > *f.MaxPrice {
		return false
	}
	for _, want := range f.Amenities {
		if !containsString(s.Amenities, want) {
			return false
		}
	}
	if f.Search != "" {
		term := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(s.Name), term) && !strings.Contains(strings.ToLower(s.Description), term) {
			return false
		}
	}
	return true
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
