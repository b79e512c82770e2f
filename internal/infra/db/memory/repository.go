// Package memory keeps recent investigations in bounded LRU caches. It is
// the default store when no SQL database is configured.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/bryanwahyu/forensiq/internal/domain/artifacterrors"
	domain "github.com/bryanwahyu/forensiq/internal/domain/investigation"
)

const DefaultCapacity = 256

type InvestigationRepository struct {
	cache *lru.Cache[domain.ID, *domain.Investigation]
}

func NewInvestigationRepository(capacity int) (*InvestigationRepository, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	cache, err := lru.New[domain.ID, *domain.Investigation](capacity)
	if err != nil {
		return nil, err
	}
	return &InvestigationRepository{cache: cache}, nil
}

func (r *InvestigationRepository) Save(ctx context.Context, inv *domain.Investigation) error {
	cp := *inv
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	r.cache.Add(cp.ID, &cp)
	return nil
}

func (r *InvestigationRepository) Get(ctx context.Context, id domain.ID) (*domain.Investigation, error) {
	inv, ok := r.cache.Get(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

// Latest returns investigations ordered by creation time, newest first.
func (r *InvestigationRepository) Latest(ctx context.Context, limit int) ([]*domain.Investigation, error) {
	if limit <= 0 {
		limit = 20
	}
	all := r.cache.Values()
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if len(all) > limit {
		all = all[:limit]
	}
	out := make([]*domain.Investigation, 0, len(all))
	for _, inv := range all {
		cp := *inv
		out = append(out, &cp)
	}
	return out, nil
}

// Check implements middleware.HealthChecker.
func (r *InvestigationRepository) Check(ctx context.Context) error { return ctx.Err() }

type ArtifactErrorRepository struct {
	mu     sync.Mutex
	nextID int64
	cache  *lru.Cache[string, []*artifacterrors.ArtifactError]
}

func NewArtifactErrorRepository(capacity int) (*ArtifactErrorRepository, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	cache, err := lru.New[string, []*artifacterrors.ArtifactError](capacity)
	if err != nil {
		return nil, err
	}
	return &ArtifactErrorRepository{cache: cache}, nil
}

func (r *ArtifactErrorRepository) Save(ctx context.Context, e *artifacterrors.ArtifactError) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	e.ID = r.nextID
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	cp := *e
	list, _ := r.cache.Peek(e.InvestigationID)
	r.cache.Add(e.InvestigationID, append(list[:len(list):len(list)], &cp))
	return nil
}

func (r *ArtifactErrorRepository) ListByInvestigation(ctx context.Context, investigationID string, limit int) ([]*artifacterrors.ArtifactError, error) {
	if limit <= 0 {
		limit = 50
	}
	r.mu.Lock()
	list, _ := r.cache.Get(investigationID)
	r.mu.Unlock()

	if len(list) > limit {
		list = list[:limit]
	}
	out := make([]*artifacterrors.ArtifactError, 0, len(list))
	for _, e := range list {
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}
