// pkg/store/memory.go
package store

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/geodir/ingress/pkg/model"
)

// MemoryStore is an in-memory Store used in tests and dry runs. It mirrors
// the staged-write semantics of the Mongo adapter: Save stages a snapshot,
// queries only see flushed documents.
type MemoryStore struct {
	mu sync.Mutex

	elements     map[string]*model.Element
	options      map[string]*model.Option
	imports      map[string]*model.Import
	interactions map[string]*model.UserInteraction

	stagedElements map[string]*model.Element
	stagedOptions  map[string]*model.Option
	stagedImports  map[string]*model.Import
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		elements:       make(map[string]*model.Element),
		options:        make(map[string]*model.Option),
		imports:        make(map[string]*model.Import),
		interactions:   make(map[string]*model.UserInteraction),
		stagedElements: make(map[string]*model.Element),
		stagedOptions:  make(map[string]*model.Option),
		stagedImports:  make(map[string]*model.Import),
	}
}

func (s *MemoryStore) Elements() ElementRepository         { return (*memoryElements)(s) }
func (s *MemoryStore) Options() OptionRepository           { return (*memoryOptions)(s) }
func (s *MemoryStore) Imports() ImportRepository           { return (*memoryImports)(s) }
func (s *MemoryStore) Interactions() InteractionRepository { return (*memoryInteractions)(s) }

// Flush applies every staged write.
func (s *MemoryStore) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, el := range s.stagedElements {
		s.elements[id] = el
	}
	for id, opt := range s.stagedOptions {
		s.options[id] = opt
	}
	for id, imp := range s.stagedImports {
		s.imports[id] = imp
	}
	s.clearLocked()
	return nil
}

// Clear drops staged writes without applying them.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

func (s *MemoryStore) clearLocked() {
	s.stagedElements = make(map[string]*model.Element)
	s.stagedOptions = make(map[string]*model.Option)
	s.stagedImports = make(map[string]*model.Import)
}

// AddInteraction seeds an interaction record, visible immediately.
func (s *MemoryStore) AddInteraction(it model.UserInteraction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if it.ID == "" {
		it.ID = uuid.New().String()
	}
	s.interactions[it.ID] = &it
}

// InteractionCount returns the number of stored interactions.
func (s *MemoryStore) InteractionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.interactions)
}

func round5(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}

type memoryElements MemoryStore

func (r *memoryElements) FindBySourceAndOldID(ctx context.Context, sourceID, oldID string) (*model.Element, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var found *model.Element
	for _, el := range r.elements {
		if el.SourceID == sourceID && el.OldID == oldID {
			if found != nil {
				return nil, ErrAmbiguousMatch
			}
			found = el
		}
	}
	if found == nil {
		return nil, nil
	}
	return found.Clone(), nil
}

func (r *memoryElements) FindBySourceNameGeo(ctx context.Context, sourceID, name string, lat, lng float64) (*model.Element, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Only the query side is rounded, matching the Mongo filter: a stored
	// element matches only when its raw coordinates equal the rounded query
	// value.
	lat, lng = round5(lat), round5(lng)
	var found *model.Element
	for _, el := range r.elements {
		if el.SourceID == sourceID && el.Name == name &&
			el.Geo.Latitude == lat && el.Geo.Longitude == lng {
			if found != nil {
				return nil, ErrAmbiguousMatch
			}
			found = el
		}
	}
	if found == nil {
		return nil, nil
	}
	return found.Clone(), nil
}

func (r *memoryElements) Save(el *model.Element) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if el.ID == "" {
		el.ID = uuid.New().String()
	}
	r.stagedElements[el.ID] = el.Clone()
}

func (r *memoryElements) CountBySource(ctx context.Context, sourceID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, el := range r.elements {
		if el.SourceID == sourceID {
			n++
		}
	}
	return n, nil
}

func (r *memoryElements) CountBySourceAndModeration(ctx context.Context, sourceID string, state model.ModerationState) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, el := range r.elements {
		if el.SourceID == sourceID && el.ModerationState == state {
			n++
		}
	}
	return n, nil
}

func (r *memoryElements) UpdateStatusBySourceAbove(ctx context.Context, sourceID string, above, to model.ElementStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, el := range r.elements {
		if el.SourceID == sourceID && el.Status > above {
			el.Status = to
			n++
		}
	}
	return n, nil
}

func (r *memoryElements) UpdateStatusBySourceAndOldIDs(ctx context.Context, sourceID string, oldIDs []string, from, to model.ElementStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make(map[string]struct{}, len(oldIDs))
	for _, id := range oldIDs {
		ids[id] = struct{}{}
	}
	var n int64
	for _, el := range r.elements {
		if el.SourceID != sourceID || el.Status != from {
			continue
		}
		if _, ok := ids[el.OldID]; ok {
			el.Status = to
			n++
		}
	}
	return n, nil
}

func (r *memoryElements) IDsBySourceAndStatus(ctx context.Context, sourceID string, status model.ElementStatus) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for id, el := range r.elements {
		if el.SourceID == sourceID && el.Status == status {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *memoryElements) DeleteBySourceAndStatus(ctx context.Context, sourceID string, status model.ElementStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, el := range r.elements {
		if el.SourceID == sourceID && el.Status == status {
			delete(r.elements, id)
			n++
		}
	}
	return n, nil
}

func (r *memoryElements) DeleteBySource(ctx context.Context, sourceID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, el := range r.elements {
		if el.SourceID == sourceID {
			delete(r.elements, id)
			n++
		}
	}
	return n, nil
}

type memoryOptions MemoryStore

func (r *memoryOptions) All(ctx context.Context) ([]model.Option, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	options := make([]model.Option, 0, len(r.options))
	for _, opt := range r.options {
		options = append(options, *opt)
	}
	return options, nil
}

func (r *memoryOptions) Save(opt *model.Option) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if opt.ID == "" {
		opt.ID = uuid.New().String()
	}
	cp := *opt
	r.stagedOptions[opt.ID] = &cp
}

type memoryImports MemoryStore

func (r *memoryImports) Find(ctx context.Context, id string) (*model.Import, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	imp, ok := r.imports[id]
	if !ok {
		return nil, nil
	}
	return imp.Clone(), nil
}

func (r *memoryImports) FindDue(ctx context.Context, now time.Time) ([]*model.Import, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []*model.Import
	for _, imp := range r.imports {
		if imp.IsDynamic && !imp.NextRefreshDate.IsZero() && !imp.NextRefreshDate.After(now) {
			due = append(due, imp.Clone())
		}
	}
	return due, nil
}

func (r *memoryImports) Save(imp *model.Import) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if imp.ID == "" {
		imp.ID = uuid.New().String()
	}
	r.stagedImports[imp.ID] = imp.Clone()
}

type memoryInteractions MemoryStore

func (r *memoryInteractions) DeleteByElementIDs(ctx context.Context, elementIDs []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make(map[string]struct{}, len(elementIDs))
	for _, id := range elementIDs {
		ids[id] = struct{}{}
	}
	var n int64
	for id, it := range r.interactions {
		if _, ok := ids[it.ElementID]; ok {
			delete(r.interactions, id)
			n++
		}
	}
	return n, nil
}
