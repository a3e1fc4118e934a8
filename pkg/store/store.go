// pkg/store/store.go
package store

import (
	"context"
	"errors"
	"time"

	"github.com/geodir/ingress/pkg/model"
)

// ErrAmbiguousMatch is returned when a lookup expected at most one element
// but the predicates matched several.
var ErrAmbiguousMatch = errors.New("ambiguous element match: predicates matched more than one document")

// Store is the document store consumed by the import engine. Writes are
// staged via the repositories' Save methods and only hit the backend on
// Flush. Clear releases the staged working set; any entity handle held
// across a Clear must be reloaded.
type Store interface {
	Elements() ElementRepository
	Options() OptionRepository
	Imports() ImportRepository
	Interactions() InteractionRepository

	// Flush writes all staged changes to the backend.
	Flush(ctx context.Context) error
	// Clear drops the staged working set without writing it.
	Clear()
}

// ElementRepository exposes the element queries and bulk updates the import
// engine needs. Find methods return (nil, nil) when nothing matches and
// ErrAmbiguousMatch when more than one document does.
type ElementRepository interface {
	// FindBySourceAndOldID matches by the source-native key.
	FindBySourceAndOldID(ctx context.Context, sourceID, oldID string) (*model.Element, error)
	// FindBySourceNameGeo is the fuzzy fallback match by name and
	// coordinates rounded to five decimals.
	FindBySourceNameGeo(ctx context.Context, sourceID, name string, lat, lng float64) (*model.Element, error)

	// Save stages an element write. Elements without an id are assigned one.
	Save(el *model.Element)

	CountBySource(ctx context.Context, sourceID string) (int64, error)
	CountBySourceAndModeration(ctx context.Context, sourceID string, state model.ModerationState) (int64, error)

	// UpdateStatusBySourceAbove sets the status of every element of the
	// source whose status is strictly greater than the given floor.
	UpdateStatusBySourceAbove(ctx context.Context, sourceID string, above, to model.ElementStatus) (int64, error)
	// UpdateStatusBySourceAndOldIDs sets the status of elements of the
	// source whose oldId is in the list and whose status equals from.
	UpdateStatusBySourceAndOldIDs(ctx context.Context, sourceID string, oldIDs []string, from, to model.ElementStatus) (int64, error)

	// IDsBySourceAndStatus lists element ids of the source in a status.
	IDsBySourceAndStatus(ctx context.Context, sourceID string, status model.ElementStatus) ([]string, error)
	DeleteBySourceAndStatus(ctx context.Context, sourceID string, status model.ElementStatus) (int64, error)
	DeleteBySource(ctx context.Context, sourceID string) (int64, error)
}

// OptionRepository exposes the taxonomy tree.
type OptionRepository interface {
	All(ctx context.Context) ([]model.Option, error)
	Save(opt *model.Option)
}

// ImportRepository persists import descriptors.
type ImportRepository interface {
	Find(ctx context.Context, id string) (*model.Import, error)
	// FindDue lists the dynamic imports whose next refresh date has passed.
	FindDue(ctx context.Context, now time.Time) ([]*model.Import, error)
	Save(imp *model.Import)
}

// InteractionRepository exposes the interaction cleanup used when elements
// vanish from a dynamic source.
type InteractionRepository interface {
	DeleteByElementIDs(ctx context.Context, elementIDs []string) (int64, error)
}
