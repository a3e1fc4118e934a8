// pkg/mapping/transform.go
package mapping

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/geodir/ingress/pkg/model"
	"github.com/geodir/ingress/pkg/store"
)

// Transformer normalizes a raw row set into the canonical shape: field names
// through the ontology mapping, category labels through the taxonomy
// mapping. Both mapping tables live on the import descriptor and accumulate
// across runs; Transform stages the updated descriptor for persistence even
// on a preview-only path.
type Transformer struct {
	store  store.Store
	logger *zap.Logger
}

// NewTransformer creates a Transformer over the given store.
func NewTransformer(st store.Store, logger *zap.Logger) *Transformer {
	return &Transformer{store: st, logger: logger}
}

// Transform runs the full normalization pipeline and returns the canonical
// rows. The import's mapping tables are updated in place and staged.
func (t *Transformer) Transform(ctx context.Context, rows []map[string]any, imp *model.Import) ([]map[string]any, error) {
	NormalizeAliases(rows)

	imp.OntologyMapping = CollectOntology(rows, imp.OntologyMapping)
	ApplyOntology(rows, imp.OntologyMapping)

	rows = DropNamelessRows(rows)
	FillMissingCoreFields(rows)

	options, err := t.store.Options().All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load taxonomy options: %w", err)
	}
	index := BuildOptionIndex(options)

	imp.TaxonomyMapping = CollectTaxonomy(rows, imp.TaxonomyMapping, index)
	ApplyTaxonomy(rows, imp.TaxonomyMapping, imp.CreateMissingOptions)

	t.store.Imports().Save(imp)

	t.logger.Debug("Transformed raw rows",
		zap.String("source", imp.SourceName),
		zap.Int("rows", len(rows)),
		zap.Int("ontologyEntries", len(imp.OntologyMapping)),
		zap.Int("taxonomyEntries", len(imp.TaxonomyMapping)))

	return rows, nil
}
