// pkg/importer/run.go
package importer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/geodir/ingress/pkg/geocode"
	"github.com/geodir/ingress/pkg/mapping"
	"github.com/geodir/ingress/pkg/model"
	"github.com/geodir/ingress/pkg/store"
)

// RowFetcher retrieves the raw record set of an import source.
type RowFetcher interface {
	FetchRows(ctx context.Context, imp *model.Import) ([]map[string]any, error)
}

// TaxonomyRebuilder rebuilds the taxonomy search index after a run.
type TaxonomyRebuilder interface {
	Rebuild(ctx context.Context, st store.Store) error
}

// RebuildFunc adapts a plain function to the TaxonomyRebuilder interface.
type RebuildFunc func(ctx context.Context, st store.Store) error

// Rebuild implements TaxonomyRebuilder.
func (f RebuildFunc) Rebuild(ctx context.Context, st store.Store) error {
	return f(ctx, st)
}

// RunSummary is the aggregate outcome of one import run.
type RunSummary struct {
	State model.ImportState
	Level model.LogLevel
	Data  model.ImportLogData
}

// Orchestrator drives the full import pipeline over a dataset: fetch,
// mapping, per-row reconciliation with error isolation, periodic
// checkpointing, the dynamic-source reconciliation passes and the final
// summary log. One run is single-threaded; concurrent runs for the same
// source must be serialized by the caller.
type Orchestrator struct {
	store         store.Store
	fetcher       RowFetcher
	transformer   *mapping.Transformer
	geocoder      geocode.Geocoder
	rebuilder     TaxonomyRebuilder
	logger        *zap.Logger
	batchSize     int
	privateFields []string
}

// NewOrchestrator creates an orchestrator with the default batch size.
func NewOrchestrator(st store.Store, fetcher RowFetcher, geocoder geocode.Geocoder, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		store:       st,
		fetcher:     fetcher,
		transformer: mapping.NewTransformer(st, logger),
		geocoder:    geocoder,
		logger:      logger,
		batchSize:   100,
	}
}

// WithBatchSize sets how many rows are processed between checkpoints.
func (o *Orchestrator) WithBatchSize(n int) *Orchestrator {
	if n > 0 {
		o.batchSize = n
	}
	return o
}

// WithPrivateFields sets the custom fields stripped from imported elements.
func (o *Orchestrator) WithPrivateFields(fields []string) *Orchestrator {
	o.privateFields = fields
	return o
}

// WithRebuilder sets the taxonomy index rebuild hook.
func (o *Orchestrator) WithRebuilder(r TaxonomyRebuilder) *Orchestrator {
	o.rebuilder = r
	return o
}

// CollectData fetches and normalizes the source without importing anything.
// Used by the mapping configuration preview. The import's mapping tables are
// still updated and persisted.
func (o *Orchestrator) CollectData(ctx context.Context, imp *model.Import) ([]map[string]any, error) {
	rows, err := o.fetcher.FetchRows(ctx, imp)
	if err != nil {
		return nil, err
	}
	rows, err = o.transformer.Transform(ctx, rows, imp)
	if err != nil {
		return nil, err
	}
	if err := o.store.Flush(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}

// Run executes a full import of the source described by imp.
//
// A fetch failure aborts the run before any row is touched and leaves the
// import in the failed state. Row-level failures never abort the batch: they
// are counted, deduplicated by message, and for dynamic sources the affected
// elements are exempted from the vanished-record deletion pass.
func (o *Orchestrator) Run(ctx context.Context, imp *model.Import) (*RunSummary, error) {
	logger := o.logger.With(zap.String("source", imp.SourceName))
	logger.Info("Starting import run",
		zap.Bool("dynamic", imp.IsDynamic),
		zap.String("importId", imp.ID))

	imp.CurrState = model.StateDownloading
	imp.CurrMessage = "Downloading source data, please wait..."
	o.store.Imports().Save(imp)
	if err := o.store.Flush(ctx); err != nil {
		return nil, err
	}

	rows, err := o.fetcher.FetchRows(ctx, imp)
	if err != nil {
		return nil, o.failRun(ctx, imp, fmt.Errorf("failed to fetch source data: %w", err))
	}

	rows, err = o.transformer.Transform(ctx, rows, imp)
	if err != nil {
		return nil, o.failRun(ctx, imp, err)
	}
	size := len(rows)

	imp.LastRefresh = time.Now()
	imp.CurrState = model.StateInProgress

	elements := o.store.Elements()
	if imp.IsDynamic {
		imp.UpdateNextRefreshDate()
		// Assume missing until proven present: every live element of this
		// source is temp-tagged, and each imported row untags its element.
		if _, err := elements.UpdateStatusBySourceAbove(ctx, imp.ID, model.StatusDeleted, model.StatusDynamicImportTemp); err != nil {
			return nil, o.failRun(ctx, imp, err)
		}
	} else {
		// A one-shot source is fully replaced on each run.
		if _, err := elements.DeleteBySource(ctx, imp.ID); err != nil {
			return nil, o.failRun(ctx, imp, err)
		}
	}

	recorder := NewRecordImporter(o.store, o.geocoder, o.logger)
	if err := recorder.Initialize(ctx, imp, o.privateFields); err != nil {
		return nil, o.failRun(ctx, imp, err)
	}

	var created, updated, nothingToDo, noCategory int64
	errs := newRowErrorCollector()
	processed := 0

	for _, row := range rows {
		imp.CurrMessage = fmt.Sprintf("Importing data: %d/%d rows processed", processed, size)

		result, err := recorder.ImportRow(ctx, row, imp)
		if err != nil {
			errs.record(row, err)
			logger.Warn("Row import failed",
				zap.String("rowId", mapping.FieldString(row["id"])),
				zap.Error(err))
		} else {
			switch result {
			case ResultCreated:
				created++
			case ResultUpdated:
				updated++
			case ResultNothingToDo:
				nothingToDo++
			case ResultNoCategory:
				noCategory++
			}
			processed++
		}

		// Periodic checkpoint: flush staged writes and release the working
		// set so memory stays bounded on large datasets. The import handle
		// crosses the boundary and must be reloaded.
		if processed%o.batchSize == 1 {
			if imp, err = o.checkpoint(ctx, imp); err != nil {
				return nil, err
			}
		}
	}

	if imp, err = o.checkpoint(ctx, imp); err != nil {
		return nil, err
	}

	var deleted int64
	if imp.IsDynamic {
		// Rows that errored are excluded from deletion: a failure to
		// reconcile a record must not read as "record disappeared".
		if errs.total > 0 {
			if _, err := elements.UpdateStatusBySourceAndOldIDs(ctx, imp.ID, errs.rowIDs,
				model.StatusDynamicImportTemp, model.StatusDynamicImport); err != nil {
				return nil, o.failRun(ctx, imp, err)
			}
		}

		// Everything still temp-tagged is absent from the new dataset.
		vanished, err := elements.IDsBySourceAndStatus(ctx, imp.ID, model.StatusDynamicImportTemp)
		if err != nil {
			return nil, o.failRun(ctx, imp, err)
		}
		if _, err := o.store.Interactions().DeleteByElementIDs(ctx, vanished); err != nil {
			return nil, o.failRun(ctx, imp, err)
		}
		if deleted, err = elements.DeleteBySourceAndStatus(ctx, imp.ID, model.StatusDynamicImportTemp); err != nil {
			return nil, o.failRun(ctx, imp, err)
		}
	}

	total, err := elements.CountBySource(ctx, imp.ID)
	if err != nil {
		return nil, o.failRun(ctx, imp, err)
	}
	missingGeo, err := elements.CountBySourceAndModeration(ctx, imp.ID, model.ModerationGeolocError)
	if err != nil {
		return nil, o.failRun(ctx, imp, err)
	}
	missingTaxo, err := elements.CountBySourceAndModeration(ctx, imp.ID, model.ModerationNoOptionProvided)
	if err != nil {
		return nil, o.failRun(ctx, imp, err)
	}

	data := model.ImportLogData{
		ElementsCount:            total,
		ElementsCreatedCount:     created,
		ElementsUpdatedCount:     updated,
		ElementsNothingToDoCount: nothingToDo,
		ElementsMissingGeoCount:  missingGeo,
		ElementsMissingTaxoCount: missingTaxo,
		ElementsNoCategoryCount:  noCategory,
		ElementsDeletedCount:     deleted,
		ElementsErrorsCount:      int64(errs.total),
		ErrorMessages:            errs.messages,
	}

	totalErrors := missingGeo + missingTaxo + int64(errs.total)
	level := classifyLevel(totalErrors, size)

	message := fmt.Sprintf("Import of %s finished", imp.SourceName)
	if level != model.LogLevelSuccess {
		message += ", but with issues"
	}

	log := model.NewImportLog(level, message, data)
	imp.AddLog(log)

	switch {
	case totalErrors == 0:
		imp.CurrState = model.StateCompleted
	case size > 0 && totalErrors == int64(size):
		imp.CurrState = model.StateFailed
	default:
		imp.CurrState = model.StateErrors
	}
	imp.CurrMessage = log.DisplayMessage()

	o.store.Imports().Save(imp)
	if err := o.store.Flush(ctx); err != nil {
		return nil, err
	}

	if o.rebuilder != nil {
		if err := o.rebuilder.Rebuild(ctx, o.store); err != nil {
			logger.Warn("Taxonomy index rebuild failed", zap.Error(err))
		}
	}

	logger.Info("Import run finished",
		zap.String("state", string(imp.CurrState)),
		zap.Int64("elements", total),
		zap.Int64("created", created),
		zap.Int64("updated", updated),
		zap.Int64("unchanged", nothingToDo),
		zap.Int64("deleted", deleted),
		zap.Int64("errors", int64(errs.total)))

	return &RunSummary{State: imp.CurrState, Level: level, Data: data}, nil
}

// checkpoint flushes staged changes, releases the working set and reloads
// the import descriptor, which cannot be held across a Clear.
func (o *Orchestrator) checkpoint(ctx context.Context, imp *model.Import) (*model.Import, error) {
	o.store.Imports().Save(imp)
	if err := o.store.Flush(ctx); err != nil {
		return nil, fmt.Errorf("checkpoint flush failed: %w", err)
	}
	o.store.Clear()

	reloaded, err := o.store.Imports().Find(ctx, imp.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload import after checkpoint: %w", err)
	}
	if reloaded == nil {
		return nil, fmt.Errorf("import %s disappeared during run", imp.ID)
	}
	return reloaded, nil
}

// failRun records a fatal condition: the run stops before or outside row
// processing and the import lands in the failed state, distinguishable from
// a completed run with zero elements.
func (o *Orchestrator) failRun(ctx context.Context, imp *model.Import, cause error) error {
	imp.CurrState = model.StateFailed
	imp.CurrMessage = fmt.Sprintf("Import of %s failed: %v", imp.SourceName, cause)
	o.store.Imports().Save(imp)
	if err := o.store.Flush(ctx); err != nil {
		o.logger.Error("Failed to persist failed run state", zap.Error(err))
	}
	return cause
}

// classifyLevel derives the run severity from the aggregate counts: success
// without errors, error when errors exceed a quarter of the batch, warning
// otherwise.
func classifyLevel(totalErrors int64, size int) model.LogLevel {
	if totalErrors == 0 {
		return model.LogLevelSuccess
	}
	if float64(totalErrors) > float64(size)/4 {
		return model.LogLevelError
	}
	return model.LogLevelWarning
}
