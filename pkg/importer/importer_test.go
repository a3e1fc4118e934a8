// pkg/importer/importer_test.go
package importer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/geodir/ingress/pkg/geocode"
	"github.com/geodir/ingress/pkg/model"
	"github.com/geodir/ingress/pkg/store"
)

type stubFetcher struct {
	rows []map[string]any
	err  error
}

func (f *stubFetcher) FetchRows(ctx context.Context, imp *model.Import) ([]map[string]any, error) {
	return f.rows, f.err
}

func fixedGeocoder(lat, lng float64) geocode.Geocoder {
	return geocode.Func(func(ctx context.Context, address string) (geocode.Result, error) {
		return geocode.Result{Latitude: lat, Longitude: lng}, nil
	})
}

// newTestStore seeds a small taxonomy tree: root > Food > Vegan, root > Crafts.
func newTestStore(t *testing.T) *store.MemoryStore {
	t.Helper()
	st := store.NewMemoryStore()
	for _, opt := range []model.Option{
		{ID: "root", Name: "All Categories"},
		{ID: "food", Name: "Food", ParentID: "root"},
		{ID: "vegan", Name: "Vegan", ParentID: "food"},
		{ID: "crafts", Name: "Crafts", ParentID: "root"},
	} {
		o := opt
		st.Options().Save(&o)
	}
	require.NoError(t, st.Flush(context.Background()))
	return st
}

func newTestImport() *model.Import {
	return &model.Import{
		ID:         "imp-1",
		SourceName: "City Open Data",
		URL:        "https://example.org/data.json",
		IsDynamic:  true,
	}
}

func newOrchestrator(st store.Store, rows []map[string]any) *Orchestrator {
	return NewOrchestrator(st, &stubFetcher{rows: rows}, geocode.Disabled(), zap.NewNop())
}

func seedElement(t *testing.T, st *store.MemoryStore, el *model.Element) string {
	t.Helper()
	st.Elements().Save(el)
	require.NoError(t, st.Flush(context.Background()))
	return el.ID
}

func findByOldID(t *testing.T, st *store.MemoryStore, sourceID, oldID string) *model.Element {
	t.Helper()
	el, err := st.Elements().FindBySourceAndOldID(context.Background(), sourceID, oldID)
	require.NoError(t, err)
	return el
}

func TestRunCreatesElements(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	imp := newTestImport()

	rows := []map[string]any{
		{"id": "1", "name": "Green Table", "latitude": "45.1", "longitude": "3.2", "categories": "Vegan"},
		{"id": "2", "name": "Wood Works", "latitude": "44.9", "longitude": "3.1", "categories": "Crafts"},
	}

	summary, err := newOrchestrator(st, rows).Run(ctx, imp)
	require.NoError(t, err)

	assert.Equal(t, model.StateCompleted, summary.State)
	assert.Equal(t, model.LogLevelSuccess, summary.Level)
	assert.EqualValues(t, 2, summary.Data.ElementsCount)
	assert.EqualValues(t, 2, summary.Data.ElementsCreatedCount)
	assert.Zero(t, summary.Data.ElementsErrorsCount)

	el := findByOldID(t, st, "imp-1", "1")
	require.NotNil(t, el)
	assert.Equal(t, "Green Table", el.Name)
	assert.Equal(t, model.StatusDynamicImport, el.Status)
	assert.Equal(t, 45.1, el.Geo.Latitude)
	// A leaf category drags its whole ancestor chain in.
	assert.True(t, el.HasOption("vegan"))
	assert.True(t, el.HasOption("food"))
	assert.True(t, el.HasOption("root"))
	assert.False(t, el.HasOption("crafts"))

	// The run outcome is recorded on the import itself.
	stored, err := st.Imports().Find(ctx, "imp-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, model.StateCompleted, stored.CurrState)
	require.NotNil(t, stored.LastLog())
	assert.Equal(t, model.LogLevelSuccess, stored.LastLog().Level)
	assert.False(t, stored.LastRefresh.IsZero())
}

func TestRunSkipsUnchangedRows(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	imp := newTestImport()
	imp.OntologyMapping = map[string]string{"updatedAt": "updatedAt"}

	seeded := &model.Element{
		SourceID: "imp-1", OldID: "1", Name: "Green Table",
		Status: model.StatusDynamicImport,
		Geo:    model.Coordinates{Latitude: 45.1, Longitude: 3.2},
	}
	seeded.SetCustomData(map[string]any{"updatedAt": "2025-03-01"}, nil)
	seeded.AddOptionValue("vegan", 0)
	seedElement(t, st, seeded)

	rows := []map[string]any{
		{"id": "1", "name": "Renamed Upstream", "updatedAt": "2025-03-01", "categories": "Crafts"},
	}

	summary, err := newOrchestrator(st, rows).Run(ctx, imp)
	require.NoError(t, err)

	assert.EqualValues(t, 1, summary.Data.ElementsNothingToDoCount)
	assert.Zero(t, summary.Data.ElementsCreatedCount)
	assert.Zero(t, summary.Data.ElementsUpdatedCount)
	assert.Zero(t, summary.Data.ElementsDeletedCount)

	// The stored element kept its old data and stayed alive.
	el := findByOldID(t, st, "imp-1", "1")
	require.NotNil(t, el)
	assert.Equal(t, "Green Table", el.Name)
	assert.Equal(t, model.StatusDynamicImport, el.Status)
	assert.True(t, el.HasOption("vegan"))
}

func TestDynamicRunDeletesVanishedElements(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	imp := newTestImport()

	for _, oldID := range []string{"1", "2", "3"} {
		seedElement(t, st, &model.Element{
			SourceID: "imp-1", OldID: oldID, Name: "Element " + oldID,
			Status: model.StatusDynamicImport,
		})
	}
	vanishingID := findByOldID(t, st, "imp-1", "3").ID
	st.AddInteraction(model.UserInteraction{ElementID: vanishingID, Type: model.InteractionVote})
	keptID := findByOldID(t, st, "imp-1", "1").ID
	st.AddInteraction(model.UserInteraction{ElementID: keptID, Type: model.InteractionReport})

	rows := []map[string]any{
		{"id": "1", "name": "Element 1", "latitude": "45.0", "longitude": "3.0", "categories": "Crafts"},
		{"id": "2", "name": "Element 2", "latitude": "45.0", "longitude": "3.1", "categories": "Crafts"},
	}

	summary, err := newOrchestrator(st, rows).Run(ctx, imp)
	require.NoError(t, err)

	assert.EqualValues(t, 1, summary.Data.ElementsDeletedCount)
	assert.EqualValues(t, 2, summary.Data.ElementsUpdatedCount)
	assert.EqualValues(t, 2, summary.Data.ElementsCount)

	assert.Nil(t, findByOldID(t, st, "imp-1", "3"))
	assert.NotNil(t, findByOldID(t, st, "imp-1", "1"))

	// Interactions of the vanished element went with it.
	assert.Equal(t, 1, st.InteractionCount())
}

func TestErroredRowExemptFromDeletion(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	imp := newTestImport()

	// Two stored elements sharing a source key make the lookup ambiguous,
	// which fails the row without failing the run.
	seedElement(t, st, &model.Element{SourceID: "imp-1", OldID: "2", Name: "Dup A", Status: model.StatusDynamicImport})
	seedElement(t, st, &model.Element{SourceID: "imp-1", OldID: "2", Name: "Dup B", Status: model.StatusDynamicImport})

	rows := []map[string]any{
		{"id": "1", "name": "Fine", "latitude": "45.0", "longitude": "3.0", "categories": "Crafts"},
		{"id": "2", "name": "Broken", "latitude": "45.0", "longitude": "3.1", "categories": "Crafts"},
	}

	summary, err := newOrchestrator(st, rows).Run(ctx, imp)
	require.NoError(t, err)

	assert.EqualValues(t, 1, summary.Data.ElementsErrorsCount)
	assert.Len(t, summary.Data.ErrorMessages, 1)
	// A row that failed must not read as "vanished from the source".
	assert.Zero(t, summary.Data.ElementsDeletedCount)
	assert.EqualValues(t, 3, summary.Data.ElementsCount)

	// One failure out of two rows crosses the quarter threshold.
	assert.Equal(t, model.LogLevelError, summary.Level)
	assert.Equal(t, model.StateErrors, summary.State)
}

func TestStaticRunReplacesSource(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	imp := newTestImport()
	imp.IsDynamic = false

	seedElement(t, st, &model.Element{
		SourceID: "imp-1", OldID: "old", Name: "From previous run",
		Status: model.StatusAddedByAdmin,
	})

	rows := []map[string]any{
		{"id": "1", "name": "Fresh", "latitude": "45.0", "longitude": "3.0", "categories": "Crafts"},
	}

	summary, err := newOrchestrator(st, rows).Run(ctx, imp)
	require.NoError(t, err)

	assert.EqualValues(t, 1, summary.Data.ElementsCount)
	assert.EqualValues(t, 1, summary.Data.ElementsCreatedCount)
	assert.Nil(t, findByOldID(t, st, "imp-1", "old"))

	el := findByOldID(t, st, "imp-1", "1")
	require.NotNil(t, el)
	assert.Equal(t, model.StatusAddedByAdmin, el.Status)
}

func TestModeratedStatusPreservedOnUpdate(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	imp := newTestImport()

	// The temp-tagging pre-pass only touches statuses above Deleted, and
	// the row merge leaves any status it does not own untouched.
	seedElement(t, st, &model.Element{
		SourceID: "imp-1", OldID: "1", Name: "Removed by moderator",
		Status: model.StatusDeleted,
	})

	rows := []map[string]any{
		{"id": "1", "name": "Removed by moderator", "latitude": "45.0", "longitude": "3.0", "categories": "Crafts"},
	}

	_, err := newOrchestrator(st, rows).Run(ctx, imp)
	require.NoError(t, err)

	el := findByOldID(t, st, "imp-1", "1")
	require.NotNil(t, el)
	assert.Equal(t, model.StatusDeleted, el.Status, "a moderator deletion is terminal")
}

func TestPreventImportIfNoCategories(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	imp := newTestImport()
	imp.PreventImportIfNoCategories = true

	rows := []map[string]any{
		{"id": "1", "name": "Uncategorized", "latitude": "45.0", "longitude": "3.0", "categories": "plumbing"},
	}

	summary, err := newOrchestrator(st, rows).Run(ctx, imp)
	require.NoError(t, err)

	assert.EqualValues(t, 1, summary.Data.ElementsNoCategoryCount)
	assert.Zero(t, summary.Data.ElementsCount)
	assert.Nil(t, findByOldID(t, st, "imp-1", "1"))

	// Blocked rows are an expected outcome, not an error condition.
	assert.Equal(t, model.LogLevelSuccess, summary.Level)
	assert.Equal(t, model.StateCompleted, summary.State)
}

func TestMissingCategoryFlagsModeration(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	imp := newTestImport()

	rows := []map[string]any{
		{"id": "1", "name": "Uncategorized", "latitude": "45.0", "longitude": "3.0", "categories": "plumbing"},
		{"id": "2", "name": "Fine", "latitude": "45.0", "longitude": "3.1", "categories": "Crafts"},
		{"id": "3", "name": "Also fine", "latitude": "45.0", "longitude": "3.2", "categories": "Crafts"},
		{"id": "4", "name": "Fine too", "latitude": "45.0", "longitude": "3.3", "categories": "Crafts"},
		{"id": "5", "name": "Last fine", "latitude": "45.0", "longitude": "3.4", "categories": "Crafts"},
	}

	summary, err := newOrchestrator(st, rows).Run(ctx, imp)
	require.NoError(t, err)

	assert.EqualValues(t, 1, summary.Data.ElementsMissingTaxoCount)
	assert.EqualValues(t, 5, summary.Data.ElementsCount)

	el := findByOldID(t, st, "imp-1", "1")
	require.NotNil(t, el)
	assert.Equal(t, model.ModerationNoOptionProvided, el.ModerationState)

	// One flag out of five rows stays under the quarter threshold.
	assert.Equal(t, model.LogLevelWarning, summary.Level)
	assert.Equal(t, model.StateErrors, summary.State)
}

func TestCreateMissingOptions(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	imp := newTestImport()
	imp.CreateMissingOptions = true
	imp.ParentCategoryID = "food"

	rows := []map[string]any{
		{"id": "1", "name": "First", "latitude": "45.0", "longitude": "3.0", "categories": "Street Food"},
		{"id": "2", "name": "Second", "latitude": "45.0", "longitude": "3.1", "categories": "Street Food"},
	}

	summary, err := newOrchestrator(st, rows).Run(ctx, imp)
	require.NoError(t, err)
	assert.Equal(t, model.StateCompleted, summary.State)

	options, err := st.Options().All(ctx)
	require.NoError(t, err)
	// Exactly one new option, shared by both rows.
	require.Len(t, options, 5)

	var created *model.Option
	for i := range options {
		if options[i].Name == "Street Food" {
			created = &options[i]
		}
	}
	require.NotNil(t, created)
	assert.Equal(t, "food", created.ParentID)

	el := findByOldID(t, st, "imp-1", "2")
	require.NotNil(t, el)
	assert.True(t, el.HasOption(created.ID))
	assert.True(t, el.HasOption("food"))
	assert.True(t, el.HasOption("root"))
}

func TestAncestorsAssignedOnce(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	imp := newTestImport()

	rows := []map[string]any{
		{"id": "1", "name": "Green Table", "latitude": "45.0", "longitude": "3.0",
			"categories": "Vegan,Food"},
	}

	_, err := newOrchestrator(st, rows).Run(ctx, imp)
	require.NoError(t, err)

	el := findByOldID(t, st, "imp-1", "1")
	require.NotNil(t, el)
	// The second label's chain overlaps the first one's; shared ancestors
	// appear exactly once.
	assert.Len(t, el.OptionValues, 3)
	assert.True(t, el.HasOption("vegan"))
	assert.True(t, el.HasOption("food"))
	assert.True(t, el.HasOption("root"))
}

func TestOptionIDsAddedToEachElement(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	imp := newTestImport()
	imp.OptionIDsToAddToEachElement = []string{"crafts"}

	rows := []map[string]any{
		{"id": "1", "name": "Green Table", "latitude": "45.0", "longitude": "3.0", "categories": "Vegan"},
	}

	_, err := newOrchestrator(st, rows).Run(ctx, imp)
	require.NoError(t, err)

	el := findByOldID(t, st, "imp-1", "1")
	require.NotNil(t, el)
	assert.True(t, el.HasOption("vegan"))
	assert.True(t, el.HasOption("crafts"))
}

func TestIgnoredIDsAreSkipped(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	imp := newTestImport()
	imp.IDsToIgnore = []string{"2"}

	rows := []map[string]any{
		{"id": "1", "name": "Kept", "latitude": "45.0", "longitude": "3.0", "categories": "Crafts"},
		{"id": "2", "name": "Ignored", "latitude": "45.0", "longitude": "3.1", "categories": "Crafts"},
	}

	summary, err := newOrchestrator(st, rows).Run(ctx, imp)
	require.NoError(t, err)

	// Skipped rows count nowhere.
	assert.EqualValues(t, 1, summary.Data.ElementsCount)
	assert.EqualValues(t, 1, summary.Data.ElementsCreatedCount)
	assert.Zero(t, summary.Data.ElementsErrorsCount)
	assert.Nil(t, findByOldID(t, st, "imp-1", "2"))
}

func TestGeocodeFallback(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	imp := newTestImport()
	imp.GeocodeIfNecessary = true

	rows := []map[string]any{
		{"id": "1", "name": "No Coords", "streetAddress": "5 rue des Lilas", "categories": "Crafts"},
	}

	orch := NewOrchestrator(st, &stubFetcher{rows: rows}, fixedGeocoder(48.85, 2.35), zap.NewNop())
	summary, err := orch.Run(ctx, imp)
	require.NoError(t, err)

	assert.Equal(t, model.StateCompleted, summary.State)
	assert.Zero(t, summary.Data.ElementsMissingGeoCount)

	el := findByOldID(t, st, "imp-1", "1")
	require.NotNil(t, el)
	assert.Equal(t, 48.85, el.Geo.Latitude)
	assert.Equal(t, 2.35, el.Geo.Longitude)
}

func TestGeocodeFailureFlagsModeration(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	imp := newTestImport()
	imp.GeocodeIfNecessary = true

	rows := []map[string]any{
		{"id": "1", "name": "No Coords", "streetAddress": "nowhere", "categories": "Crafts"},
		{"id": "2", "name": "Fine", "latitude": "45.0", "longitude": "3.0", "categories": "Crafts"},
		{"id": "3", "name": "Also fine", "latitude": "45.0", "longitude": "3.1", "categories": "Crafts"},
		{"id": "4", "name": "Fine too", "latitude": "45.0", "longitude": "3.2", "categories": "Crafts"},
		{"id": "5", "name": "Last fine", "latitude": "45.0", "longitude": "3.3", "categories": "Crafts"},
	}

	summary, err := newOrchestrator(st, rows).Run(ctx, imp)
	require.NoError(t, err)

	// The geocoder failure does not fail the row; the element is imported
	// and flagged for review.
	assert.EqualValues(t, 5, summary.Data.ElementsCount)
	assert.EqualValues(t, 1, summary.Data.ElementsMissingGeoCount)
	assert.Equal(t, model.LogLevelWarning, summary.Level)

	el := findByOldID(t, st, "imp-1", "1")
	require.NotNil(t, el)
	assert.Equal(t, model.ModerationGeolocError, el.ModerationState)
}

func TestFetchFailureFailsRun(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	imp := newTestImport()

	fetchErr := errors.New("upstream returned 503")
	orch := NewOrchestrator(st, &stubFetcher{err: fetchErr}, geocode.Disabled(), zap.NewNop())

	_, err := orch.Run(ctx, imp)
	require.ErrorIs(t, err, fetchErr)

	stored, err := st.Imports().Find(ctx, "imp-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, model.StateFailed, stored.CurrState)
	assert.Contains(t, stored.CurrMessage, "failed")

	n, err := st.Elements().CountBySource(ctx, "imp-1")
	require.NoError(t, err)
	assert.Zero(t, n, "a failed fetch must not touch stored elements")
}

func TestAllRowsFailedMarksRunFailed(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	imp := newTestImport()
	imp.PreventImportIfNoCategories = false

	seedElement(t, st, &model.Element{SourceID: "imp-1", OldID: "1", Name: "Dup A", Status: model.StatusDynamicImport})
	seedElement(t, st, &model.Element{SourceID: "imp-1", OldID: "1", Name: "Dup B", Status: model.StatusDynamicImport})

	rows := []map[string]any{
		{"id": "1", "name": "Broken", "latitude": "45.0", "longitude": "3.0", "categories": "Crafts"},
	}

	summary, err := newOrchestrator(st, rows).Run(ctx, imp)
	require.NoError(t, err)

	assert.Equal(t, model.StateFailed, summary.State)
	assert.Equal(t, model.LogLevelError, summary.Level)
	assert.EqualValues(t, 1, summary.Data.ElementsErrorsCount)
}

func TestErrorCountPastSizeStaysInErrorsState(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	imp := newTestImport()

	// Moderation counts span every stored element of the source, so the
	// error total can exceed the row count. Only an exact match with the
	// row count means "every row failed"; anything else is the errors
	// state.
	seedElement(t, st, &model.Element{
		SourceID: "imp-1", OldID: "1", Name: "Dup A",
		Status: model.StatusDynamicImport, ModerationState: model.ModerationGeolocError,
	})
	seedElement(t, st, &model.Element{
		SourceID: "imp-1", OldID: "1", Name: "Dup B",
		Status: model.StatusDynamicImport, ModerationState: model.ModerationGeolocError,
	})

	rows := []map[string]any{
		{"id": "1", "name": "Broken", "latitude": "45.0", "longitude": "3.0", "categories": "Crafts"},
	}

	summary, err := newOrchestrator(st, rows).Run(ctx, imp)
	require.NoError(t, err)

	assert.EqualValues(t, 1, summary.Data.ElementsErrorsCount)
	assert.EqualValues(t, 2, summary.Data.ElementsMissingGeoCount)
	assert.Equal(t, model.StateErrors, summary.State)
	assert.Equal(t, model.LogLevelError, summary.Level)
}

func TestPrivateFieldsStripped(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	imp := newTestImport()
	imp.OntologyMapping = map[string]string{"email": "email", "phone": "phone"}

	rows := []map[string]any{
		{"id": "1", "name": "Green Table", "latitude": "45.0", "longitude": "3.0",
			"categories": "Vegan", "email": "owner@example.org", "phone": "0102030405"},
	}

	orch := newOrchestrator(st, rows).WithPrivateFields([]string{"email"})
	_, err := orch.Run(ctx, imp)
	require.NoError(t, err)

	el := findByOldID(t, st, "imp-1", "1")
	require.NotNil(t, el)
	assert.Equal(t, "0102030405", el.CustomProperty("phone"))
	assert.Nil(t, el.CustomProperty("email"))
}

func TestRunWithSmallBatchSize(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	imp := newTestImport()

	var rows []map[string]any
	for _, id := range []string{"1", "2", "3", "4", "5", "6", "7"} {
		rows = append(rows, map[string]any{
			"id": id, "name": "Element " + id,
			"latitude": "45.0", "longitude": "3." + id, "categories": "Crafts",
		})
	}

	orch := newOrchestrator(st, rows).WithBatchSize(2)
	summary, err := orch.Run(ctx, imp)
	require.NoError(t, err)

	assert.Equal(t, model.StateCompleted, summary.State)
	assert.EqualValues(t, 7, summary.Data.ElementsCount)
	assert.EqualValues(t, 7, summary.Data.ElementsCreatedCount)
}

func TestRefreshScheduleAdvances(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	imp := newTestImport()
	imp.RefreshFrequencyInDays = 7

	rows := []map[string]any{
		{"id": "1", "name": "Green Table", "latitude": "45.0", "longitude": "3.0", "categories": "Vegan"},
	}

	_, err := newOrchestrator(st, rows).Run(ctx, imp)
	require.NoError(t, err)

	stored, err := st.Imports().Find(ctx, "imp-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.False(t, stored.LastRefresh.IsZero())
	assert.True(t, stored.NextRefreshDate.After(stored.LastRefresh))
}

func TestTaxonomyRebuilderRuns(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	imp := newTestImport()

	rows := []map[string]any{
		{"id": "1", "name": "Green Table", "latitude": "45.0", "longitude": "3.0", "categories": "Vegan"},
	}

	rebuilt := false
	orch := newOrchestrator(st, rows).WithRebuilder(RebuildFunc(func(ctx context.Context, s store.Store) error {
		rebuilt = true
		return nil
	}))

	_, err := orch.Run(ctx, imp)
	require.NoError(t, err)
	assert.True(t, rebuilt)
}

func TestCollectDataPreview(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	imp := newTestImport()

	rows := []map[string]any{
		{"id": "1", "title": "Green Table", "lat": "45.0", "lng": "3.0", "categories": "Vegan,plumbing"},
	}

	out, err := newOrchestrator(st, rows).CollectData(ctx, imp)
	require.NoError(t, err)
	require.Len(t, out, 1)

	assert.Equal(t, "Green Table", out[0]["name"])
	assert.Equal(t, []string{"vegan", ""}, out[0]["taxonomy"])

	// Nothing was imported, but the learned mappings are persisted.
	n, err := st.Elements().CountBySource(ctx, "imp-1")
	require.NoError(t, err)
	assert.Zero(t, n)

	stored, err := st.Imports().Find(ctx, "imp-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "vegan", stored.TaxonomyMapping["Vegan"])
	assert.Equal(t, "", stored.TaxonomyMapping["plumbing"])
}
