// pkg/importer/one.go
package importer

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/geodir/ingress/pkg/geocode"
	"github.com/geodir/ingress/pkg/mapping"
	"github.com/geodir/ingress/pkg/model"
	"github.com/geodir/ingress/pkg/store"
)

// Result classifies the outcome of importing one row.
type Result string

const (
	// ResultNothingToDo means the stored element is already up to date.
	ResultNothingToDo Result = "nothing_to_do"
	// ResultCreated means a new element was staged.
	ResultCreated Result = "created"
	// ResultUpdated means an existing element was staged with new data.
	ResultUpdated Result = "updated"
	// ResultNoCategory means the row was rejected because no category could
	// be resolved and the import blocks category-less rows.
	ResultNoCategory Result = "no_category"
	// ResultSkipped means the row's id is on the ignore list. Not counted.
	ResultSkipped Result = "skipped"
)

// RecordImporter reconciles one normalized row against the store: it finds
// or creates the target element, merges geo, address, images, custom fields
// and categories, and classifies the outcome. Row-level failures propagate
// to the orchestrator, which isolates them.
type RecordImporter struct {
	store    store.Store
	geocoder geocode.Geocoder
	logger   *zap.Logger

	options              *mapping.OptionIndex
	createMissingOptions bool
	parentOptionID       string
	optionIDsToAdd       []string
	privateFields        []string
}

// NewRecordImporter creates an importer bound to the store and geocoder.
func NewRecordImporter(st store.Store, geocoder geocode.Geocoder, logger *zap.Logger) *RecordImporter {
	return &RecordImporter{store: st, geocoder: geocoder, logger: logger}
}

// Initialize loads the option index and captures the import's category
// configuration. Must be called once before the first ImportRow of a run.
func (ri *RecordImporter) Initialize(ctx context.Context, imp *model.Import, privateFields []string) error {
	options, err := ri.store.Options().All(ctx)
	if err != nil {
		return err
	}
	ri.options = mapping.BuildOptionIndex(options)
	ri.createMissingOptions = imp.CreateMissingOptions
	ri.parentOptionID = imp.ParentCategoryID
	if ri.parentOptionID == "" {
		ri.parentOptionID = ri.options.RootID()
	}
	ri.optionIDsToAdd = imp.OptionIDsToAddToEachElement
	ri.privateFields = privateFields
	return nil
}

// ImportRow reconciles one row. The row must already be normalized by the
// mapping stage: canonical field names present, categories resolved to
// option ids (or raw labels when auto-creation is enabled).
func (ri *RecordImporter) ImportRow(ctx context.Context, row map[string]any, imp *model.Import) (Result, error) {
	oldID := mapping.FieldString(row["id"])
	if oldID != "" && imp.IsIgnored(oldID) {
		return ResultSkipped, nil
	}

	existing, err := ri.findExisting(ctx, row, imp, oldID)
	if err != nil {
		return "", err
	}

	// An unchanged updatedAt means the source record did not move: skip the
	// deep merge, only reset the moderation state for recompute and keep the
	// element alive across the temp-tagging pass.
	if existing != nil {
		if stamp := mapping.FieldString(row["updatedAt"]); stamp != "" &&
			stamp == mapping.FieldString(existing.CustomProperty("updatedAt")) {
			existing.ModerationState = model.ModerationNotNeeded
			if existing.Status == model.StatusDynamicImportTemp {
				existing.Status = model.StatusDynamicImport
			}
			ri.store.Elements().Save(existing)
			return ResultNothingToDo, nil
		}
	}

	el := existing
	updating := existing != nil
	if el == nil {
		el = &model.Element{CreatedAt: time.Now()}
	}
	el.UpdatedAt = time.Now()

	el.OldID = oldID
	el.Name = mapping.FieldString(row["name"])
	el.Address = model.PostalAddress{
		StreetAddress:   mapping.FieldString(row["streetAddress"]),
		AddressLocality: mapping.FieldString(row["addressLocality"]),
		PostalCode:      mapping.FieldString(row["postalCode"]),
		AddressCountry:  mapping.FieldString(row["addressCountry"]),
	}
	el.SourceID = imp.ID
	el.SourceKey = sourceKey(row, imp)
	el.UserOwnerEmail = mapping.FieldString(row["owner"])

	ri.resolveGeo(ctx, el, row, imp)

	if blocked := ri.assignCategories(el, row, imp); blocked {
		return ResultNoCategory, nil
	}

	ri.assignImages(el, row)
	ri.assignCustomFields(el, row)

	if imp.IsDynamic {
		// Keep whatever status a moderator gave the element; only fresh or
		// temp-tagged elements become DynamicImport.
		if el.Status == model.StatusNone || el.Status == model.StatusDynamicImportTemp {
			el.Status = model.StatusDynamicImport
		}
	} else {
		el.Status = model.StatusAddedByAdmin
	}

	ri.store.Elements().Save(el)

	if updating {
		return ResultUpdated, nil
	}
	return ResultCreated, nil
}

// findExisting matches the row against the store: by source-native key when
// the row has one, otherwise the fuzzy fallback by name and rounded
// coordinates. The fallback can match the wrong record when two entries
// share a name and rounded position; known limitation, behavior preserved.
func (ri *RecordImporter) findExisting(ctx context.Context, row map[string]any, imp *model.Import, oldID string) (*model.Element, error) {
	if oldID != "" {
		return ri.store.Elements().FindBySourceAndOldID(ctx, imp.ID, oldID)
	}
	lat := parseCoordinate(row["latitude"])
	lng := parseCoordinate(row["longitude"])
	return ri.store.Elements().FindBySourceNameGeo(ctx, imp.ID, mapping.FieldString(row["name"]), lat, lng)
}

// resolveGeo fills the element coordinates from the row, falling back to the
// geocoder when allowed. Geocoder failures are swallowed: the coordinates
// stay at zero and the element is flagged for review. A final zero latitude
// or longitude is treated as "no coordinate", which misclassifies a
// legitimate 0.0; known limitation, behavior preserved.
func (ri *RecordImporter) resolveGeo(ctx context.Context, el *model.Element, row map[string]any, imp *model.Import) {
	latRaw := mapping.FieldString(row["latitude"])
	lngRaw := mapping.FieldString(row["longitude"])

	var lat, lng float64
	if latRaw != "" && lngRaw != "" && latRaw != "null" && lngRaw != "null" {
		lat = parseCoordinate(latRaw)
		lng = parseCoordinate(lngRaw)
	} else if imp.GeocodeIfNecessary {
		if result, err := ri.geocoder.Geocode(ctx, el.Address.Formatted()); err == nil {
			lat = result.Latitude
			lng = result.Longitude
		}
	}

	if lat == 0 || lng == 0 {
		el.ModerationState = model.ModerationGeolocError
	}
	el.Geo = model.Coordinates{Latitude: lat, Longitude: lng}
}

// assignCategories rebuilds the element's category assignments from the
// row's taxonomy entries. Each resolved option brings its whole ancestor
// chain, deduplicated within the element. Returns true when the row must be
// rejected for lacking any category.
func (ri *RecordImporter) assignCategories(el *model.Element, row map[string]any, imp *model.Import) bool {
	el.ResetOptionValues()

	for _, label := range mapping.SplitLabels(row["taxonomy"]) {
		if label == "" {
			continue
		}
		entry, ok := ri.options.Lookup(label)
		if !ok && ri.createMissingOptions {
			entry = ri.createOption(label)
			ok = true
		}
		if !ok {
			continue
		}
		for _, optionID := range entry.IDAndParents {
			if !el.HasOption(optionID) {
				el.AddOptionValue(optionID, 0)
			}
		}
	}

	for _, optionID := range ri.optionIDsToAdd {
		if !el.HasOption(optionID) {
			el.AddOptionValue(optionID, 0)
		}
	}

	if len(el.OptionValues) == 0 {
		if imp.PreventImportIfNoCategories {
			return true
		}
		el.ModerationState = model.ModerationNoOptionProvided
	}
	return false
}

// createOption auto-creates a missing option under the configured parent and
// extends the option index immediately so later rows in the batch resolve it.
func (ri *RecordImporter) createOption(name string) mapping.OptionEntry {
	opt := model.Option{
		ID:       uuid.New().String(),
		Name:     strings.TrimSpace(name),
		ParentID: ri.parentOptionID,
	}
	ri.store.Options().Save(&opt)
	ri.options.Add(opt)

	ri.logger.Info("Created missing option",
		zap.String("name", opt.Name),
		zap.String("id", opt.ID),
		zap.String("parent", opt.ParentID))

	entry, _ := ri.options.Lookup(opt.ID)
	return entry
}

// assignImages resets the image list and refills it from the explicit images
// field, or failing that from any field whose name starts with "image".
func (ri *RecordImporter) assignImages(el *model.Element, row map[string]any) {
	el.ResetImages()

	var urls []string
	switch images := row["images"].(type) {
	case string:
		if images != "" {
			urls = strings.Split(images, ",")
		}
	case []string:
		urls = images
	case []any:
		for _, item := range images {
			urls = append(urls, mapping.FieldString(item))
		}
	}

	if len(urls) == 0 {
		keys := make([]string, 0, len(row))
		for key := range row {
			if strings.HasPrefix(key, "image") && key != "images" {
				keys = append(keys, key)
			}
		}
		sort.Strings(keys)
		for _, key := range keys {
			urls = append(urls, mapping.FieldString(row[key]))
		}
	}

	for _, url := range urls {
		if len(url) > 5 {
			el.AddExternalImage(url)
		}
	}
}

// assignCustomFields stores every non-canonical row field verbatim, minus
// the raw alias keys and the configured private fields.
func (ri *RecordImporter) assignCustomFields(el *model.Element, row map[string]any) {
	custom := make(map[string]any)
	for key, value := range row {
		if mapping.IsCoreField(key) {
			continue
		}
		if _, isAlias := mapping.RawAliases[key]; isAlias {
			continue
		}
		custom[key] = value
	}
	el.SetCustomData(custom, ri.privateFields)
}

// sourceKey picks the row's own source label, or the import's name when the
// row carries none or the "Unknown" placeholder.
func sourceKey(row map[string]any, imp *model.Import) string {
	key := mapping.FieldString(row["source"])
	if key == "" || key == "Unknown" {
		return imp.SourceName
	}
	return key
}

func parseCoordinate(v any) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(mapping.FieldString(v)), 64)
	if err != nil {
		return 0
	}
	return f
}
