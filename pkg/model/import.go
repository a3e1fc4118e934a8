// pkg/model/import.go
package model

import "time"

// ImportState tracks where a run currently stands.
type ImportState string

const (
	StateDownloading ImportState = "downloading"
	StateInProgress  ImportState = "in_progress"
	StateCompleted   ImportState = "completed"
	StateErrors      ImportState = "errors"
	StateFailed      ImportState = "failed"
)

// Import describes one external data source and the reconciliation state
// learned about it across runs: the field and category mapping tables, the
// refresh schedule, the last run outcome and the historical logs.
type Import struct {
	ID         string `bson:"_id,omitempty" json:"id"`
	SourceName string `bson:"sourceName" json:"sourceName"`

	// URL and FilePath are mutually exclusive. A URL source is fetched as
	// JSON, a file source is parsed as CSV.
	URL      string `bson:"url,omitempty" json:"url,omitempty"`
	FilePath string `bson:"filePath,omitempty" json:"filePath,omitempty"`

	// OntologyMapping maps source field names to canonical field names.
	// Empty string or "/" means "drop this field".
	OntologyMapping map[string]string `bson:"ontologyMapping" json:"ontologyMapping"`
	// TaxonomyMapping maps source category labels to canonical option ids.
	// Empty string means "unmapped, needs human input".
	TaxonomyMapping map[string]string `bson:"taxonomyMapping" json:"taxonomyMapping"`

	CreateMissingOptions        bool     `bson:"createMissingOptions" json:"createMissingOptions"`
	ParentCategoryID            string   `bson:"parentCategoryToCreateOptions,omitempty" json:"parentCategoryToCreateOptions,omitempty"`
	OptionIDsToAddToEachElement []string `bson:"optionsToAddToEachElement,omitempty" json:"optionsToAddToEachElement,omitempty"`
	IDsToIgnore                 []string `bson:"idsToIgnore,omitempty" json:"idsToIgnore,omitempty"`
	GeocodeIfNecessary          bool     `bson:"geocodeIfNecessary" json:"geocodeIfNecessary"`
	PreventImportIfNoCategories bool     `bson:"preventImportIfNoCategories" json:"preventImportIfNoCategories"`

	// IsDynamic marks a recurring source whose vanished records are deleted
	// on each refresh. A non-dynamic source is fully replaced on each run.
	IsDynamic              bool      `bson:"isDynamicImport" json:"isDynamicImport"`
	RefreshFrequencyInDays int       `bson:"refreshFrequencyInDays,omitempty" json:"refreshFrequencyInDays,omitempty"`
	LastRefresh            time.Time `bson:"lastRefresh,omitempty" json:"lastRefresh,omitempty"`
	NextRefreshDate        time.Time `bson:"nextRefreshDate,omitempty" json:"nextRefreshDate,omitempty"`

	CurrState   ImportState `bson:"currState" json:"currState"`
	CurrMessage string      `bson:"currMessage" json:"currMessage"`
	Logs        []ImportLog `bson:"logs,omitempty" json:"logs,omitempty"`
}

// IsIgnored reports whether a source-native id is configured to be skipped.
func (imp *Import) IsIgnored(id string) bool {
	for _, ignored := range imp.IDsToIgnore {
		if ignored == id {
			return true
		}
	}
	return false
}

// UpdateNextRefreshDate schedules the next refresh from the last one.
func (imp *Import) UpdateNextRefreshDate() {
	if imp.RefreshFrequencyInDays <= 0 {
		return
	}
	base := imp.LastRefresh
	if base.IsZero() {
		base = time.Now()
	}
	imp.NextRefreshDate = base.Add(time.Duration(imp.RefreshFrequencyInDays) * 24 * time.Hour)
}

// AddLog appends an immutable run log entry.
func (imp *Import) AddLog(log ImportLog) {
	imp.Logs = append(imp.Logs, log)
}

// LastLog returns the most recent log entry, or nil if none exist.
func (imp *Import) LastLog() *ImportLog {
	if len(imp.Logs) == 0 {
		return nil
	}
	return &imp.Logs[len(imp.Logs)-1]
}

// Clone returns a deep copy of the import descriptor.
func (imp *Import) Clone() *Import {
	cp := *imp
	if imp.OntologyMapping != nil {
		cp.OntologyMapping = make(map[string]string, len(imp.OntologyMapping))
		for k, v := range imp.OntologyMapping {
			cp.OntologyMapping[k] = v
		}
	}
	if imp.TaxonomyMapping != nil {
		cp.TaxonomyMapping = make(map[string]string, len(imp.TaxonomyMapping))
		for k, v := range imp.TaxonomyMapping {
			cp.TaxonomyMapping[k] = v
		}
	}
	if imp.OptionIDsToAddToEachElement != nil {
		cp.OptionIDsToAddToEachElement = append([]string(nil), imp.OptionIDsToAddToEachElement...)
	}
	if imp.IDsToIgnore != nil {
		cp.IDsToIgnore = append([]string(nil), imp.IDsToIgnore...)
	}
	if imp.Logs != nil {
		cp.Logs = append([]ImportLog(nil), imp.Logs...)
	}
	return &cp
}
