// pkg/model/element.go
package model

import (
	"strings"
	"time"
)

// ElementStatus is the lifecycle status of an Element. The numeric values
// form a total order used by range queries: anything greater than
// StatusDeleted is considered alive.
type ElementStatus int

const (
	// StatusDeleted marks an element removed by a moderator or a dynamic
	// refresh. Terminal: never overwritten by an import.
	StatusDeleted ElementStatus = -4
	// StatusDynamicImportTemp tags elements of a dynamic source at the start
	// of a refresh: "seen in a previous run, not yet confirmed in this one".
	StatusDynamicImportTemp ElementStatus = -3
	// StatusNone is the zero value for elements that have not been assigned
	// a status yet.
	StatusNone ElementStatus = 0
	// StatusAddedByAdmin is given to elements created by a one-shot import.
	StatusAddedByAdmin ElementStatus = 4
	// StatusDynamicImport is given to elements owned by a recurring source.
	StatusDynamicImport ElementStatus = 5
)

// String returns a readable name for the status.
func (s ElementStatus) String() string {
	switch s {
	case StatusDeleted:
		return "Deleted"
	case StatusDynamicImportTemp:
		return "DynamicImportTemp"
	case StatusNone:
		return "None"
	case StatusAddedByAdmin:
		return "AddedByAdmin"
	case StatusDynamicImport:
		return "DynamicImport"
	default:
		return "Unknown"
	}
}

// ModerationState flags a data-quality issue requiring human review.
type ModerationState int

const (
	// ModerationNotNeeded means no review is pending; also used as the
	// "recompute me" reset value after a no-op refresh.
	ModerationNotNeeded ModerationState = 0
	// ModerationOK means a moderator reviewed the element and found it fine.
	ModerationOK ModerationState = 1
	// ModerationGeolocError means the element ended up without usable
	// coordinates.
	ModerationGeolocError ModerationState = 2
	// ModerationNoOptionProvided means no category could be resolved for the
	// element.
	ModerationNoOptionProvided ModerationState = 3
)

// Coordinates is a WGS84 point.
type Coordinates struct {
	Latitude  float64 `bson:"latitude" json:"latitude"`
	Longitude float64 `bson:"longitude" json:"longitude"`
}

// PostalAddress holds the four address parts carried by imported rows.
type PostalAddress struct {
	StreetAddress   string `bson:"streetAddress" json:"streetAddress"`
	AddressLocality string `bson:"addressLocality" json:"addressLocality"`
	PostalCode      string `bson:"postalCode" json:"postalCode"`
	AddressCountry  string `bson:"addressCountry" json:"addressCountry"`
}

// Formatted joins the non-empty address parts for display and geocoding.
func (a PostalAddress) Formatted() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{a.StreetAddress, a.PostalCode, a.AddressLocality, a.AddressCountry} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// ElementImage references one image attached to an element. Imports only
// produce externally hosted references.
type ElementImage struct {
	ExternalImageURL string `bson:"externalImageUrl" json:"externalImageUrl"`
}

// OptionValue assigns one taxonomy Option to an Element, with a display index.
type OptionValue struct {
	OptionID string `bson:"optionId" json:"optionId"`
	Index    int    `bson:"index" json:"index"`
}

// Element is the canonical geolocated directory entry.
type Element struct {
	ID              string          `bson:"_id,omitempty" json:"id"`
	OldID           string          `bson:"oldId" json:"oldId"`
	Name            string          `bson:"name" json:"name"`
	Address         PostalAddress   `bson:"address" json:"address"`
	Geo             Coordinates     `bson:"geo" json:"geo"`
	OptionValues    []OptionValue   `bson:"optionValues" json:"optionValues"`
	Images          []ElementImage  `bson:"images" json:"images"`
	SourceID        string          `bson:"sourceId" json:"sourceId"`
	SourceKey       string          `bson:"sourceKey" json:"sourceKey"`
	Status          ElementStatus   `bson:"status" json:"status"`
	ModerationState ModerationState `bson:"moderationState" json:"moderationState"`
	CustomData      map[string]any  `bson:"data,omitempty" json:"data,omitempty"`
	UserOwnerEmail  string          `bson:"userOwnerEmail,omitempty" json:"userOwnerEmail,omitempty"`
	CreatedAt       time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time       `bson:"updatedAt" json:"updatedAt"`
}

// SetCustomData stores custom fields on the element, dropping keys listed as
// private.
func (e *Element) SetCustomData(data map[string]any, privateFields []string) {
	if len(data) == 0 {
		e.CustomData = nil
		return
	}
	filtered := make(map[string]any, len(data))
	for key, value := range data {
		private := false
		for _, p := range privateFields {
			if key == p {
				private = true
				break
			}
		}
		if !private {
			filtered[key] = value
		}
	}
	e.CustomData = filtered
}

// CustomProperty returns a custom field value, or nil when absent.
func (e *Element) CustomProperty(key string) any {
	if e.CustomData == nil {
		return nil
	}
	return e.CustomData[key]
}

// ResetOptionValues clears all category assignments.
func (e *Element) ResetOptionValues() {
	e.OptionValues = nil
}

// AddOptionValue appends a category assignment. Uniqueness of the option id
// within one element is the caller's responsibility.
func (e *Element) AddOptionValue(optionID string, index int) {
	e.OptionValues = append(e.OptionValues, OptionValue{OptionID: optionID, Index: index})
}

// HasOption reports whether the element already carries the given option id.
func (e *Element) HasOption(optionID string) bool {
	for _, ov := range e.OptionValues {
		if ov.OptionID == optionID {
			return true
		}
	}
	return false
}

// ResetImages clears the image list.
func (e *Element) ResetImages() {
	e.Images = nil
}

// AddExternalImage appends an externally hosted image reference.
func (e *Element) AddExternalImage(url string) {
	e.Images = append(e.Images, ElementImage{ExternalImageURL: url})
}

// Clone returns a deep copy of the element.
func (e *Element) Clone() *Element {
	cp := *e
	if e.OptionValues != nil {
		cp.OptionValues = append([]OptionValue(nil), e.OptionValues...)
	}
	if e.Images != nil {
		cp.Images = append([]ElementImage(nil), e.Images...)
	}
	if e.CustomData != nil {
		cp.CustomData = make(map[string]any, len(e.CustomData))
		for k, v := range e.CustomData {
			cp.CustomData[k] = v
		}
	}
	return &cp
}
