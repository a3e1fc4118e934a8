// pkg/model/option.go
package model

// Option is a node in the category tree. Every option is owned by exactly one
// parent except the root.
type Option struct {
	ID       string `bson:"_id,omitempty" json:"id"`
	Name     string `bson:"name" json:"name"`
	CustomID string `bson:"customId,omitempty" json:"customId,omitempty"`
	ParentID string `bson:"parentId,omitempty" json:"parentId,omitempty"`

	// Marker rendering attributes, carried so auto-created options get
	// explicit defaults.
	UseIconForMarker  bool `bson:"useIconForMarker" json:"useIconForMarker"`
	UseColorForMarker bool `bson:"useColorForMarker" json:"useColorForMarker"`
}

// IsRoot reports whether the option is the root of the tree.
func (o Option) IsRoot() bool {
	return o.ParentID == ""
}
