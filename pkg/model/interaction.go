// pkg/model/interaction.go
package model

import "time"

// InteractionType identifies what a user interaction record represents.
type InteractionType int

const (
	InteractionDeleted InteractionType = -1
	InteractionAdd     InteractionType = 0
	InteractionEdit    InteractionType = 1
	InteractionVote    InteractionType = 2
	InteractionReport  InteractionType = 3
	InteractionImport  InteractionType = 4
)

// UserInteraction records a user action on an element. Interactions
// referencing an element removed by a dynamic refresh are deleted with it.
type UserInteraction struct {
	ID        string          `bson:"_id,omitempty" json:"id"`
	Type      InteractionType `bson:"type" json:"type"`
	ElementID string          `bson:"elementId" json:"elementId"`
	UserEmail string          `bson:"userEmail,omitempty" json:"userEmail,omitempty"`
	CreatedAt time.Time       `bson:"createdAt" json:"createdAt"`
}
