// pkg/model/log.go
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LogLevel classifies the overall outcome of an import run.
type LogLevel string

const (
	LogLevelSuccess LogLevel = "success"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// ImportLogData is the structured counts payload of one run.
type ImportLogData struct {
	ElementsCount            int64             `bson:"elementsCount" json:"elementsCount"`
	ElementsCreatedCount     int64             `bson:"elementsCreatedCount" json:"elementsCreatedCount"`
	ElementsUpdatedCount     int64             `bson:"elementsUpdatedCount" json:"elementsUpdatedCount"`
	ElementsNothingToDoCount int64             `bson:"elementsNothingToDoCount" json:"elementsNothingToDoCount"`
	ElementsMissingGeoCount  int64             `bson:"elementsMissingGeoCount" json:"elementsMissingGeoCount"`
	ElementsMissingTaxoCount int64             `bson:"elementsMissingTaxoCount" json:"elementsMissingTaxoCount"`
	ElementsNoCategoryCount  int64             `bson:"elementsPreventImportedNoTaxo" json:"elementsPreventImportedNoTaxo"`
	ElementsDeletedCount     int64             `bson:"elementsDeletedCount" json:"elementsDeletedCount"`
	ElementsErrorsCount      int64             `bson:"elementsErrorsCount" json:"elementsErrorsCount"`
	ErrorMessages            map[string]string `bson:"errorMessages,omitempty" json:"errorMessages,omitempty"`
}

// ImportLog is an immutable audit record appended to Import.Logs after each
// run. Never mutated after creation.
type ImportLog struct {
	ID        string        `bson:"_id,omitempty" json:"id"`
	Level     LogLevel      `bson:"level" json:"level"`
	Message   string        `bson:"message" json:"message"`
	Data      ImportLogData `bson:"data" json:"data"`
	CreatedAt time.Time     `bson:"createdAt" json:"createdAt"`
}

// NewImportLog creates a log entry stamped with the current time.
func NewImportLog(level LogLevel, message string, data ImportLogData) ImportLog {
	return ImportLog{
		ID:        uuid.New().String(),
		Level:     level,
		Message:   message,
		Data:      data,
		CreatedAt: time.Now(),
	}
}

// DisplayMessage renders the log as human readable status text.
func (l ImportLog) DisplayMessage() string {
	var sb strings.Builder
	sb.WriteString(l.Message)
	sb.WriteString(fmt.Sprintf(": %d elements", l.Data.ElementsCount))
	sb.WriteString(fmt.Sprintf(", %d created", l.Data.ElementsCreatedCount))
	sb.WriteString(fmt.Sprintf(", %d updated", l.Data.ElementsUpdatedCount))
	sb.WriteString(fmt.Sprintf(", %d unchanged", l.Data.ElementsNothingToDoCount))
	if l.Data.ElementsDeletedCount > 0 {
		sb.WriteString(fmt.Sprintf(", %d deleted", l.Data.ElementsDeletedCount))
	}
	if l.Data.ElementsMissingGeoCount > 0 {
		sb.WriteString(fmt.Sprintf(", %d without geolocation", l.Data.ElementsMissingGeoCount))
	}
	if l.Data.ElementsMissingTaxoCount > 0 {
		sb.WriteString(fmt.Sprintf(", %d without category", l.Data.ElementsMissingTaxoCount))
	}
	if l.Data.ElementsNoCategoryCount > 0 {
		sb.WriteString(fmt.Sprintf(", %d blocked for missing category", l.Data.ElementsNoCategoryCount))
	}
	if l.Data.ElementsErrorsCount > 0 {
		sb.WriteString(fmt.Sprintf(", %d errors", l.Data.ElementsErrorsCount))
	}
	return sb.String()
}
