// pkg/importer/errors.go
package importer

import (
	"fmt"

	"github.com/geodir/ingress/pkg/mapping"
)

// rowErrorCollector aggregates row-level failures for the summary log:
// distinct error messages are deduplicated with an occurrence count and the
// latest offending row kept as context for diagnosis.
type rowErrorCollector struct {
	total    int
	rowIDs   []string
	counts   map[string]int
	messages map[string]string
}

func newRowErrorCollector() *rowErrorCollector {
	return &rowErrorCollector{
		counts:   make(map[string]int),
		messages: make(map[string]string),
	}
}

// record counts one failed row. The row's source-native id, when present, is
// remembered so the post-pass can exempt the element from deletion.
func (c *rowErrorCollector) record(row map[string]any, err error) {
	c.total++
	if id := mapping.FieldString(row["id"]); id != "" {
		c.rowIDs = append(c.rowIDs, id)
	}

	msg := err.Error()
	c.counts[msg]++
	c.messages[msg] = fmt.Sprintf("%s (x%d) CONTEXT: %v", msg, c.counts[msg], row)
}
