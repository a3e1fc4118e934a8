// pkg/mapping/ontology.go
package mapping

import "sort"

// DropMarker is the mapping value that marks a source field for removal,
// alongside the empty string.
const DropMarker = "/"

// NormalizeAliases renames well-known raw field names onto their canonical
// counterparts, in place, without overwriting a field that already exists.
func NormalizeAliases(rows []map[string]any) {
	for _, row := range rows {
		for alias, canonical := range RawAliases {
			value, ok := row[alias]
			if !ok {
				continue
			}
			if _, exists := row[canonical]; !exists {
				row[canonical] = value
			}
			delete(row, alias)
		}
	}
}

// CollectOntology adds an entry for every field name seen across the rows
// that the mapping does not know yet. Canonical core fields map onto
// themselves, everything else starts unmapped (empty value, awaiting human
// input). Existing entries are never touched or removed: the mapping
// accumulates across runs.
func CollectOntology(rows []map[string]any, existing map[string]string) map[string]string {
	if existing == nil {
		existing = make(map[string]string)
	}
	for _, row := range rows {
		for field := range row {
			if _, known := existing[field]; known {
				continue
			}
			if IsCoreField(field) {
				existing[field] = field
			} else {
				existing[field] = ""
			}
		}
	}
	return existing
}

// ApplyOntology rewrites each row's field names through the mapping. An
// empty or drop-marker target deletes the source field; otherwise the field
// is renamed unless the target already exists. Fields absent from the
// mapping pass through untouched.
//
// Entries can interact: one entry's rename target may be another entry's
// source key. Drops are applied before renames, and renames in sorted key
// order, so the same mapping always normalizes a row the same way.
func ApplyOntology(rows []map[string]any, mapping map[string]string) {
	drops := make([]string, 0, len(mapping))
	renames := make([]string, 0, len(mapping))
	for source, target := range mapping {
		if target == "" || target == DropMarker {
			drops = append(drops, source)
		} else if source != target {
			renames = append(renames, source)
		}
	}
	sort.Strings(renames)

	for _, row := range rows {
		for _, source := range drops {
			delete(row, source)
		}
		for _, source := range renames {
			value, ok := row[source]
			if !ok {
				continue
			}
			target := mapping[source]
			if _, exists := row[target]; !exists {
				row[target] = value
			}
			delete(row, source)
		}
	}
}

// DropNamelessRows removes rows that have no name field after mapping: a
// row without a name cannot be reconciled or displayed.
func DropNamelessRows(rows []map[string]any) []map[string]any {
	kept := rows[:0]
	for _, row := range rows {
		if _, ok := row["name"]; ok {
			kept = append(kept, row)
		}
	}
	return kept
}

// FillMissingCoreFields adds an empty string for every canonical field a row
// lacks, so downstream code can read them unconditionally.
func FillMissingCoreFields(rows []map[string]any) {
	for _, row := range rows {
		for _, field := range CoreFields {
			if _, ok := row[field]; !ok {
				row[field] = ""
			}
		}
	}
}
