// pkg/mapping/taxonomy.go
package mapping

// CollectTaxonomy adds an entry for every category label seen across the
// rows that the mapping does not know yet, resolving each new label against
// the option index. Labels that resolve map to the option id, the rest start
// unmapped (empty value). Existing entries are never touched or removed.
func CollectTaxonomy(rows []map[string]any, existing map[string]string, index *OptionIndex) map[string]string {
	if existing == nil {
		existing = make(map[string]string)
	}
	for _, row := range rows {
		for _, label := range SplitLabels(row["taxonomy"]) {
			if label == "" {
				continue
			}
			if _, known := existing[label]; known {
				continue
			}
			if entry, ok := index.Lookup(label); ok {
				existing[label] = entry.ID
			} else {
				existing[label] = ""
			}
		}
	}
	return existing
}

// ApplyTaxonomy replaces each row's category labels with the mapped option
// ids, in stable order. Unmapped labels become empty strings, unless
// keepUnmapped is set, in which case the raw label survives so the importer
// can auto-create the missing option. Duplicates are kept; deduplication
// happens when options are assigned to an element.
func ApplyTaxonomy(rows []map[string]any, mapping map[string]string, keepUnmapped bool) {
	for _, row := range rows {
		labels := SplitLabels(row["taxonomy"])
		mapped := make([]string, len(labels))
		for i, label := range labels {
			if id, ok := mapping[label]; ok && id != "" {
				mapped[i] = id
			} else if keepUnmapped {
				mapped[i] = label
			}
		}
		row["taxonomy"] = mapped
	}
}
