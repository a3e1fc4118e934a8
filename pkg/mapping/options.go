// pkg/mapping/options.go
package mapping

import (
	"strings"

	"github.com/geodir/ingress/pkg/model"
	"github.com/geodir/ingress/pkg/slug"
)

// OptionEntry is the lookup payload for one taxonomy option: its id plus the
// ancestor chain (self first, root last). Assigning a leaf category assigns
// every ancestor too.
type OptionEntry struct {
	ID           string
	IDAndParents []string
}

// OptionIndex resolves free-text category labels to taxonomy options. Every
// option is keyed four ways: slug of the name with its parent path, slug of
// the bare name, the raw id, and the slug of the custom alias when set.
type OptionIndex struct {
	entries map[string]OptionEntry
	byID    map[string]model.Option
}

// BuildOptionIndex indexes the full option tree.
func BuildOptionIndex(options []model.Option) *OptionIndex {
	ix := &OptionIndex{
		entries: make(map[string]OptionEntry),
		byID:    make(map[string]model.Option, len(options)),
	}
	for _, opt := range options {
		ix.byID[opt.ID] = opt
	}
	for _, opt := range options {
		ix.add(opt)
	}
	return ix
}

// Add indexes one more option, typically right after auto-creating it, so
// later rows in the same batch resolve it.
func (ix *OptionIndex) Add(opt model.Option) {
	ix.byID[opt.ID] = opt
	ix.add(opt)
}

func (ix *OptionIndex) add(opt model.Option) {
	entry := OptionEntry{
		ID:           opt.ID,
		IDAndParents: ix.idAndParents(opt),
	}
	ix.entries[slug.Slugify(ix.nameWithParent(opt))] = entry
	ix.entries[slug.Slugify(opt.Name)] = entry
	ix.entries[opt.ID] = entry
	if opt.CustomID != "" {
		ix.entries[slug.Slugify(opt.CustomID)] = entry
	}
}

// Lookup resolves a label, trying the raw form first (so canonical option
// ids resolve verbatim) and the slug form second.
func (ix *OptionIndex) Lookup(label string) (OptionEntry, bool) {
	if entry, ok := ix.entries[label]; ok {
		return entry, true
	}
	entry, ok := ix.entries[slug.Slugify(label)]
	return entry, ok
}

// RootID returns the id of the tree root, or an empty string when the index
// holds no root.
func (ix *OptionIndex) RootID() string {
	for id, opt := range ix.byID {
		if opt.IsRoot() {
			return id
		}
	}
	return ""
}

// idAndParents walks the parent chain, self first. A broken or cyclic chain
// stops silently.
func (ix *OptionIndex) idAndParents(opt model.Option) []string {
	ids := []string{opt.ID}
	seen := map[string]struct{}{opt.ID: {}}
	current := opt
	for current.ParentID != "" {
		parent, ok := ix.byID[current.ParentID]
		if !ok {
			break
		}
		if _, cyclic := seen[parent.ID]; cyclic {
			break
		}
		ids = append(ids, parent.ID)
		seen[parent.ID] = struct{}{}
		current = parent
	}
	return ids
}

// nameWithParent prefixes the option name with its immediate parent's name,
// disambiguating leaves that share a name across branches.
func (ix *OptionIndex) nameWithParent(opt model.Option) string {
	if parent, ok := ix.byID[opt.ParentID]; ok {
		return strings.Join([]string{parent.Name, opt.Name}, " ")
	}
	return opt.Name
}
