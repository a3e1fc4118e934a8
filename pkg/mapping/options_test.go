// pkg/mapping/options_test.go
package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geodir/ingress/pkg/model"
)

func testOptions() []model.Option {
	return []model.Option{
		{ID: "root", Name: "All Categories"},
		{ID: "food", Name: "Food", ParentID: "root"},
		{ID: "vegan", Name: "Vegan", ParentID: "food", CustomID: "VG"},
		{ID: "crafts", Name: "Crafts", ParentID: "root"},
	}
}

func TestOptionIndexLookup(t *testing.T) {
	index := BuildOptionIndex(testOptions())

	// By name, case and accents aside.
	entry, ok := index.Lookup("Vegan")
	require.True(t, ok)
	assert.Equal(t, "vegan", entry.ID)

	// By raw id.
	entry, ok = index.Lookup("crafts")
	require.True(t, ok)
	assert.Equal(t, "crafts", entry.ID)

	// By custom alias.
	entry, ok = index.Lookup("VG")
	require.True(t, ok)
	assert.Equal(t, "vegan", entry.ID)

	// By name prefixed with the parent path.
	entry, ok = index.Lookup("Food Vegan")
	require.True(t, ok)
	assert.Equal(t, "vegan", entry.ID)

	_, ok = index.Lookup("plumbing")
	assert.False(t, ok)
}

func TestOptionIndexAncestors(t *testing.T) {
	index := BuildOptionIndex(testOptions())

	entry, ok := index.Lookup("vegan")
	require.True(t, ok)
	assert.Equal(t, []string{"vegan", "food", "root"}, entry.IDAndParents)

	entry, ok = index.Lookup("root")
	require.True(t, ok)
	assert.Equal(t, []string{"root"}, entry.IDAndParents)
}

func TestOptionIndexAdd(t *testing.T) {
	index := BuildOptionIndex(testOptions())

	index.Add(model.Option{ID: "yoga", Name: "Yoga Studios", ParentID: "root"})

	entry, ok := index.Lookup("yoga studios")
	require.True(t, ok)
	assert.Equal(t, []string{"yoga", "root"}, entry.IDAndParents)
}

func TestOptionIndexRootID(t *testing.T) {
	assert.Equal(t, "root", BuildOptionIndex(testOptions()).RootID())
	assert.Equal(t, "", BuildOptionIndex(nil).RootID())
}

func TestOptionIndexBrokenParentChain(t *testing.T) {
	index := BuildOptionIndex([]model.Option{
		{ID: "orphan", Name: "Orphan", ParentID: "missing"},
	})

	entry, ok := index.Lookup("orphan")
	require.True(t, ok)
	assert.Equal(t, []string{"orphan"}, entry.IDAndParents)
}

func TestOptionIndexCyclicParentChain(t *testing.T) {
	index := BuildOptionIndex([]model.Option{
		{ID: "a", Name: "A", ParentID: "b"},
		{ID: "b", Name: "B", ParentID: "a"},
	})

	entry, ok := index.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, entry.IDAndParents)
}
