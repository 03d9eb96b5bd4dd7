package asset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildIndex(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		filenames []string
		expected  map[string]string
	}{
		{"strips extensions", []string{"Foo.png", "Bar.jpg"}, map[string]string{"Foo": "Foo.png", "Bar": "Bar.jpg"}},
		{"empty input", []string{}, map[string]string{}},
		{"nil input", nil, map[string]string{}},
		{"last write wins", []string{"Foo.png", "Foo.jpg"}, map[string]string{"Foo": "Foo.jpg"}},
		{"only last extension", []string{"Kaom's Heart.old.png"}, map[string]string{"Kaom's Heart.old": "Kaom's Heart.old.png"}},
		{"no extension", []string{"README"}, map[string]string{"README": "README"}},
		{"case sensitive", []string{"foo.png", "Foo.png"}, map[string]string{"foo": "foo.png", "Foo": "Foo.png"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			idx := BuildIndex(tc.filenames)
			assert.Equal(t, tc.expected, idx.Entries())
			assert.Equal(t, len(tc.expected), idx.Len())
		})
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	idx := BuildIndex([]string{"Acrobatics.png"})

	hit := Resolve(idx, "Acrobatics")
	require.True(t, hit.Hit)
	assert.Equal(t, "Acrobatics.png", hit.Filename)

	miss := Resolve(idx, "Iron Reflexes")
	assert.False(t, miss.Hit)
	assert.Empty(t, miss.Filename)

	assert.False(t, Resolve(Index{}, "Acrobatics").Hit)
}

func TestIndexEntriesIsACopy(t *testing.T) {
	t.Parallel()

	idx := BuildIndex([]string{"Foo.png"})
	entries := idx.Entries()
	entries["Bar"] = "Bar.png"

	_, ok := idx.Lookup("Bar")
	assert.False(t, ok)
}

func TestIndexesFor(t *testing.T) {
	t.Parallel()

	ix := Indexes{CategoryItem: BuildIndex([]string{"Tabula Rasa.png"})}
	_, ok := ix.For(CategoryItem).Lookup("Tabula Rasa")
	assert.True(t, ok)
	assert.Zero(t, ix.For(CategorySkill).Len())
}
