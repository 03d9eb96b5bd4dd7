package asset

import "strings"

// Index maps a bare asset name to the filename stored in the category's cache
// directory. It is built once from a directory snapshot and never mutated.
type Index struct {
	entries map[string]string
}

// BuildIndex strips the last extension from every filename and keys the
// original filename by the result. A later filename that collapses to the
// same key replaces an earlier one. Filenames without a dot key by the whole
// name.
func BuildIndex(filenames []string) Index {
	entries := make(map[string]string, len(filenames))
	for _, filename := range filenames {
		entries[stripExtension(filename)] = filename
	}
	return Index{entries: entries}
}

func stripExtension(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 {
		return filename
	}
	return filename[:idx]
}

// Lookup returns the stored filename for name.
func (i Index) Lookup(name string) (string, bool) {
	filename, ok := i.entries[name]
	return filename, ok
}

// Len returns the number of indexed names.
func (i Index) Len() int {
	return len(i.entries)
}

// Entries returns a copy of the name -> filename mapping.
func (i Index) Entries() map[string]string {
	out := make(map[string]string, len(i.entries))
	for k, v := range i.entries {
		out[k] = v
	}
	return out
}

// Resolution is the cache decision for a single name.
type Resolution struct {
	Hit      bool
	Filename string
}

// Resolve is a pure lookup: a hit iff name is indexed. The filesystem is not
// consulted, so a stale index still reports a hit.
func Resolve(index Index, name string) Resolution {
	filename, ok := index.Lookup(name)
	if !ok {
		return Resolution{}
	}
	return Resolution{Hit: true, Filename: filename}
}

// Indexes holds one Index per category.
type Indexes map[Category]Index

// For returns the index for c, or an empty index when none was built.
func (ix Indexes) For(c Category) Index {
	if idx, ok := ix[c]; ok {
		return idx
	}
	return Index{}
}
