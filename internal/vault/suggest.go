package vault

import (
	"github.com/sahilm/fuzzy"
)

// SuggestOptions narrows a suggestion query.
type SuggestOptions struct {
	// NotesOnly drops folders from the candidates, as when re-picking the
	// path of a file rule.
	NotesOnly bool
	// Limit caps the number of suggestions. Zero means no limit.
	Limit int
}

// entrySource adapts entries to fuzzy.Source.
type entrySource []Entry

func (s entrySource) String(i int) string {
	return s[i].DisplayPath()
}

func (s entrySource) Len() int {
	return len(s)
}

// Suggest ranks entries against query, best match first. An empty query
// keeps the listing order.
func Suggest(entries []Entry, query string, opts SuggestOptions) []Entry {
	candidates := entries
	if opts.NotesOnly {
		candidates = make([]Entry, 0, len(entries))
		for _, e := range entries {
			if !e.IsFolder() {
				candidates = append(candidates, e)
			}
		}
	}

	var out []Entry
	if query == "" {
		out = append(out, candidates...)
	} else {
		matches := fuzzy.FindFrom(query, entrySource(candidates))
		out = make([]Entry, 0, len(matches))
		for _, m := range matches {
			out = append(out, candidates[m.Index])
		}
	}

	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out
}

// Best returns the top suggestion for query, if any.
func Best(entries []Entry, query string, opts SuggestOptions) (Entry, bool) {
	opts.Limit = 1
	found := Suggest(entries, query, opts)
	if len(found) == 0 {
		return Entry{}, false
	}
	return found[0], true
}
