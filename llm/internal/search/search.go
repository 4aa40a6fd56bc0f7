// Package search dedups and progressively merges search activity records
// within one response.
package search

import (
	"reflect"
	"strings"

	"github.com/hrayleung/jin-llm/llm"
)

// QueryID is the stable id of a search for query.
func QueryID(query string) string {
	return "search:" + strings.ToLower(strings.TrimSpace(query))
}

// CitationID is the stable id of a citation of url.
func CitationID(url string) string { return "citation:" + strings.TrimSpace(url) }

// Tracker remembers what has been reported so far. The zero value is ready.
type Tracker struct {
	byID map[string]llm.SearchActivity
}

// Observe merges a into the record with the same id and returns the event to
// emit. Nothing is emitted when the merge changes nothing.
//
// Activities without an id get one derived from their query or URL.
func (t *Tracker) Observe(a llm.SearchActivity) (llm.StreamEvent, bool) {
	if a.ID == "" {
		switch {
		case a.Query != "":
			a.ID = QueryID(a.Query)
		case a.URL != "":
			a.ID = CitationID(a.URL)
		default:
			return llm.StreamEvent{}, false
		}
	}
	if t.byID == nil {
		t.byID = make(map[string]llm.SearchActivity)
	}
	prev, ok := t.byID[a.ID]
	if !ok {
		t.byID[a.ID] = a
		return llm.SearchEvent(a), true
	}
	if a.Query != "" && QueryID(a.Query) == QueryID(prev.Query) {
		// Keep the first-seen spelling.
		a.Query = ""
	}
	merged := prev.Merge(a)
	if reflect.DeepEqual(prev, merged) {
		return llm.StreamEvent{}, false
	}
	t.byID[a.ID] = merged
	return llm.SearchEvent(merged), true
}

// Len returns the number of distinct activities seen.
func (t *Tracker) Len() int { return len(t.byID) }
