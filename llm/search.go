package llm

import "maps"

type SearchActivityType string

const (
	SearchTypeSearch      SearchActivityType = "search"
	SearchTypeOpenPage    SearchActivityType = "open_page"
	SearchTypeWebSearch   SearchActivityType = "web_search"
	SearchTypeURLCitation SearchActivityType = "url_citation"
	SearchTypeFindInPage  SearchActivityType = "find_in_page"
)

type SearchStatus string

const (
	SearchInProgress SearchStatus = "in_progress"
	SearchSearching  SearchStatus = "searching"
	SearchCompleted  SearchStatus = "completed"
)

// SearchSource is one page a search surfaced.
type SearchSource struct {
	URL     string `json:"url"`
	Title   string `json:"title,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}

// SearchActivity is a normalized web-search or citation action. Records with
// the same ID are progressively merged.
type SearchActivity struct {
	ID     string             `json:"id"`
	Type   SearchActivityType `json:"type"`
	Status SearchStatus       `json:"status"`

	Query   string         `json:"query,omitempty"`
	URL     string         `json:"url,omitempty"`
	Title   string         `json:"title,omitempty"`
	Sources []SearchSource `json:"sources,omitempty"`

	// Arguments holds any extra provider fields.
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Merge applies later onto a. Set fields of later win; fields later leaves
// empty keep their earlier value. Sources are unioned by URL.
func (a SearchActivity) Merge(later SearchActivity) SearchActivity {
	out := a
	if later.Type != "" {
		out.Type = later.Type
	}
	if later.Status != "" {
		out.Status = later.Status
	}
	if later.Query != "" {
		out.Query = later.Query
	}
	if later.URL != "" {
		out.URL = later.URL
	}
	if later.Title != "" {
		out.Title = later.Title
	}
	if len(later.Sources) > 0 {
		seen := make(map[string]int, len(out.Sources))
		merged := append([]SearchSource(nil), out.Sources...)
		for i, s := range merged {
			seen[s.URL] = i
		}
		for _, s := range later.Sources {
			if i, ok := seen[s.URL]; ok {
				if s.Title != "" {
					merged[i].Title = s.Title
				}
				if s.Snippet != "" {
					merged[i].Snippet = s.Snippet
				}
				continue
			}
			seen[s.URL] = len(merged)
			merged = append(merged, s)
		}
		out.Sources = merged
	}
	if len(later.Arguments) > 0 {
		args := maps.Clone(out.Arguments)
		if args == nil {
			args = make(map[string]any, len(later.Arguments))
		}
		maps.Copy(args, later.Arguments)
		out.Arguments = args
	}
	return out
}
