package search

import (
	"strings"
	"time"
)

// Article is the normalized result shape shared by all search sources.
type Article struct {
	Title       string
	Link        string
	Snippet     string
	Source      string
	PublishedAt time.Time
}

// Query describes one organization lookup.
type Query struct {
	Org      string
	Keywords []string
	Limit    int
}

// Terms builds the search string: the organization name followed by any
// configured keywords.
func (q Query) Terms() string {
	if len(q.Keywords) == 0 {
		return q.Org
	}
	return q.Org + " " + strings.Join(q.Keywords, " ")
}
