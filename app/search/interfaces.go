package search

import (
	"context"
)

// Source is a single news search backend. Sources are tried in order by
// the digest pipeline; the first one returning articles wins.
type Source interface {
	Name() string
	Search(ctx context.Context, query Query) ([]Article, error)
}
