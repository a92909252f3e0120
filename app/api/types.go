package api

import (
	"time"

	"github.com/avelichko/news-digest/app/database"
	"github.com/avelichko/news-digest/app/orgs"
	"github.com/avelichko/news-digest/app/runner"
)

// Dispatcher triggers job runs on operator request.
type Dispatcher interface {
	Dispatch(trigger runner.Trigger) (string, error)
	NextRun() time.Time
}

var _ Dispatcher = (*runner.Runner)(nil)

type Handler struct {
	runRepo    database.RunRepository
	seenRepo   database.SeenItemRepository
	orgsCache  *orgs.Cache
	dispatcher Dispatcher
}

type runResponse struct {
	ID            string     `json:"id"`
	Trigger       string     `json:"trigger"`
	Status        string     `json:"status"`
	Stage         string     `json:"stage,omitempty"`
	Error         string     `json:"error,omitempty"`
	ExitCode      int        `json:"exit_code"`
	ArticlesFound int        `json:"articles_found"`
	EmailSent     bool       `json:"email_sent"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}

type orgResponse struct {
	Name           string   `json:"name"`
	Keywords       []string `json:"keywords,omitempty"`
	Enabled        bool     `json:"enabled"`
	MaxArticles    int      `json:"max_articles"`
	ExtractContent bool     `json:"extract_content"`
}
