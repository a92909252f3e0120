package digest

import (
	"strings"
	"testing"
	"time"

	"github.com/avelichko/news-digest/app/search"
)

func TestComposer_Run(t *testing.T) {
	composer := NewComposer()
	now := time.Date(2026, 3, 2, 4, 0, 0, 0, time.UTC)

	sections := []OrgDigest{
		{
			Org: "Acme Corp",
			Articles: []search.Article{
				{Title: "Acme raises series B", Link: "https://example.com/1", Snippet: "Funding round details", Source: "Example Wire"},
				{Title: "Acme expands to Europe", Link: "https://example.com/2"},
			},
		},
		{
			Org: "Globex",
			Articles: []search.Article{
				{Title: "Globex quarterly results", Link: "https://example.com/3", Source: "Finance Daily"},
			},
		},
	}

	subject, body, err := composer.Run(sections, now)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !strings.Contains(subject, "Daily News Summary") {
		t.Errorf("Unexpected subject: %s", subject)
	}
	if !strings.Contains(subject, "Mar 2, 2026") {
		t.Errorf("Expected date in subject, got: %s", subject)
	}

	for _, expected := range []string{
		"Acme Corp",
		"Globex",
		"Acme raises series B",
		`href="https://example.com/1"`,
		"Funding round details",
		"Example Wire",
		"Monday, March 2, 2026",
	} {
		if !strings.Contains(body, expected) {
			t.Errorf("Expected body to contain %q", expected)
		}
	}
}

func TestComposer_EscapesHTML(t *testing.T) {
	composer := NewComposer()

	sections := []OrgDigest{
		{
			Org: "Acme <script>alert(1)</script>",
			Articles: []search.Article{
				{Title: "Title with <b>markup</b>", Link: "https://example.com/1"},
			},
		},
	}

	_, body, err := composer.Run(sections, time.Now())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if strings.Contains(body, "<script>alert(1)</script>") {
		t.Error("Expected org name to be HTML-escaped")
	}
	if strings.Contains(body, "<b>markup</b>") {
		t.Error("Expected article title to be HTML-escaped")
	}
}

func TestComposer_EmptySections(t *testing.T) {
	composer := NewComposer()

	if _, _, err := composer.Run(nil, time.Now()); err == nil {
		t.Error("Expected error for empty sections")
	}
}
