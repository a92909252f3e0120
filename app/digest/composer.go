package digest

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/avelichko/news-digest/app/search"
)

// OrgDigest groups the fresh articles found for one organization.
type OrgDigest struct {
	Org      string
	Articles []search.Article
}

const digestTemplate = `<html>
<body style="font-family: Arial, sans-serif; color: #222;">
<h2>Daily News Summary</h2>
<p>{{.Date}}</p>
{{range .Sections}}
<h3>{{.Org}}</h3>
<ul>
{{range .Articles}}
  <li style="margin-bottom: 10px;">
    <a href="{{.Link}}">{{.Title}}</a>
    {{if .Source}}<span style="color: #888;"> — {{.Source}}</span>{{end}}
    {{if .Snippet}}<br/><span style="font-size: 13px;">{{.Snippet}}</span>{{end}}
  </li>
{{end}}
</ul>
{{end}}
</body>
</html>`

// Composer renders the HTML digest body and subject line.
type Composer struct {
	tmpl *template.Template
}

func NewComposer() *Composer {
	return &Composer{
		tmpl: template.Must(template.New("digest").Parse(digestTemplate)),
	}
}

type digestData struct {
	Date     string
	Sections []OrgDigest
}

func (c *Composer) Run(sections []OrgDigest, now time.Time) (string, string, error) {
	if len(sections) == 0 {
		return "", "", fmt.Errorf("nothing to compose: no sections")
	}

	data := digestData{
		Date:     now.UTC().Format("Monday, January 2, 2006"),
		Sections: sections,
	}

	var body strings.Builder
	if err := c.tmpl.Execute(&body, data); err != nil {
		return "", "", fmt.Errorf("failed to render digest template: %w", err)
	}

	subject := fmt.Sprintf("Daily News Summary - %s", now.UTC().Format("Jan 2, 2006"))

	return subject, body.String(), nil
}
