package digest

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/ibeckermayer/fbsweep/internal/types"
)

// ErrNoPosts is returned when there is nothing to report.
var ErrNoPosts = errors.New("no posts to include in digest")

// Builder creates run summaries from collected posts
type Builder struct {
	maxPosts int
	template *template.Template
}

// New creates a new digest builder
func New(maxPosts int) (*Builder, error) {
	tmpl, err := template.New("digest").Parse(defaultTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	if maxPosts < 1 {
		maxPosts = 20
	}

	return &Builder{
		maxPosts: maxPosts,
		template: tmpl,
	}, nil
}

// Digest represents a compiled summary ready for sending
type Digest struct {
	Subject   string
	HTMLBody  string
	PlainBody string
	Posts     int
	CreatedAt time.Time
}

// DigestData is the template data structure
type DigestData struct {
	Title string
	Date  string
	Posts []PostData
	Stats StatsData
}

// PostData represents a post in the digest template
type PostData struct {
	Author    string
	Profile   string
	Text      string
	Timestamp string
	URL       string
}

// StatsData contains digest statistics
type StatsData struct {
	TotalCollected int
	TotalIncluded  int
	Strategy       string
}

// Build creates a digest from a run document. When posts is non-nil only
// those posts are listed (for example the ones not seen by earlier runs).
func (b *Builder) Build(doc types.Document, posts []types.PostRecord) (*Digest, error) {
	if posts == nil {
		posts = doc.Posts
	}
	if len(posts) == 0 {
		return nil, ErrNoPosts
	}

	// Keep collection order, it follows the feed
	if len(posts) > b.maxPosts {
		posts = posts[:b.maxPosts]
	}

	now := time.Now()
	collected := doc.CollectedAt
	if collected.IsZero() {
		collected = now
	}
	data := DigestData{
		Title: fmt.Sprintf("Facebook posts for %q", doc.Query),
		Date:  collected.Local().Format("Monday, January 2 15:04"),
		Posts: make([]PostData, len(posts)),
		Stats: StatsData{
			TotalCollected: len(doc.Posts),
			TotalIncluded:  len(posts),
			Strategy:       doc.Strategy,
		},
	}

	for i, p := range posts {
		author := p.Author
		if author == "" {
			author = "Unknown author"
		}
		data.Posts[i] = PostData{
			Author:    author,
			Profile:   p.ProfileURL,
			Text:      truncate(p.Text, 280),
			Timestamp: p.Timestamp,
			URL:       p.Permalink,
		}
	}

	// Render HTML
	var htmlBuf bytes.Buffer
	if err := b.template.Execute(&htmlBuf, data); err != nil {
		return nil, fmt.Errorf("failed to render template: %w", err)
	}

	return &Digest{
		Subject:   fmt.Sprintf("fbsweep: %d posts for %q", len(posts), doc.Query),
		HTMLBody:  htmlBuf.String(),
		PlainBody: buildPlainText(data),
		Posts:     len(posts),
		CreatedAt: now,
	}, nil
}

// truncate cuts on rune boundaries
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

func buildPlainText(data DigestData) string {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("%s\n%s\n\n", data.Title, data.Date))

	for i, p := range data.Posts {
		buf.WriteString(fmt.Sprintf("%d. %s: %s\n", i+1, p.Author, p.Text))
		if p.Timestamp != "" {
			buf.WriteString(fmt.Sprintf("   %s\n", p.Timestamp))
		}
		if p.URL != "" {
			buf.WriteString(fmt.Sprintf("   %s\n", p.URL))
		}
		buf.WriteString("\n")
	}

	buf.WriteString(fmt.Sprintf("%d of %d posts", data.Stats.TotalIncluded, data.Stats.TotalCollected))
	return buf.String()
}

const defaultTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; background: #f0f2f5; }
        .container { background: white; border-radius: 8px; padding: 20px; }
        h1 { color: #1877f2; margin-bottom: 5px; font-size: 20px; }
        .date { color: #65676b; margin-bottom: 20px; }
        .post { border-bottom: 1px solid #e4e6eb; padding: 15px 0; }
        .post:last-child { border-bottom: none; }
        .author { font-weight: bold; color: #050505; text-decoration: none; }
        .time { color: #65676b; font-size: 13px; }
        .content { margin: 10px 0; line-height: 1.4; white-space: pre-wrap; }
        .link { color: #1877f2; text-decoration: none; }
        .footer { margin-top: 20px; padding-top: 15px; border-top: 1px solid #e4e6eb; color: #8a8d91; font-size: 12px; text-align: center; }
    </style>
</head>
<body>
    <div class="container">
        <h1>{{.Title}}</h1>
        <div class="date">{{.Date}}</div>

        {{range .Posts}}
        <div class="post">
            {{if .Profile}}<a href="{{.Profile}}" class="author">{{.Author}}</a>{{else}}<span class="author">{{.Author}}</span>{{end}}
            {{if .Timestamp}}<div class="time">{{.Timestamp}}</div>{{end}}
            <div class="content">{{.Text}}</div>
            {{if .URL}}<a href="{{.URL}}" class="link">View on Facebook →</a>{{end}}
        </div>
        {{end}}

        <div class="footer">
            {{.Stats.TotalIncluded}} of {{.Stats.TotalCollected}} posts{{if .Stats.Strategy}} · {{.Stats.Strategy}} strategy{{end}} · Generated by fbsweep
        </div>
    </div>
</body>
</html>`
