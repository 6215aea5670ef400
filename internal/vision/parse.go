package vision

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/ibeckermayer/fbsweep/internal/types"
)

// ErrMalformedResponse is returned when the service reply has no usable posts document.
var ErrMalformedResponse = errors.New("malformed extraction response")

var fenced = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\s*```")

// ParseResponse reads {"posts": [...]} out of a model reply. The reply may be
// wrapped in a markdown code block or surrounded by prose. Entries that are
// not objects are skipped; missing fields are empty.
func ParseResponse(raw string) ([]types.VisionPost, error) {
	doc := extractJSON(raw)
	if doc == "" || !gjson.Valid(doc) {
		return nil, fmt.Errorf("%w: not JSON", ErrMalformedResponse)
	}

	posts := gjson.Get(doc, "posts")
	if !posts.IsArray() {
		return nil, fmt.Errorf("%w: no posts array", ErrMalformedResponse)
	}

	out := []types.VisionPost{}
	for _, p := range posts.Array() {
		if !p.IsObject() {
			continue
		}
		out = append(out, types.VisionPost{
			Author:        p.Get("author").String(),
			Snippet:       p.Get("snippet").String(),
			Timestamp:     p.Get("timestamp").String(),
			PermalinkHint: p.Get("permalink_hint").String(),
		})
	}
	return out, nil
}

// extractJSON returns the JSON object inside text, handling markdown code blocks
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if m := fenced.FindStringSubmatch(text); len(m) > 1 {
		text = strings.TrimSpace(m[1])
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return ""
	}
	return text[start : end+1]
}
