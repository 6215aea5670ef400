package types

import (
	"encoding/json"
	"io"
	"time"
)

// PostRecord is one post pulled from the search results feed
type PostRecord struct {
	Author     string `json:"author"`
	ProfileURL string `json:"profile_url"`
	Permalink  string `json:"permalink"`
	Text       string `json:"text"`
	Timestamp  string `json:"timestamp,omitempty"` // Only set when the hover tooltip resolved
}

// VisionPost is a post as reported by the external extraction service
type VisionPost struct {
	Author        string `json:"author"`
	Snippet       string `json:"snippet"`
	Timestamp     string `json:"timestamp"`
	PermalinkHint string `json:"permalink_hint"`
}

// Record converts the service's shape into a PostRecord.
// Normalization of the text happens on insertion into the result set.
func (v VisionPost) Record() PostRecord {
	return PostRecord{
		Author:    v.Author,
		Permalink: v.PermalinkHint,
		Text:      v.Snippet,
		Timestamp: v.Timestamp,
	}
}

// Document is the output of one run
type Document struct {
	Query       string       `json:"query"`
	CollectedAt time.Time    `json:"collected_at"`
	Strategy    string       `json:"strategy,omitempty"`
	Posts       []PostRecord `json:"posts"`
}

// NewDocument stamps a document with the current UTC time.
func NewDocument(query, strategy string, posts []PostRecord) Document {
	if posts == nil {
		posts = []PostRecord{}
	}
	return Document{
		Query:       query,
		CollectedAt: time.Now().UTC().Truncate(time.Second),
		Strategy:    strategy,
		Posts:       posts,
	}
}

// WriteJSON writes the document as indented JSON.
// Posts is always emitted as an array, never null.
func (d Document) WriteJSON(w io.Writer) error {
	if d.Posts == nil {
		d.Posts = []PostRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(d)
}
