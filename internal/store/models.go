package store

import (
	"time"

	"github.com/ibeckermayer/fbsweep/internal/scraper"
)

// Run is one stored search run
type Run struct {
	ID          int64         `json:"id"`
	Query       string        `json:"query"`
	Strategy    string        `json:"strategy"`
	CollectedAt time.Time     `json:"collected_at"`
	Posts       int           `json:"posts"`
	NewPosts    int           `json:"new_posts"`
	Stats       scraper.Stats `json:"stats"`
}

// Post is a stored post. TextKey is the normalized text used for dedup
// across runs.
type Post struct {
	ID         int64     `json:"id"`
	RunID      int64     `json:"run_id"`
	Author     string    `json:"author"`
	ProfileURL string    `json:"profile_url"`
	Permalink  string    `json:"permalink"`
	Text       string    `json:"text"`
	Timestamp  string    `json:"timestamp"`
	TextKey    string    `json:"text_key"`
	FirstSeen  time.Time `json:"first_seen"`
}
