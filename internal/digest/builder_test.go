package digest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/fbsweep/internal/types"
)

func testDoc() types.Document {
	return types.Document{
		Query:       "iso web designer",
		CollectedAt: time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC),
		Strategy:    "anchor",
		Posts: []types.PostRecord{
			{Author: "Jane Doe", ProfileURL: "https://www.facebook.com/jane", Permalink: "https://www.facebook.com/groups/1/posts/2", Text: "Need a web designer <asap>", Timestamp: "2h"},
			{Text: "Anyone know a good Shopify dev?"},
			{Author: "Bo", Text: "Logo help"},
		},
	}
}

func TestBuild(t *testing.T) {
	b, err := New(2)
	require.NoError(t, err)

	d, err := b.Build(testDoc(), nil)
	require.NoError(t, err)

	assert.Equal(t, `fbsweep: 2 posts for "iso web designer"`, d.Subject)
	assert.Equal(t, 2, d.Posts)

	assert.Contains(t, d.HTMLBody, `<a href="https://www.facebook.com/jane" class="author">Jane Doe</a>`)
	assert.Contains(t, d.HTMLBody, "Need a web designer &lt;asap&gt;")
	assert.Contains(t, d.HTMLBody, "Unknown author")
	assert.NotContains(t, d.HTMLBody, "Logo help")
	assert.Contains(t, d.HTMLBody, "2 of 3 posts · anchor strategy")

	assert.Contains(t, d.PlainBody, "1. Jane Doe: Need a web designer <asap>\n   2h\n   https://www.facebook.com/groups/1/posts/2\n")
	assert.Contains(t, d.PlainBody, "2. Unknown author: Anyone know a good Shopify dev?\n")
	assert.True(t, strings.HasSuffix(d.PlainBody, "2 of 3 posts"))
}

func TestBuildOnlyGivenPosts(t *testing.T) {
	b, err := New(10)
	require.NoError(t, err)

	doc := testDoc()
	d, err := b.Build(doc, doc.Posts[2:])
	require.NoError(t, err)
	assert.Equal(t, 1, d.Posts)
	assert.Contains(t, d.PlainBody, "1. Bo: Logo help")
	assert.Contains(t, d.PlainBody, "1 of 3 posts")
}

func TestBuildNoPosts(t *testing.T) {
	b, err := New(10)
	require.NoError(t, err)

	_, err = b.Build(types.Document{Query: "q"}, nil)
	assert.ErrorIs(t, err, ErrNoPosts)

	doc := testDoc()
	_, err = b.Build(doc, []types.PostRecord{})
	assert.ErrorIs(t, err, ErrNoPosts)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "ééééééé...", truncate(strings.Repeat("é", 20), 10))
}
