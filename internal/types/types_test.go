package types

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestWriteJSONEmptyPostsIsArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Document{Query: "iso web designer"}.WriteJSON(&buf))

	out := buf.String()
	assert.True(t, gjson.Valid(out))
	assert.True(t, gjson.Get(out, "posts").IsArray())
	assert.Contains(t, out, `"posts": []`)
	assert.Equal(t, "iso web designer", gjson.Get(out, "query").String())
}

func TestWriteJSONFields(t *testing.T) {
	doc := NewDocument("q", "anchor", []PostRecord{
		{Author: "Jane", Text: "Need a web designer & logo"},
		{Author: "Bo", Text: "ISO logo designer", Permalink: "https://www.facebook.com/groups/1/posts/2", Timestamp: "Monday, 3 March 2025 at 10:00"},
	})

	var buf bytes.Buffer
	require.NoError(t, doc.WriteJSON(&buf))
	out := buf.String()

	first := gjson.Get(out, "posts.0")
	assert.Equal(t, "", first.Get("permalink").String())
	assert.True(t, first.Get("permalink").Exists())
	assert.False(t, first.Get("timestamp").Exists())
	assert.True(t, strings.Contains(out, "& logo"))

	second := gjson.Get(out, "posts.1")
	assert.Equal(t, "Monday, 3 March 2025 at 10:00", second.Get("timestamp").String())

	assert.True(t, strings.HasSuffix(gjson.Get(out, "collected_at").String(), "Z"))
}

func TestVisionPostRecord(t *testing.T) {
	r := VisionPost{Author: "A", Snippet: "text", Timestamp: "2h", PermalinkHint: "/posts/1"}.Record()
	assert.Equal(t, PostRecord{Author: "A", Text: "text", Timestamp: "2h", Permalink: "/posts/1"}, r)
}
