package view

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixture = `<html><body>
<div role="article" data-fbs-x="10.4" data-fbs-y="200.6" data-fbs-id="fbs1">
  <a role="link" href="/jane">  Jane
     Doe </a>
  <div dir="auto"><div>Need a</div><div>web designer</div></div>
  <span>Like</span>
  <script>var x = "ignored";</script>
</div>
<div role="article"><span aria-label="Comment">Comment</span></div>
</body></html>`

func parse(t *testing.T) *Snapshot {
	t.Helper()
	s, err := ParseString(fixture)
	require.NoError(t, err)
	return s
}

func TestTextNormalizesAndSeparatesBlocks(t *testing.T) {
	s := parse(t)
	post := s.FindAll(`[role="article"]`)[0]

	assert.Equal(t, "Jane Doe", post.Find(`a[role="link"]`).Text().UnwrapOr(""))
	assert.Equal(t, "Need a web designer", SafeText(post.Find(`div[dir="auto"]`)))
	assert.NotContains(t, SafeText(post), "ignored")
}

func TestSafeAccessorsOnAbsent(t *testing.T) {
	s := parse(t)
	missing := s.Root().Find(".does-not-exist")

	assert.False(t, missing.Present())
	assert.Equal(t, "", SafeText(missing))
	assert.Equal(t, "", SafeAttr(missing, "href"))
	assert.True(t, errors.Is(missing.Text().Err(), ErrAbsent))
	assert.False(t, missing.Find("a").Present())
	assert.Nil(t, missing.FindAll("a"))
	assert.False(t, missing.Closest("div").Present())

	var zero Element
	assert.Equal(t, "", zero.OwnText())
	assert.False(t, zero.Box().IsOk())
}

func TestAttr(t *testing.T) {
	s := parse(t)
	link := s.Root().Find(`a[role="link"]`)

	assert.Equal(t, "/jane", SafeAttr(link, "href"))
	assert.False(t, link.Attr("title").IsOk())
}

func TestBoxAndKey(t *testing.T) {
	s := parse(t)
	posts := s.FindAll(`[role="article"]`)
	require.Len(t, posts, 2)

	box, err := posts[0].Box().Unwrap()
	require.NoError(t, err)
	assert.Equal(t, Key{X: 10, Y: 201}, box.Key())
	assert.Equal(t, "fbs1", posts[0].HoverID())

	assert.True(t, errors.Is(posts[1].Box().Err(), ErrNoBox))
}

func TestClosestAndOwnText(t *testing.T) {
	s := parse(t)
	like := s.Root().Find("span")
	assert.Equal(t, "Like", like.OwnText())

	post := like.Closest(`[role*="article"]`)
	require.True(t, post.Present())
	assert.True(t, post.Same(s.FindAll(`[role="article"]`)[0]))
	assert.True(t, post.Is(`div`))
}

func TestStampScriptQuotesSelectors(t *testing.T) {
	js := StampScript([]string{`div[role*="article"]`, `span.x1`})
	assert.Contains(t, js, `"div[role*=\"article\"], span.x1"`)
	assert.Contains(t, js, AttrID)
}
