package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ibeckermayer/fbsweep/internal/types"
	"github.com/ibeckermayer/fbsweep/internal/view"
	"github.com/stretchr/testify/require"
)

// classes turns a compound class selector like "a.x1.x2" into "x1 x2".
func classes(selector string) string {
	parts := strings.Split(selector, ".")
	return strings.Join(parts[1:], " ")
}

type anchorPost struct {
	x, y      float64
	author    string
	text      string
	permalink string
}

// anchorPage renders posts the way the semantic strategy sees them: article
// roles, navigable links, direction-tagged text and action labels.
func anchorPage(posts ...anchorPost) string {
	var b strings.Builder
	b.WriteString(`<html><body><div role="main"><div role="feed">`)
	for _, p := range posts {
		fmt.Fprintf(&b, `<div role="article" %s="%.2f" %s="%.2f">`, view.AttrX, p.x, view.AttrY, p.y)
		if p.author != "" {
			fmt.Fprintf(&b, `<h3><a role="link" href="https://www.facebook.com/%s">%s</a></h3>`,
				strings.ReplaceAll(strings.ToLower(p.author), " ", "."), p.author)
		}
		fmt.Fprintf(&b, `<div dir="auto">%s</div>`, p.text)
		if p.permalink != "" {
			fmt.Fprintf(&b, `<a href="%s"><span>2h</span></a>`, p.permalink)
		}
		b.WriteString(`<div role="button"><span>Like</span></div>`)
		b.WriteString(`<div role="button"><span>Comment</span></div>`)
		b.WriteString(`<div role="button" aria-label="Share"><i></i></div>`)
		b.WriteString(`</div>`)
	}
	b.WriteString(`</div></div></body></html>`)
	return b.String()
}

type structuralPost struct {
	y       float64
	author  string
	profile string
	text    string
	hoverID string
}

func structuralPage(posts ...structuralPost) string {
	sel := DefaultSelectors()
	var b strings.Builder
	b.WriteString(`<html><body><div role="main">`)
	for _, p := range posts {
		fmt.Fprintf(&b, `<div class="x78zum5 xdt5ytf" data-virtualized="false" %s="0" %s="%.2f">`, view.AttrX, view.AttrY, p.y)
		if p.author != "" {
			fmt.Fprintf(&b, `<a class="%s" href="%s">%s</a>`, classes(sel.ProfileLink), p.profile, p.author)
		}
		if p.hoverID != "" {
			fmt.Fprintf(&b, `<span class="%s" %s="%s">3d</span>`, classes(sel.HoverTarget), view.AttrID, p.hoverID)
		}
		fmt.Fprintf(&b, `<div class="%s">%s</div>`, classes(sel.PostText), p.text)
		b.WriteString(`</div>`)
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}

func mustSnapshot(t *testing.T, html string) *view.Snapshot {
	t.Helper()
	snap, err := view.ParseString(html)
	require.NoError(t, err)
	return snap
}

// fakePage replays captures and heights in order, repeating the last one.
type fakePage struct {
	pages    []string
	heights  []int64
	captures int
	scrolls  int
	heightAt int
	stamps   []string
	shots    int

	captureErr error
}

func (p *fakePage) Capture(_ context.Context, stamps []string) (*view.Snapshot, error) {
	p.stamps = stamps
	if p.captureErr != nil {
		return nil, p.captureErr
	}
	i := min(p.captures, len(p.pages)-1)
	p.captures++
	return view.ParseString(p.pages[i])
}

func (p *fakePage) ScrollBy(context.Context, int) error {
	p.scrolls++
	return nil
}

func (p *fakePage) ContentHeight(context.Context) (int64, error) {
	if len(p.heights) == 0 {
		return 0, errors.New("no height")
	}
	i := min(p.heightAt, len(p.heights)-1)
	p.heightAt++
	return p.heights[i], nil
}

// hoverPage adds hover support to fakePage.
type hoverPage struct {
	*fakePage
	tooltips map[string]string
	hovered  []string
}

func (p *hoverPage) HoverText(_ context.Context, id, _ string, _ time.Duration) (string, error) {
	p.hovered = append(p.hovered, id)
	ts, ok := p.tooltips[id]
	if !ok {
		return "", context.DeadlineExceeded
	}
	return ts, nil
}

// shotPage adds screenshots to fakePage.
type shotPage struct {
	*fakePage
}

func (p *shotPage) Screenshot(context.Context) ([]byte, error) {
	p.shots++
	return []byte(fmt.Sprintf("png-%d", p.shots)), nil
}

type fakeVision struct {
	posts []types.VisionPost
	got   int
}

func (v *fakeVision) ExtractBatches(_ context.Context, shots [][]byte) []types.VisionPost {
	v.got = len(shots)
	return v.posts
}

func noSleep(context.Context, time.Duration) error { return nil }

// cutShortPage cancels the session once it has taken after screenshots.
type cutShortPage struct {
	*shotPage
	after  int
	cancel context.CancelFunc
}

func (p *cutShortPage) Screenshot(ctx context.Context) ([]byte, error) {
	png, err := p.shotPage.Screenshot(ctx)
	if p.shots == p.after {
		p.cancel()
	}
	return png, err
}

// ctxVision records the state of the context it was handed.
type ctxVision struct {
	fakeVision
	ctxErr      error
	hasDeadline bool
}

func (v *ctxVision) ExtractBatches(ctx context.Context, shots [][]byte) []types.VisionPost {
	v.ctxErr = ctx.Err()
	_, v.hasDeadline = ctx.Deadline()
	if v.ctxErr != nil {
		return nil
	}
	return v.fakeVision.ExtractBatches(ctx, shots)
}
