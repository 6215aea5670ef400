package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"github.com/ibeckermayer/fbsweep/internal/browser"
	"github.com/ibeckermayer/fbsweep/internal/textnorm"
	"github.com/ibeckermayer/fbsweep/internal/view"
)

// Page is the scrollable results view the collector drives.
type Page interface {
	// Capture stamps geometry on elements matching stamps and returns the parsed view.
	Capture(ctx context.Context, stamps []string) (*view.Snapshot, error)
	ScrollBy(ctx context.Context, dy int) error
	// ContentHeight is the document's scroll height, used for stabilization.
	ContentHeight(ctx context.Context) (int64, error)
}

// Screenshotter captures the visible viewport as PNG.
type Screenshotter interface {
	Screenshot(ctx context.Context) ([]byte, error)
}

// LivePage is a Page backed by a chromedp tab.
type LivePage struct {
	ctx context.Context
}

// NewLivePage wraps a chromedp tab context.
func NewLivePage(ctx context.Context) *LivePage {
	return &LivePage{ctx: ctx}
}

// run executes actions on the tab while honouring cancellation of ctx.
func (p *LivePage) run(ctx context.Context, actions ...chromedp.Action) error {
	tabCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(tabCtx, actions...)
}

func (p *LivePage) Capture(ctx context.Context, stamps []string) (*view.Snapshot, error) {
	var stamped int
	var html string
	err := p.run(ctx,
		chromedp.Evaluate(view.StampScript(stamps), &stamped),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to capture page: %w", err)
	}
	return view.ParseString(html)
}

// ScrollBy dispatches a mouse wheel event at the viewport centre, which is
// what triggers the feed's lazy loading.
func (p *LivePage) ScrollBy(ctx context.Context, dy int) error {
	x := float64(browser.ViewportWidth) / 2
	y := float64(browser.ViewportHeight) / 2
	return p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return input.DispatchMouseEvent(input.MouseWheel, x, y).
			WithDeltaX(0).
			WithDeltaY(float64(dy)).
			Do(ctx)
	}))
}

func (p *LivePage) ContentHeight(ctx context.Context) (int64, error) {
	var h int64
	if err := p.run(ctx, chromedp.Evaluate(`document.body ? document.body.scrollHeight : 0`, &h)); err != nil {
		return 0, fmt.Errorf("failed to read content height: %w", err)
	}
	return h, nil
}

func (p *LivePage) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := p.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return buf, nil
}

type targetBox struct {
	Found bool    `json:"found"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	W     float64 `json:"w"`
	H     float64 `json:"h"`
}

// hoverPath is a few points inside the target, as fractions of its box.
// Facebook only shows the date tooltip after pointer movement over the link.
var hoverPath = [][2]float64{{0.2, 0.3}, {0.6, 0.5}, {0.35, 0.7}, {0.4, 0.55}}

// HoverText scrolls the target into view, moves the pointer across it and
// waits for the tooltip.
func (p *LivePage) HoverText(ctx context.Context, targetID, tooltip string, timeout time.Duration) (string, error) {
	var box targetBox
	locate := fmt.Sprintf(`(function(id) {
	const el = document.querySelector('[%s="' + id + '"]');
	if (!el) return {found: false};
	el.scrollIntoView({block: 'center'});
	const r = el.getBoundingClientRect();
	return {found: true, x: r.x, y: r.y, w: r.width, h: r.height};
})(%q)`, view.AttrID, targetID)

	if err := p.run(ctx, chromedp.Evaluate(locate, &box), chromedp.Sleep(300*time.Millisecond)); err != nil {
		return "", fmt.Errorf("failed to locate hover target: %w", err)
	}
	if !box.Found {
		return "", errors.New("hover target gone from page")
	}

	var moves []chromedp.Action
	for _, pt := range hoverPath {
		moves = append(moves,
			chromedp.MouseEvent(input.MouseMoved, box.X+box.W*pt[0], box.Y+box.H*pt[1]),
			chromedp.Sleep(150*time.Millisecond),
		)
	}
	if err := p.run(ctx, moves...); err != nil {
		return "", fmt.Errorf("failed to hover: %w", err)
	}
	// Move away afterwards so the tooltip does not linger into the next hover.
	defer func() {
		_ = p.run(context.WithoutCancel(ctx), chromedp.MouseEvent(input.MouseMoved, 1, 1))
	}()

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var txt string
	err := p.run(waitCtx,
		chromedp.WaitVisible(tooltip, chromedp.ByQuery),
		chromedp.Text(tooltip, &txt, chromedp.ByQuery, chromedp.NodeVisible),
	)
	if err != nil {
		return "", fmt.Errorf("tooltip did not appear: %w", err)
	}
	return textnorm.Normalize(txt), nil
}
