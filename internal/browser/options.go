// Package browser provides shared chromedp configuration with anti-bot-detection measures.
package browser

import (
	"context"

	"github.com/chromedp/chromedp"
)

// DefaultUserAgent is a realistic Chrome user agent
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Viewport size used for every session. Region keys are viewport pixels, so
// a fixed size keeps them comparable between runs.
const (
	ViewportWidth  = 1920
	ViewportHeight = 1080
)

// Options returns chromedp allocator options with anti-bot-detection measures.
// Every browser instance uses this to keep the fingerprint consistent.
func Options(headless bool) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),

		// Prevent navigator.webdriver = true detection
		chromedp.Flag("disable-blink-features", "AutomationControlled"),

		chromedp.UserAgent(DefaultUserAgent),
		chromedp.WindowSize(ViewportWidth, ViewportHeight),

		// Facebook's notification permission prompt steals hover focus
		chromedp.Flag("disable-notifications", true),

		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
	)

	if headless {
		opts = append(opts, chromedp.Flag("disable-gpu", true))
	}

	return opts
}

// NewContext starts a browser with Options and returns its tab context.
// The cancel func shuts the browser down.
func NewContext(parent context.Context, headless bool) (context.Context, context.CancelFunc) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, Options(headless)...)
	ctx, cancel := chromedp.NewContext(allocCtx)
	return ctx, func() {
		cancel()
		allocCancel()
	}
}
