package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"github.com/ibeckermayer/fbsweep/internal/browser"
)

const loginURL = "https://www.facebook.com/login"

// Manager handles facebook authentication
type Manager struct {
	cookieStore *CookieStore
	log         *slog.Logger
	timeout     time.Duration
}

// NewManager creates a new auth manager
func NewManager(cookieStore *CookieStore, log *slog.Logger) *Manager {
	return &Manager{cookieStore: cookieStore, log: log, timeout: 5 * time.Minute}
}

// IsAuthenticated checks if we have valid stored credentials
func (m *Manager) IsAuthenticated() bool {
	return m.cookieStore.IsValid()
}

// Login opens a browser window for the user to log in to facebook and
// stores the session cookies once the login completes.
func (m *Manager) Login(ctx context.Context) error {
	allocCtx, cancel := chromedp.NewExecAllocator(ctx, browser.Options(false)...)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	if err := chromedp.Run(browserCtx, chromedp.Navigate(loginURL)); err != nil {
		return fmt.Errorf("failed to navigate to login page: %w", err)
	}
	m.log.Info("waiting for manual login", "url", loginURL, "timeout", m.timeout)

	if err := m.waitForLogin(browserCtx); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	cookies, err := extractCookies(browserCtx)
	if err != nil {
		return fmt.Errorf("failed to extract cookies: %w", err)
	}

	if err := m.cookieStore.Save(cookies); err != nil {
		return fmt.Errorf("failed to save cookies: %w", err)
	}
	m.log.Info("cookies saved", "path", m.cookieStore.Path(), "count", len(cookies))

	return nil
}

// waitForLogin polls until the session cookies appear and the browser has
// left the login page.
func (m *Manager) waitForLogin(ctx context.Context) error {
	timeout := time.After(m.timeout)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			return fmt.Errorf("login timeout exceeded")
		case <-ticker.C:
			var url string
			if err := chromedp.Run(ctx, chromedp.Location(&url)); err != nil {
				continue
			}
			if strings.Contains(url, "/login") || strings.Contains(url, "/checkpoint") {
				continue
			}

			cookies, err := extractCookies(ctx)
			if err != nil {
				continue
			}
			if hasRequired(cookies) {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// extractCookies gets all cookies from the browser
func extractCookies(ctx context.Context) ([]*network.Cookie, error) {
	var cookies []*network.Cookie

	err := chromedp.Run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = storage.GetCookies().Do(ctx)
			return err
		}),
	)

	return cookies, err
}

// Logout clears stored credentials
func (m *Manager) Logout() error {
	return m.cookieStore.Clear()
}

// GetCookies returns the stored cookies for use in scraping
func (m *Manager) GetCookies() ([]*network.Cookie, error) {
	return m.cookieStore.GetFacebookCookies()
}
