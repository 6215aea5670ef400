package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/tidwall/gjson"
)

// ErrNoCredentials is returned when the session cookie file is missing or holds no cookies.
var ErrNoCredentials = errors.New("no stored session cookies")

// Cookies that must be present for a logged-in facebook session.
var requiredCookies = []string{"c_user", "xs"}

// CookieStore handles storage of facebook session cookies
type CookieStore struct {
	path string
}

// StoredCookies represents the persisted cookie data
type StoredCookies struct {
	Cookies    []*network.Cookie `json:"cookies"`
	CapturedAt time.Time         `json:"captured_at"`
	ExpiresAt  time.Time         `json:"expires_at"`
}

// fileCookie is the loose shape accepted on load. It covers both cookies
// written by Save and the bare array browser tooling exports.
type fileCookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite"`
}

// NewCookieStore creates a cookie store at the given path
func NewCookieStore(path string) *CookieStore {
	return &CookieStore{path: path}
}

// Path returns the file the store reads and writes.
func (cs *CookieStore) Path() string {
	return cs.path
}

// Save persists cookies to disk
func (cs *CookieStore) Save(cookies []*network.Cookie) error {
	dir := filepath.Dir(cs.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	stored := StoredCookies{
		Cookies:    cookies,
		CapturedAt: time.Now(),
		ExpiresAt:  earliestExpiry(cookies),
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(cs.path, data, 0600)
}

// Load retrieves cookies from disk. A missing file is ErrNoCredentials.
func (cs *CookieStore) Load() (*StoredCookies, error) {
	data, err := os.ReadFile(cs.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s not found, run `fbsweep login` first", ErrNoCredentials, cs.path)
	}
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("cookie file %s is not valid JSON", cs.path)
	}

	root := gjson.ParseBytes(data)
	stored := &StoredCookies{}
	list := root
	if !root.IsArray() {
		list = root.Get("cookies")
		if t := root.Get("captured_at"); t.Exists() {
			stored.CapturedAt, _ = time.Parse(time.RFC3339Nano, t.String())
		}
	}

	var raw []fileCookie
	if list.Exists() {
		if err := json.Unmarshal([]byte(list.Raw), &raw); err != nil {
			return nil, fmt.Errorf("failed to decode cookies in %s: %w", cs.path, err)
		}
	}
	for _, fc := range raw {
		if fc.Name == "" {
			continue
		}
		stored.Cookies = append(stored.Cookies, fc.network())
	}
	if len(stored.Cookies) == 0 {
		return nil, fmt.Errorf("%w: %s holds no cookies", ErrNoCredentials, cs.path)
	}
	stored.ExpiresAt = earliestExpiry(stored.Cookies)

	return stored, nil
}

// IsValid checks if stored cookies are still valid
func (cs *CookieStore) IsValid() bool {
	stored, err := cs.Load()
	if err != nil {
		return false
	}

	// Check if cookies have expired
	if !stored.ExpiresAt.IsZero() && time.Now().After(stored.ExpiresAt) {
		return false
	}

	return hasRequired(stored.Cookies)
}

// Clear removes stored cookies
func (cs *CookieStore) Clear() error {
	return os.Remove(cs.path)
}

// GetFacebookCookies returns only the facebook.com cookies for injection
func (cs *CookieStore) GetFacebookCookies() ([]*network.Cookie, error) {
	stored, err := cs.Load()
	if err != nil {
		return nil, err
	}

	var fbCookies []*network.Cookie
	for _, c := range stored.Cookies {
		if isFacebookDomain(c.Domain) {
			fbCookies = append(fbCookies, c)
		}
	}
	if len(fbCookies) == 0 {
		return nil, fmt.Errorf("%w: no facebook.com cookies in %s", ErrNoCredentials, cs.path)
	}

	return fbCookies, nil
}

func (fc fileCookie) network() *network.Cookie {
	c := &network.Cookie{
		Name:     fc.Name,
		Value:    fc.Value,
		Domain:   fc.Domain,
		Path:     fc.Path,
		Expires:  fc.Expires,
		HTTPOnly: fc.HTTPOnly,
		Secure:   fc.Secure,
		Session:  fc.Expires <= 0,
	}
	switch strings.ToLower(fc.SameSite) {
	case "strict":
		c.SameSite = network.CookieSameSiteStrict
	case "lax":
		c.SameSite = network.CookieSameSiteLax
	case "none":
		c.SameSite = network.CookieSameSiteNone
	}
	if c.Path == "" {
		c.Path = "/"
	}
	return c
}

// earliestExpiry finds the earliest expiration among the session cookies.
// Session-only cookies (expires <= 0) do not count.
func earliestExpiry(cookies []*network.Cookie) time.Time {
	var earliest time.Time
	for _, c := range cookies {
		if !isRequired(c.Name) || c.Expires <= 0 {
			continue
		}
		exp := time.Unix(int64(c.Expires), 0)
		if earliest.IsZero() || exp.Before(earliest) {
			earliest = exp
		}
	}
	return earliest
}

func hasRequired(cookies []*network.Cookie) bool {
	for _, name := range requiredCookies {
		found := false
		for _, c := range cookies {
			if c.Name == name && c.Value != "" {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func isRequired(name string) bool {
	for _, n := range requiredCookies {
		if n == name {
			return true
		}
	}
	return false
}

func isFacebookDomain(domain string) bool {
	d := strings.TrimPrefix(strings.ToLower(domain), ".")
	return d == "facebook.com" || strings.HasSuffix(d, ".facebook.com")
}
