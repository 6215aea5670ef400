package view

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ibeckermayer/fbsweep/internal/fn"
	"github.com/ibeckermayer/fbsweep/internal/textnorm"
)

var (
	// ErrAbsent is returned when reading from an element that does not exist.
	ErrAbsent = errors.New("element absent")
	// ErrEmpty is returned when an element exists but carries no text or value.
	ErrEmpty = errors.New("element empty")
	// ErrNoBox is returned when the element was not stamped with geometry.
	ErrNoBox = errors.New("element has no bounding box")
)

// blockTags get a separator so text from adjacent blocks does not run together.
var blockTags = map[string]bool{
	"div": true, "p": true, "br": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"section": true, "article": true, "tr": true, "td": true,
}

// Element is a possibly absent handle to one node of a capture. The zero
// value is an absent element and every accessor on it is safe.
type Element struct {
	sel *goquery.Selection
}

// Present reports whether the element exists.
func (e Element) Present() bool {
	return e.sel != nil && e.sel.Length() > 0
}

// Find returns the first descendant matching selector.
func (e Element) Find(selector string) Element {
	if !e.Present() {
		return Element{}
	}
	return Element{sel: e.sel.First().Find(selector).First()}
}

// FindAll returns every descendant matching selector in document order.
func (e Element) FindAll(selector string) []Element {
	if !e.Present() {
		return nil
	}
	var out []Element
	e.sel.First().Find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, Element{sel: s})
	})
	return out
}

// Closest walks up from the element (inclusive) to the first ancestor
// matching selector.
func (e Element) Closest(selector string) Element {
	if !e.Present() {
		return Element{}
	}
	return Element{sel: e.sel.First().Closest(selector)}
}

// Is reports whether the element matches selector.
func (e Element) Is(selector string) bool {
	return e.Present() && e.sel.First().Is(selector)
}

// Same reports whether two handles point at the same node.
func (e Element) Same(o Element) bool {
	if !e.Present() || !o.Present() {
		return false
	}
	return e.sel.Get(0) == o.sel.Get(0)
}

// Text returns the element's normalized rendered text.
func (e Element) Text() fn.Result[string] {
	if !e.Present() {
		return fn.Err[string](ErrAbsent)
	}
	var b strings.Builder
	collectText(e.sel.First(), &b)
	txt := textnorm.Normalize(b.String())
	if txt == "" {
		return fn.Err[string](ErrEmpty)
	}
	return fn.Ok(txt)
}

// OwnText returns only the element's direct text nodes, normalized.
func (e Element) OwnText() string {
	if !e.Present() {
		return ""
	}
	var b strings.Builder
	e.sel.First().Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#text" {
			b.WriteString(c.Text())
			b.WriteByte(' ')
		}
	})
	return textnorm.Normalize(b.String())
}

// Attr returns a non-empty attribute value.
func (e Element) Attr(name string) fn.Result[string] {
	if !e.Present() {
		return fn.Err[string](ErrAbsent)
	}
	v, ok := e.sel.First().Attr(name)
	if !ok {
		return fn.Errf[string]("attribute %q missing", name)
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return fn.Err[string](fmt.Errorf("attribute %q: %w", name, ErrEmpty))
	}
	return fn.Ok(v)
}

// Box returns the geometry stamped on the element at capture time.
func (e Element) Box() fn.Result[Box] {
	if !e.Present() {
		return fn.Err[Box](ErrAbsent)
	}
	var vals [4]float64
	for i, attr := range []string{AttrX, AttrY, AttrW, AttrH} {
		raw, ok := e.sel.First().Attr(attr)
		if !ok {
			if i >= 2 {
				// Width and height are informational only.
				continue
			}
			return fn.Err[Box](ErrNoBox)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return fn.Errf[Box]("bad %s %q", attr, raw)
		}
		vals[i] = f
	}
	return fn.Ok(Box{X: vals[0], Y: vals[1], W: vals[2], H: vals[3]})
}

// HoverID is the id the live page uses to find this element again.
func (e Element) HoverID() string {
	return SafeAttr(e, AttrID)
}

// SafeText collapses Text to "" on any failure.
func SafeText(e Element) string {
	return e.Text().UnwrapOr("")
}

// SafeAttr collapses Attr to "" on any failure.
func SafeAttr(e Element, name string) string {
	return e.Attr(name).UnwrapOr("")
}

func collectText(s *goquery.Selection, b *strings.Builder) {
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		name := goquery.NodeName(c)
		switch name {
		case "#text":
			b.WriteString(c.Text())
		case "script", "style", "noscript", "#comment":
		default:
			block := blockTags[name]
			if block {
				b.WriteByte(' ')
			}
			collectText(c, b)
			if block {
				b.WriteByte(' ')
			}
		}
	})
}
