// Package view holds parsed captures of the rendered results page.
//
// A capture is the page's outer HTML taken after the stamp script has written
// each candidate element's bounding box and a stable hover id into data
// attributes, so geometry survives the trip out of the browser and regions
// can be located and keyed without further round trips.
package view

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Attributes written by the stamp script.
const (
	AttrX  = "data-fbs-x"
	AttrY  = "data-fbs-y"
	AttrW  = "data-fbs-w"
	AttrH  = "data-fbs-h"
	AttrID = "data-fbs-id"
)

// Snapshot is one view capture.
type Snapshot struct {
	doc *goquery.Document
}

// Parse reads a stamped capture.
func Parse(r io.Reader) (*Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	return &Snapshot{doc: doc}, nil
}

// ParseString is Parse over an in-memory string.
func ParseString(html string) (*Snapshot, error) {
	return Parse(strings.NewReader(html))
}

// Root returns the document element.
func (s *Snapshot) Root() Element {
	if s == nil || s.doc == nil {
		return Element{}
	}
	return Element{sel: s.doc.Selection}
}

// FindAll returns every element matching selector in document order.
func (s *Snapshot) FindAll(selector string) []Element {
	return s.Root().FindAll(selector)
}

// HTML renders the capture back to markup, for debugging dumps.
func (s *Snapshot) HTML() (string, error) {
	if s == nil || s.doc == nil {
		return "", nil
	}
	return s.doc.Html()
}
