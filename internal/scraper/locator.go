package scraper

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ibeckermayer/fbsweep/internal/config"
	"github.com/ibeckermayer/fbsweep/internal/view"
)

// Region is a part of one capture believed to hold a single post.
// Key is only meaningful within the capture it came from.
type Region struct {
	Element  view.Element
	Key      view.Key
	Strategy string
}

// Locator finds post regions in a capture.
type Locator interface {
	Name() string
	// Stamps lists the selectors whose geometry the capture must carry.
	Stamps() []string
	Locate(snap *view.Snapshot) []Region
}

// NewLocator returns the locator for a DOM strategy name.
func NewLocator(strategy string, sel Selectors, log *slog.Logger) (Locator, error) {
	switch strategy {
	case config.StrategyStructural:
		return &StructuralLocator{sel: sel}, nil
	case config.StrategyAnchor:
		return &AnchorLocator{sel: sel, log: log}, nil
	default:
		return nil, fmt.Errorf("no DOM locator for strategy %q", strategy)
	}
}

// StructuralLocator treats every match of the post container selector as one
// region. Containers never overlap within a capture, so there is no dedup.
type StructuralLocator struct {
	sel Selectors
}

func (l *StructuralLocator) Name() string { return config.StrategyStructural }

func (l *StructuralLocator) Stamps() []string {
	return []string{l.sel.PostContainer, l.sel.HoverTarget}
}

func (l *StructuralLocator) Locate(snap *view.Snapshot) []Region {
	containers := snap.FindAll(l.sel.PostContainer)
	regions := make([]Region, 0, len(containers))
	for _, el := range containers {
		box := el.Box().UnwrapOr(view.Box{})
		regions = append(regions, Region{Element: el, Key: box.Key(), Strategy: l.Name()})
	}
	return regions
}

// AnchorLocator finds action labels such as Like and walks up to the
// enclosing article. Several labels resolve to the same article, so regions
// are deduplicated by the article's rounded top-left corner. Articles
// without stamped geometry, as in pages saved by a browser, are
// deduplicated by node identity instead.
type AnchorLocator struct {
	sel Selectors
	log *slog.Logger
}

func (l *AnchorLocator) Name() string { return config.StrategyAnchor }

func (l *AnchorLocator) Stamps() []string {
	return []string{l.sel.Article}
}

func (l *AnchorLocator) Locate(snap *view.Snapshot) []Region {
	candidates := snap.FindAll(l.sel.AnchorScope)
	seen := make(map[view.Key]bool)
	var regions []Region

	for _, label := range l.sel.AnchorLabels {
		for _, el := range candidates {
			if !matchesLabel(el, label) {
				continue
			}
			post := el.Closest(l.sel.Article)
			if !post.Present() {
				continue
			}
			box, err := post.Box().Unwrap()
			if err != nil {
				if !containsElement(regions, post) {
					l.log.Debug("article without geometry", "strategy", l.Name(), "label", label)
					regions = append(regions, Region{Element: post, Strategy: l.Name()})
				}
				continue
			}
			key := box.Key()
			if seen[key] {
				continue
			}
			seen[key] = true
			regions = append(regions, Region{Element: post, Key: key, Strategy: l.Name()})
		}
	}
	return regions
}

func containsElement(regions []Region, el view.Element) bool {
	for _, r := range regions {
		if r.Element.Same(el) {
			return true
		}
	}
	return false
}

// matchesLabel reports whether el itself carries label, either as its own
// text or as its aria-label. Ancestors that merely contain the label do not
// match.
func matchesLabel(el view.Element, label string) bool {
	if strings.EqualFold(el.OwnText(), label) {
		return true
	}
	return strings.EqualFold(view.SafeAttr(el, "aria-label"), label)
}
