package scraper

// Facebook search results DOM selectors
// These are isolated here because facebook rotates its generated class names
// Update these when the structural strategy stops finding posts

// Selectors is the full set of patterns the locators and extractor use.
type Selectors struct {
	// Structural strategy
	PostContainer string
	PostText      string
	ProfileLink   string
	HoverTarget   string
	Tooltip       string

	// Semantic strategy
	Article      string
	AnchorLabels []string
	AnchorScope  string

	// Fallbacks shared by both strategies
	NavigableLink string
	DirectionText string
	Permalink     string

	// Page chrome
	Feed       string
	AllTabText string
}

// DefaultSelectors returns the selectors for the current facebook rendering.
func DefaultSelectors() Selectors {
	return Selectors{
		PostContainer: `div.x78zum5.xdt5ytf[data-virtualized='false']`,
		PostText:      `div.xdj266r.x14z9mp.xat24cr.x1lziwak.x1vvkbs`,
		ProfileLink: `a.x1i10hfl.xjbqb8w.x1ejq31n.x18oe1m7.x1sy0etr.xstzfhl.` +
			`x972fbf.x10w94by.x1qhh985.x14e42zd.x9f619.x1ypdohk.` +
			`xt0psk2.x3ct3a4.xdj266r.x14z9mp.xat24cr.x1lziwak.` +
			`xexx8yu.xyri2b.x18d9i69.x1c1uobl.x16tdsg8.x1hl2dhg.` +
			`xggy1nq.x1a2a7pz.xkrqix3.x1sur9pj.xzsf02u.x1s688f`,
		HoverTarget: `span.x193iq5w.xeuugli.x13faqbe.x1vvkbs.xlh3980.xvmahel.` +
			`x1n0sxbx.x1lliihq.x1s928wv.xhkezso.x1gmr53x.x1cpjm7i.` +
			`x1fgarty.x1943h6x.x4zkp8e.x676frb.x1nxh6w3.x1sibtaa.` +
			`xo1l8bm.xi81zsa.x1yc453h`,
		Tooltip: `span.x193iq5w.xeuugli.x13faqbe.x1vvkbs.xlh3980.xvmahel.` +
			`x1n0sxbx.x1nxh6w3.x1sibtaa.xo1l8bm.xzsf02u`,

		Article:      `[role*='article']`,
		AnchorLabels: []string{"Like", "Comment", "Share"},
		AnchorScope:  `span, div, a, [aria-label]`,

		NavigableLink: `a[role='link']`,
		DirectionText: `div[dir='auto']`,
		Permalink:     `a[href*='/posts/'], a[href*='/groups/'], a[href*='/permalink/']`,

		Feed:       `[role='main']`,
		AllTabText: "All",
	}
}
