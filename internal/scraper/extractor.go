package scraper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ibeckermayer/fbsweep/internal/config"
	"github.com/ibeckermayer/fbsweep/internal/fn"
	"github.com/ibeckermayer/fbsweep/internal/textnorm"
	"github.com/ibeckermayer/fbsweep/internal/types"
	"github.com/ibeckermayer/fbsweep/internal/view"
)

var (
	// ErrNoText is returned for a region whose body text is empty; the record is discarded.
	ErrNoText = errors.New("post has no text")
	// ErrNoAuthor is returned for a region without an author when authors are required.
	ErrNoAuthor = errors.New("post has no author")
)

// Hoverer triggers hover-reveal content on the live page.
type Hoverer interface {
	// HoverText hovers the element stamped with targetID and returns the
	// text of the first element matching tooltip to appear within timeout.
	HoverText(ctx context.Context, targetID, tooltip string, timeout time.Duration) (string, error)
}

// Extractor builds post records from located regions.
type Extractor struct {
	sel           Selectors
	requireAuthor bool
	hover         Hoverer
	hoverTimeout  time.Duration
	log           *slog.Logger
}

// NewExtractor creates an extractor. hover may be nil, in which case
// timestamps are never resolved.
func NewExtractor(sel Selectors, requireAuthor bool, hover Hoverer, hoverTimeout time.Duration, log *slog.Logger) *Extractor {
	return &Extractor{
		sel:           sel,
		requireAuthor: requireAuthor,
		hover:         hover,
		hoverTimeout:  hoverTimeout,
		log:           log,
	}
}

type authorRef struct {
	name string
	url  string
}

// Extract pulls one record out of a region. Every field is read
// independently, so a missing field only leaves that field empty.
func (x *Extractor) Extract(ctx context.Context, r Region) fn.Result[types.PostRecord] {
	text := x.snippet(r.Element).UnwrapOr("")
	if text == "" {
		return fn.Err[types.PostRecord](ErrNoText)
	}

	author := x.author(r.Element).UnwrapOr(authorRef{})
	if author.name == "" && x.requireAuthor {
		return fn.Err[types.PostRecord](ErrNoAuthor)
	}

	rec := types.PostRecord{
		Author:     author.name,
		ProfileURL: author.url,
		Permalink:  x.permalink(r.Element).UnwrapOr(""),
		Text:       text,
	}

	if r.Strategy == config.StrategyStructural {
		rec.Timestamp = x.timestamp(ctx, r).UnwrapOr("")
	}

	return fn.Ok(rec)
}

// author prefers the known profile link, then the first navigable link with text.
func (x *Extractor) author(post view.Element) fn.Result[authorRef] {
	fromLink := func(link view.Element) fn.Result[authorRef] {
		return fn.AndThen(link.Text(), func(name string) fn.Result[authorRef] {
			return fn.Ok(authorRef{name: name, url: view.SafeAttr(link, "href")})
		})
	}

	return fn.FirstOk(
		func() fn.Result[authorRef] {
			return fromLink(post.Find(x.sel.ProfileLink))
		},
		func() fn.Result[authorRef] {
			return fn.FirstOk(eachOf(post.FindAll(x.sel.NavigableLink), fromLink)...)
		},
	)
}

// snippet prefers the designated post text node, then the first
// direction-tagged block carrying text.
func (x *Extractor) snippet(post view.Element) fn.Result[string] {
	return fn.FirstOk(
		func() fn.Result[string] { return post.Find(x.sel.PostText).Text() },
		func() fn.Result[string] {
			return fn.FirstOk(eachOf(post.FindAll(x.sel.DirectionText), view.Element.Text)...)
		},
	)
}

func (x *Extractor) permalink(post view.Element) fn.Result[string] {
	return post.Find(x.sel.Permalink).Attr("href")
}

// timestamp hovers the region's date link and reads the tooltip it reveals.
func (x *Extractor) timestamp(ctx context.Context, r Region) fn.Result[string] {
	if x.hover == nil {
		return fn.Errf[string]("hover unavailable")
	}
	target := r.Element.Find(x.sel.HoverTarget)
	id := target.HoverID()
	if id == "" {
		return fn.Errf[string]("no hover target")
	}

	res := fn.FromPair(x.hover.HoverText(ctx, id, x.sel.Tooltip, x.hoverTimeout))
	if !res.IsOk() {
		x.log.Debug("tooltip not resolved", "region", id, "selector", x.sel.Tooltip, "error", res.Err())
		return res
	}
	return fn.AndThen(res, func(s string) fn.Result[string] {
		if s = textnorm.Normalize(s); s == "" {
			return fn.Errf[string]("empty tooltip")
		}
		return fn.Ok(s)
	})
}

// eachOf turns elements into lazy steps for FirstOk.
func eachOf[T any](els []view.Element, f func(view.Element) fn.Result[T]) []func() fn.Result[T] {
	steps := make([]func() fn.Result[T], len(els))
	for i, el := range els {
		steps[i] = func() fn.Result[T] { return f(el) }
	}
	return steps
}
