// Package identify derives a canonical channel id from a page: its URL path,
// text in the player's DOM, or the query string of an embedded player.
//
// Strategies are tried in order and the first one that resolves wins. New
// platforms or selectors are added by appending strategies.
package identify

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/runnerr0/visitlog/internal/config"
	"github.com/runnerr0/visitlog/internal/logging"
)

// Page is the state a strategy reads: the current location and a parsed
// snapshot of the document. Doc may be nil when no markup was captured.
type Page struct {
	URL *url.URL
	Doc *goquery.Document
}

// NewPage parses rawURL and html into a Page. An empty html yields a Page
// without a document.
func NewPage(rawURL, html string) (Page, error) {
	var p Page
	if rawURL != "" {
		u, err := url.Parse(rawURL)
		if err != nil {
			return Page{}, fmt.Errorf("parse page url: %w", err)
		}
		p.URL = u
	}
	if strings.TrimSpace(html) != "" {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			return Page{}, fmt.Errorf("parse page html: %w", err)
		}
		p.Doc = doc
	}
	return p, nil
}

// Path returns the URL path, or "" when the page has no URL.
func (p Page) Path() string {
	if p.URL == nil {
		return ""
	}
	return p.URL.Path
}

// Strategy attempts to resolve a channel id from a page.
type Strategy interface {
	Name() string
	Resolve(ctx context.Context, page Page) (string, bool)
}

// Identifier runs strategies in order.
type Identifier struct {
	strategies []Strategy
}

// New creates an Identifier that tries strategies in the given order.
func New(strategies ...Strategy) *Identifier {
	return &Identifier{strategies: strategies}
}

// NewFromConfig builds the standard path, selector, embed chain.
func NewFromConfig(cfg config.IdentifyConfig) *Identifier {
	return New(
		NewPathStrategy(cfg.ExcludedRoutes),
		NewSelectorStrategy(cfg.Selectors),
		NewEmbedStrategy(cfg.EmbedHost),
	)
}

// Identify returns the lower-case channel id for page. It never fails: a page
// nothing can resolve yields ok == false.
func (i *Identifier) Identify(ctx context.Context, page Page) (string, bool) {
	log := logging.FromContext(ctx)
	for _, s := range i.strategies {
		if id, ok := s.Resolve(ctx, page); ok {
			log.Debug().Str("strategy", s.Name()).Str("channel", id).Msg("channel identified")
			return id, true
		}
	}
	return "", false
}

// Strategies returns the configured strategy names in order.
func (i *Identifier) Strategies() []string {
	names := make([]string, len(i.strategies))
	for n, s := range i.strategies {
		names[n] = s.Name()
	}
	return names
}
