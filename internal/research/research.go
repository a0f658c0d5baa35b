// Package research gathers source material for a topic before generation.
// It searches the web for the topic's phrases, fetches the top results, and
// extracts readable text. Research is best effort: a topic with no reachable
// sources still generates, just from model knowledge alone.
package research

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"

	"github.com/jonathan/pressroom/internal/fetch"
	"github.com/jonathan/pressroom/internal/types"
)

// MaxSourceChars caps the extracted text kept per source so one long page
// cannot crowd the others out of the research prompt.
const MaxSourceChars = 4000

// DefaultMaxSources is how many pages to fetch per topic.
const DefaultMaxSources = 5

// Source is one fetched and extracted research page.
type Source struct {
	URL   string
	Title string
	Text  string
}

// Researcher finds and fetches source material via Google Custom Search.
type Researcher struct {
	svc *customsearch.Service
	cx  string
	log *logrus.Logger
}

// NewResearcher creates a Researcher. apiKey and cx come from the Google
// Programmable Search Engine console.
func NewResearcher(ctx context.Context, apiKey, cx string, log *logrus.Logger) (*Researcher, error) {
	svc, err := customsearch.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create customsearch service: %w", err)
	}
	return &Researcher{svc: svc, cx: cx, log: log}, nil
}

// GatherSources searches for the topic and fetches the top result pages
// concurrently. Unreachable or unreadable pages are skipped; an empty result
// is not an error.
func (r *Researcher) GatherSources(ctx context.Context, topic types.TopicCluster, maxSources int) ([]Source, error) {
	if maxSources <= 0 {
		maxSources = DefaultMaxSources
	}

	links := r.searchLinks(ctx, topic, maxSources)
	if len(links) == 0 {
		r.log.WithField("topic", topic.Name).Info("no search results for topic")
		return nil, nil
	}

	var (
		mu      sync.Mutex
		sources []Source
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, link := range links {
		g.Go(func() error {
			source, err := r.fetchSource(gctx, link)
			if err != nil {
				r.log.WithFields(logrus.Fields{
					"url":   link.url,
					"error": err.Error(),
				}).Debug("skipping unreadable source")
				return nil
			}
			mu.Lock()
			sources = append(sources, *source)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.log.WithFields(logrus.Fields{
		"topic":   topic.Name,
		"sources": len(sources),
	}).Info("research sources gathered")
	return sources, nil
}

type searchLink struct {
	url   string
	title string
}

// searchLinks queries the main phrase and the topic name, deduplicating and
// capping the combined results. Failed queries are skipped.
func (r *Researcher) searchLinks(ctx context.Context, topic types.TopicCluster, limit int) []searchLink {
	queries := []string{topic.MainPhrase}
	if topic.Name != topic.MainPhrase {
		queries = append(queries, topic.Name)
	}

	var links []searchLink
	for _, q := range queries {
		resp, err := r.svc.Cse.List().Context(ctx).Cx(r.cx).Q(q).Num(int64(limit)).Do()
		if err != nil {
			r.log.WithFields(logrus.Fields{
				"query": q,
				"error": err.Error(),
			}).Warn("search query failed")
			continue
		}
		for _, item := range resp.Items {
			links = append(links, searchLink{url: item.Link, title: item.Title})
		}
	}

	return dedupeLinks(links, limit)
}

// fetchSource fetches one page and extracts its main text, falling back to a
// headless browser for JavaScript-rendered pages.
func (r *Researcher) fetchSource(ctx context.Context, link searchLink) (*Source, error) {
	result, err := fetch.URL(ctx, link.url, nil)
	if err != nil {
		return nil, err
	}

	text, err := fetch.ExtractMainText(result.HTML, fetch.ArticleSelectors())
	if err != nil {
		return nil, err
	}

	if fetch.ShouldUseBrowser(text) {
		html, err := fetch.BrowserSimple(ctx, link.url)
		if err == nil {
			if rendered, rerr := fetch.ExtractMainText(html, fetch.ArticleSelectors()); rerr == nil && len(rendered) > len(text) {
				text = rendered
			}
		}
	}

	if len(text) == 0 {
		return nil, fmt.Errorf("no extractable text at %s", link.url)
	}

	return &Source{URL: link.url, Title: link.title, Text: truncate(text, MaxSourceChars)}, nil
}

// dedupeLinks removes duplicate URLs preserving order, capped at limit.
func dedupeLinks(links []searchLink, limit int) []searchLink {
	seen := make(map[string]bool, len(links))
	unique := make([]searchLink, 0, len(links))
	for _, l := range links {
		if seen[l.url] {
			continue
		}
		seen[l.url] = true
		unique = append(unique, l)
		if len(unique) == limit {
			break
		}
	}
	return unique
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
