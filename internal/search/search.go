// Package search defines the provider contracts for keyword-news and image
// search, and a factory that assembles the configured providers.
//
// Providers fail soft: a transport error degrades to an empty result list and
// a log line, never an error to the caller.
package search

import (
	"context"
	"log"

	"github.com/huhu-tiger/reportgen/config"
	"github.com/huhu-tiger/reportgen/internal/httpx"
	"github.com/huhu-tiger/reportgen/internal/search/bocha"
	"github.com/huhu-tiger/reportgen/internal/search/searxng"
	"github.com/huhu-tiger/reportgen/internal/telemetry"
	"github.com/huhu-tiger/reportgen/models"
)

// NewsQuery is one keyword-news request.
type NewsQuery struct {
	Query     string
	Count     int
	Freshness string
}

// ImageQuery is one image-search request.
type ImageQuery struct {
	Query    string
	Page     int
	Language string
	Category string
}

// NewsBatch is the result of one news call. Providers whose wire format
// bundles image hits alongside web pages surface them in Images.
type NewsBatch struct {
	News   []models.NewsResult
	Images []models.ImageResult
}

// NewsProvider searches news for one keyword.
type NewsProvider interface {
	Name() string
	SearchNews(ctx context.Context, q NewsQuery) NewsBatch
}

// ImageProvider searches images for one keyword.
type ImageProvider interface {
	Name() string
	SearchImages(ctx context.Context, q ImageQuery) []models.ImageResult
}

// NewProviders assembles the configured providers. Either slice may be empty;
// the pipeline proceeds with empty corpora for the missing kind.
func NewProviders(cfg config.SourcesConfig, hc *httpx.Client, metrics *telemetry.Metrics, logger *log.Logger) ([]NewsProvider, []ImageProvider) {
	var news []NewsProvider
	var images []ImageProvider
	if cfg.News.URL != "" {
		news = append(news, &bochaProvider{client: bocha.New(cfg.News.URL, cfg.News.APIKey, hc, logger), metrics: metrics})
	}
	if cfg.Image.URL != "" {
		images = append(images, &searxngProvider{client: searxng.New(cfg.Image.URL, hc, logger), metrics: metrics})
	}
	return news, images
}

type bochaProvider struct {
	client  *bocha.Client
	metrics *telemetry.Metrics
}

func (p *bochaProvider) Name() string { return "bocha" }

func (p *bochaProvider) SearchNews(ctx context.Context, q NewsQuery) NewsBatch {
	news, imgs, err := p.client.Search(ctx, bocha.Query{Query: q.Query, Count: q.Count, Freshness: q.Freshness})
	p.metrics.RecordProviderRequest(p.Name(), err)
	return NewsBatch{News: news, Images: imgs}
}

type searxngProvider struct {
	client  *searxng.Client
	metrics *telemetry.Metrics
}

func (p *searxngProvider) Name() string { return "searxng" }

func (p *searxngProvider) SearchImages(ctx context.Context, q ImageQuery) []models.ImageResult {
	imgs, err := p.client.SearchImages(ctx, searxng.Query{
		Query:    q.Query,
		Page:     q.Page,
		Language: q.Language,
		Category: q.Category,
	})
	p.metrics.RecordProviderRequest(p.Name(), err)
	return imgs
}
