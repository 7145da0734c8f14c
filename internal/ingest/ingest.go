// Package ingest fans provider searches out over the keyword plan, merges
// the result streams, deduplicates them and keeps only validated images.
package ingest

import (
	"context"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/huhu-tiger/reportgen/internal/search"
	"github.com/huhu-tiger/reportgen/internal/vision"
	"github.com/huhu-tiger/reportgen/models"
)

// ImageValidator classifies one image candidate. Satisfied by
// *vision.Validator.
type ImageValidator interface {
	Validate(ctx context.Context, img models.ImageResult) models.ImageResult
}

// Params are the per-run knobs for one gather pass.
type Params struct {
	NewsPerKeyword int
	ImagePage      int
	Language       string
	FanOut         int
}

// Progress reports raw (pre-dedup) result counts for one completed keyword.
type Progress struct {
	Keyword    string
	NewsCount  int
	ImageCount int
}

// Ingestor owns the gather stage. Provider failures degrade to partial
// corpora; only cancellation aborts a gather.
type Ingestor struct {
	news   []search.NewsProvider
	images []search.ImageProvider
	vision ImageValidator
	logger *log.Logger
}

func New(news []search.NewsProvider, images []search.ImageProvider, validator ImageValidator, logger *log.Logger) *Ingestor {
	if logger == nil {
		logger = log.New(log.Writer(), "[INGEST] ", log.LstdFlags)
	}
	return &Ingestor{news: news, images: images, vision: validator, logger: logger}
}

// Gather searches all keywords, merges and dedups the results, validates
// image candidates and returns the run corpus. onProgress fires once per
// keyword on completion; completions may interleave, but the merge order is
// always (keyword index, provider order, provider result order), so the
// corpus is deterministic for fixed provider outputs.
func (ing *Ingestor) Gather(ctx context.Context, keywords []string, p Params, onProgress func(Progress)) (*models.RunCorpus, error) {
	fanOut := p.FanOut
	if fanOut <= 0 {
		fanOut = 5
	}

	chapters := make([]models.ChapterCorpus, len(keywords))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOut)
	for i, kw := range keywords {
		i, kw := i, kw
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			chapters[i] = ing.gatherKeyword(gctx, kw, p)
			if onProgress != nil {
				onProgress(Progress{
					Keyword:    kw,
					NewsCount:  len(chapters[i].News),
					ImageCount: len(chapters[i].Images),
				})
			}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	corpus := models.NewRunCorpus()
	var candidates []models.ImageResult
	seenImages := make(map[string]struct{})
	for _, ch := range chapters {
		for _, n := range ch.News {
			corpus.AddNews(n)
		}
		for _, img := range ch.Images {
			if img.ImageSrc == "" {
				continue
			}
			if _, ok := seenImages[img.ImageSrc]; ok {
				continue
			}
			seenImages[img.ImageSrc] = struct{}{}
			candidates = append(candidates, img)
		}
	}

	validated, err := ing.validateImages(ctx, candidates, fanOut)
	if err != nil {
		return nil, err
	}
	for _, img := range validated {
		if vision.Valid(img) {
			corpus.AddImage(img)
		}
	}
	ing.logger.Printf("gathered %d news, kept %d of %d image candidates across %d keyword(s)",
		len(corpus.News()), len(corpus.Images()), len(candidates), len(keywords))

	return corpus, nil
}

func (ing *Ingestor) gatherKeyword(ctx context.Context, keyword string, p Params) models.ChapterCorpus {
	ch := models.ChapterCorpus{Keyword: keyword}
	for _, np := range ing.news {
		batch := np.SearchNews(ctx, search.NewsQuery{Query: keyword, Count: p.NewsPerKeyword})
		ch.News = append(ch.News, batch.News...)
		ch.Images = append(ch.Images, batch.Images...)
	}
	for _, ip := range ing.images {
		imgs := ip.SearchImages(ctx, search.ImageQuery{
			Query:    keyword,
			Page:     p.ImagePage,
			Language: p.Language,
			Category: searchCategoryImages,
		})
		ch.Images = append(ch.Images, imgs...)
	}
	return ch
}

const searchCategoryImages = "images"

// validateImages captions candidates concurrently while preserving candidate
// order. An absent validator fails closed: every image stays unvalidated and
// is dropped by the caller.
func (ing *Ingestor) validateImages(ctx context.Context, candidates []models.ImageResult, fanOut int) ([]models.ImageResult, error) {
	if ing.vision == nil {
		return candidates, nil
	}
	out := make([]models.ImageResult, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOut)
	for i, img := range candidates {
		i, img := i, img
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = ing.vision.Validate(gctx, img)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
