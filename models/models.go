package models

import (
	"encoding/json"
	"strings"
)

// NewsResult is a single news hit returned by a search provider. URL is the
// identity key used for deduplication.
type NewsResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Summary string `json:"summary"`
}

// ImageResult is a single image candidate. ImageSrc is the identity key.
// Description is empty until the vision validator has classified the image.
type ImageResult struct {
	ImageSrc    string `json:"image_src"`
	Description string `json:"description,omitempty"`
	Title       string `json:"title,omitempty"`
}

// MaxKeywords bounds the keyword plan derived from one topic.
const MaxKeywords = 3

// KeywordPlan is the ordered list of search terms derived from a topic.
type KeywordPlan struct {
	Topic    string   `json:"topic"`
	Keywords []string `json:"keyword_list"`
}

// Normalize trims keywords, drops empties and caps the plan at MaxKeywords.
func (p KeywordPlan) Normalize() KeywordPlan {
	out := KeywordPlan{Topic: p.Topic}
	for _, kw := range p.Keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		out.Keywords = append(out.Keywords, kw)
		if len(out.Keywords) == MaxKeywords {
			break
		}
	}
	return out
}

// ChapterCorpus holds the raw provider results for one keyword, in
// provider-returned order.
type ChapterCorpus struct {
	Keyword string        `json:"keyword"`
	News    []NewsResult  `json:"news"`
	Images  []ImageResult `json:"images"`
}

// RunCorpus is the deduplicated union of all chapter corpora for one run.
// Iteration order is first-seen insertion order, which the ingest stage
// guarantees to be deterministic for a fixed set of provider outputs.
type RunCorpus struct {
	news     []NewsResult
	images   []ImageResult
	newsIdx  map[string]int
	imageIdx map[string]int
}

func NewRunCorpus() *RunCorpus {
	return &RunCorpus{
		newsIdx:  make(map[string]int),
		imageIdx: make(map[string]int),
	}
}

// AddNews inserts a news record unless its URL was already seen. Reports
// whether the record was added.
func (c *RunCorpus) AddNews(n NewsResult) bool {
	if n.URL == "" {
		return false
	}
	if _, ok := c.newsIdx[n.URL]; ok {
		return false
	}
	c.newsIdx[n.URL] = len(c.news)
	c.news = append(c.news, n)
	return true
}

// AddImage inserts an image record unless its source was already seen.
func (c *RunCorpus) AddImage(img ImageResult) bool {
	if img.ImageSrc == "" {
		return false
	}
	if _, ok := c.imageIdx[img.ImageSrc]; ok {
		return false
	}
	c.imageIdx[img.ImageSrc] = len(c.images)
	c.images = append(c.images, img)
	return true
}

func (c *RunCorpus) HasNewsURL(url string) bool {
	_, ok := c.newsIdx[url]
	return ok
}

func (c *RunCorpus) HasImageSrc(src string) bool {
	_, ok := c.imageIdx[src]
	return ok
}

// News returns the deduplicated news records in first-seen order.
func (c *RunCorpus) News() []NewsResult { return c.news }

// Images returns the deduplicated, validated images in first-seen order.
func (c *RunCorpus) Images() []ImageResult { return c.images }

// Empty reports whether the corpus holds no news and no images.
func (c *RunCorpus) Empty() bool { return len(c.news) == 0 && len(c.images) == 0 }

type runCorpusJSON struct {
	News   []NewsResult  `json:"news"`
	Images []ImageResult `json:"images"`
}

func (c *RunCorpus) MarshalJSON() ([]byte, error) {
	doc := runCorpusJSON{News: c.news, Images: c.images}
	if doc.News == nil {
		doc.News = []NewsResult{}
	}
	if doc.Images == nil {
		doc.Images = []ImageResult{}
	}
	return json.Marshal(doc)
}

func (c *RunCorpus) UnmarshalJSON(data []byte) error {
	var doc runCorpusJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	*c = *NewRunCorpus()
	for _, n := range doc.News {
		c.AddNews(n)
	}
	for _, img := range doc.Images {
		c.AddImage(img)
	}
	return nil
}
