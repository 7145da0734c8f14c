// Package searxng adapts a SearXNG-style metasearch instance for image
// search (GET with format=json).
package searxng

import (
	"context"
	"log"
	"net/url"
	"strconv"

	"github.com/huhu-tiger/reportgen/internal/httpx"
	"github.com/huhu-tiger/reportgen/models"
)

// Recognized search categories.
const (
	CategoryGeneral = "general"
	CategoryImages  = "images"
)

type Client struct {
	url    string
	http   *httpx.Client
	logger *log.Logger
}

type Query struct {
	Query    string
	Page     int
	Language string
	Category string
}

func New(endpoint string, hc *httpx.Client, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(log.Writer(), "[SEARXNG] ", log.LstdFlags)
	}
	return &Client{url: endpoint, http: hc, logger: logger}
}

// SearchImages performs one image search. Unrecognized categories are
// normalized to general with a warning. Transport failures degrade to an
// empty list; the error is returned for accounting only.
func (c *Client) SearchImages(ctx context.Context, q Query) ([]models.ImageResult, error) {
	category := q.Category
	switch category {
	case CategoryGeneral, CategoryImages:
	case "":
		category = CategoryGeneral
	default:
		c.logger.Printf("warn: unrecognized category %q, using %q", category, CategoryGeneral)
		category = CategoryGeneral
	}
	page := q.Page
	if page < 1 {
		page = 1
	}

	params := url.Values{}
	params.Set("q", q.Query)
	params.Set("format", "json")
	params.Set("pageno", strconv.Itoa(page))
	if q.Language != "" {
		params.Set("language", q.Language)
	}
	params.Set("categories", category)

	var resp struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
			ImgSrc  string `json:"img_src"`
		} `json:"results"`
	}
	if err := c.http.DoJSON(ctx, "GET", c.url, nil, params, nil, &resp); err != nil {
		c.logger.Printf("image search %q failed: %v", q.Query, err)
		return nil, err
	}

	var out []models.ImageResult
	for _, r := range resp.Results {
		if r.ImgSrc == "" {
			continue
		}
		out = append(out, models.ImageResult{ImageSrc: r.ImgSrc, Title: r.Title})
	}
	return out, nil
}
