// Package bocha adapts the BochaAI-style web-search API. One POST returns
// both web pages and image hits; both streams are surfaced.
package bocha

import (
	"context"
	"log"

	"github.com/huhu-tiger/reportgen/internal/httpx"
	"github.com/huhu-tiger/reportgen/models"
)

const defaultFreshness = "noLimit"

type Client struct {
	url    string
	apiKey string
	http   *httpx.Client
	logger *log.Logger
}

// Query is one keyword search. Count bounds the returned news list.
type Query struct {
	Query     string
	Count     int
	Freshness string
}

func New(url, apiKey string, hc *httpx.Client, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(log.Writer(), "[BOCHA] ", log.LstdFlags)
	}
	return &Client{url: url, apiKey: apiKey, http: hc, logger: logger}
}

// Search performs one keyword search. Transport failures degrade to empty
// results; the error is returned for accounting only and is never fatal.
func (c *Client) Search(ctx context.Context, q Query) ([]models.NewsResult, []models.ImageResult, error) {
	freshness := q.Freshness
	if freshness == "" {
		freshness = defaultFreshness
	}
	body := map[string]any{
		"query":     q.Query,
		"count":     q.Count,
		"freshness": freshness,
		"summary":   true,
	}
	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}

	var resp struct {
		Data struct {
			WebPages struct {
				Value []struct {
					Name    string `json:"name"`
					URL     string `json:"url"`
					Summary string `json:"summary"`
				} `json:"value"`
			} `json:"webPages"`
			Images struct {
				Value []struct {
					ContentURL string `json:"contentUrl"`
				} `json:"value"`
			} `json:"images"`
		} `json:"data"`
	}
	if err := c.http.DoJSON(ctx, "POST", c.url, headers, nil, body, &resp); err != nil {
		c.logger.Printf("search %q failed: %v", q.Query, err)
		return nil, nil, err
	}

	var news []models.NewsResult
	for _, v := range resp.Data.WebPages.Value {
		if q.Count > 0 && len(news) >= q.Count {
			break
		}
		news = append(news, models.NewsResult{Title: v.Name, URL: v.URL, Summary: v.Summary})
	}
	var images []models.ImageResult
	for _, v := range resp.Data.Images.Value {
		images = append(images, models.ImageResult{ImageSrc: v.ContentURL})
	}
	return news, images, nil
}
