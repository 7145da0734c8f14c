// Package vision classifies image URLs for inclusion in the report.
package vision

import (
	"context"
	"log"
	"strings"

	"github.com/huhu-tiger/reportgen/internal/llm"
	"github.com/huhu-tiger/reportgen/internal/telemetry"
	"github.com/huhu-tiger/reportgen/models"
)

// InvalidSentinel marks an image with no pictorial content. The predicate is
// a substring match, so the marker must stay language-independent and must
// never appear in real captions.
const InvalidSentinel = "[INVALID_IMAGE]"

const instruction = "You are an image analyst. If the image has pictorial content, briefly describe it. " +
	"If it is text-only or contains no image content, return exactly the string " + InvalidSentinel + " and nothing else."

// Validator captions image URLs through a multimodal model. Without a
// configured vision endpoint every image is classified invalid (fail-closed).
type Validator struct {
	client     *llm.Client
	endpoint   llm.ModelEndpoint
	configured bool
	metrics    *telemetry.Metrics
	logger     *log.Logger
}

// NewValidator resolves the vision endpoint from the registry. A missing
// endpoint is not an error; the validator then drops every image.
func NewValidator(reg *llm.Registry, client *llm.Client, metrics *telemetry.Metrics, logger *log.Logger) *Validator {
	if logger == nil {
		logger = log.New(log.Writer(), "[VISION] ", log.LstdFlags)
	}
	v := &Validator{client: client, metrics: metrics, logger: logger}
	ep, err := reg.Get("vision")
	if err != nil {
		logger.Printf("no vision endpoint configured, all images will be dropped: %v", err)
		return v
	}
	v.endpoint = ep
	v.configured = true
	return v
}

// Validate classifies one image URL. Transport failures and the missing
// endpoint both classify the image invalid rather than risking a broken
// report.
func (v *Validator) Validate(ctx context.Context, img models.ImageResult) models.ImageResult {
	if !v.configured {
		img.Description = InvalidSentinel
		v.metrics.RecordImageVerdict(false)
		return img
	}
	caption, err := v.client.CompleteVision(ctx, v.endpoint, instruction, img.ImageSrc)
	if err != nil {
		v.logger.Printf("validation of %s failed: %v", img.ImageSrc, err)
		img.Description = InvalidSentinel
		v.metrics.RecordImageVerdict(false)
		return img
	}
	img.Description = caption
	v.metrics.RecordImageVerdict(Valid(img))
	return img
}

// Valid reports whether a validated image may enter the corpus.
func Valid(img models.ImageResult) bool {
	return img.Description != "" && !strings.Contains(img.Description, InvalidSentinel)
}
