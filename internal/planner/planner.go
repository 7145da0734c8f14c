// Package planner turns a user topic into a bounded keyword plan.
package planner

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/huhu-tiger/reportgen/internal/llm"
	"github.com/huhu-tiger/reportgen/models"
)

// Error reports that the model failed to produce a usable keyword plan after
// the retry.
type Error struct {
	Topic string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("planning keywords for %q: %v", e.Topic, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

const systemPrompt = `You are a search expert. Given a research topic, produce the search keywords
that best cover it. Emit at most three keywords, ordered from most to least
important, in the same language as the topic. Do not invoke any tools.`

var planSchema = &jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"keyword_list": {
			Type:        jsonschema.Array,
			Description: "Up to three search keywords, most important first.",
			Items:       &jsonschema.Definition{Type: jsonschema.String},
		},
	},
	Required:             []string{"keyword_list"},
	AdditionalProperties: false,
}

// Planner performs the keyword planning LLM call. It is not deterministic;
// stability across runs comes from the orchestrator's cache only.
type Planner struct {
	client   *llm.Client
	endpoint llm.ModelEndpoint
	logger   *log.Logger
}

// New resolves the planner endpoint from the registry.
func New(reg *llm.Registry, client *llm.Client, logger *log.Logger) (*Planner, error) {
	ep, err := reg.Get("planner")
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[PLANNER] ", log.LstdFlags)
	}
	return &Planner{client: client, endpoint: ep, logger: logger}, nil
}

// Plan derives 1..3 keywords from a non-empty topic. A malformed or empty
// structure is retried once; a second failure yields *Error.
func (p *Planner) Plan(ctx context.Context, topic string) (models.KeywordPlan, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return models.KeywordPlan{}, &Error{Topic: topic, Err: fmt.Errorf("topic is empty")}
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if err := ctx.Err(); err != nil {
			return models.KeywordPlan{}, err
		}
		plan, err := p.planOnce(ctx, topic)
		if err == nil {
			p.logger.Printf("planned %d keyword(s) for %q: %v", len(plan.Keywords), topic, plan.Keywords)
			return plan, nil
		}
		lastErr = err
		p.logger.Printf("attempt %d failed: %v", attempt+1, err)
	}
	return models.KeywordPlan{}, &Error{Topic: topic, Err: lastErr}
}

func (p *Planner) planOnce(ctx context.Context, topic string) (models.KeywordPlan, error) {
	var out struct {
		KeywordList []string `json:"keyword_list"`
	}
	if err := p.client.CompleteJSON(ctx, p.endpoint, systemPrompt, topic, "keyword_plan", planSchema, &out); err != nil {
		return models.KeywordPlan{}, err
	}
	plan := models.KeywordPlan{Topic: topic, Keywords: out.KeywordList}.Normalize()
	if len(plan.Keywords) == 0 {
		return models.KeywordPlan{}, fmt.Errorf("model returned no keywords")
	}
	return plan, nil
}
