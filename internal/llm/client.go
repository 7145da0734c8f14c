package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/huhu-tiger/reportgen/internal/telemetry"
)

// Client issues chat-completion requests against OpenAI-compatible endpoints.
// All calls go through the shared HTTP client so the process-wide in-flight
// bound also covers LLM traffic.
type Client struct {
	httpClient *http.Client
	metrics    *telemetry.Metrics
}

// NewClient builds a chat client on top of httpClient. metrics may be nil.
func NewClient(httpClient *http.Client, metrics *telemetry.Metrics) *Client {
	return &Client{httpClient: httpClient, metrics: metrics}
}

func (c *Client) api(ep ModelEndpoint) *openai.Client {
	cfg := openai.DefaultConfig(ep.APIKey)
	if ep.BaseURL != "" {
		cfg.BaseURL = ep.BaseURL
	}
	if c.httpClient != nil {
		cfg.HTTPClient = c.httpClient
	}
	return openai.NewClientWithConfig(cfg)
}

// Complete performs one chat completion and returns the message content.
func (c *Client) Complete(ctx context.Context, ep ModelEndpoint, system, user string) (string, error) {
	var messages []openai.ChatCompletionMessage
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: user})

	start := time.Now()
	resp, err := c.api(ep).CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    ep.Model,
		Messages: messages,
	})
	c.metrics.ObserveLLMRequest(ep.Model, time.Since(start))
	if err != nil {
		return "", fmt.Errorf("chat completion against %q: %w", ep.Name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion against %q: no choices in response", ep.Name)
	}
	return resp.Choices[0].Message.Content, nil
}

// CompleteJSON performs one structured-output chat completion and decodes the
// result into out. schema must describe out's JSON shape.
func (c *Client) CompleteJSON(ctx context.Context, ep ModelEndpoint, system, user, schemaName string, schema *jsonschema.Definition, out any) error {
	var messages []openai.ChatCompletionMessage
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: user})

	start := time.Now()
	resp, err := c.api(ep).CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    ep.Model,
		Messages: messages,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   schemaName,
				Schema: schema,
				Strict: true,
			},
		},
	})
	c.metrics.ObserveLLMRequest(ep.Model, time.Since(start))
	if err != nil {
		return fmt.Errorf("structured completion against %q: %w", ep.Name, err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("structured completion against %q: no choices in response", ep.Name)
	}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), out); err != nil {
		return fmt.Errorf("structured completion against %q: %w", ep.Name, err)
	}
	return nil
}

// CompleteVision sends one multimodal user message bundling an instruction and
// an image URL, returning the model's caption.
func (c *Client) CompleteVision(ctx context.Context, ep ModelEndpoint, instruction, imageURL string) (string, error) {
	start := time.Now()
	resp, err := c.api(ep).CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: ep.Model,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: instruction},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: imageURL}},
			},
		}},
	})
	c.metrics.ObserveLLMRequest(ep.Model, time.Since(start))
	if err != nil {
		return "", fmt.Errorf("vision completion against %q: %w", ep.Name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("vision completion against %q: no choices in response", ep.Name)
	}
	return resp.Choices[0].Message.Content, nil
}

// Stream performs a streaming chat completion. onDelta is invoked for every
// content chunk in arrival order; the concatenated content is returned.
func (c *Client) Stream(ctx context.Context, ep ModelEndpoint, system, user string, onDelta func(string)) (string, error) {
	var messages []openai.ChatCompletionMessage
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: user})

	start := time.Now()
	stream, err := c.api(ep).CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    ep.Model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		c.metrics.ObserveLLMRequest(ep.Model, time.Since(start))
		return "", fmt.Errorf("streaming completion against %q: %w", ep.Name, err)
	}
	defer stream.Close()

	var content []byte
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			c.metrics.ObserveLLMRequest(ep.Model, time.Since(start))
			return "", fmt.Errorf("streaming completion against %q: %w", ep.Name, err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		content = append(content, delta...)
		if onDelta != nil {
			onDelta(delta)
		}
	}
	c.metrics.ObserveLLMRequest(ep.Model, time.Since(start))
	return string(content), nil
}
