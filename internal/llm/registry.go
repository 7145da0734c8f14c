// Package llm resolves logical model names to endpoints and wraps chat
// completions against OpenAI-compatible APIs.
package llm

import (
	"fmt"
	"sort"

	"github.com/huhu-tiger/reportgen/config"
)

// ModelType distinguishes plain chat endpoints from multimodal ones.
type ModelType string

const (
	ModelTypeChat   ModelType = "chat"
	ModelTypeVision ModelType = "vision"
)

// ModelEndpoint holds the credentials for one remote model. Read-only after
// registry initialization.
type ModelEndpoint struct {
	Name    string
	BaseURL string
	APIKey  string
	Model   string
	Type    ModelType
}

// NotConfiguredError is returned when a logical model has no endpoint.
type NotConfiguredError struct {
	Name string
}

func (e *NotConfiguredError) Error() string {
	return fmt.Sprintf("model %q is not configured", e.Name)
}

// Registry is the process-wide mapping from logical model name to endpoint.
// It performs no network I/O.
type Registry struct {
	endpoints map[string]ModelEndpoint
}

// NewRegistry builds the registry from configuration. Only configured models
// are present; partial configurations are fine.
func NewRegistry(cfg config.LLMConfig) *Registry {
	r := &Registry{endpoints: make(map[string]ModelEndpoint, len(cfg.Models))}
	for name, m := range cfg.Models {
		mt := ModelTypeChat
		if name == "vision" {
			mt = ModelTypeVision
		}
		r.endpoints[name] = ModelEndpoint{
			Name:    name,
			BaseURL: m.BaseURL,
			APIKey:  m.APIKey,
			Model:   m.Model,
			Type:    mt,
		}
	}
	return r
}

// Get resolves a logical model name.
func (r *Registry) Get(name string) (ModelEndpoint, error) {
	ep, ok := r.endpoints[name]
	if !ok {
		return ModelEndpoint{}, &NotConfiguredError{Name: name}
	}
	return ep, nil
}

// Names lists the configured logical models, sorted for stable output.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.endpoints))
	for name := range r.endpoints {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
