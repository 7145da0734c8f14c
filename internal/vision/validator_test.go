package vision

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/huhu-tiger/reportgen/config"
	"github.com/huhu-tiger/reportgen/internal/llm"
	"github.com/huhu-tiger/reportgen/models"
)

func registryFor(srvURL string) *llm.Registry {
	return llm.NewRegistry(config.LLMConfig{Models: map[string]config.ModelConfig{
		"vision": {APIKey: "k", BaseURL: srvURL + "/v1", Model: "vl-test"},
	}})
}

func visionServer(t *testing.T, caption string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"choices":[{"message":{"role":"assistant","content":%q}}]}`, caption)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestValidateKeepsCaptionedImage(t *testing.T) {
	srv := visionServer(t, "a line chart of wafer output")
	v := NewValidator(registryFor(srv.URL), llm.NewClient(nil, nil), nil, nil)

	got := v.Validate(context.Background(), models.ImageResult{ImageSrc: "https://img1"})
	if got.Description != "a line chart of wafer output" {
		t.Fatalf("unexpected description %q", got.Description)
	}
	if !Valid(got) {
		t.Fatalf("captioned image should be valid")
	}
}

func TestValidateDetectsSentinel(t *testing.T) {
	srv := visionServer(t, InvalidSentinel)
	v := NewValidator(registryFor(srv.URL), llm.NewClient(nil, nil), nil, nil)

	got := v.Validate(context.Background(), models.ImageResult{ImageSrc: "https://img2"})
	if Valid(got) {
		t.Fatalf("sentinel description must classify invalid")
	}
}

func TestValidateSentinelAsSubstring(t *testing.T) {
	srv := visionServer(t, "I think this is "+InvalidSentinel+" content")
	v := NewValidator(registryFor(srv.URL), llm.NewClient(nil, nil), nil, nil)

	got := v.Validate(context.Background(), models.ImageResult{ImageSrc: "https://img3"})
	if Valid(got) {
		t.Fatalf("sentinel substring must classify invalid")
	}
}

func TestValidateFailsClosedWithoutEndpoint(t *testing.T) {
	reg := llm.NewRegistry(config.LLMConfig{Models: map[string]config.ModelConfig{}})
	v := NewValidator(reg, llm.NewClient(nil, nil), nil, nil)

	got := v.Validate(context.Background(), models.ImageResult{ImageSrc: "https://img4"})
	if Valid(got) {
		t.Fatalf("missing endpoint must classify invalid")
	}
	if got.Description != InvalidSentinel {
		t.Fatalf("expected sentinel description, got %q", got.Description)
	}
}

func TestValidateFailsClosedOnTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)
	v := NewValidator(registryFor(srv.URL), llm.NewClient(nil, nil), nil, nil)

	got := v.Validate(context.Background(), models.ImageResult{ImageSrc: "https://img5"})
	if Valid(got) {
		t.Fatalf("transport failure must classify invalid")
	}
}

func TestValidRejectsUnvalidatedImage(t *testing.T) {
	if Valid(models.ImageResult{ImageSrc: "https://img6"}) {
		t.Fatalf("image without description must not be valid")
	}
}
