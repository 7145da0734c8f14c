package models

import (
	"encoding/json"
	"testing"
)

func TestRunCorpusFirstSeenWins(t *testing.T) {
	c := NewRunCorpus()
	if !c.AddNews(NewsResult{Title: "A", URL: "https://shared", Summary: "from a"}) {
		t.Fatalf("first insert should succeed")
	}
	if c.AddNews(NewsResult{Title: "B", URL: "https://shared", Summary: "from b"}) {
		t.Fatalf("duplicate url must be rejected")
	}
	if got := c.News(); len(got) != 1 || got[0].Title != "A" {
		t.Fatalf("expected first-seen record to survive, got %+v", got)
	}
}

func TestRunCorpusRejectsEmptyKeys(t *testing.T) {
	c := NewRunCorpus()
	if c.AddNews(NewsResult{Title: "no url"}) {
		t.Fatalf("news without url must be rejected")
	}
	if c.AddImage(ImageResult{Description: "no src"}) {
		t.Fatalf("image without src must be rejected")
	}
	if !c.Empty() {
		t.Fatalf("corpus should be empty")
	}
}

func TestRunCorpusJSONRoundTrip(t *testing.T) {
	c := NewRunCorpus()
	c.AddNews(NewsResult{Title: "A", URL: "https://a", Summary: "sa"})
	c.AddImage(ImageResult{ImageSrc: "https://img1", Description: "a chart"})

	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	restored := NewRunCorpus()
	if err := json.Unmarshal(data, restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !restored.HasNewsURL("https://a") || !restored.HasImageSrc("https://img1") {
		t.Fatalf("round trip lost records: %s", data)
	}
	if len(restored.News()) != 1 || len(restored.Images()) != 1 {
		t.Fatalf("unexpected sizes after round trip")
	}
}

func TestRunCorpusMarshalEmpty(t *testing.T) {
	data, err := json.Marshal(NewRunCorpus())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"news":[],"images":[]}` {
		t.Fatalf("empty corpus should marshal to empty arrays, got %s", data)
	}
}

func TestKeywordPlanNormalize(t *testing.T) {
	p := KeywordPlan{Topic: "chips", Keywords: []string{" semiconductors ", "", "fabs", "EUV", "extra"}}
	norm := p.Normalize()
	if len(norm.Keywords) != MaxKeywords {
		t.Fatalf("expected %d keywords, got %v", MaxKeywords, norm.Keywords)
	}
	if norm.Keywords[0] != "semiconductors" || norm.Keywords[2] != "EUV" {
		t.Fatalf("unexpected normalization: %v", norm.Keywords)
	}
}
