package bocha

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/huhu-tiger/reportgen/internal/httpx"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	hc := httpx.NewClient(time.Second, httpx.NewLimiter(2))
	return New(srv.URL, "test-key", hc, nil), srv
}

func TestSearchMapsBothStreams(t *testing.T) {
	var gotBody map[string]any
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"data":{
			"webPages":{"value":[
				{"name":"A","url":"https://a","summary":"sa"},
				{"name":"B","url":"https://b","summary":"sb"}
			]},
			"images":{"value":[{"contentUrl":"https://img1"},{"contentUrl":"https://img2"}]}
		}}`))
	})

	news, images, err := c.Search(context.Background(), Query{Query: "chip industry", Count: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(news) != 2 || news[0].Title != "A" || news[1].URL != "https://b" {
		t.Fatalf("unexpected news mapping: %+v", news)
	}
	if len(images) != 2 || images[0].ImageSrc != "https://img1" {
		t.Fatalf("unexpected image mapping: %+v", images)
	}

	if gotBody["query"] != "chip industry" || gotBody["summary"] != true {
		t.Fatalf("unexpected request body: %v", gotBody)
	}
	if gotBody["freshness"] != "noLimit" {
		t.Fatalf("freshness should default to noLimit, got %v", gotBody["freshness"])
	}
}

func TestSearchCapsNewsAtCount(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"webPages":{"value":[
			{"name":"A","url":"https://a"},
			{"name":"B","url":"https://b"},
			{"name":"C","url":"https://c"}
		]}}}`))
	})

	news, _, err := c.Search(context.Background(), Query{Query: "x", Count: 2})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(news) != 2 {
		t.Fatalf("expected count cap of 2, got %d", len(news))
	}
}

func TestSearchPreservesProviderOrder(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"webPages":{"value":[
			{"name":"third","url":"https://3"},
			{"name":"first","url":"https://1"},
			{"name":"second","url":"https://2"}
		]}}}`))
	})

	news, _, _ := c.Search(context.Background(), Query{Query: "x", Count: 10})
	if news[0].Title != "third" || news[2].Title != "second" {
		t.Fatalf("provider order not preserved: %+v", news)
	}
}

func TestSearchSoftFailsOnTransportError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusInternalServerError)
	})

	news, images, err := c.Search(context.Background(), Query{Query: "x", Count: 5})
	if err == nil {
		t.Fatalf("expected accounting error")
	}
	if news != nil || images != nil {
		t.Fatalf("failure must yield empty results, got %v %v", news, images)
	}
}

func TestSearchIgnoresMissingImageBlock(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"webPages":{"value":[{"name":"A","url":"https://a"}]}}}`))
	})

	news, images, err := c.Search(context.Background(), Query{Query: "x", Count: 5})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(news) != 1 || len(images) != 0 {
		t.Fatalf("unexpected results: %v %v", news, images)
	}
}
