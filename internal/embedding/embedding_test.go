package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAIProviderEmbed(t *testing.T) {
	// OpenAIProvider posts to endpoint+"/embeddings", so we use a mux.
	mux := http.NewServeMux()
	mux.HandleFunc("/embeddings", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("got auth %q, want Bearer sk-test", got)
		}
		var req openAIRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "test-model" || len(req.Input) != 2 {
			t.Errorf("unexpected request %+v", req)
		}
		// Returned out of order on purpose.
		json.NewEncoder(w).Encode(openAIResponse{
			Data: []openAIEmbedding{
				{Index: 1, Embedding: []float32{0.4, 0.5, 0.6}},
				{Index: 0, Embedding: []float32{0.1, 0.2, 0.3}},
			},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := NewOpenAIProvider(Config{Endpoint: srv.URL, Model: "test-model", APIKey: "sk-test"})

	vectors, err := p.Embed(context.Background(), []string{"hello", "world"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vectors) != 2 {
		t.Fatalf("got %d vectors, want 2", len(vectors))
	}
	if vectors[0][0] != 0.1 || vectors[1][0] != 0.4 {
		t.Errorf("vectors not ordered by index: %v", vectors)
	}
	if p.Dimension() != 3 {
		t.Errorf("got dimension %d, want 3", p.Dimension())
	}
}

func TestOpenAIProviderCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(openAIResponse{
			Data: []openAIEmbedding{{Embedding: []float32{1}}},
		})
	}))
	defer srv.Close()

	p := NewOpenAIProvider(Config{Endpoint: srv.URL})
	if _, err := p.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected error for missing vector")
	}
}

func TestOpenAIProviderStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewOpenAIProvider(Config{Endpoint: srv.URL})
	if _, err := p.Embed(context.Background(), []string{"a"}); err == nil {
		t.Fatal("expected error for 429")
	}
}

func TestOpenAIProviderEmbed_Empty(t *testing.T) {
	p := NewOpenAIProvider(Config{Endpoint: "http://unused", Dimension: 128})

	vectors, err := p.Embed(context.Background(), []string{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vectors != nil {
		t.Errorf("expected nil for empty input, got %v", vectors)
	}
	if d := p.Dimension(); d != 128 {
		t.Errorf("got dimension %d, want configured default 128", d)
	}
}

func TestOllamaProviderEmbed(t *testing.T) {
	calls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/api/embeddings", func(w http.ResponseWriter, r *http.Request) {
		calls++
		var req ollamaRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Prompt == "" {
			t.Error("empty prompt")
		}
		json.NewEncoder(w).Encode(ollamaResponse{Embedding: []float32{0.1, 0.2}})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := NewOllamaProvider(Config{Endpoint: srv.URL, Model: "nomic-embed-text"})
	vectors, err := p.Embed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vectors) != 3 || calls != 3 {
		t.Fatalf("got %d vectors over %d calls, want 3 and 3", len(vectors), calls)
	}
	if p.Dimension() != 2 {
		t.Errorf("got dimension %d, want 2", p.Dimension())
	}
}

func TestNew(t *testing.T) {
	if p, err := New(Config{Provider: "ollama"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	} else if _, ok := p.(*OllamaProvider); !ok {
		t.Errorf("got %T, want *OllamaProvider", p)
	}
	if _, err := New(Config{Provider: "word2vec"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}
