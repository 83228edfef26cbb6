package embedclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestEmbed_ReturnsVector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{"embedding": []float64{0.1, 0.2, 0.3}})
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, Model: "nomic-embed-text", RequestsPerSec: 100, Burst: 100})
	vec, err := c.Embed(context.Background(), "limits")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 3 || vec[1] != float32(0.2) {
		t.Fatalf("unexpected vector: %v", vec)
	}
}

func TestEmbed_NonOKStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, Model: "nomic-embed-text", RequestsPerSec: 100, Burst: 100})
	if _, err := c.Embed(context.Background(), "limits"); err == nil {
		t.Fatal("expected error on non-200 status")
	}
}

func TestEmbed_NilClientErrors(t *testing.T) {
	var c *Client
	if _, err := c.Embed(context.Background(), "x"); err == nil {
		t.Fatal("expected nil-client Embed to error")
	}
}

func TestCommentary_ReturnsResponseText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{"response": "This step introduces limits."})
	}))
	defer srv.Close()

	c := New(Options{BaseURL: srv.URL, Model: "llama3", RequestsPerSec: 100, Burst: 100})
	text, err := c.Commentary(context.Background(), "step 3 summary")
	if err != nil {
		t.Fatalf("Commentary: %v", err)
	}
	if text != "This step introduces limits." {
		t.Fatalf("unexpected commentary: %q", text)
	}
}
