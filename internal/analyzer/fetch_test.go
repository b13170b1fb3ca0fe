package analyzer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchMetadataCachesByURL(t *testing.T) {
	var hits int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("<title>Cached Page</title>"))
	}))
	defer ts.Close()

	f := NewFetcher(ts.Client())
	defer f.Close()
	ctx := context.Background()

	meta1, err := f.FetchMetadata(ctx, ts.URL)
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	meta2, err := f.FetchMetadata(ctx, ts.URL)
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}

	if hits != 1 {
		t.Fatalf("expected 1 upstream hit, server saw %d", hits)
	}
	if meta1["title"] != "Cached Page" || meta2["title"] != "Cached Page" {
		t.Fatalf("unexpected metadata: %+v / %+v", meta1, meta2)
	}
}

func TestFetchMetadataRejectsUnsupportedScheme(t *testing.T) {
	f := NewFetcher(nil)
	defer f.Close()
	if _, err := f.FetchMetadata(context.Background(), "ftp://example.com/file"); err == nil {
		t.Fatal("expected error for unsupported scheme")
	}
}
