package googlebooks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSearchBuildsQuery(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.Write([]byte(`{"items":[
			{"id":"vol1","volumeInfo":{
				"title":"Matilda",
				"authors":["Roald Dahl"],
				"description":"A clever girl.",
				"imageLinks":{"thumbnail":"http://img/thumb.jpg"}
			}},
			{"id":"vol2","volumeInfo":{"title":"Bare"}}
		]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.Client())
	volumes, err := client.Search(context.Background(), "matilda", "dahl", "978-0-14-032872-1")
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{"intitle:matilda", "inauthor:dahl", "isbn:9780140328721"} {
		if !strings.Contains(gotQuery, want) {
			t.Errorf("Query %q missing term %q", gotQuery, want)
		}
	}

	if len(volumes) != 2 {
		t.Fatalf("Expected 2 volumes, got %d", len(volumes))
	}
	first := volumes[0]
	if first.VolumeID != "vol1" || first.Title != "Matilda" {
		t.Errorf("Unexpected volume: %+v", first)
	}
	if first.Description == nil || *first.Description != "A clever girl." {
		t.Errorf("Unexpected description: %v", first.Description)
	}
	if first.ThumbnailURL == nil || *first.ThumbnailURL != "http://img/thumb.jpg" {
		t.Errorf("Unexpected thumbnail: %v", first.ThumbnailURL)
	}
	if volumes[1].Description != nil || volumes[1].ThumbnailURL != nil {
		t.Error("Expected nil optional fields for bare volume")
	}
}

func TestSearchEmptyTerms(t *testing.T) {
	// No terms means no request at all.
	client := NewClient("http://should-not-be-called.invalid", nil)
	volumes, err := client.Search(context.Background(), "", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if volumes != nil {
		t.Errorf("Expected nil result, got %v", volumes)
	}
}

func TestSearchUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.Client())
	_, err := client.Search(context.Background(), "anything", "", "")
	if err == nil {
		t.Fatal("Expected error on upstream failure")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("Expected status in error, got %v", err)
	}
}
