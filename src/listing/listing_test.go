package listing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func indexPage(hrefs ...string) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><body><ul>")
	for _, href := range hrefs {
		fmt.Fprintf(&b, `<li><a href="%s">%s</a></li>`, href, href)
	}
	b.WriteString("</ul></body></html>")
	return b.String()
}

// fileServer serves the specified pages by escaped path. Paths ending in
// .json are served as JSON, everything else as HTML.
func fileServer(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.EscapedPath()]
		if !ok {
			http.NotFound(w, r)
			return
		}
		if strings.HasSuffix(r.URL.Path, ".json") {
			w.Header().Set("Content-Type", "application/json")
		} else {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
		}
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(srv.URL, "songs", srv.Client(), 2)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestTracks(t *testing.T) {
	srv := fileServer(t, map[string]string{
		"/songs/ncs/": indexPage(
			"../",
			"b%20side.mp3",
			"cover.jpg",
			"info.json",
			"/songs/ncs/a.mp3",
			"c.MP3",
			"/elsewhere/d.mp3",
			"Caf%C3%A9.mp3",
		),
	})
	c := newTestClient(t, srv)

	tracks, err := c.Tracks(context.Background(), "songs/ncs")
	if err != nil {
		t.Fatal(err)
	}
	expected := []string{"b%20side.mp3", "a.mp3", "Caf%C3%A9.mp3"}
	if len(tracks) != len(expected) {
		t.Fatalf("Unexpected tracks: %q", tracks)
	}
	for i := range expected {
		if tracks[i] != expected[i] {
			t.Fatalf("Track %d: got %q, want %q", i, tracks[i], expected[i])
		}
	}
}

func TestTracksEmptyFolder(t *testing.T) {
	srv := fileServer(t, map[string]string{
		"/songs/empty/": indexPage("../", "info.json"),
	})
	c := newTestClient(t, srv)

	tracks, err := c.Tracks(context.Background(), "/songs/empty/")
	if err != nil {
		t.Fatal(err)
	}
	if tracks == nil || len(tracks) != 0 {
		t.Fatalf("Expected an empty, non-nil list, got %#v", tracks)
	}
}

func TestTracksListingError(t *testing.T) {
	srv := fileServer(t, map[string]string{})
	c := newTestClient(t, srv)

	_, err := c.Tracks(context.Background(), "songs/missing")
	var lerr *ListingError
	if !errors.As(err, &lerr) {
		t.Fatalf("Expected a ListingError, got %v", err)
	}
	if lerr.StatusCode != http.StatusNotFound {
		t.Fatalf("Unexpected status code: %d", lerr.StatusCode)
	}

	srv.Close()
	_, err = c.Tracks(context.Background(), "songs/ncs")
	if !errors.As(err, &lerr) {
		t.Fatalf("Expected a ListingError for an unreachable server, got %v", err)
	}
}

func TestTracksRejectsNonHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `["a.mp3"]`)
	}))
	defer srv.Close()
	c := newTestClient(t, srv)

	_, err := c.Tracks(context.Background(), "songs/ncs")
	var lerr *ListingError
	if !errors.As(err, &lerr) {
		t.Fatalf("Expected a ListingError, got %v", err)
	}
}

func TestAlbums(t *testing.T) {
	srv := fileServer(t, map[string]string{
		"/songs/": indexPage(
			"../",
			"/songs/",
			"ncs/",
			"broken/",
			"chill%20out/",
			"readme.txt",
			"ncs/",
		),
		"/songs/ncs/info.json":         `{"title": "NCS", "description": "No copyright sounds"}`,
		"/songs/broken/info.json":      `{"title": `,
		"/songs/chill%20out/info.json": `{"title": "Chill", "description": "Relax"}`,
	})
	c := newTestClient(t, srv)

	albums, err := c.Albums(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(albums) != 2 {
		t.Fatalf("Unexpected albums: %#v", albums)
	}
	if albums[0].Folder != "songs/ncs" || albums[0].Title != "NCS" || albums[0].Description != "No copyright sounds" {
		t.Fatalf("Unexpected first album: %#v", albums[0])
	}
	if albums[0].Cover != srv.URL+"/songs/ncs/cover.jpg" {
		t.Fatalf("Unexpected cover: %q", albums[0].Cover)
	}
	if albums[1].Folder != "songs/chill%20out" || albums[1].Title != "Chill" {
		t.Fatalf("Unexpected second album: %#v", albums[1])
	}
}

func TestAlbumsListingError(t *testing.T) {
	srv := fileServer(t, map[string]string{})
	c := newTestClient(t, srv)

	_, err := c.Albums(context.Background())
	var lerr *ListingError
	if !errors.As(err, &lerr) {
		t.Fatalf("Expected a ListingError, got %v", err)
	}
}

func TestAlbumMetadataError(t *testing.T) {
	srv := fileServer(t, map[string]string{})
	c := newTestClient(t, srv)

	_, err := c.album(context.Background(), "songs/gone")
	var merr *MetadataError
	if !errors.As(err, &merr) {
		t.Fatalf("Expected a MetadataError, got %v", err)
	}
	if merr.Folder != "songs/gone" || merr.StatusCode != http.StatusNotFound {
		t.Fatalf("Unexpected error: %#v", merr)
	}
}

func TestNewClient(t *testing.T) {
	if _, err := NewClient("http://127.0.0.1:3000", "", nil, 0); err == nil {
		t.Fatal("Expected an error for an empty albums root")
	}
	if _, err := NewClient("songs", "songs", nil, 0); err == nil {
		t.Fatal("Expected an error for a relative base URL")
	}
	c, err := NewClient("http://127.0.0.1:3000/", "/songs/", nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	if c.BaseURL() != "http://127.0.0.1:3000" {
		t.Fatalf("Unexpected base URL: %q", c.BaseURL())
	}
	if c.concurrency != DefaultConcurrency {
		t.Fatalf("Unexpected concurrency: %d", c.concurrency)
	}
}
