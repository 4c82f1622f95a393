package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"songshelf/src/player"
)

func newTestServer(t *testing.T) (*httptest.Server, *player.Controller, *player.DummyMedia) {
	t.Helper()
	lister := &player.DummyLister{
		Folders: map[string][]string{
			"songs/ncs":   {"a.mp3", "b.mp3", "c.mp3"},
			"songs/chill": {"one%20two.mp3"},
		},
	}
	media := player.NewDummyMedia()
	media.Durations["/songs/ncs/a.mp3"] = 200
	ctl := player.NewController(lister, media)

	r := chi.NewRouter()
	InitRouter(r, ctl)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server, ctl, media
}

func post(t *testing.T, server *httptest.Server, path, body string) *http.Response {
	t.Helper()
	res, err := http.Post(server.URL+path, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func TestLoadPlaylist(t *testing.T) {
	server, ctl, _ := newTestServer(t)

	res := post(t, server, "/playlist", `{"folder": "songs/chill"}`)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("Unexpected status: %d", res.StatusCode)
	}
	var data struct {
		Folder string      `json:"folder"`
		Tracks []jsonTrack `json:"tracks"`
	}
	if err := json.NewDecoder(res.Body).Decode(&data); err != nil {
		t.Fatal(err)
	}
	if data.Folder != "songs/chill" || len(data.Tracks) != 1 {
		t.Fatalf("Unexpected playlist: %#v", data)
	}
	if data.Tracks[0].ID != "one%20two.mp3" || data.Tracks[0].Name != "one two.mp3" {
		t.Fatalf("Unexpected track: %#v", data.Tracks[0])
	}
	if view := ctl.View(); view.Folder != "songs/chill" {
		t.Fatalf("Playlist was not loaded: %#v", view)
	}
}

func TestLoadPlaylistMissingFolder(t *testing.T) {
	server, ctl, _ := newTestServer(t)

	if res := post(t, server, "/playlist", `{"folder": "songs/missing"}`); res.StatusCode != http.StatusBadRequest {
		t.Fatalf("Unexpected status: %d", res.StatusCode)
	}
	if res := post(t, server, "/playlist", `{}`); res.StatusCode != http.StatusBadRequest {
		t.Fatalf("Unexpected status: %d", res.StatusCode)
	}
	if view := ctl.View(); view.Folder != "" {
		t.Fatalf("Folder changed after failed load: %q", view.Folder)
	}
}

func TestOpenAlbum(t *testing.T) {
	server, ctl, media := newTestServer(t)

	if res := post(t, server, "/playlist", `{"folder": "songs/ncs", "play": true}`); res.StatusCode != http.StatusOK {
		t.Fatalf("Unexpected status: %d", res.StatusCode)
	}
	view := ctl.View()
	if view.Session.Track != "a.mp3" || view.PlayButton != player.ButtonPause {
		t.Fatalf("Album did not start playing: %#v", view)
	}
	if paused, _ := media.Paused(context.Background()); paused {
		t.Fatalf("Media is paused")
	}
}

func TestPlayAndSkip(t *testing.T) {
	server, ctl, _ := newTestServer(t)
	post(t, server, "/playlist", `{"folder": "songs/ncs"}`)

	if res := post(t, server, "/play", `{"track": "b.mp3"}`); res.StatusCode != http.StatusOK {
		t.Fatalf("Unexpected status: %d", res.StatusCode)
	}
	if res := post(t, server, "/skip", `{"direction": "next"}`); res.StatusCode != http.StatusOK {
		t.Fatalf("Unexpected status: %d", res.StatusCode)
	}
	if track := ctl.View().Session.Track; track != "c.mp3" {
		t.Fatalf("Unexpected track after skip: %q", track)
	}
	if res := post(t, server, "/skip", `{"direction": "sideways"}`); res.StatusCode != http.StatusBadRequest {
		t.Fatalf("Unexpected status: %d", res.StatusCode)
	}
	if res := post(t, server, "/play", `{}`); res.StatusCode != http.StatusBadRequest {
		t.Fatalf("Unexpected status: %d", res.StatusCode)
	}
}

func TestTogglePlayState(t *testing.T) {
	server, _, _ := newTestServer(t)
	post(t, server, "/playlist", `{"folder": "songs/ncs"}`)
	post(t, server, "/play", `{"track": "a.mp3", "paused": true}`)

	res := post(t, server, "/playstate", ``)
	var data struct {
		Button player.Button `json:"button"`
	}
	if err := json.NewDecoder(res.Body).Decode(&data); err != nil {
		t.Fatal(err)
	}
	if data.Button != player.ButtonPause {
		t.Fatalf("Unexpected button: %q", data.Button)
	}
}

func TestSeek(t *testing.T) {
	server, _, media := newTestServer(t)
	post(t, server, "/playlist", `{"folder": "songs/ncs"}`)
	post(t, server, "/play", `{"track": "a.mp3", "paused": true}`)

	post(t, server, "/seek", `{"offset": 50, "width": 100}`)
	if cur := media.Time(); cur != 100 {
		t.Fatalf("Unexpected time: %v", cur)
	}
	post(t, server, "/seek", `{"fraction": 2}`)
	if cur := media.Time(); cur != 200 {
		t.Fatalf("Fraction was not clamped, time: %v", cur)
	}
	if res := post(t, server, "/seek", `{"offset": 10}`); res.StatusCode != http.StatusBadRequest {
		t.Fatalf("Unexpected status: %d", res.StatusCode)
	}
}

func TestVolume(t *testing.T) {
	server, ctl, media := newTestServer(t)

	post(t, server, "/volume", `{"percent": 150}`)
	if vol, _ := media.Volume(context.Background()); vol != 1 {
		t.Fatalf("Volume was not clamped: %v", vol)
	}
	post(t, server, "/volume", `{"percent": 40}`)
	if view := ctl.View(); view.Volume != 0.4 || view.VolumeSlider != 40 {
		t.Fatalf("Unexpected volume: %#v", view)
	}

	res := post(t, server, "/mute", ``)
	var data struct {
		Volume float64           `json:"volume"`
		Icon   player.VolumeIcon `json:"icon"`
	}
	if err := json.NewDecoder(res.Body).Decode(&data); err != nil {
		t.Fatal(err)
	}
	if data.Volume != 0 || data.Icon != player.VolumeIconMuted {
		t.Fatalf("Unexpected mute state: %#v", data)
	}
}

func TestAlbums(t *testing.T) {
	server, _, _ := newTestServer(t)

	res, err := http.Get(server.URL + "/albums")
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	if ct := res.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Unexpected content type: %q", ct)
	}
	var albums []struct {
		Folder string `json:"folder"`
	}
	if err := json.NewDecoder(res.Body).Decode(&albums); err != nil {
		t.Fatal(err)
	}
	if len(albums) != 2 || albums[0].Folder != "songs/chill" {
		t.Fatalf("Unexpected albums: %#v", albums)
	}
}

func TestWriteErrorFormat(t *testing.T) {
	server, _, _ := newTestServer(t)

	req, _ := http.NewRequest("POST", server.URL+"/skip", strings.NewReader(`{"direction": "up"}`))
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	var data struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(res.Body).Decode(&data); err != nil {
		t.Fatal(err)
	}
	if data.Error == "" {
		t.Fatalf("No error message in response")
	}
}

func TestEvents(t *testing.T) {
	server, ctl, _ := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, "GET", server.URL+"/events", nil)
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	if ct := res.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Unexpected content type: %q", ct)
	}

	lines := bufio.NewScanner(res.Body)
	nextEvent := func() string {
		for lines.Scan() {
			if name := strings.TrimPrefix(lines.Text(), "event: "); name != lines.Text() {
				return name
			}
		}
		t.Fatalf("Event stream ended: %v", lines.Err())
		return ""
	}

	if name := nextEvent(); name != "state" {
		t.Fatalf("Expected initial state event, got %q", name)
	}
	go ctl.LoadFolder(context.Background(), "songs/ncs")
	if name := nextEvent(); name != "playlist" {
		t.Fatalf("Expected playlist event, got %q", name)
	}
}
