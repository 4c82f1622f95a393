package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"

	"songshelf/src/listing"
	"songshelf/src/player"
	"songshelf/src/util/eventsource"
)

type jsonTrack struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func jsonTracks(tracks []string) []jsonTrack {
	out := make([]jsonTrack, len(tracks))
	for i, tr := range tracks {
		out[i] = jsonTrack{ID: tr, Name: player.DisplayName(tr)}
	}
	return out
}

func jsonPlaylist(folder string, tracks []string) interface{} {
	return map[string]interface{}{
		"folder": folder,
		"tracks": jsonTracks(tracks),
	}
}

func (api *API) albums(w http.ResponseWriter, r *http.Request) {
	albums, err := api.ctl.LoadAlbums(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if albums == nil {
		albums = []listing.Album{}
	}
	json.NewEncoder(w).Encode(albums)
}

func (api *API) playlist(w http.ResponseWriter, r *http.Request) {
	view := api.ctl.View()
	json.NewEncoder(w).Encode(jsonPlaylist(view.Folder, view.Tracks))
}

func (api *API) loadPlaylist(w http.ResponseWriter, r *http.Request) {
	var data struct {
		Folder string `json:"folder"`
		Play   bool   `json:"play"`
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		WriteError(w, r, err)
		return
	}
	if data.Folder == "" {
		WriteError(w, r, fmt.Errorf("no folder specified"))
		return
	}

	var err error
	if data.Play {
		err = api.ctl.OpenAlbum(r.Context(), data.Folder)
	} else {
		_, err = api.ctl.LoadFolder(r.Context(), data.Folder)
	}
	if err != nil {
		WriteError(w, r, err)
		return
	}
	view := api.ctl.View()
	json.NewEncoder(w).Encode(jsonPlaylist(view.Folder, view.Tracks))
}

func (api *API) play(w http.ResponseWriter, r *http.Request) {
	var data struct {
		Track  string `json:"track"`
		Paused bool   `json:"paused"`
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		WriteError(w, r, err)
		return
	}
	if data.Track == "" {
		WriteError(w, r, fmt.Errorf("no track specified"))
		return
	}

	if err := api.ctl.Play(r.Context(), data.Track, data.Paused); err != nil {
		WriteError(w, r, err)
		return
	}
	w.Write([]byte("{}"))
}

func (api *API) togglePlayState(w http.ResponseWriter, r *http.Request) {
	button, err := api.ctl.TogglePlayPause(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"button": button,
	})
}

func (api *API) skip(w http.ResponseWriter, r *http.Request) {
	var data struct {
		Direction string `json:"direction"`
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		WriteError(w, r, err)
		return
	}
	dir, err := player.ParseDirection(data.Direction)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	if err := api.ctl.Skip(r.Context(), dir); err != nil {
		WriteError(w, r, err)
		return
	}
	w.Write([]byte("{}"))
}

// seek accepts either a fraction of the duration or the offset of a click
// within the seek bar along with the width of the bar.
func (api *API) seek(w http.ResponseWriter, r *http.Request) {
	var data struct {
		Fraction *float64 `json:"fraction"`
		Offset   float64  `json:"offset"`
		Width    float64  `json:"width"`
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		WriteError(w, r, err)
		return
	}

	var fraction float64
	if data.Fraction != nil {
		fraction = *data.Fraction
	} else if data.Width > 0 {
		fraction = data.Offset / data.Width
	} else {
		WriteError(w, r, fmt.Errorf("either a fraction or a positive width is required"))
		return
	}
	fraction = clamp(fraction, 0, 1)

	if err := api.ctl.SeekTo(r.Context(), fraction); err != nil {
		WriteError(w, r, err)
		return
	}
	w.Write([]byte("{}"))
}

func (api *API) setVolume(w http.ResponseWriter, r *http.Request) {
	var data struct {
		Percent int `json:"percent"`
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		WriteError(w, r, err)
		return
	}
	percent := int(clamp(float64(data.Percent), 0, 100))

	if err := api.ctl.SetVolume(r.Context(), percent); err != nil {
		WriteError(w, r, err)
		return
	}
	w.Write([]byte("{}"))
}

func (api *API) toggleMute(w http.ResponseWriter, r *http.Request) {
	if err := api.ctl.ToggleMute(r.Context()); err != nil {
		WriteError(w, r, err)
		return
	}
	view := api.ctl.View()
	json.NewEncoder(w).Encode(map[string]interface{}{
		"volume": view.Volume,
		"icon":   view.VolumeIcon,
		"slider": view.VolumeSlider,
	})
}

func (api *API) state(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(api.ctl.View())
}

func (api *API) events(w http.ResponseWriter, r *http.Request) {
	listener := api.ctl.Events().Listen(r.Context())

	es, err := eventsource.Begin(w, r)
	if err != nil {
		log.Errorf("%v", err)
		return
	}
	if err := es.EventJSON("state", api.ctl.View()); err != nil {
		return
	}

	for {
		var event interface{}
		select {
		case event = <-listener:
		case <-r.Context().Done():
			return
		}

		switch t := event.(type) {
		case player.PlaylistEvent:
			err = es.EventJSON("playlist", jsonPlaylist(t.Folder, t.Tracks))
		case player.TrackEvent:
			err = es.EventJSON("track", map[string]interface{}{"session": t.Session, "track": t.Track, "info": t.Info})
		case player.PlayStateEvent:
			err = es.EventJSON("playstate", map[string]interface{}{"button": t.Button})
		case player.TimeEvent:
			err = es.EventJSON("time", map[string]interface{}{"session": t.Session, "time": t.Text, "seek": t.Seek})
		case player.VolumeEvent:
			err = es.EventJSON("volume", map[string]interface{}{"volume": t.Volume, "icon": t.Icon, "slider": t.Slider})
		case player.ErrorEvent:
			err = es.EventJSON("error", map[string]interface{}{"kind": t.Kind, "message": t.Message, "detail": t.Detail})
		default:
			log.Debugf("Unmapped controller event %#v", event)
		}
		if err != nil {
			log.Debugf("Event stream closed: %v", err)
			return
		}
	}
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	} else if v > max {
		return max
	}
	return v
}
