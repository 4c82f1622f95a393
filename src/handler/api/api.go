package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"songshelf/src/player"
)

// InitRouter attaches all API routes to the specified router.
func InitRouter(r chi.Router, ctl *player.Controller) {
	api := API{ctl: ctl}
	r.Group(func(r chi.Router) {
		r.Use(jsonCtx)
		r.Get("/albums", api.albums)
		r.Get("/playlist", api.playlist)
		r.Post("/playlist", api.loadPlaylist)
		r.Post("/play", api.play)
		r.Post("/playstate", api.togglePlayState)
		r.Post("/skip", api.skip)
		r.Post("/seek", api.seek)
		r.Post("/volume", api.setVolume)
		r.Post("/mute", api.toggleMute)
		r.Get("/state", api.state)
	})
	r.Get("/events", api.events)
}

// API contains the state that is accessible over the REST API.
type API struct {
	ctl *player.Controller
}

// WriteError writes an error to the client or an empty object if err is nil.
//
// An attempt is made to tune the response format to the requestor.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	log.Errorf("Error serving %s: %v", r.RemoteAddr, err)
	w.WriteHeader(http.StatusBadRequest)

	if r.Header.Get("X-Requested-With") == "" {
		w.Write([]byte(err.Error()))
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": err.Error(),
	})
}

func jsonCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}
