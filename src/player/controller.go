package player

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"songshelf/src/listing"
	"songshelf/src/metrics"
	"songshelf/src/util"
)

// DefaultUnmuteVolume is the volume that is restored when unmuting.
const DefaultUnmuteVolume = 0.1

// Button is the action offered by the play/pause button.
type Button string

const (
	ButtonPlay  Button = "play"
	ButtonPause Button = "pause"
)

// VolumeIcon is the glyph shown next to the volume slider.
type VolumeIcon string

const (
	VolumeIconOn    VolumeIcon = "volume"
	VolumeIconMuted VolumeIcon = "mute"
)

// Direction selects the neighbouring track for Skip.
type Direction int

const (
	Previous Direction = -1
	Next     Direction = 1
)

// ParseDirection parses "previous" or "next".
func ParseDirection(str string) (Direction, error) {
	switch str {
	case "previous":
		return Previous, nil
	case "next":
		return Next, nil
	default:
		return 0, fmt.Errorf("invalid direction %q", str)
	}
}

func (dir Direction) String() string {
	if dir == Previous {
		return "previous"
	}
	return "next"
}

// A Lister enumerates folders on the file server.
type Lister interface {
	Tracks(ctx context.Context, folder string) ([]string, error)
	Albums(ctx context.Context) ([]listing.Album, error)
}

// Session is the state of the track that is loaded into the media. It is
// replaced as a whole when a new track is loaded.
type Session struct {
	ID       string  `json:"id"`
	Folder   string  `json:"folder"`
	Track    string  `json:"track"`
	Position float64 `json:"position"`
	Duration float64 `json:"duration"`
}

// View is a snapshot of everything a user interface shows.
type View struct {
	Folder       string     `json:"folder"`
	Tracks       []string   `json:"tracks"`
	Session      Session    `json:"session"`
	TrackInfo    string     `json:"trackinfo"`
	PlayButton   Button     `json:"playbutton"`
	TimeText     string     `json:"time"`
	SeekPercent  float64    `json:"seek"`
	Volume       float64    `json:"volume"`
	VolumeIcon   VolumeIcon `json:"volumeicon"`
	VolumeSlider int        `json:"volumeslider"`
}

// The Controller owns the playlist of the current folder and drives a Media.
//
// All state is mutated while holding a single lock, so the methods are safe
// for concurrent use. Derived display state is broadcast through the embedded
// Emitter.
type Controller struct {
	util.Emitter

	lister Lister
	media  Media

	// Incremented at the start of every folder load.
	loads atomic.Uint64

	lock    sync.Mutex
	folder  string
	tracks  []string
	session Session

	trackInfo  string
	button     Button
	timeText   string
	seek       float64
	volume     float64
	volumeIcon VolumeIcon
	slider     int
}

// NewController creates a controller with an empty playlist.
func NewController(lister Lister, media Media) *Controller {
	return &Controller{
		lister:     lister,
		media:      media,
		tracks:     []string{},
		button:     ButtonPlay,
		timeText:   FormatProgress(0, 0),
		volume:     1,
		volumeIcon: VolumeIconOn,
		slider:     100,
	}
}

// Events implements the util.Eventer interface.
func (c *Controller) Events() *util.Emitter {
	return &c.Emitter
}

// Init loads the default folder and cues its first track without starting
// playback.
func (c *Controller) Init(ctx context.Context, folder string) error {
	c.lock.Lock()
	c.syncVolume(ctx)
	c.syncButton(ctx)
	c.lock.Unlock()

	_, err := c.load(ctx, folder, func(tracks []string) error {
		if len(tracks) == 0 {
			return nil
		}
		return c.play(ctx, tracks[0], true)
	})
	return err
}

// LoadFolder replaces the playlist with the tracks of the folder.
//
// If the listing fails, the playlist and folder are left untouched. If
// another load was started while this one was waiting for the server,
// ErrSuperseded is returned and the result is discarded.
func (c *Controller) LoadFolder(ctx context.Context, folder string) ([]string, error) {
	return c.load(ctx, folder, nil)
}

// OpenAlbum loads the folder and starts playing its first track.
func (c *Controller) OpenAlbum(ctx context.Context, folder string) error {
	log.WithField("folder", folder).Info("Loading playlist")
	_, err := c.load(ctx, folder, func(tracks []string) error {
		if len(tracks) == 0 {
			return nil
		}
		return c.play(ctx, tracks[0], false)
	})
	return err
}

// load lists the folder and replaces the playlist. The then function, if
// any, runs while the lock is still held.
func (c *Controller) load(ctx context.Context, folder string, then func([]string) error) ([]string, error) {
	folder = strings.Trim(folder, "/")
	generation := c.loads.Add(1)

	tracks, err := c.lister.Tracks(ctx, folder)

	c.lock.Lock()
	defer c.lock.Unlock()
	if c.loads.Load() != generation {
		metrics.StaleListingsDiscarded.Inc()
		log.WithField("folder", folder).Debugf("Discarding stale folder listing (err: %v)", err)
		c.record("load", ErrSuperseded)
		return nil, ErrSuperseded
	}
	if err != nil {
		c.record("load", err)
		return nil, err
	}

	c.folder = folder
	c.tracks = tracks
	c.Emit(PlaylistEvent{Folder: folder, Tracks: copyTracks(tracks)})
	log.WithField("folder", folder).Debugf("Loaded %d tracks", len(tracks))
	c.record("load", nil)

	if then != nil {
		err := then(copyTracks(tracks))
		c.record("play", err)
		if err != nil {
			return copyTracks(tracks), err
		}
	}
	return copyTracks(tracks), nil
}

// LoadAlbums lists all albums. Albums without readable metadata are left out.
func (c *Controller) LoadAlbums(ctx context.Context) ([]listing.Album, error) {
	albums, err := c.lister.Albums(ctx)
	c.record("albums", err)
	return albums, err
}

// Play loads the track from the current folder into the media and, unless
// startPaused is set, starts playing it.
func (c *Controller) Play(ctx context.Context, track string, startPaused bool) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	err := c.play(ctx, track, startPaused)
	c.record("play", err)
	return err
}

func (c *Controller) play(ctx context.Context, track string, startPaused bool) error {
	source := "/" + c.folder + "/" + track
	if err := c.media.SetSource(ctx, source); err != nil {
		// The previous source may still be playing.
		c.syncButton(ctx)
		return &PlaybackError{Track: track, Err: err}
	}

	c.session = Session{
		ID:     uuid.NewString(),
		Folder: c.folder,
		Track:  track,
	}
	c.trackInfo = DisplayName(track)
	c.timeText = FormatProgress(0, 0)
	c.seek = 0
	c.Emit(TrackEvent{Session: c.session.ID, Track: track, Info: c.trackInfo})
	c.Emit(TimeEvent{Session: c.session.ID, Text: c.timeText, Seek: c.seek})

	if !startPaused {
		if err := c.media.Play(ctx); err != nil {
			c.setButton(ButtonPlay)
			return &PlaybackError{Track: track, Err: err}
		}
	}
	c.syncButton(ctx)
	return nil
}

// TogglePlayPause resumes playback if the media is paused and pauses it
// otherwise. The resulting button state is returned.
func (c *Controller) TogglePlayPause(ctx context.Context) (Button, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	paused, err := c.media.Paused(ctx)
	if err != nil {
		c.record("playstate", err)
		return c.button, err
	}
	if paused {
		if err := c.media.Play(ctx); err != nil {
			err = &PlaybackError{Track: c.session.Track, Err: err}
			c.setButton(ButtonPlay)
			c.record("playstate", err)
			return c.button, err
		}
		c.setButton(ButtonPause)
	} else {
		if err := c.media.Pause(ctx); err != nil {
			c.record("playstate", err)
			return c.button, err
		}
		c.setButton(ButtonPlay)
	}
	c.record("playstate", nil)
	return c.button, nil
}

// Skip plays the track before or after the current one. Nothing happens if
// the current track is the first or last of the playlist or if it is not
// part of the playlist at all.
func (c *Controller) Skip(ctx context.Context, dir Direction) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	op := "skip_" + dir.String()

	source, err := c.media.Source(ctx)
	if err != nil {
		c.record(op, err)
		return err
	}
	index := c.indexOf(source)
	if index < 0 {
		log.WithField("source", source).Debug("Current source is not in the playlist")
		return nil
	}
	target := index + int(dir)
	if target < 0 || target >= len(c.tracks) {
		return nil
	}

	if err := c.media.Pause(ctx); err != nil {
		c.record(op, err)
		return err
	}
	err = c.play(ctx, c.tracks[target], false)
	c.record(op, err)
	return err
}

// indexOf looks up the playlist position of the track the source points to.
func (c *Controller) indexOf(source string) int {
	track, ok := sourceTrack(source, c.folder)
	if !ok {
		return -1
	}
	for i, t := range c.tracks {
		if t == track {
			return i
		}
	}
	return -1
}

// sourceTrack returns the part of the source after the folder, without any
// query or fragment. The source may be relative or resolved against a base
// URL.
func sourceTrack(source, folder string) (string, bool) {
	if i := strings.IndexAny(source, "?#"); i >= 0 {
		source = source[:i]
	}
	prefix := "/" + folder + "/"
	i := strings.LastIndex(source, prefix)
	if folder == "" || i < 0 {
		return "", false
	}
	return source[i+len(prefix):], true
}

// SeekTo moves the playback position to a fraction of the duration. The
// fraction must be within [0, 1]. Nothing happens while the duration is
// unknown.
func (c *Controller) SeekTo(ctx context.Context, fraction float64) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	duration, err := c.media.Duration(ctx)
	if err != nil {
		c.record("seek", err)
		return err
	}
	if !isFinite(duration) {
		return nil
	}
	position := fraction * duration
	if err := c.media.SetTime(ctx, position); err != nil {
		c.record("seek", err)
		return err
	}
	c.session.Position = position
	c.session.Duration = duration
	c.seek = fraction * 100
	c.Emit(TimeEvent{Session: c.session.ID, Text: c.timeText, Seek: c.seek})
	c.record("seek", nil)
	return nil
}

// OnTimeUpdate refreshes the progress display of the current session. It is
// a no-op as long as the duration is unknown.
func (c *Controller) OnTimeUpdate(current, duration float64) {
	if !isFinite(duration) {
		return
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	c.updateTime(current, duration)
}

// onMediaTime applies progress reported by the media. Reports about another
// source than the one of the current session were taken before a track
// change and are dropped.
func (c *Controller) onMediaTime(event TimeUpdateEvent) {
	if !isFinite(event.Duration) {
		return
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	if event.Source != "" {
		track, ok := sourceTrack(event.Source, c.session.Folder)
		if !ok || track != c.session.Track {
			log.WithField("source", event.Source).Debug("Dropping progress of a previous source")
			return
		}
	}
	c.updateTime(event.Current, event.Duration)
}

func (c *Controller) updateTime(current, duration float64) {
	c.session.Position = current
	c.session.Duration = duration
	c.timeText = FormatProgress(current, duration)
	if duration > 0 {
		c.seek = current / duration * 100
	} else {
		c.seek = 0
	}
	c.Emit(TimeEvent{Session: c.session.ID, Text: c.timeText, Seek: c.seek})
}

// SetVolume sets the volume in percent, [0, 100].
func (c *Controller) SetVolume(ctx context.Context, percent int) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	vol := float64(percent) / 100
	if err := c.media.SetVolume(ctx, vol); err != nil {
		c.record("volume", err)
		return err
	}
	c.setVolume(vol, percent)
	c.record("volume", nil)
	return nil
}

// ToggleMute mutes the media, or restores DefaultUnmuteVolume if it is muted
// already. The volume from before muting is not remembered.
func (c *Controller) ToggleMute(ctx context.Context) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	vol, err := c.media.Volume(ctx)
	if err != nil {
		c.record("mute", err)
		return err
	}
	target, slider := 0.0, 0
	if vol == 0 {
		target, slider = DefaultUnmuteVolume, int(DefaultUnmuteVolume*100)
	}
	if err := c.media.SetVolume(ctx, target); err != nil {
		c.record("mute", err)
		return err
	}
	c.setVolume(target, slider)
	c.record("mute", nil)
	return nil
}

// Run forwards the events of the media to the controller until the context
// is cancelled.
func (c *Controller) Run(ctx context.Context) {
	events := c.media.Events().Listen(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-events:
			switch t := event.(type) {
			case TimeUpdateEvent:
				c.onMediaTime(t)
			case MediaChangeEvent:
				c.lock.Lock()
				c.syncButton(ctx)
				c.syncVolume(ctx)
				c.lock.Unlock()
			}
		}
	}
}

// View returns a snapshot of the display state.
func (c *Controller) View() View {
	c.lock.Lock()
	defer c.lock.Unlock()
	return View{
		Folder:       c.folder,
		Tracks:       copyTracks(c.tracks),
		Session:      c.session,
		TrackInfo:    c.trackInfo,
		PlayButton:   c.button,
		TimeText:     c.timeText,
		SeekPercent:  c.seek,
		Volume:       c.volume,
		VolumeIcon:   c.volumeIcon,
		VolumeSlider: c.slider,
	}
}

func (c *Controller) setButton(button Button) {
	if c.button == button {
		return
	}
	c.button = button
	c.Emit(PlayStateEvent{Button: button})
}

// syncButton derives the button from the paused state of the media.
func (c *Controller) syncButton(ctx context.Context) {
	paused, err := c.media.Paused(ctx)
	if err != nil {
		log.Warnf("Could not read the play state: %v", err)
		c.setButton(ButtonPlay)
		return
	}
	if paused {
		c.setButton(ButtonPlay)
	} else {
		c.setButton(ButtonPause)
	}
}

func (c *Controller) setVolume(vol float64, slider int) {
	c.volume = vol
	c.slider = slider
	if vol == 0 {
		c.volumeIcon = VolumeIconMuted
	} else {
		c.volumeIcon = VolumeIconOn
	}
	c.Emit(VolumeEvent{Volume: vol, Icon: c.volumeIcon, Slider: slider})
}

func (c *Controller) syncVolume(ctx context.Context) {
	vol, err := c.media.Volume(ctx)
	if err != nil {
		log.Warnf("Could not read the volume: %v", err)
		return
	}
	if vol != c.volume {
		c.setVolume(vol, int(math.Round(vol*100)))
	}
}

// record updates the metrics for an operation and turns errors into
// notifications.
func (c *Controller) record(op string, err error) {
	metrics.TransportOperationsTotal.WithLabelValues(op, metrics.Status(err)).Inc()
	if err == nil || errors.Is(err, ErrSuperseded) {
		return
	}
	kind, message := describeError(op, err)
	log.WithField("kind", kind).Errorf("%s failed: %v", op, err)
	c.Emit(ErrorEvent{Kind: kind, Message: message, Detail: err.Error()})
}

func describeError(op string, err error) (kind, message string) {
	var listingErr *listing.ListingError
	var playbackErr *PlaybackError
	switch {
	case errors.As(err, &playbackErr):
		return "playback", "Could not play this track"
	case errors.As(err, &listingErr) && op == "albums":
		return "listing", "Could not load albums"
	case errors.As(err, &listingErr):
		return "listing", "Could not load songs. Please try again."
	default:
		return "media", "The player is not responding"
	}
}

func copyTracks(tracks []string) []string {
	return append([]string{}, tracks...)
}
