package mpd

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fhs/gompd/v2/mpd"
	log "github.com/sirupsen/logrus"

	"songshelf/src/player"
	"songshelf/src/util"
)

// DefaultProgressInterval is the interval at which progress is reported while
// playing if no other interval is configured.
const DefaultProgressInterval = time.Second

// Media plays sources from the file server through MPD. Relative sources are
// resolved against the base URL of the file server.
type Media struct {
	util.Emitter

	// Running the idle routine on the same connection as the main connection
	// will fuck things up badly.
	watcher *mpd.Watcher

	network, address, passwd string
	baseURL                  string
	progressInterval         time.Duration

	lock   sync.Mutex
	source string
	// Sometimes, the volume returned by MPD is invalid, so we have to take
	// care of that ourselves.
	lastVolume float64

	cancel context.CancelFunc
}

var _ player.Media = &Media{}

// Connect sets up a Media for the MPD server at the specified address.
func Connect(network, address string, mpdPassword *string, baseURL string, progressInterval time.Duration) (*Media, error) {
	var passwd string
	if mpdPassword != nil {
		passwd = *mpdPassword
	}
	if progressInterval <= 0 {
		progressInterval = DefaultProgressInterval
	}

	watcher, err := mpd.NewWatcher(network, address, passwd, "player", "mixer")
	if err != nil {
		return nil, fmt.Errorf("unable to connect to MPD at %s: %w", address, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Media{
		watcher:          watcher,
		network:          network,
		address:          address,
		passwd:           passwd,
		baseURL:          baseURL,
		progressInterval: progressInterval,
		lastVolume:       1,
		cancel:           cancel,
	}
	go m.eventLoop(ctx)
	go m.progressLoop(ctx)
	return m, nil
}

// Close stops watching MPD.
func (m *Media) Close() error {
	m.cancel()
	return m.watcher.Close()
}

func (m *Media) withMpd(ctx context.Context, fn func(context.Context, *mpd.Client) error) error {
	client, err := mpd.DialAuthenticated(m.network, m.address, m.passwd)
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(ctx, client)
}

func (m *Media) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-m.watcher.Event:
			if !ok {
				return
			}
			log.WithField("subsystem", event).Debug("MPD event")
			m.Emit(player.MediaChangeEvent{})
			if event == "player" {
				m.emitProgress(ctx)
			}
		case err, ok := <-m.watcher.Error:
			if !ok {
				return
			}
			log.Errorf("MPD watcher: %v", err)
		}
	}
}

func (m *Media) progressLoop(ctx context.Context) {
	ticker := time.NewTicker(m.progressInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.emitProgress(ctx)
		}
	}
}

// emitProgress reports the playback position if MPD is playing.
func (m *Media) emitProgress(ctx context.Context) {
	err := m.withMpd(ctx, func(ctx context.Context, mpdc *mpd.Client) error {
		// One command list, so the song always matches the status.
		cmd := mpdc.BeginCommandList()
		statusAttrs := cmd.Status()
		songAttrs := cmd.CurrentSong()
		if err := cmd.End(); err != nil {
			return err
		}
		status, err := statusAttrs.Value()
		if err != nil {
			return err
		}
		if status["state"] != "play" {
			return nil
		}
		song, err := songAttrs.Value()
		if err != nil {
			return err
		}
		elapsed, duration := statusTimes(status)
		m.Emit(player.TimeUpdateEvent{Source: song["file"], Current: elapsed, Duration: duration})
		return nil
	})
	if err != nil {
		log.Debugf("Could not read MPD progress: %v", err)
	}
}

// Events implements the util.Eventer interface.
func (m *Media) Events() *util.Emitter {
	return &m.Emitter
}

// SetSource implements the player.Media interface. The MPD queue is replaced
// by the source.
func (m *Media) SetSource(ctx context.Context, source string) error {
	uri := m.resolve(source)
	err := m.withMpd(ctx, func(ctx context.Context, mpdc *mpd.Client) error {
		cmd := mpdc.BeginCommandList()
		cmd.Clear()
		cmd.Add(uri)
		return cmd.End()
	})
	if err != nil {
		return err
	}
	m.lock.Lock()
	m.source = uri
	m.lock.Unlock()
	return nil
}

// Source implements the player.Media interface.
func (m *Media) Source(ctx context.Context) (string, error) {
	var source string
	err := m.withMpd(ctx, func(ctx context.Context, mpdc *mpd.Client) error {
		song, err := mpdc.CurrentSong()
		if err != nil {
			return err
		}
		source = song["file"]
		return nil
	})
	if err != nil {
		return "", err
	}
	if source == "" {
		m.lock.Lock()
		source = m.source
		m.lock.Unlock()
	}
	return source, nil
}

// Play implements the player.Media interface.
func (m *Media) Play(ctx context.Context) error {
	return m.withMpd(ctx, func(ctx context.Context, mpdc *mpd.Client) error {
		status, err := mpdc.Status()
		if err != nil {
			return err
		}
		if status["playlistlength"] == "0" {
			return fmt.Errorf("nothing to play")
		}
		if status["state"] == "stop" {
			return mpdc.Play(0)
		}
		return mpdc.Pause(false)
	})
}

// Pause implements the player.Media interface.
func (m *Media) Pause(ctx context.Context) error {
	return m.withMpd(ctx, func(ctx context.Context, mpdc *mpd.Client) error {
		return mpdc.Pause(true)
	})
}

// Paused implements the player.Media interface. A stopped player counts as
// paused.
func (m *Media) Paused(ctx context.Context) (bool, error) {
	var paused bool
	err := m.withMpd(ctx, func(ctx context.Context, mpdc *mpd.Client) error {
		status, err := mpdc.Status()
		if err != nil {
			return err
		}
		paused = status["state"] != "play"
		return nil
	})
	return paused, err
}

// Duration implements the player.Media interface.
func (m *Media) Duration(ctx context.Context) (float64, error) {
	duration := math.NaN()
	err := m.withMpd(ctx, func(ctx context.Context, mpdc *mpd.Client) error {
		status, err := mpdc.Status()
		if err != nil {
			return err
		}
		_, duration = statusTimes(status)
		return nil
	})
	return duration, err
}

// SetTime implements the player.Media interface.
func (m *Media) SetTime(ctx context.Context, seconds float64) error {
	return m.withMpd(ctx, func(ctx context.Context, mpdc *mpd.Client) error {
		return mpdc.SeekCur(time.Duration(seconds*float64(time.Second)), false)
	})
}

// Volume implements the player.Media interface.
func (m *Media) Volume(ctx context.Context) (float64, error) {
	var vol float64
	err := m.withMpd(ctx, func(ctx context.Context, mpdc *mpd.Client) error {
		status, err := mpdc.Status()
		if err != nil {
			return err
		}
		volStr, ok := status["volume"]
		if !ok {
			// Volume should always be present
			return fmt.Errorf("no volume property is present in the MPD status")
		}
		rawVol, err := strconv.ParseInt(volStr, 10, 32)
		if err != nil {
			return err
		}

		m.lock.Lock()
		defer m.lock.Unlock()
		// Happens sometimes when nothing is playing.
		if rawVol < 0 {
			vol = m.lastVolume
		} else {
			vol = float64(rawVol) / 100
		}
		return nil
	})
	return vol, err
}

// SetVolume implements the player.Media interface.
func (m *Media) SetVolume(ctx context.Context, vol float64) error {
	if vol > 1 {
		vol = 1
	} else if vol < 0 {
		vol = 0
	}
	return m.withMpd(ctx, func(ctx context.Context, mpdc *mpd.Client) error {
		if err := mpdc.SetVolume(int(math.Round(vol * 100))); err != nil {
			return err
		}
		m.lock.Lock()
		m.lastVolume = vol
		m.lock.Unlock()
		return nil
	})
}

// resolve turns a source path into a URI MPD can play.
func (m *Media) resolve(source string) string {
	if strings.Contains(source, "://") || m.baseURL == "" {
		return source
	}
	return util.JoinURL(m.baseURL, source)
}

// statusTimes extracts the elapsed time and duration in seconds from an MPD
// status. The duration is NaN if MPD does not know it.
func statusTimes(status mpd.Attrs) (elapsed, duration float64) {
	duration = math.NaN()
	if str, ok := status["elapsed"]; ok {
		elapsed, _ = strconv.ParseFloat(str, 64)
	}
	if str, ok := status["duration"]; ok {
		if d, err := strconv.ParseFloat(str, 64); err == nil {
			duration = d
		}
	} else if str, ok := status["time"]; ok {
		// Older servers only report "<elapsed>:<total>" in whole seconds.
		if parts := strings.SplitN(str, ":", 2); len(parts) == 2 {
			if d, err := strconv.ParseFloat(parts[1], 64); err == nil {
				duration = d
			}
			if elapsed == 0 {
				elapsed, _ = strconv.ParseFloat(parts[0], 64)
			}
		}
	}
	return elapsed, duration
}
