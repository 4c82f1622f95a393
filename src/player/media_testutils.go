package player

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"songshelf/src/listing"
	"songshelf/src/util"
)

// ErrNoSource is returned by DummyMedia when playing without a source.
var ErrNoSource = errors.New("no source loaded")

// DummyMedia is an in-memory Media used for testing. Durations are taken from
// the Durations map by source; sources without an entry have an unknown
// duration.
type DummyMedia struct {
	util.Emitter

	Durations map[string]float64
	// If set, Play fails with this error.
	PlayErr error
	// If set, SetSource fails with this error.
	SourceErr error

	lock    sync.Mutex
	source  string
	paused  bool
	current float64
	volume  float64
}

// NewDummyMedia creates a paused DummyMedia at full volume.
func NewDummyMedia() *DummyMedia {
	return &DummyMedia{
		Durations: map[string]float64{},
		paused:    true,
		volume:    1,
	}
}

// Events implements the util.Eventer interface.
func (m *DummyMedia) Events() *util.Emitter {
	return &m.Emitter
}

// SetSource implements the player.Media interface.
func (m *DummyMedia) SetSource(ctx context.Context, source string) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.SourceErr != nil {
		return m.SourceErr
	}
	m.source, m.paused, m.current = source, true, 0
	return nil
}

// Source implements the player.Media interface.
func (m *DummyMedia) Source(ctx context.Context) (string, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.source, nil
}

// Play implements the player.Media interface.
func (m *DummyMedia) Play(ctx context.Context) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.PlayErr != nil {
		return m.PlayErr
	}
	if m.source == "" {
		return ErrNoSource
	}
	m.paused = false
	return nil
}

// Pause implements the player.Media interface.
func (m *DummyMedia) Pause(ctx context.Context) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.paused = true
	return nil
}

// Paused implements the player.Media interface.
func (m *DummyMedia) Paused(ctx context.Context) (bool, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.paused, nil
}

// Duration implements the player.Media interface.
func (m *DummyMedia) Duration(ctx context.Context) (float64, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if d, ok := m.Durations[m.source]; ok {
		return d, nil
	}
	return math.NaN(), nil
}

// SetTime implements the player.Media interface. Like an audio element, a
// TimeUpdateEvent is emitted after seeking.
func (m *DummyMedia) SetTime(ctx context.Context, seconds float64) error {
	m.lock.Lock()
	m.current = seconds
	source := m.source
	duration, ok := m.Durations[source]
	m.lock.Unlock()
	if !ok {
		duration = math.NaN()
	}
	m.Emit(TimeUpdateEvent{Source: source, Current: seconds, Duration: duration})
	return nil
}

// Time returns the playback position in seconds.
func (m *DummyMedia) Time() float64 {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.current
}

// Volume implements the player.Media interface.
func (m *DummyMedia) Volume(ctx context.Context) (float64, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.volume, nil
}

// SetVolume implements the player.Media interface.
func (m *DummyMedia) SetVolume(ctx context.Context, vol float64) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.volume = vol
	return nil
}

// DummyLister serves folders from memory. Folders without an entry fail to
// list.
type DummyLister struct {
	lock    sync.Mutex
	Folders map[string][]string
	// Release, if set for a folder, blocks listing it until it is closed.
	Release map[string]chan struct{}
}

// Tracks implements the player.Lister interface.
func (l *DummyLister) Tracks(ctx context.Context, folder string) ([]string, error) {
	l.lock.Lock()
	release := l.Release[folder]
	l.lock.Unlock()
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	l.lock.Lock()
	defer l.lock.Unlock()
	tracks, ok := l.Folders[folder]
	if !ok {
		return nil, &listing.ListingError{URL: "/" + folder + "/", StatusCode: 404}
	}
	return append([]string{}, tracks...), nil
}

// Albums implements the player.Lister interface.
func (l *DummyLister) Albums(ctx context.Context) ([]listing.Album, error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	var albums []listing.Album
	for folder := range l.Folders {
		albums = append(albums, listing.Album{Folder: folder, Title: folder})
	}
	sort.Slice(albums, func(i, j int) bool { return albums[i].Folder < albums[j].Folder })
	return albums, nil
}
