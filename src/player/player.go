package player

import (
	"context"

	"songshelf/src/util"
)

// Media is a single playback handle, like an audio element. It plays one
// source at a time.
type Media interface {
	// A TimeUpdateEvent should be emitted periodically while playing. A
	// MediaChangeEvent should be emitted when the state changes by means other
	// than the methods below.
	util.Eventer

	// SetSource replaces the current source. The media is paused afterwards.
	SetSource(ctx context.Context, source string) error

	// Source returns the source that is currently loaded, or an empty string.
	Source(ctx context.Context) (string, error)

	Play(ctx context.Context) error

	Pause(ctx context.Context) error

	Paused(ctx context.Context) (bool, error)

	// Duration returns the length of the current source in seconds. NaN is
	// returned if it is not known yet.
	Duration(ctx context.Context) (float64, error)

	// SetTime sets the playback position in seconds.
	SetTime(ctx context.Context, seconds float64) error

	// Gets the set volume as a uniform float.
	Volume(ctx context.Context) (float64, error)

	SetVolume(ctx context.Context, vol float64) error
}

// TimeUpdateEvent reports playback progress of a Media. Both values are in
// seconds, Duration is NaN when unknown. Source is the source the progress
// was read for, if known.
type TimeUpdateEvent struct {
	Source   string
	Current  float64
	Duration float64
}

// MediaChangeEvent signals that the paused state or volume of a Media may
// have changed.
type MediaChangeEvent struct{}
