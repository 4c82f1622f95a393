package player

import (
	"errors"
	"fmt"
)

// ErrSuperseded is returned by LoadFolder if another load was started before
// the listing arrived. The result of the older load is discarded.
var ErrSuperseded = errors.New("folder load superseded by a newer one")

// A PlaybackError is returned when the media refused to load or start a track.
type PlaybackError struct {
	Track string
	Err   error
}

func (err *PlaybackError) Error() string {
	return fmt.Sprintf("could not play %q: %v", DisplayName(err.Track), err.Err)
}

func (err *PlaybackError) Unwrap() error {
	return err.Err
}
