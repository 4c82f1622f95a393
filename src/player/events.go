package player

// A PlaylistEvent is emitted after a folder has been loaded.
type PlaylistEvent struct {
	Folder string
	Tracks []string
}

// A TrackEvent is emitted when a new track is loaded into the media.
type TrackEvent struct {
	Session string
	Track   string
	Info    string
}

// A PlayStateEvent is emitted when the play button changes.
type PlayStateEvent struct {
	Button Button
}

// A TimeEvent is emitted when the progress display changes.
type TimeEvent struct {
	Session string
	Text    string
	Seek    float64
}

// A VolumeEvent is emitted when the volume controls change.
type VolumeEvent struct {
	Volume float64
	Icon   VolumeIcon
	Slider int
}

// An ErrorEvent carries an error notification meant for the user.
type ErrorEvent struct {
	Kind    string
	Message string
	Detail  string
}
