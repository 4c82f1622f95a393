package listing

import (
	"fmt"
)

// A ListingError is returned when a folder could not be enumerated.
type ListingError struct {
	URL string
	// StatusCode is set if the server responded with a non-success status.
	StatusCode int
	Err        error
}

func (err *ListingError) Error() string {
	if err.StatusCode != 0 {
		return fmt.Sprintf("could not list %s: unexpected status %d", err.URL, err.StatusCode)
	}
	return fmt.Sprintf("could not list %s: %v", err.URL, err.Err)
}

func (err *ListingError) Unwrap() error {
	return err.Err
}

// A MetadataError is returned when the info file of an album could not be
// read.
type MetadataError struct {
	Folder     string
	StatusCode int
	Err        error
}

func (err *MetadataError) Error() string {
	if err.StatusCode != 0 {
		return fmt.Sprintf("could not read metadata of %q: unexpected status %d", err.Folder, err.StatusCode)
	}
	return fmt.Sprintf("could not read metadata of %q: %v", err.Folder, err.Err)
}

func (err *MetadataError) Unwrap() error {
	return err.Err
}
