package scan

import (
	"errors"
	"fmt"
	"strings"
)

// Marker errors classifying scan failures. All are local to one track or
// folder; none aborts the overall run.
var (
	// ErrOpen covers container or codec open failures.
	ErrOpen = errors.New("open error")
	// ErrStream covers mid-decode failures.
	ErrStream = errors.New("stream error")
	// ErrMeter covers measurement initialization or ingest failures.
	ErrMeter = errors.New("meter error")
	// ErrIncompatibleAlbum marks a folder mixing Opus with non-Opus tracks.
	ErrIncompatibleAlbum = errors.New("incompatible album")
)

// wrap tags err with a classification marker and the subject path.
func wrap(marker error, path, message string, err error) error {
	detail := message
	if path = strings.TrimSpace(path); path != "" {
		detail = path + ": " + message
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}
