package download

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrMultiRunSample is returned when a sample has several runs but merge
	// mode was not requested.
	ErrMultiRunSample = errors.New("samples with multiple runs require merge mode")

	// ErrSampleDirCollision is returned when distinct sample names map to the
	// same sample directory.
	ErrSampleDirCollision = errors.New("distinct sample names share a directory")

	// ErrPhaseFailed is wrapped by every *PhaseError.
	ErrPhaseFailed = errors.New("phase failed")

	// ErrNoReads is reported for a sample whose directory holds no read files.
	ErrNoReads = errors.New("no read files found")

	// ErrNotInitialized is returned when work is requested before Initialize.
	ErrNotInitialized = errors.New("manager not initialized")
)

// PhaseError reports a phase that finished with warnings or errors.
type PhaseError struct {
	Phase    Phase
	Failures []string
	LogPath  string
}

func (e *PhaseError) Error() string {
	msg := fmt.Sprintf("%s phase finished with %d problem(s)", e.Phase, len(e.Failures))
	if e.LogPath != "" {
		msg += "; see " + e.LogPath
	}
	return msg
}

func (e *PhaseError) Unwrap() error {
	return ErrPhaseFailed
}

func multiRunError(names []string) error {
	const shown = 5
	list := names
	suffix := ""
	if len(list) > shown {
		list = list[:shown]
		suffix = fmt.Sprintf(" and %d more", len(names)-shown)
	}
	return fmt.Errorf("%w: %s%s", ErrMultiRunSample, strings.Join(list, ", "), suffix)
}

func dirCollisionError(collisions map[string][]string) error {
	dirs := make([]string, 0, len(collisions))
	for dir := range collisions {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	parts := make([]string, len(dirs))
	for i, dir := range dirs {
		parts[i] = fmt.Sprintf("%s (%s)", dir, strings.Join(collisions[dir], ", "))
	}
	return fmt.Errorf("%w: %s", ErrSampleDirCollision, strings.Join(parts, "; "))
}
