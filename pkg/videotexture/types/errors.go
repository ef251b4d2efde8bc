package types

import (
	"fmt"
)

type ErrNotReady struct {
	State State
}

func (e ErrNotReady) Error() string {
	return fmt.Sprintf("the pipeline is not ready, yet: current state is %s", e.State)
}

type ErrNotFound struct {
	Kind     string
	SourceID SourceID
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s '%s' not found", e.Kind, e.SourceID)
}

type ErrInitializationFailed struct {
	Err error
}

func (e ErrInitializationFailed) Error() string {
	return fmt.Sprintf("initialization failed: %v", e.Err)
}

func (e ErrInitializationFailed) Unwrap() error {
	return e.Err
}

type ErrManifestTimeout struct {
	URL string
}

func (e ErrManifestTimeout) Error() string {
	return fmt.Sprintf("timed out on loading the manifest '%s'", e.URL)
}

type ErrMetadataTimeout struct{}

func (ErrMetadataTimeout) Error() string {
	return "timed out on waiting for the media metadata"
}

// ErrAutoplayBlocked means playback needs a user gesture; the caller is
// expected to re-prompt rather than treat this as fatal.
type ErrAutoplayBlocked struct {
	Err error
}

func (e ErrAutoplayBlocked) Error() string {
	if e.Err == nil {
		return "autoplay is blocked"
	}
	return fmt.Sprintf("autoplay is blocked: %v", e.Err)
}

func (e ErrAutoplayBlocked) Unwrap() error {
	return e.Err
}

type ErrInvalidTarget struct {
	Target TargetSpec
	Reason string
}

func (e ErrInvalidTarget) Error() string {
	return fmt.Sprintf("invalid target spec %s: %s", e.Target, e.Reason)
}

type ErrInvalidFrame struct {
	Reason string
}

func (e ErrInvalidFrame) Error() string {
	return fmt.Sprintf("invalid frame: %s", e.Reason)
}

type ErrInvalidAudioSource struct {
	SourceID SourceID
	Reason   string
}

func (e ErrInvalidAudioSource) Error() string {
	return fmt.Sprintf("invalid audio source '%s': %s", e.SourceID, e.Reason)
}

type ErrNoBuffer struct{}

func (ErrNoBuffer) Error() string {
	return "no ring buffer is bound"
}

type ErrPayloadSizeMismatch struct {
	Expected int
	Actual   int
}

func (e ErrPayloadSizeMismatch) Error() string {
	return fmt.Sprintf("payload size mismatch: expected %d bytes, received %d", e.Expected, e.Actual)
}

type ErrDimensionsMismatch struct {
	Expected TargetSpec
	Width    int
	Height   int
}

func (e ErrDimensionsMismatch) Error() string {
	return fmt.Sprintf(
		"payload dimensions mismatch: expected %dx%d, received %dx%d",
		e.Expected.Width, e.Expected.Height, e.Width, e.Height,
	)
}

type ErrNoRoom struct {
	Needed    int
	Available int
}

func (e ErrNoRoom) Error() string {
	return fmt.Sprintf("not enough room in the ring buffer: need %d, available %d", e.Needed, e.Available)
}
