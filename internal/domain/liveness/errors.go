package liveness

import "errors"

var (
	ErrUndecodableImage    = errors.New("image could not be decoded")
	ErrEmptyImage          = errors.New("image is empty")
	ErrImageTooLarge       = errors.New("image dimensions exceed the limit")
	ErrUnsupportedPlatform = errors.New("unsupported capture platform")
)

// RejectedError is returned when a capture fails the liveness gate.
type RejectedError struct {
	Strategy string
	Reason   string
}

func (e *RejectedError) Error() string {
	return "liveness check failed: " + e.Reason
}
