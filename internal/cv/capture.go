package cv

import (
	"errors"
	"image"
)

// ErrWindowNotFound is returned when the target game window cannot be located
// on screen.
var ErrWindowNotFound = errors.New("game window not found")

// Capturer provides still frames of the game window on demand.
type Capturer interface {
	// CaptureFrame returns the current window contents. Coordinates in the
	// returned image are window-relative, anchored at (0,0).
	CaptureFrame() (*image.RGBA, error)
	// Bounds returns the window's screen position and size.
	Bounds() (image.Rectangle, error)
}

// ResizeStatus reports the outcome of normalizing the window size before a
// run.
type ResizeStatus int

const (
	ResizeOK ResizeStatus = iota
	ResizeMismatch
	ResizeNotFound
)

func (s ResizeStatus) String() string {
	switch s {
	case ResizeOK:
		return "ok"
	case ResizeMismatch:
		return "mismatch"
	case ResizeNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}
