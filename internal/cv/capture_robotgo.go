package cv

import (
	"fmt"
	"image"

	"github.com/go-vgo/robotgo"
)

// WindowCapture captures frames from the game client window located by
// process name. The window is activated on first use so synthesized input
// lands in the right place.
type WindowCapture struct {
	processName string
	pid         int
}

// NewWindowCapture locates the game process and focuses its window.
func NewWindowCapture(processName string) (*WindowCapture, error) {
	wc := &WindowCapture{processName: processName}
	if err := wc.attach(); err != nil {
		return nil, err
	}
	return wc, nil
}

func (wc *WindowCapture) attach() error {
	pids, err := robotgo.FindIds(wc.processName)
	if err != nil {
		return fmt.Errorf("searching for %q: %w", wc.processName, err)
	}
	if len(pids) == 0 {
		return fmt.Errorf("%w: no process matching %q", ErrWindowNotFound, wc.processName)
	}
	wc.pid = pids[0]

	if err := robotgo.ActivePid(wc.pid); err != nil {
		return fmt.Errorf("activating window for pid %d: %w", wc.pid, err)
	}
	return nil
}

// Bounds returns the window rectangle in screen coordinates.
func (wc *WindowCapture) Bounds() (image.Rectangle, error) {
	x, y, w, h := robotgo.GetBounds(wc.pid)
	if w == 0 || h == 0 {
		// Window may have been closed since attach; retry discovery once.
		if err := wc.attach(); err != nil {
			return image.Rectangle{}, err
		}
		x, y, w, h = robotgo.GetBounds(wc.pid)
		if w == 0 || h == 0 {
			return image.Rectangle{}, ErrWindowNotFound
		}
	}
	return image.Rect(x, y, x+w, y+h), nil
}

// CaptureFrame grabs the window contents as an origin-anchored RGBA image.
func (wc *WindowCapture) CaptureFrame() (*image.RGBA, error) {
	bounds, err := wc.Bounds()
	if err != nil {
		return nil, err
	}

	img := robotgo.CaptureImg(bounds.Min.X, bounds.Min.Y, bounds.Dx(), bounds.Dy())
	if img == nil {
		return nil, fmt.Errorf("capture failed for window at %v", bounds)
	}
	return ToRGBA(img), nil
}

// VerifySize checks the window against the canonical dimensions the OCR
// regions were tuned for. The fractional region layout tolerates moderate
// deviation, so a mismatch is reported rather than treated as fatal.
func (wc *WindowCapture) VerifySize(wantWidth, wantHeight int) ResizeStatus {
	bounds, err := wc.Bounds()
	if err != nil {
		return ResizeNotFound
	}
	if bounds.Dx() == wantWidth && bounds.Dy() == wantHeight {
		return ResizeOK
	}
	return ResizeMismatch
}
