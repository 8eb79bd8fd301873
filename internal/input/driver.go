// Package input delivers synthesized mouse and keyboard events to the game
// client. The core only ever requests a click at a point or a drag between
// two points; cursor animation is this package's concern.
package input

import (
	"time"

	"github.com/go-vgo/robotgo"
)

// Driver is the input-delivery contract used by the scanner and orchestrator.
type Driver interface {
	// MoveClick moves the cursor to the absolute screen position and clicks.
	MoveClick(x, y int) error
	// Drag presses at (fromX, fromY), moves to (toX, toY), holds, then
	// releases. The hold phase cancels the game's inertial scrolling.
	Drag(fromX, fromY, toX, toY int) error
	// PressEscape taps the escape key (closes in-game dialogs).
	PressEscape() error
}

// RobotgoDriver implements Driver with robotgo.
type RobotgoDriver struct {
	// MoveDuration paces cursor travel so the game registers hover states.
	MoveDuration time.Duration
	// DragHold is how long the button stays down after the drag motion ends.
	DragHold time.Duration
}

// NewRobotgoDriver returns a driver with click and drag pacing tuned for the
// game client.
func NewRobotgoDriver() *RobotgoDriver {
	return &RobotgoDriver{
		MoveDuration: 200 * time.Millisecond,
		DragHold:     300 * time.Millisecond,
	}
}

// MoveClick moves smoothly to the target and left-clicks.
func (d *RobotgoDriver) MoveClick(x, y int) error {
	robotgo.MoveSmooth(x, y)
	robotgo.MilliSleep(int(d.MoveDuration / time.Millisecond))
	robotgo.Click("left")
	return nil
}

// Drag performs a press-move-hold-release sequence. The hold before release
// stops the list from coasting past the intended scroll step.
func (d *RobotgoDriver) Drag(fromX, fromY, toX, toY int) error {
	robotgo.MoveSmooth(fromX, fromY)
	robotgo.MilliSleep(100)
	robotgo.Toggle("left")
	robotgo.MilliSleep(100)
	robotgo.MoveSmooth(toX, toY)
	robotgo.MilliSleep(int(d.DragHold / time.Millisecond))
	robotgo.Toggle("left", "up")
	return nil
}

// PressEscape taps the escape key.
func (d *RobotgoDriver) PressEscape() error {
	return robotgo.KeyTap("esc")
}
