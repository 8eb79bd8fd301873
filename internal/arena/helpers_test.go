package arena

import (
	"image"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dreamerbot/arena-go/internal/config"
	"github.com/dreamerbot/arena-go/internal/cv"
	"github.com/dreamerbot/arena-go/internal/ocr"
)

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func testConfig() *config.Config {
	return config.NewDefaultConfig()
}

// fakeCapturer serves a fixed frame. Painting the frame orange makes every
// availability sample classify as available; gray makes none.
type fakeCapturer struct {
	frame  *image.RGBA
	bounds image.Rectangle
}

func newFakeCapturer(orange bool) *fakeCapturer {
	frame := image.NewRGBA(image.Rect(0, 0, 1734, 703))
	for i := 0; i < len(frame.Pix); i += 4 {
		if orange {
			frame.Pix[i] = 255
			frame.Pix[i+1] = 128
			frame.Pix[i+2] = 0
		} else {
			frame.Pix[i] = 120
			frame.Pix[i+1] = 120
			frame.Pix[i+2] = 120
		}
		frame.Pix[i+3] = 255
	}
	return &fakeCapturer{
		frame:  frame,
		bounds: image.Rect(100, 50, 100+1734, 50+703),
	}
}

func (f *fakeCapturer) CaptureFrame() (*image.RGBA, error) {
	return f.frame, nil
}

func (f *fakeCapturer) Bounds() (image.Rectangle, error) {
	return f.bounds, nil
}

// fakeScreen is one OCR result: the block transcription plus positioned
// tokens for a single capture.
type fakeScreen struct {
	block  string
	tokens []ocr.Token
}

// fakeExtractor replays scripted screens in order; once exhausted, the last
// screen repeats. Recognize and RecognizeTokens within one parse see the
// same screen; the cursor advances after the token read.
type fakeExtractor struct {
	screens []fakeScreen
	calls   int
}

func (f *fakeExtractor) current() fakeScreen {
	if f.calls < len(f.screens) {
		return f.screens[f.calls]
	}
	if len(f.screens) > 0 {
		return f.screens[len(f.screens)-1]
	}
	return fakeScreen{}
}

func (f *fakeExtractor) Recognize(img image.Image, mode ocr.Mode) (string, error) {
	return f.current().block, nil
}

func (f *fakeExtractor) RecognizeTokens(img image.Image, mode ocr.Mode) ([]ocr.Token, error) {
	screen := f.current()
	f.calls++
	return screen.tokens, nil
}

// powerScreen builds a screen of labeled rows, one per power, spaced a row
// height apart with exact-match tokens.
func powerScreen(powers ...int) fakeScreen {
	screen := fakeScreen{}
	for i, power := range powers {
		text := formatPower(power)
		screen.block += "Team Power: " + text + "\n"
		screen.tokens = append(screen.tokens, ocr.Token{
			Text:       text,
			X:          10,
			Y:          i*115 + 40,
			W:          60,
			H:          16,
			Confidence: 90,
		})
	}
	return screen
}

func formatPower(power int) string {
	digits := []byte{}
	n := power
	count := 0
	for n > 0 {
		if count > 0 && count%3 == 0 {
			digits = append([]byte{','}, digits...)
		}
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
		count++
	}
	return string(digits)
}

// fakeDriver records synthesized input without delivering it anywhere.
type fakeDriver struct {
	clicks  []image.Point
	drags   int
	escapes int
}

func (f *fakeDriver) MoveClick(x, y int) error {
	f.clicks = append(f.clicks, image.Pt(x, y))
	return nil
}

func (f *fakeDriver) Drag(fromX, fromY, toX, toY int) error {
	f.drags++
	return nil
}

func (f *fakeDriver) PressEscape() error {
	f.escapes++
	return nil
}

// fakeClock advances instantly on Sleep so polled waits run without real
// delays.
type fakeClock struct {
	now   time.Time
	slept time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.now = c.now.Add(d)
	c.slept += d
}

// fakeFinder returns scripted matches per template name; the last entry in a
// queue repeats.
type fakeFinder struct {
	matches map[string][]cv.Match
}

func newFakeFinder() *fakeFinder {
	return &fakeFinder{matches: make(map[string][]cv.Match)}
}

func (f *fakeFinder) set(name string, matches ...cv.Match) {
	f.matches[name] = matches
}

func (f *fakeFinder) FindTemplate(name string) (cv.Match, error) {
	queue := f.matches[name]
	if len(queue) == 0 {
		return cv.Match{}, nil
	}
	match := queue[0]
	if len(queue) > 1 {
		f.matches[name] = queue[1:]
	}
	return match, nil
}

func foundMatch(x, y, w, h int) cv.Match {
	return cv.Match{
		Found:      true,
		Center:     image.Pt(x, y),
		Size:       image.Pt(w, h),
		Confidence: 0.9,
	}
}

func newTestScanner(frames cv.Capturer, texts ocr.Extractor, driver *fakeDriver, cfg *config.Config, clock Clock) *Scanner {
	return NewScanner(frames, texts, driver, cfg, clock, testLogger())
}
