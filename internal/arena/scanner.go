package arena

import (
	"fmt"
	"image"

	"github.com/sirupsen/logrus"

	"github.com/dreamerbot/arena-go/internal/config"
	"github.com/dreamerbot/arena-go/internal/cv"
	"github.com/dreamerbot/arena-go/internal/input"
	"github.com/dreamerbot/arena-go/internal/ocr"
)

// Scanner drives the roster scroll, captures and parses each step, and
// accumulates a deduplicated registry. It exclusively owns the tracked
// scroll position during a scan.
type Scanner struct {
	frames cv.Capturer
	texts  ocr.Extractor
	parser *Parser
	input  input.Driver
	cfg    *config.Config
	clock  Clock
	log    *logrus.Entry

	scrollIndex int
}

// NewScanner wires a scanner from its collaborators.
func NewScanner(frames cv.Capturer, texts ocr.Extractor, driver input.Driver, cfg *config.Config, clock Clock, log *logrus.Entry) *Scanner {
	return &Scanner{
		frames: frames,
		texts:  texts,
		parser: NewParser(cfg.RowHeightPx, cfg.RowOffsetPx, cfg.PositionTolerancePx),
		input:  driver,
		cfg:    cfg,
		clock:  clock,
		log:    log,
	}
}

// ScrollIndex returns the tracked scroll position (0 = top).
func (s *Scanner) ScrollIndex() int {
	return s.scrollIndex
}

// ResetScroll declares the list to be at the top again. Called after events
// that reset the roster view (battle return, token refill).
func (s *Scanner) ResetScroll() {
	s.scrollIndex = 0
}

// Scan runs a complete top-to-bottom scan: a full-region pass at the top,
// then scroll-and-read over the bottom band until the same band repeats
// (end of list) or the scroll ceiling is hit. Finishes by scrolling up past
// the ceiling so the view is provably back at the top regardless of any
// drift the roll-backs introduced.
func (s *Scanner) Scan() (*Registry, error) {
	s.log.Info("Scanning opponent list")

	registry := NewRegistry()
	s.scrollIndex = 0

	visible, err := s.scanVisible(false)
	if err != nil {
		return nil, err
	}
	registry.Add(visible)

	lastBottom := make(map[int]bool)
	emptyScans := 0

	for s.scrollIndex < s.cfg.MaxScrollAttempts {
		if err := s.scrollDown(); err != nil {
			return nil, err
		}

		visible, err := s.scanVisible(true)
		if err != nil {
			return nil, err
		}
		current := powerSet(visible)

		// An empty band is an OCR miss, not the end of the list; retry once
		// before pressing on regardless.
		if len(visible) == 0 {
			emptyScans++
			s.log.WithField("attempt", emptyScans).Warn("OCR returned nothing for bottom band")
			if emptyScans >= 2 {
				emptyScans = 0
			}
			continue
		}
		emptyScans = 0

		// Same band twice means the list stopped moving. The scroll that
		// produced the duplicate didn't reveal anything, so it doesn't count.
		if len(lastBottom) > 0 && equalSets(current, lastBottom) {
			s.log.WithField("scroll", s.scrollIndex).Info("End of list reached")
			s.scrollIndex--
			break
		}

		added := registry.Add(visible)
		lastBottom = current

		// All duplicates but a differing set: one confirmation scroll
		// decides between end-of-list and a slow reveal.
		if added == 0 {
			if err := s.scrollDown(); err != nil {
				return nil, err
			}
			confirm, err := s.scanVisible(true)
			if err != nil {
				return nil, err
			}
			confirmSet := powerSet(confirm)

			if equalSets(confirmSet, lastBottom) {
				s.log.Info("End of list confirmed")
				s.scrollIndex -= 2
				break
			}
			s.scrollIndex--
			registry.Add(confirm)
			lastBottom = confirmSet
		}
	}

	if s.scrollIndex < 0 {
		s.scrollIndex = 0
	}
	registry.MaxScrollReached = s.scrollIndex

	// The roll-backs above adjust the tracked index without moving the view,
	// so tracked and actual position can disagree by now. Scrolling up the
	// full ceiling pins the view to the top; the list can't go higher.
	s.log.Debug("Returning to top of list")
	for i := 0; i < s.cfg.MaxScrollAttempts; i++ {
		if err := s.scrollUp(); err != nil {
			return nil, err
		}
	}
	s.scrollIndex = 0

	s.log.WithFields(logrus.Fields{
		"total":      registry.Len(),
		"available":  registry.AvailableCount(),
		"max_scroll": registry.MaxScrollReached,
	}).Info("Scan complete")

	return registry, nil
}

// ScrollTo steps the list up or down until the tracked index matches the
// target.
func (s *Scanner) ScrollTo(target int) error {
	for s.scrollIndex > target {
		if err := s.scrollUp(); err != nil {
			return err
		}
	}
	for s.scrollIndex < target {
		if err := s.scrollDown(); err != nil {
			return err
		}
	}
	return nil
}

// VerifyVisible reports whether an opponent with the given power can be read
// at the current scroll position.
func (s *Scanner) VerifyVisible(power int) (bool, error) {
	parsed, _, err := s.readRegion(false)
	if err != nil {
		return false, err
	}
	for _, p := range parsed {
		if p.Power == power {
			return true, nil
		}
	}
	return false, nil
}

// Locate returns the frame-relative row position of the opponent with the
// given power, if currently visible.
func (s *Scanner) Locate(power int) (int, bool, error) {
	parsed, roi, err := s.readRegion(false)
	if err != nil {
		return 0, false, err
	}
	for _, p := range parsed {
		if p.Power == power {
			return p.Y + roi.Min.Y, true, nil
		}
	}
	return 0, false, nil
}

// VisiblePowers returns the set of powers readable at the current scroll
// position.
func (s *Scanner) VisiblePowers() (map[int]bool, error) {
	s.clock.Sleep(s.cfg.ScanDelay)
	parsed, _, err := s.readRegion(false)
	if err != nil {
		return nil, err
	}
	powers := make(map[int]bool, len(parsed))
	for _, p := range parsed {
		powers[p.Power] = true
	}
	return powers, nil
}

// FirstVisiblePower reads only the first roster slot. Used by the refresh
// heuristic to tell whether the top of the list is still the strong opponent
// the attack phase gave up on.
func (s *Scanner) FirstVisiblePower() (int, bool, error) {
	s.clock.Sleep(s.cfg.ScanDelay)
	frame, err := s.frames.CaptureFrame()
	if err != nil {
		return 0, false, err
	}

	w := frame.Bounds().Dx()
	h := frame.Bounds().Dy()
	full := s.cfg.OCRRegion.ToPixels(w, h)
	// Top quarter of the window covers exactly one roster row.
	roi := image.Rect(full.Min.X, full.Min.Y, full.Max.X, full.Min.Y+h/4)

	parsed, err := s.parseRegion(frame, roi)
	if err != nil {
		return 0, false, err
	}
	if len(parsed) == 0 {
		return 0, false, nil
	}
	return parsed[0].Power, true, nil
}

// scanVisible captures and parses the scan region, tagging each reading with
// the current scroll index and its availability classification.
func (s *Scanner) scanVisible(bottomBand bool) ([]Reading, error) {
	s.clock.Sleep(s.cfg.ScanDelay)

	frame, err := s.frames.CaptureFrame()
	if err != nil {
		return nil, fmt.Errorf("capturing scan frame: %w", err)
	}

	w := frame.Bounds().Dx()
	h := frame.Bounds().Dy()
	region := s.cfg.OCRRegion
	if bottomBand {
		region = s.cfg.BottomBand
	}
	roi := region.ToPixels(w, h)

	parsed, err := s.parseRegion(frame, roi)
	if err != nil {
		return nil, err
	}

	readings := make([]Reading, 0, len(parsed))
	for _, p := range parsed {
		screenY := p.Y + roi.Min.Y
		readings = append(readings, Reading{
			Power:       p.Power,
			ScreenY:     screenY,
			ScrollIndex: s.scrollIndex,
			Available:   s.CheckAvailable(frame, screenY),
			RawText:     p.RawText,
		})
	}

	if len(readings) > 0 {
		s.log.WithFields(logrus.Fields{
			"scroll": s.scrollIndex,
			"found":  len(readings),
		}).Debug("Visible opponents parsed")
	}

	return readings, nil
}

// readRegion captures the full scan region and parses it, returning the
// parses plus the region rectangle for coordinate mapping.
func (s *Scanner) readRegion(bottomBand bool) ([]ParsedPower, image.Rectangle, error) {
	frame, err := s.frames.CaptureFrame()
	if err != nil {
		return nil, image.Rectangle{}, fmt.Errorf("capturing frame: %w", err)
	}

	w := frame.Bounds().Dx()
	h := frame.Bounds().Dy()
	region := s.cfg.OCRRegion
	if bottomBand {
		region = s.cfg.BottomBand
	}
	roi := region.ToPixels(w, h)

	parsed, err := s.parseRegion(frame, roi)
	return parsed, roi, err
}

func (s *Scanner) parseRegion(frame *image.RGBA, roi image.Rectangle) ([]ParsedPower, error) {
	crop := cv.CropRegion(frame, roi)

	block, err := s.texts.Recognize(crop, ocr.ModeBlock)
	if err != nil {
		return nil, fmt.Errorf("recognizing scan region: %w", err)
	}
	tokens, err := s.texts.RecognizeTokens(crop, ocr.ModeSparse)
	if err != nil {
		return nil, fmt.Errorf("recognizing scan tokens: %w", err)
	}

	return s.parser.Parse(block, tokens), nil
}

// CheckAvailable classifies the attack control next to a row as active or
// spent. Independent of OCR: it samples a stripe at the button column around
// the row and measures the fraction of saturated orange pixels.
func (s *Scanner) CheckAvailable(frame *image.RGBA, rowY int) bool {
	w := frame.Bounds().Dx()
	h := frame.Bounds().Dy()
	buttonX := int(float64(w) * s.cfg.BattleButtonX)

	// A tall stripe tolerates row-position error better than a tight box.
	sample := image.Rect(buttonX-20, rowY-80, buttonX+20, rowY+20)
	sample = sample.Intersect(image.Rect(0, 0, w, h))
	if sample.Empty() {
		s.log.Warn("Availability sample region empty, assuming available")
		return true
	}

	band := cv.HSVBand{
		HueMin: uint8(s.cfg.OrangeHueMin),
		HueMax: uint8(s.cfg.OrangeHueMax),
		SatMin: uint8(s.cfg.OrangeSatMin),
	}
	return cv.BandRatio(frame, sample, band) > s.cfg.OrangeMinRatio
}

// scrollDown drags the list up one step, revealing the next row.
func (s *Scanner) scrollDown() error {
	if err := s.dragList(true); err != nil {
		return err
	}
	s.scrollIndex++
	return nil
}

// scrollUp drags the list down one step, toward the top.
func (s *Scanner) scrollUp() error {
	if err := s.dragList(false); err != nil {
		return err
	}
	if s.scrollIndex > 0 {
		s.scrollIndex--
	}
	return nil
}

func (s *Scanner) dragList(down bool) error {
	bounds, err := s.frames.Bounds()
	if err != nil {
		return fmt.Errorf("locating window for scroll: %w", err)
	}

	w := bounds.Dx()
	h := bounds.Dy()
	centerX := bounds.Min.X + int(float64(w)*s.cfg.ListXCenter)
	topY := bounds.Min.Y + int(float64(h)*s.cfg.ListYStart)
	bottomY := bounds.Min.Y + int(float64(h)*s.cfg.ListYEnd)

	fromY, toY := bottomY, topY
	if !down {
		fromY, toY = topY, bottomY
	}

	if err := s.input.Drag(centerX, fromY, centerX, toY); err != nil {
		return fmt.Errorf("scroll drag failed: %w", err)
	}
	s.clock.Sleep(s.cfg.ScrollDelay)
	return nil
}

func powerSet(readings []Reading) map[int]bool {
	set := make(map[int]bool, len(readings))
	for _, r := range readings {
		set[r.Power] = true
	}
	return set
}

func equalSets(a, b map[int]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}
