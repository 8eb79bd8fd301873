package arena

import (
	"testing"
)

func TestScanEndOfList(t *testing.T) {
	texts := &fakeExtractor{screens: []fakeScreen{
		powerScreen(12000, 8000, 15000, 9000), // full region at the top
		powerScreen(7000),                     // band at scroll 1: new row
		powerScreen(7000),                     // band at scroll 2: identical
	}}
	driver := &fakeDriver{}
	scanner := newTestScanner(newFakeCapturer(true), texts, driver, testConfig(), newFakeClock())

	registry, err := scanner.Scan()
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if registry.Len() != 5 {
		t.Errorf("Expected 5 opponents, got %d", registry.Len())
	}
	// The scroll that produced the duplicate band doesn't count.
	if registry.MaxScrollReached != 1 {
		t.Errorf("Expected max scroll 1, got %d", registry.MaxScrollReached)
	}
	if scanner.ScrollIndex() != 0 {
		t.Errorf("Expected scanner back at top, got scroll %d", scanner.ScrollIndex())
	}
	// 2 scrolls down + the full ceiling of scrolls back up.
	if driver.drags != 2+testConfig().MaxScrollAttempts {
		t.Errorf("Expected %d drags, got %d", 2+testConfig().MaxScrollAttempts, driver.drags)
	}
}

func TestScanConfirmationConfirmsEnd(t *testing.T) {
	texts := &fakeExtractor{screens: []fakeScreen{
		powerScreen(12000, 8000), // full region
		powerScreen(8000),        // band at scroll 1: all duplicates
		powerScreen(8000),        // confirmation band: unchanged
	}}
	scanner := newTestScanner(newFakeCapturer(true), texts, &fakeDriver{}, testConfig(), newFakeClock())

	registry, err := scanner.Scan()
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if registry.Len() != 2 {
		t.Errorf("Expected 2 opponents, got %d", registry.Len())
	}
	// Both the duplicate step and the confirmation step are rolled back.
	if registry.MaxScrollReached != 0 {
		t.Errorf("Expected max scroll 0, got %d", registry.MaxScrollReached)
	}
}

func TestScanConfirmationRevealsMore(t *testing.T) {
	texts := &fakeExtractor{screens: []fakeScreen{
		powerScreen(12000),
		powerScreen(12000), // all duplicates, triggers confirmation
		powerScreen(5000),  // confirmation reveals a new row instead
		powerScreen(5000),  // next band repeats it: end of list
	}}
	scanner := newTestScanner(newFakeCapturer(true), texts, &fakeDriver{}, testConfig(), newFakeClock())

	registry, err := scanner.Scan()
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if registry.Len() != 2 {
		t.Errorf("Expected 2 opponents, got %d", registry.Len())
	}
	if !registry.Has(5000) {
		t.Error("Expected the confirmation scan's new opponent registered")
	}
}

func TestScanEmptyBandRetries(t *testing.T) {
	texts := &fakeExtractor{screens: []fakeScreen{
		powerScreen(12000),
		{}, // OCR miss: empty band must not end the scan
		powerScreen(9000),
		powerScreen(9000),
	}}
	scanner := newTestScanner(newFakeCapturer(true), texts, &fakeDriver{}, testConfig(), newFakeClock())

	registry, err := scanner.Scan()
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if !registry.Has(9000) {
		t.Error("Expected scan to continue past an empty band")
	}
	if registry.Len() != 2 {
		t.Errorf("Expected 2 opponents, got %d", registry.Len())
	}
}

func TestScanStopsAtCeiling(t *testing.T) {
	// Every band reveals something new; only the ceiling stops the scan.
	texts := &fakeExtractor{screens: []fakeScreen{
		powerScreen(10000),
		powerScreen(2000),
		powerScreen(3000),
		powerScreen(4000),
		powerScreen(5000),
		powerScreen(6000),
		powerScreen(7000),
	}}
	cfg := testConfig()
	scanner := newTestScanner(newFakeCapturer(true), texts, &fakeDriver{}, cfg, newFakeClock())

	registry, err := scanner.Scan()
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if registry.MaxScrollReached != cfg.MaxScrollAttempts {
		t.Errorf("Expected scan capped at %d, got %d", cfg.MaxScrollAttempts, registry.MaxScrollReached)
	}
	if registry.Len() != 7 {
		t.Errorf("Expected 7 opponents, got %d", registry.Len())
	}
}

func TestScanReadingsCarryScrollIndex(t *testing.T) {
	texts := &fakeExtractor{screens: []fakeScreen{
		powerScreen(12000),
		powerScreen(7000),
		powerScreen(7000),
	}}
	scanner := newTestScanner(newFakeCapturer(true), texts, &fakeDriver{}, testConfig(), newFakeClock())

	registry, err := scanner.Scan()
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	for _, reading := range registry.Readings() {
		switch reading.Power {
		case 12000:
			if reading.ScrollIndex != 0 {
				t.Errorf("Expected 12000 at scroll 0, got %d", reading.ScrollIndex)
			}
		case 7000:
			if reading.ScrollIndex != 1 {
				t.Errorf("Expected 7000 at scroll 1, got %d", reading.ScrollIndex)
			}
		}
	}
}

func TestScrollTo(t *testing.T) {
	driver := &fakeDriver{}
	scanner := newTestScanner(newFakeCapturer(true), &fakeExtractor{}, driver, testConfig(), newFakeClock())

	if err := scanner.ScrollTo(3); err != nil {
		t.Fatalf("ScrollTo failed: %v", err)
	}
	if scanner.ScrollIndex() != 3 {
		t.Errorf("Expected scroll index 3, got %d", scanner.ScrollIndex())
	}
	if driver.drags != 3 {
		t.Errorf("Expected 3 drags, got %d", driver.drags)
	}

	if err := scanner.ScrollTo(1); err != nil {
		t.Fatalf("ScrollTo failed: %v", err)
	}
	if scanner.ScrollIndex() != 1 {
		t.Errorf("Expected scroll index 1, got %d", scanner.ScrollIndex())
	}
	if driver.drags != 5 {
		t.Errorf("Expected 5 drags total, got %d", driver.drags)
	}
}

func TestScrollIndexNeverNegative(t *testing.T) {
	scanner := newTestScanner(newFakeCapturer(true), &fakeExtractor{}, &fakeDriver{}, testConfig(), newFakeClock())

	for i := 0; i < 3; i++ {
		if err := scanner.scrollUp(); err != nil {
			t.Fatalf("scrollUp failed: %v", err)
		}
	}
	if scanner.ScrollIndex() != 0 {
		t.Errorf("Expected scroll index clamped at 0, got %d", scanner.ScrollIndex())
	}
}

func TestVerifyVisibleAndLocate(t *testing.T) {
	texts := &fakeExtractor{screens: []fakeScreen{
		powerScreen(12000, 8000),
	}}
	scanner := newTestScanner(newFakeCapturer(true), texts, &fakeDriver{}, testConfig(), newFakeClock())

	visible, err := scanner.VerifyVisible(8000)
	if err != nil {
		t.Fatalf("VerifyVisible failed: %v", err)
	}
	if !visible {
		t.Error("Expected 8000 visible")
	}

	visible, err = scanner.VerifyVisible(99999)
	if err != nil {
		t.Fatalf("VerifyVisible failed: %v", err)
	}
	if visible {
		t.Error("Expected 99999 not visible")
	}

	y, found, err := scanner.Locate(8000)
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if !found {
		t.Fatal("Expected 8000 located")
	}
	// Token y (second row, 155) offset by the OCR region's top edge.
	roiTop := testConfig().OCRRegion.ToPixels(1734, 703).Min.Y
	if y != 155+roiTop {
		t.Errorf("Expected y %d, got %d", 155+roiTop, y)
	}
}

func TestVisiblePowers(t *testing.T) {
	texts := &fakeExtractor{screens: []fakeScreen{
		powerScreen(12000, 8000),
	}}
	scanner := newTestScanner(newFakeCapturer(true), texts, &fakeDriver{}, testConfig(), newFakeClock())

	powers, err := scanner.VisiblePowers()
	if err != nil {
		t.Fatalf("VisiblePowers failed: %v", err)
	}
	if len(powers) != 2 || !powers[12000] || !powers[8000] {
		t.Errorf("Unexpected visible powers: %v", powers)
	}
}

func TestCheckAvailable(t *testing.T) {
	scanner := newTestScanner(newFakeCapturer(true), &fakeExtractor{}, &fakeDriver{}, testConfig(), newFakeClock())
	orange, _ := newFakeCapturer(true).CaptureFrame()
	gray, _ := newFakeCapturer(false).CaptureFrame()

	if !scanner.CheckAvailable(orange, 300) {
		t.Error("Expected orange button classified available")
	}
	if scanner.CheckAvailable(gray, 300) {
		t.Error("Expected gray button classified unavailable")
	}
}

func TestScanMarksAvailability(t *testing.T) {
	// Gray frame: every reading should come back unavailable.
	texts := &fakeExtractor{screens: []fakeScreen{
		powerScreen(12000, 8000),
		powerScreen(8000),
		powerScreen(8000),
	}}
	scanner := newTestScanner(newFakeCapturer(false), texts, &fakeDriver{}, testConfig(), newFakeClock())

	registry, err := scanner.Scan()
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if registry.AvailableCount() != 0 {
		t.Errorf("Expected 0 available on gray frame, got %d", registry.AvailableCount())
	}
}
