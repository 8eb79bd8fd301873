package arena

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/dreamerbot/arena-go/internal/ocr"
)

// PositionMethod records how a parsed power's row position was resolved.
// More specific methods win when the same row could be placed several ways.
type PositionMethod int

const (
	// PositionExact - the digit string itself was located among the
	// positioned tokens.
	PositionExact PositionMethod = iota
	// PositionLabeled - placed at an unclaimed "Power" label token.
	PositionLabeled
	// PositionFallback - a standalone number token accepted by the second
	// pass.
	PositionFallback
	// PositionEstimated - no token matched; position derived from row order
	// and the configured row height.
	PositionEstimated
)

func (m PositionMethod) String() string {
	switch m {
	case PositionExact:
		return "exact"
	case PositionLabeled:
		return "labeled"
	case PositionFallback:
		return "fallback"
	case PositionEstimated:
		return "estimated"
	default:
		return "unknown"
	}
}

// ParsedPower is one power value extracted from a scan region, with its
// region-relative vertical position.
type ParsedPower struct {
	Power   int
	Y       int
	Method  PositionMethod
	RawText string
}

// powerPattern tolerates the ways OCR garbles "Team Power:": leading letters
// may be dropped ("am Power:", "ower:") and thousands separators may read as
// commas or periods ("8,309" vs "8.309").
var powerPattern = regexp.MustCompile(`(?:[Tt]?e?a?m?\s*)?[Pp]ower[:.\s]+(\d[\d,.]+)`)

// standaloneNumber matches a bare 4-6 digit token, the shape of a team power
// whose label OCR lost entirely.
var standaloneNumber = regexp.MustCompile(`^\d{4,6}$`)

// Parser turns OCR output into positioned power readings.
type Parser struct {
	// MinPower is the OCR noise floor; parses below it are discarded.
	MinPower int
	// MaxPower bounds the fallback pass (the primary pattern is bounded by
	// digit count already).
	MaxPower int
	// RowHeightPx and RowOffsetPx estimate a row's position from its order
	// when no token carries it.
	RowHeightPx int
	RowOffsetPx int
	// TolerancePx is the radius within which a fallback number is assumed to
	// re-detect an already-claimed row.
	TolerancePx int
}

// NewParser returns a parser tuned for the roster's power range and the
// canonical row geometry.
func NewParser(rowHeightPx, rowOffsetPx, tolerancePx int) *Parser {
	return &Parser{
		MinPower:    1000,
		MaxPower:    999999,
		RowHeightPx: rowHeightPx,
		RowOffsetPx: rowOffsetPx,
		TolerancePx: tolerancePx,
	}
}

// Parse extracts every team power from a region's block transcription plus
// its positioned tokens. Primary pass: label-pattern matches over the block
// text, each resolved to a vertical position (exact digit match, then an
// unclaimed label token, then an order-based estimate). Fallback pass:
// standalone 4-6 digit tokens at positions no earlier parse claimed.
func (p *Parser) Parse(textBlock string, tokens []ocr.Token) []ParsedPower {
	var powers []ParsedPower
	usedY := make([]int, 0, 8)
	foundPowers := make(map[int]bool)

	for _, match := range powerPattern.FindAllStringSubmatch(textBlock, -1) {
		digits := stripSeparators(match[1])
		power, err := strconv.Atoi(digits)
		if err != nil || power < p.MinPower {
			continue
		}
		if foundPowers[power] {
			continue
		}

		y, method := p.resolvePosition(digits, tokens, usedY, len(powers))
		usedY = append(usedY, y)
		foundPowers[power] = true
		powers = append(powers, ParsedPower{
			Power:   power,
			Y:       y,
			Method:  method,
			RawText: strings.TrimSpace(match[0]),
		})
	}

	// Second pass: numbers whose label OCR dropped. A token is accepted only
	// when its position isn't within tolerance of a row already claimed,
	// otherwise it would re-detect the same row under a new value.
	for _, token := range tokens {
		digits := stripSeparators(token.Text)
		if !standaloneNumber.MatchString(digits) {
			continue
		}
		power, err := strconv.Atoi(digits)
		if err != nil || power < p.MinPower || power > p.MaxPower || foundPowers[power] {
			continue
		}
		if nearAny(token.Y, usedY, p.TolerancePx) {
			continue
		}

		usedY = append(usedY, token.Y)
		foundPowers[power] = true
		powers = append(powers, ParsedPower{
			Power:   power,
			Y:       token.Y,
			Method:  PositionFallback,
			RawText: token.Text,
		})
	}

	return powers
}

// resolvePosition finds the vertical position for a parsed power, preferring
// the most specific evidence available.
func (p *Parser) resolvePosition(digits string, tokens []ocr.Token, usedY []int, order int) (int, PositionMethod) {
	// Exact: the digit string appears in a positioned token.
	for _, token := range tokens {
		if strings.Contains(stripSeparators(token.Text), digits) && !containsInt(usedY, token.Y) {
			return token.Y, PositionExact
		}
	}

	// Labeled: an unclaimed "Power" label marks the row.
	for _, token := range tokens {
		if !strings.Contains(token.Text, "Power") && !strings.Contains(token.Text, "ower") {
			continue
		}
		if !containsInt(usedY, token.Y) {
			return token.Y, PositionLabeled
		}
	}

	// Estimated: OCR dropped the row; place it by order.
	return order*p.RowHeightPx + p.RowOffsetPx, PositionEstimated
}

func stripSeparators(s string) string {
	return strings.NewReplacer(",", "", ".", "").Replace(s)
}

func containsInt(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func nearAny(y int, values []int, tolerance int) bool {
	for _, v := range values {
		d := y - v
		if d < 0 {
			d = -d
		}
		if d < tolerance {
			return true
		}
	}
	return false
}
