package cv

import (
	"image"
	"math"
)

// Match contains the result of a template search.
type Match struct {
	Found      bool
	Center     image.Point // center of the matched area, frame coordinates
	Size       image.Point // width/height of the matched area at the winning scale
	Confidence float64
	Scale      float64
}

// MatchMethod selects the similarity score used during matching.
type MatchMethod int

const (
	// MatchMethodSAD - Sum of Absolute Differences (fastest)
	MatchMethodSAD MatchMethod = iota
	// MatchMethodSSD - Sum of Squared Differences (balanced)
	MatchMethodSSD
	// MatchMethodNCC - Normalized Cross-Correlation (most accurate)
	MatchMethodNCC
)

// DefaultScales is the scale ladder tried for every template, in order.
// The first scale that clears the threshold wins.
var DefaultScales = []float64{1.0, 0.9, 1.1, 0.8, 1.2}

// MatchConfig configures a template search.
type MatchConfig struct {
	Method       MatchMethod
	Threshold    float64          // 0.0-1.0, higher = more strict
	Scales       []float64        // nil = DefaultScales
	SearchRegion *image.Rectangle // optional: limit search area
	Grayscale    bool             // match on luminance only
}

// DefaultMatchConfig returns recommended settings.
func DefaultMatchConfig() *MatchConfig {
	return &MatchConfig{
		Method:    MatchMethodNCC,
		Threshold: 0.8,
		Grayscale: true,
	}
}

// FindTemplate searches frame for needle across the configured scale ladder
// and returns the first match at or above the threshold. When no scale clears
// the threshold the best sub-threshold candidate is still reported with
// Found=false so callers can log near misses.
func FindTemplate(frame, needle *image.RGBA, config *MatchConfig) Match {
	if config == nil {
		config = DefaultMatchConfig()
	}
	if config.Grayscale {
		frame = Grayscale(frame)
		needle = Grayscale(needle)
	}

	scales := config.Scales
	if len(scales) == 0 {
		scales = DefaultScales
	}

	best := Match{}
	for _, scale := range scales {
		scaled := needle
		if scale != 1.0 {
			scaled = resizeRGBA(needle, scale)
		}
		m := matchSingleScale(frame, scaled, config)
		m.Scale = scale
		if m.Found {
			return m
		}
		if m.Confidence > best.Confidence {
			best = m
		}
	}
	return best
}

// matchSingleScale slides needle over the search region and returns the best
// scoring position.
func matchSingleScale(frame, needle *image.RGBA, config *MatchConfig) Match {
	frameBounds := frame.Bounds()
	nw := needle.Bounds().Dx()
	nh := needle.Bounds().Dy()

	if nw > frameBounds.Dx() || nh > frameBounds.Dy() {
		return Match{}
	}

	search := frameBounds
	if config.SearchRegion != nil {
		search = config.SearchRegion.Intersect(frameBounds)
		if search.Empty() {
			return Match{}
		}
	}

	maxY := search.Max.Y - nh
	maxX := search.Max.X - nw
	if maxY < search.Min.Y || maxX < search.Min.X {
		return Match{}
	}

	bestScore := 0.0
	bestLoc := image.Point{}
	for y := search.Min.Y; y <= maxY; y++ {
		for x := search.Min.X; x <= maxX; x++ {
			score := scoreAt(frame, needle, x, y, config.Method)
			if score > bestScore {
				bestScore = score
				bestLoc = image.Point{X: x, Y: y}
			}
		}
	}

	return Match{
		Found:      bestScore >= config.Threshold,
		Center:     image.Point{X: bestLoc.X + nw/2, Y: bestLoc.Y + nh/2},
		Size:       image.Point{X: nw, Y: nh},
		Confidence: bestScore,
	}
}

func scoreAt(frame, needle *image.RGBA, x, y int, method MatchMethod) float64 {
	w := needle.Bounds().Dx()
	h := needle.Bounds().Dy()

	switch method {
	case MatchMethodSAD:
		return scoreSAD(frame, needle, x, y, w, h)
	case MatchMethodNCC:
		return scoreNCC(frame, needle, x, y, w, h)
	default:
		return scoreSSD(frame, needle, x, y, w, h)
	}
}

func scoreSAD(frame, needle *image.RGBA, x, y, width, height int) float64 {
	var sad uint64
	for ny := 0; ny < height; ny++ {
		for nx := 0; nx < width; nx++ {
			fIdx := (y+ny)*frame.Stride + (x+nx)*4
			nIdx := ny*needle.Stride + nx*4
			sad += uint64(absInt(int(frame.Pix[fIdx]) - int(needle.Pix[nIdx])))
			sad += uint64(absInt(int(frame.Pix[fIdx+1]) - int(needle.Pix[nIdx+1])))
			sad += uint64(absInt(int(frame.Pix[fIdx+2]) - int(needle.Pix[nIdx+2])))
		}
	}
	maxSAD := float64(width * height * 3 * 255)
	return 1.0 - (float64(sad) / maxSAD)
}

func scoreSSD(frame, needle *image.RGBA, x, y, width, height int) float64 {
	var ssd uint64
	for ny := 0; ny < height; ny++ {
		for nx := 0; nx < width; nx++ {
			fIdx := (y+ny)*frame.Stride + (x+nx)*4
			nIdx := ny*needle.Stride + nx*4
			dr := int(frame.Pix[fIdx]) - int(needle.Pix[nIdx])
			dg := int(frame.Pix[fIdx+1]) - int(needle.Pix[nIdx+1])
			db := int(frame.Pix[fIdx+2]) - int(needle.Pix[nIdx+2])
			ssd += uint64(dr*dr + dg*dg + db*db)
		}
	}
	maxSSD := float64(width * height * 3 * 255 * 255)
	return 1.0 - (float64(ssd) / maxSSD)
}

func scoreNCC(frame, needle *image.RGBA, x, y, width, height int) float64 {
	var sumF, sumN, sumFN, sumFF, sumNN float64
	count := float64(width * height * 3)

	for ny := 0; ny < height; ny++ {
		for nx := 0; nx < width; nx++ {
			fIdx := (y+ny)*frame.Stride + (x+nx)*4
			nIdx := ny*needle.Stride + nx*4
			for c := 0; c < 3; c++ {
				f := float64(frame.Pix[fIdx+c])
				n := float64(needle.Pix[nIdx+c])
				sumF += f
				sumN += n
				sumFN += f * n
				sumFF += f * f
				sumNN += n * n
			}
		}
	}

	numerator := sumFN - (sumF * sumN / count)
	denomF := math.Sqrt(sumFF - (sumF * sumF / count))
	denomN := math.Sqrt(sumNN - (sumN * sumN / count))
	if denomF == 0 || denomN == 0 {
		return 0
	}

	correlation := numerator / (denomF * denomN)
	return (correlation + 1.0) / 2.0
}

// Grayscale converts an RGBA image to its luminance, kept in RGBA layout so
// the matchers can use the same pixel math.
func Grayscale(img *image.RGBA) *image.RGBA {
	bounds := img.Bounds()
	gray := image.NewRGBA(bounds)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			idx := (y-bounds.Min.Y)*img.Stride + (x-bounds.Min.X)*4
			r := img.Pix[idx]
			g := img.Pix[idx+1]
			b := img.Pix[idx+2]

			// Luminance formula
			v := uint8((int(r)*299 + int(g)*587 + int(b)*114) / 1000)

			gray.Pix[idx] = v
			gray.Pix[idx+1] = v
			gray.Pix[idx+2] = v
			gray.Pix[idx+3] = 255
		}
	}
	return gray
}

// resizeRGBA scales an image by a uniform factor with nearest-neighbor
// sampling. Template scales stay within 0.8-1.2 so sampling artifacts are
// negligible compared to capture noise.
func resizeRGBA(img *image.RGBA, scale float64) *image.RGBA {
	src := img.Bounds()
	dw := int(math.Round(float64(src.Dx()) * scale))
	dh := int(math.Round(float64(src.Dy()) * scale))
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	for y := 0; y < dh; y++ {
		sy := src.Min.Y + int(float64(y)/scale)
		if sy >= src.Max.Y {
			sy = src.Max.Y - 1
		}
		for x := 0; x < dw; x++ {
			sx := src.Min.X + int(float64(x)/scale)
			if sx >= src.Max.X {
				sx = src.Max.X - 1
			}
			dst.SetRGBA(x, y, img.RGBAAt(sx, sy))
		}
	}
	return dst
}

// CropRegion extracts a rectangular region from an image.
func CropRegion(img *image.RGBA, rect image.Rectangle) *image.RGBA {
	rect = rect.Intersect(img.Bounds())
	cropped := image.NewRGBA(rect)

	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			cropped.SetRGBA(x, y, img.RGBAAt(x, y))
		}
	}
	return cropped
}

// ToRGBA converts any image to RGBA with bounds anchored at the origin.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	bounds := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			dst.Set(x-bounds.Min.X, y-bounds.Min.Y, img.At(x, y))
		}
	}
	return dst
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
