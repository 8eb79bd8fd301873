package cv

import "image"

// HSV is a single pixel in hue/saturation/value space using OpenCV-style
// ranges: hue 0-179, saturation and value 0-255.
type HSV struct {
	H, S, V uint8
}

// HSVBand describes an inclusive hue band with a minimum saturation, used to
// classify UI element colors (e.g. the orange of an active battle button).
type HSVBand struct {
	HueMin, HueMax uint8
	SatMin         uint8
}

// RGBToHSV converts 8-bit RGB to OpenCV-style HSV.
func RGBToHSV(r, g, b uint8) HSV {
	rf := int(r)
	gf := int(g)
	bf := int(b)

	max := rf
	if gf > max {
		max = gf
	}
	if bf > max {
		max = bf
	}
	min := rf
	if gf < min {
		min = gf
	}
	if bf < min {
		min = bf
	}
	delta := max - min

	v := max
	s := 0
	if max > 0 {
		s = delta * 255 / max
	}

	h := 0
	if delta > 0 {
		switch max {
		case rf:
			h = (60*(gf-bf)/delta + 360) % 360
		case gf:
			h = 60*(bf-rf)/delta + 120
		default:
			h = 60*(rf-gf)/delta + 240
		}
	}

	return HSV{H: uint8(h / 2), S: uint8(s), V: uint8(v)}
}

// BandRatio returns the fraction of pixels inside rect whose hue falls within
// band's hue range at or above its saturation floor. rect is clamped to the
// image bounds; an empty sample yields 0.
func BandRatio(img *image.RGBA, rect image.Rectangle, band HSVBand) float64 {
	rect = rect.Intersect(img.Bounds())
	if rect.Empty() {
		return 0
	}

	matched := 0
	total := 0
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			c := img.RGBAAt(x, y)
			hsv := RGBToHSV(c.R, c.G, c.B)
			if hsv.H >= band.HueMin && hsv.H <= band.HueMax && hsv.S > band.SatMin {
				matched++
			}
			total++
		}
	}
	return float64(matched) / float64(total)
}
