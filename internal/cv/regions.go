package cv

import "image"

// Region is a pixel-space rectangle within a captured frame.
type Region struct {
	X1, Y1, X2, Y2 int
}

// Width returns the width of the region
func (r Region) Width() int {
	return r.X2 - r.X1
}

// Height returns the height of the region
func (r Region) Height() int {
	return r.Y2 - r.Y1
}

// ToImageRectangle converts Region to *image.Rectangle for use with CV operations
func (r Region) ToImageRectangle() *image.Rectangle {
	return &image.Rectangle{
		Min: image.Point{X: r.X1, Y: r.Y1},
		Max: image.Point{X: r.X2, Y: r.Y2},
	}
}

// FracRegion is a window-relative rectangle expressed as fractions of the
// window dimensions, so the same layout survives window moves and (within
// reason) resizes.
type FracRegion struct {
	XStart float64
	YStart float64
	Width  float64
	Height float64
}

// ToPixels resolves the fractional region against a concrete frame size.
func (f FracRegion) ToPixels(frameWidth, frameHeight int) image.Rectangle {
	x := int(float64(frameWidth) * f.XStart)
	y := int(float64(frameHeight) * f.YStart)
	w := int(float64(frameWidth) * f.Width)
	h := int(float64(frameHeight) * f.Height)
	return image.Rect(x, y, x+w, y+h)
}
