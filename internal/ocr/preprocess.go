package ocr

import (
	"image"
	"image/color"
)

// preprocessLadder is the ordered list of image treatments tried until one
// produces text. Grayscale alone handles most frames; binary thresholding
// helps with light text on dark panels; contrast stretching recovers washed
// out captures.
var preprocessLadder = []func(image.Image) image.Image{
	func(img image.Image) image.Image { return toGray(img) },
	func(img image.Image) image.Image { return threshold(toGray(img), 150) },
	func(img image.Image) image.Image { return stretchContrast(toGray(img)) },
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	bounds := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x-bounds.Min.X, y-bounds.Min.Y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return gray
}

// threshold binarizes: pixels at or above cut become white, the rest black.
func threshold(gray *image.Gray, cut uint8) *image.Gray {
	out := image.NewGray(gray.Bounds())
	for i, v := range gray.Pix {
		if v >= cut {
			out.Pix[i] = 255
		} else {
			out.Pix[i] = 0
		}
	}
	return out
}

// stretchContrast linearly remaps the observed intensity range to 0-255.
func stretchContrast(gray *image.Gray) *image.Gray {
	min := uint8(255)
	max := uint8(0)
	for _, v := range gray.Pix {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if max <= min {
		return gray
	}

	out := image.NewGray(gray.Bounds())
	span := int(max) - int(min)
	for i, v := range gray.Pix {
		out.Pix[i] = uint8((int(v) - int(min)) * 255 / span)
	}
	return out
}
