// Package ocr wraps the Tesseract engine behind the narrow text-extraction
// contract the scanner needs: coarse block transcription plus positioned
// word tokens.
package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"

	"github.com/otiai10/gosseract"
)

// Mode selects the page segmentation strategy.
type Mode int

const (
	// ModeBlock treats the region as a single uniform block of text.
	ModeBlock Mode = iota
	// ModeSparse is tuned for scattered UI labels with no layout.
	ModeSparse
)

func (m Mode) pageSegMode() gosseract.PageSegMode {
	if m == ModeSparse {
		return gosseract.PSM_SPARSE_TEXT
	}
	return gosseract.PSM_SINGLE_BLOCK
}

// Token is one recognized word with its bounding box, region-relative.
type Token struct {
	Text       string
	X, Y, W, H int
	Confidence float64
}

// Extractor is the text-extraction contract consumed by the scanner.
type Extractor interface {
	Recognize(img image.Image, mode Mode) (string, error)
	RecognizeTokens(img image.Image, mode Mode) ([]Token, error)
}

// TesseractExtractor implements Extractor on a shared gosseract client.
// The client is not safe for concurrent use; the perception loop is
// single-threaded but the mutex guards against accidental misuse.
type TesseractExtractor struct {
	mu       sync.Mutex
	client   *gosseract.Client
	language string
}

// NewTesseractExtractor creates an extractor for the given OCR language
// (e.g. "eng").
func NewTesseractExtractor(language string) (*TesseractExtractor, error) {
	client := gosseract.NewClient()
	if language != "" {
		if err := client.SetLanguage(language); err != nil {
			client.Close()
			return nil, fmt.Errorf("setting OCR language %q: %w", language, err)
		}
	}
	return &TesseractExtractor{client: client, language: language}, nil
}

// Close releases the underlying Tesseract client.
func (e *TesseractExtractor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.client.Close()
}

// Recognize returns the transcription of img. Recognition is retried over a
// small preprocessing ladder; the first pass that yields non-empty text wins.
func (e *TesseractExtractor) Recognize(img image.Image, mode Mode) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var lastErr error
	for _, prep := range preprocessLadder {
		text, err := e.recognizeOnce(prep(img), mode)
		if err != nil {
			lastErr = err
			continue
		}
		if strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text), nil
		}
	}
	if lastErr != nil {
		return "", lastErr
	}
	return "", nil
}

func (e *TesseractExtractor) recognizeOnce(img image.Image, mode Mode) (string, error) {
	if err := e.setImage(img, mode); err != nil {
		return "", err
	}
	text, err := e.client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract text extraction: %w", err)
	}
	return text, nil
}

// RecognizeTokens returns every recognized word with its bounding box.
// Tokens use the default (un-upscaled) preprocessing so positions map 1:1
// onto the source region.
func (e *TesseractExtractor) RecognizeTokens(img image.Image, mode Mode) ([]Token, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.setImage(toGray(img), mode); err != nil {
		return nil, err
	}

	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("tesseract bounding boxes: %w", err)
	}

	tokens := make([]Token, 0, len(boxes))
	for _, box := range boxes {
		word := strings.TrimSpace(box.Word)
		if word == "" || box.Confidence <= 0 {
			continue
		}
		tokens = append(tokens, Token{
			Text:       word,
			X:          box.Box.Min.X,
			Y:          box.Box.Min.Y,
			W:          box.Box.Dx(),
			H:          box.Box.Dy(),
			Confidence: box.Confidence,
		})
	}
	return tokens, nil
}

func (e *TesseractExtractor) setImage(img image.Image, mode Mode) error {
	if err := e.client.SetPageSegMode(mode.pageSegMode()); err != nil {
		return fmt.Errorf("setting page seg mode: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encoding frame for OCR: %w", err)
	}
	if err := e.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return fmt.Errorf("handing frame to tesseract: %w", err)
	}
	return nil
}
