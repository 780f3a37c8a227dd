// Package media validates uploaded images and normalises them before storage.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"path"

	// decoders registered with image.Decode
	_ "image/gif"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	// MaxDimension caps the longer side of a stored image.
	MaxDimension = 2048
	// MaxPixels rejects decompression bombs before decoding the full image.
	MaxPixels   = 40_000_000
	JPEGQuality = 85
	WebPQuality = 80
)

var (
	// ErrInvalidImage mirrors the message clients see for non-image uploads.
	ErrInvalidImage = errors.New("Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
	ErrEmptyFile    = errors.New("The submitted file is empty.")
)

// TooLargeError reports an upload over the configured size limit.
type TooLargeError struct {
	Limit int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("File too large (max %dMB).", e.Limit>>20)
}

// Image is a decoded, normalised upload ready to be stored.
type Image struct {
	Data        []byte
	ContentType string
	Ext         string
	Width       int
	Height      int
}

// Processor turns raw uploads into stored images.
type Processor struct {
	maxBytes int64
}

// NewProcessor returns a Processor accepting uploads up to maxBytes.
func NewProcessor(maxBytes int64) *Processor {
	return &Processor{maxBytes: maxBytes}
}

// Process reads r, verifies it is an image, downsizes it to MaxDimension and
// re-encodes it. Re-encoding drops metadata such as EXIF location.
// JPEG stays JPEG, WebP stays WebP, every other format becomes PNG.
func (p *Processor) Process(r io.Reader) (*Image, error) {
	raw, err := io.ReadAll(io.LimitReader(r, p.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrEmptyFile
	}
	if int64(len(raw)) > p.maxBytes {
		return nil, &TooLargeError{Limit: p.maxBytes}
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, ErrInvalidImage
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > MaxPixels {
		return nil, ErrInvalidImage
	}

	decoded, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, ErrInvalidImage
	}

	img := resizeToFit(decoded, MaxDimension)
	out := &Image{Width: img.Bounds().Dx(), Height: img.Bounds().Dy()}

	var buf bytes.Buffer
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality})
		out.ContentType, out.Ext = "image/jpeg", ".jpg"
	case "webp":
		err = webp.Encode(&buf, img, &webp.Options{Quality: WebPQuality})
		out.ContentType, out.Ext = "image/webp", ".webp"
	default:
		err = png.Encode(&buf, img)
		out.ContentType, out.Ext = "image/png", ".png"
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", format, err)
	}
	out.Data = buf.Bytes()
	return out, nil
}

func resizeToFit(src image.Image, maxSide int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxSide && h <= maxSide {
		return src
	}

	scale := float64(maxSide) / float64(w)
	if hs := float64(maxSide) / float64(h); hs < scale {
		scale = hs
	}
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

// NewKey returns a fresh storage key under prefix with the given extension.
func NewKey(prefix, ext string) string {
	return path.Join(prefix, uuid.NewString()+ext)
}
