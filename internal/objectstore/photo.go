package objectstore

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"

	"golang.org/x/image/draw"
)

const (
	MaxPhotoSide   = 1600
	MaxPhotoPixels = 40_000_000
	PhotoQuality   = 85
)

var ErrPhotoTooLarge = errors.New("objectstore: photo dimensions too large")

// NormalizePhoto decodes a PNG or JPEG, shrinks it so the longest side is at
// most MaxPhotoSide and re-encodes it as JPEG. Images declaring more than
// MaxPhotoPixels are rejected from their header, before any pixel buffer is
// allocated.
func NormalizePhoto(r io.Reader) ([]byte, error) {
	var head bytes.Buffer
	cfg, _, err := image.DecodeConfig(io.TeeReader(r, &head))
	if err != nil {
		return nil, fmt.Errorf("failed to decode photo: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPhotoPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrPhotoTooLarge, cfg.Width, cfg.Height)
	}

	src, _, err := image.Decode(io.MultiReader(&head, r))
	if err != nil {
		return nil, fmt.Errorf("failed to decode photo: %w", err)
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if long := max(w, h); long > MaxPhotoSide {
		w = max(1, w*MaxPhotoSide/long)
		h = max(1, h*MaxPhotoSide/long)
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: PhotoQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode photo: %w", err)
	}
	return buf.Bytes(), nil
}
