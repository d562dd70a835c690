package services

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/rwcarlsen/goexif/exif"
)

// ProbeDimensions reads pixel dimensions from image bytes. The decoder header is
// authoritative; EXIF pixel dimensions are used only for formats the decoders
// cannot read. Both results are nil when neither source knows.
func ProbeDimensions(data []byte) (width, height *int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err == nil && cfg.Width > 0 && cfg.Height > 0 {
		return &cfg.Width, &cfg.Height
	}

	if w, h, ok := exifDimensions(data); ok {
		return &w, &h
	}
	return nil, nil
}

func exifDimensions(data []byte) (int, int, bool) {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, 0, false
	}

	w, ok := exifInt(x, exif.PixelXDimension, exif.ImageWidth)
	if !ok {
		return 0, 0, false
	}
	h, ok := exifInt(x, exif.PixelYDimension, exif.ImageLength)
	if !ok {
		return 0, 0, false
	}
	return w, h, true
}

// exifInt returns the first positive integer found among fields
func exifInt(x *exif.Exif, fields ...exif.FieldName) (int, bool) {
	for _, field := range fields {
		tag, err := x.Get(field)
		if err != nil {
			continue
		}
		if val, err := tag.Int(0); err == nil && val > 0 {
			return val, true
		}
	}
	return 0, false
}
