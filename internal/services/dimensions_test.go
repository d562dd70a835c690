package services

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exifSegment builds a JPEG APP1 segment whose Exif IFD claims width x height
func exifSegment(width, height uint32) []byte {
	le := binary.LittleEndian
	tiff := []byte{'I', 'I', 0x2A, 0x00, 8, 0, 0, 0}

	// IFD0 with a single ExifIFDPointer entry
	tiff = le.AppendUint16(tiff, 1)
	tiff = le.AppendUint16(tiff, 0x8769)
	tiff = le.AppendUint16(tiff, 4)
	tiff = le.AppendUint32(tiff, 1)
	tiff = le.AppendUint32(tiff, 26)
	tiff = le.AppendUint32(tiff, 0)

	// Exif IFD: PixelXDimension, PixelYDimension
	tiff = le.AppendUint16(tiff, 2)
	for _, entry := range []struct {
		tag uint16
		val uint32
	}{{0xA002, width}, {0xA003, height}} {
		tiff = le.AppendUint16(tiff, entry.tag)
		tiff = le.AppendUint16(tiff, 4)
		tiff = le.AppendUint32(tiff, 1)
		tiff = le.AppendUint32(tiff, entry.val)
	}
	tiff = le.AppendUint32(tiff, 0)

	payload := append([]byte("Exif\x00\x00"), tiff...)
	seg := []byte{0xFF, 0xE1}
	seg = binary.BigEndian.AppendUint16(seg, uint16(len(payload)+2))
	return append(seg, payload...)
}

func TestProbeDimensions(t *testing.T) {
	t.Run("decoder header", func(t *testing.T) {
		img := image.NewRGBA(image.Rect(0, 0, 3, 2))
		img.Set(0, 0, color.White)
		var buf bytes.Buffer
		require.NoError(t, png.Encode(&buf, img))

		w, h := ProbeDimensions(buf.Bytes())
		require.NotNil(t, w)
		require.NotNil(t, h)
		assert.Equal(t, 3, *w)
		assert.Equal(t, 2, *h)
	})

	t.Run("header wins over stale exif", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 3)), nil))
		encoded := buf.Bytes()

		// SOI, then the Exif segment, then the rest of the encoded image
		data := append([]byte{}, encoded[:2]...)
		data = append(data, exifSegment(999, 777)...)
		data = append(data, encoded[2:]...)

		w, h := ProbeDimensions(data)
		require.NotNil(t, w)
		require.NotNil(t, h)
		assert.Equal(t, 4, *w)
		assert.Equal(t, 3, *h)
	})

	t.Run("exif when the decoder cannot read the image", func(t *testing.T) {
		data := []byte{0xFF, 0xD8}
		data = append(data, exifSegment(999, 777)...)
		data = append(data, 0xFF, 0xD9)

		w, h := ProbeDimensions(data)
		require.NotNil(t, w)
		require.NotNil(t, h)
		assert.Equal(t, 999, *w)
		assert.Equal(t, 777, *h)
	})

	t.Run("unknown bytes", func(t *testing.T) {
		w, h := ProbeDimensions([]byte("definitely not an image"))
		assert.Nil(t, w)
		assert.Nil(t, h)
	})
}
