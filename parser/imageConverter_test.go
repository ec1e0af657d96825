package parser

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func jpegBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}))
	return buf.Bytes()
}

func TestDetectImageFormat(t *testing.T) {
	img := solidImage(4, 4, color.RGBA{R: 200, A: 255})

	format, err := DetectImageFormat(pngBytes(t, img))
	require.NoError(t, err)
	assert.Equal(t, FormatPNG, format)

	format, err = DetectImageFormat(jpegBytes(t, img))
	require.NoError(t, err)
	assert.Equal(t, FormatJPEG, format)

	format, err = DetectImageFormat([]byte("RIFF\x00\x00\x00\x00WEBPVP8 "))
	require.NoError(t, err)
	assert.Equal(t, FormatWEBP, format)

	_, err = DetectImageFormat([]byte{0xFF, 0xD8})
	assert.ErrorIs(t, err, ErrDataTooShort)

	_, err = DetectImageFormat([]byte("<html><body>nope</body></html>"))
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestDecodeImageFlattensAlpha(t *testing.T) {
	transparent := solidImage(8, 8, color.RGBA{})
	img, format, err := DecodeImage(pngBytes(t, transparent))
	require.NoError(t, err)
	assert.Equal(t, FormatPNG, format)

	r, g, b, a := img.At(3, 3).RGBA()
	assert.Equal(t, uint32(0xffff), a)
	assert.Equal(t, uint32(0xffff), r)
	assert.Equal(t, uint32(0xffff), g)
	assert.Equal(t, uint32(0xffff), b)
}

func TestDecodeImageRejectsOversizeHeader(t *testing.T) {
	data := pngBytes(t, solidImage(2, 2, color.White))

	// rewrite the IHDR size to 30000x30000 and fix its checksum
	binary.BigEndian.PutUint32(data[16:20], 30000)
	binary.BigEndian.PutUint32(data[20:24], 30000)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))

	_, _, err := DecodeImage(data)
	assert.ErrorIs(t, err, ErrImageTooLarge)

	_, err = Thumbnail(data, 100)
	assert.ErrorIs(t, err, ErrImageTooLarge)
}

func TestDecodeImageEmpty(t *testing.T) {
	_, _, err := DecodeImage(nil)
	assert.ErrorIs(t, err, ErrEmptyImage)
}

func TestFitToAspect(t *testing.T) {
	tests := []struct {
		name         string
		srcW, srcH   int
		targW, targH int
	}{
		{"wide source to landscape", 400, 100, 160, 90},
		{"tall source to landscape", 100, 400, 160, 90},
		{"landscape to portrait", 320, 180, 90, 160},
		{"square to square", 50, 50, 20, 20},
		{"exact ratio", 1920, 1080, 160, 90},
		{"upscale", 16, 9, 320, 180},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := solidImage(tt.srcW, tt.srcH, color.RGBA{G: 128, A: 255})
			out, err := FitToAspect(src, tt.targW, tt.targH)
			require.NoError(t, err)
			assert.Equal(t, tt.targW, out.Bounds().Dx())
			assert.Equal(t, tt.targH, out.Bounds().Dy())
		})
	}
}

func TestFitToAspectCropsCentre(t *testing.T) {
	// left third red, middle third green, right third blue
	src := image.NewRGBA(image.Rect(0, 0, 300, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 300; x++ {
			switch {
			case x < 100:
				src.Set(x, y, color.RGBA{R: 255, A: 255})
			case x < 200:
				src.Set(x, y, color.RGBA{G: 255, A: 255})
			default:
				src.Set(x, y, color.RGBA{B: 255, A: 255})
			}
		}
	}

	out, err := FitToAspect(src, 100, 100)
	require.NoError(t, err)

	r, g, b, _ := out.At(50, 50).RGBA()
	assert.Greater(t, g, r)
	assert.Greater(t, g, b)
}

func TestFitToAspectThinSource(t *testing.T) {
	// a 2000x2 divider must not be scaled to 1,080,000x1080 before cropping
	src := solidImage(2000, 2, color.RGBA{R: 40, G: 40, B: 40, A: 255})

	out, err := FitToAspect(src, 1920, 1080)
	require.NoError(t, err)
	assert.Equal(t, 1920, out.Bounds().Dx())
	assert.Equal(t, 1080, out.Bounds().Dy())

	tall := solidImage(3, 4000, color.White)
	out, err = FitToAspect(tall, 1080, 1920)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(1080, 1920), out.Bounds().Size())
}

func TestCropRect(t *testing.T) {
	tests := []struct {
		name       string
		srcW, srcH int
		w, h       int
		want       image.Rectangle
	}{
		{"wide", 400, 100, 160, 90, image.Rect(111, 0, 288, 100)},
		{"tall", 100, 400, 160, 90, image.Rect(0, 172, 100, 228)},
		{"exact", 1920, 1080, 16, 9, image.Rect(0, 0, 1920, 1080)},
		{"thin banner", 2000, 2, 1920, 1080, image.Rect(998, 0, 1001, 2)},
		{"one pixel column", 1, 500, 1920, 1080, image.Rect(0, 249, 1, 250)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CropRect(tt.srcW, tt.srcH, tt.w, tt.h))
		})
	}
}

func TestFitToAspectInvalid(t *testing.T) {
	src := solidImage(10, 10, color.White)

	_, err := FitToAspect(src, 0, 100)
	assert.ErrorIs(t, err, ErrInvalidTarget)

	_, err = FitToAspect(src, 100, -1)
	assert.ErrorIs(t, err, ErrInvalidTarget)

	_, err = FitToAspect(nil, 100, 100)
	assert.ErrorIs(t, err, ErrEmptyImage)
}

func TestEnhanceKeepsBounds(t *testing.T) {
	src := solidImage(40, 30, color.RGBA{R: 90, G: 120, B: 60, A: 255})

	out := Enhance(src, DefaultEnhance)
	assert.Equal(t, src.Bounds().Size(), out.Bounds().Size())

	same := Enhance(src, EnhanceOptions{})
	assert.Equal(t, src, same)
}

func TestProcessImageBytes(t *testing.T) {
	data := pngBytes(t, solidImage(200, 300, color.RGBA{R: 10, G: 20, B: 30, A: 255}))

	out, err := ProcessImageBytes(data, 3, "https://example.com/a.png", ProcessOptions{
		TargetWidth:  64,
		TargetHeight: 36,
		Enhance:      true,
		Filters:      DefaultEnhance,
		JPEGQuality:  85,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, out.Index)
	assert.Equal(t, "image_3.jpg", out.FileName())
	assert.Equal(t, FormatPNG, out.Format)
	assert.Equal(t, 200, out.OriginalWidth)
	assert.Equal(t, 300, out.OriginalHeight)

	format, err := DetectImageFormat(out.JPEG)
	require.NoError(t, err)
	assert.Equal(t, FormatJPEG, format)

	decoded, err := jpeg.Decode(bytes.NewReader(out.JPEG))
	require.NoError(t, err)
	assert.Equal(t, 64, decoded.Bounds().Dx())
	assert.Equal(t, 36, decoded.Bounds().Dy())
}

func TestProcessImageBytesRejectsGarbage(t *testing.T) {
	_, err := ProcessImageBytes([]byte("definitely not an image"), 1, "", ProcessOptions{TargetWidth: 10, TargetHeight: 10})
	assert.Error(t, err)
}

func TestThumbnail(t *testing.T) {
	data := pngBytes(t, solidImage(400, 200, color.White))
	thumb, err := Thumbnail(data, 100)
	require.NoError(t, err)
	assert.Equal(t, 100, thumb.Bounds().Dx())
	assert.Equal(t, 50, thumb.Bounds().Dy())
}

func TestClampQuality(t *testing.T) {
	assert.Equal(t, DefaultJPEGQuality, ClampQuality(0))
	assert.Equal(t, 1, ClampQuality(-5))
	assert.Equal(t, 100, ClampQuality(250))
	assert.Equal(t, 42, ClampQuality(42))
}
