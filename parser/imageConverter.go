package parser

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/disintegration/imaging"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// ImageFormat is the container format sniffed from the leading bytes of a download
type ImageFormat string

const (
	FormatJPEG ImageFormat = "jpeg"
	FormatPNG  ImageFormat = "png"
	FormatGIF  ImageFormat = "gif"
	FormatWEBP ImageFormat = "webp"
	FormatBMP  ImageFormat = "bmp"
	FormatTIFF ImageFormat = "tiff"
)

const DefaultJPEGQuality = 90

// MaxSourcePixels bounds the decoded size of a download (about 8K x 6K)
const MaxSourcePixels = 50_000_000

var (
	ErrEmptyImage     = errors.New("empty image data")
	ErrUnknownFormat  = errors.New("unknown image format")
	ErrInvalidTarget  = errors.New("target width and height must be positive")
	ErrDataTooShort   = errors.New("data too short to determine format")
	ErrZeroDimensions = errors.New("image has zero width or height")
	ErrImageTooLarge  = errors.New("image dimensions exceed the decode limit")
)

// EnhanceOptions controls the post-crop filter chain.
// Sharpen is the gaussian sigma of the unsharp pass, Contrast and Saturation are
// percentages in the range -100..100. A zero value skips that step.
type EnhanceOptions struct {
	Sharpen    float64 `json:"sharpen"`
	Contrast   float64 `json:"contrast"`
	Saturation float64 `json:"saturation"`
}

// DefaultEnhance is a plain sharpen. Contrast and saturation stay off unless configured.
var DefaultEnhance = EnhanceOptions{
	Sharpen: 1.0,
}

// ProcessOptions describes the output of a single processing run
type ProcessOptions struct {
	TargetWidth  int
	TargetHeight int
	Enhance      bool
	Filters      EnhanceOptions
	JPEGQuality  int
}

// ProcessedImage is one finished image, ready for preview or export
type ProcessedImage struct {
	Index          int
	SourceURL      string
	Image          image.Image
	JPEG           []byte
	Format         ImageFormat
	OriginalWidth  int
	OriginalHeight int
}

// FileName returns the archive / export name used for this image
func (p *ProcessedImage) FileName() string {
	return "image_" + itoa(p.Index) + ".jpg"
}

// DetectImageFormat reads the magic bytes and returns the current image format
func DetectImageFormat(data []byte) (ImageFormat, error) {
	if len(data) < 12 {
		return "", ErrDataTooShort
	}

	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return FormatJPEG, nil
	}
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return FormatPNG, nil
	}
	if string(data[0:6]) == "GIF87a" || string(data[0:6]) == "GIF89a" {
		return FormatGIF, nil
	}
	if string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP" {
		return FormatWEBP, nil
	}
	if data[0] == 'B' && data[1] == 'M' {
		return FormatBMP, nil
	}
	if string(data[0:4]) == "II*\x00" || string(data[0:4]) == "MM\x00*" {
		return FormatTIFF, nil
	}

	return "", ErrUnknownFormat
}

// DecodeImage decodes any supported format and flattens transparency onto white,
// so every result can be written as JPEG.
func DecodeImage(data []byte) (image.Image, ImageFormat, error) {
	if len(data) == 0 {
		return nil, "", ErrEmptyImage
	}

	format, err := DetectImageFormat(data)
	if err != nil {
		return nil, "", err
	}

	cfg, err := decodeConfig(format, bytes.NewReader(data))
	if err != nil {
		return nil, "", errors.New("failed to read " + string(format) + " header: " + err.Error())
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, "", ErrZeroDimensions
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxSourcePixels {
		return nil, "", fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}

	var img image.Image
	reader := bytes.NewReader(data)

	switch format {
	case FormatJPEG:
		img, err = jpeg.Decode(reader)
	case FormatPNG:
		img, err = png.Decode(reader)
	case FormatGIF:
		img, err = gif.Decode(reader)
	case FormatWEBP:
		img, err = webp.Decode(reader)
	case FormatBMP:
		img, err = bmp.Decode(reader)
	case FormatTIFF:
		img, err = tiff.Decode(reader)
	}

	if err != nil {
		return nil, "", errors.New("failed to decode " + string(format) + " image: " + err.Error())
	}

	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, "", ErrZeroDimensions
	}

	return flatten(img), format, nil
}

func decodeConfig(format ImageFormat, r io.Reader) (image.Config, error) {
	switch format {
	case FormatJPEG:
		return jpeg.DecodeConfig(r)
	case FormatPNG:
		return png.DecodeConfig(r)
	case FormatGIF:
		return gif.DecodeConfig(r)
	case FormatWEBP:
		return webp.DecodeConfig(r)
	case FormatBMP:
		return bmp.DecodeConfig(r)
	case FormatTIFF:
		return tiff.DecodeConfig(r)
	}
	return image.Config{}, errors.New("unsupported image format: " + string(format))
}

// flatten composites img over an opaque white canvas
func flatten(img image.Image) image.Image {
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(-b.Min.X, -b.Min.Y), 1.0)
}

// FitToAspect crops the largest centred region of img with the w:h ratio and scales
// it to exactly w x h. Cropping first keeps memory bounded by the target size,
// however extreme the source aspect ratio.
func FitToAspect(img image.Image, w, h int) (image.Image, error) {
	if w <= 0 || h <= 0 {
		return nil, ErrInvalidTarget
	}
	if img == nil {
		return nil, ErrEmptyImage
	}

	b := img.Bounds()
	origW, origH := b.Dx(), b.Dy()
	if origW == 0 || origH == 0 {
		return nil, ErrZeroDimensions
	}

	crop := CropRect(origW, origH, w, h).Add(b.Min)
	cropped := imaging.Crop(img, crop)
	return imaging.Resize(cropped, w, h, imaging.Lanczos), nil
}

// CropRect returns the centred region of a srcW x srcH image that has the w:h
// ratio, in source coordinates. Offsets round down.
func CropRect(srcW, srcH, w, h int) image.Rectangle {
	// compare srcW/srcH with w/h without floats
	if int64(srcW)*int64(h) > int64(srcH)*int64(w) {
		// wider than the target: keep full height, trim left and right
		cropW := int(int64(srcH) * int64(w) / int64(h))
		if cropW < 1 {
			cropW = 1
		}
		left := (srcW - cropW) / 2
		return image.Rect(left, 0, left+cropW, srcH)
	}

	// taller than (or equal to) the target: keep full width, trim top and bottom
	cropH := int(int64(srcW) * int64(h) / int64(w))
	if cropH < 1 {
		cropH = 1
	}
	top := (srcH - cropH) / 2
	return image.Rect(0, top, srcW, top+cropH)
}

// Enhance applies the sharpen / contrast / saturation chain
func Enhance(img image.Image, opts EnhanceOptions) image.Image {
	out := img
	if opts.Sharpen > 0 {
		out = imaging.Sharpen(out, opts.Sharpen)
	}
	if opts.Contrast != 0 {
		out = imaging.AdjustContrast(out, clampPercent(opts.Contrast))
	}
	if opts.Saturation != 0 {
		out = imaging.AdjustSaturation(out, clampPercent(opts.Saturation))
	}
	return out
}

// EncodeJPEG encodes img with the given quality (clamped to 1..100)
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(ClampQuality(quality))); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ProcessImageBytes runs the whole decode -> fit -> enhance -> encode chain for one download
func ProcessImageBytes(data []byte, index int, sourceURL string, opts ProcessOptions) (*ProcessedImage, error) {
	img, format, err := DecodeImage(data)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	fitted, err := FitToAspect(img, opts.TargetWidth, opts.TargetHeight)
	if err != nil {
		return nil, err
	}

	if opts.Enhance {
		fitted = Enhance(fitted, opts.Filters)
	}

	encoded, err := EncodeJPEG(fitted, opts.JPEGQuality)
	if err != nil {
		return nil, errors.New("failed to encode jpeg: " + err.Error())
	}

	return &ProcessedImage{
		Index:          index,
		SourceURL:      sourceURL,
		Image:          fitted,
		JPEG:           encoded,
		Format:         format,
		OriginalWidth:  b.Dx(),
		OriginalHeight: b.Dy(),
	}, nil
}

// Thumbnail decodes data and returns a preview that fits inside size x size
func Thumbnail(data []byte, size int) (image.Image, error) {
	img, _, err := DecodeImage(data)
	if err != nil {
		return nil, err
	}
	return Preview(img, size), nil
}

// Preview scales img down to fit inside size x size
func Preview(img image.Image, size int) image.Image {
	return imaging.Fit(img, size, size, imaging.Box)
}

// ClampQuality keeps a JPEG quality inside 1..100, 0 meaning the default
func ClampQuality(q int) int {
	if q == 0 {
		return DefaultJPEGQuality
	}
	if q < 1 {
		return 1
	}
	if q > 100 {
		return 100
	}
	return q
}

func clampPercent(p float64) float64 {
	if p < -100 {
		return -100
	}
	if p > 100 {
		return 100
	}
	return p
}
