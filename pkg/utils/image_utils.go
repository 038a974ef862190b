package utils

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

const jpegQuality = 95

type ConversionErrorKind string

const (
	KindRead   ConversionErrorKind = "read"
	KindDecode ConversionErrorKind = "decode"
	KindEmpty  ConversionErrorKind = "empty"
	KindEncode ConversionErrorKind = "encode"
	KindWrite  ConversionErrorKind = "write"
)

var (
	ErrEmptyImage        = errors.New("decoded image has no pixels")
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

// ConversionError tells callers which stage of a conversion failed.
type ConversionError struct {
	Kind ConversionErrorKind
	Path string
	Err  error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("grayscale %s failed for %s: %v", e.Kind, e.Path, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// ConversionObserver receives one call per conversion attempt.
type ConversionObserver interface {
	ObserveConversion(format string, ok bool, elapsed time.Duration)
}

// GrayscaleConverter rewrites image files in place with their single
// channel version, keeping the container format they were decoded from.
type GrayscaleConverter struct {
	log      *zap.Logger
	observer ConversionObserver
}

func NewGrayscaleConverter(log *zap.Logger, observer ConversionObserver) *GrayscaleConverter {
	return &GrayscaleConverter{log: log, observer: observer}
}

// ConvertToGrayscale converts path and reports success. Failures are logged
// and never returned.
func (c *GrayscaleConverter) ConvertToGrayscale(path string) bool {
	if _, err := c.Convert(path); err != nil {
		fields := []zap.Field{zap.String("path", path), zap.Error(err)}
		var convErr *ConversionError
		if errors.As(err, &convErr) {
			fields = append(fields, zap.String("kind", string(convErr.Kind)))
		}
		c.log.Error("Failed to convert image to grayscale", fields...)
		return false
	}
	return true
}

// Convert overwrites path with its grayscale encoding and returns the
// detected format. The file is only replaced once encoding has succeeded.
func (c *GrayscaleConverter) Convert(path string) (string, error) {
	start := time.Now()
	format, err := c.convert(path)
	if c.observer != nil {
		c.observer.ObserveConversion(format, err == nil, time.Since(start))
	}
	if err != nil {
		return format, err
	}

	c.log.Info("Image converted to grayscale",
		zap.String("path", path),
		zap.String("format", format),
		zap.Duration("elapsed", time.Since(start)))

	return format, nil
}

func (c *GrayscaleConverter) convert(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", &ConversionError{Kind: KindRead, Path: path, Err: err}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", &ConversionError{Kind: KindRead, Path: path, Err: err}
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", &ConversionError{Kind: KindDecode, Path: path, Err: err}
	}
	if src.Bounds().Empty() {
		return format, &ConversionError{Kind: KindEmpty, Path: path, Err: ErrEmptyImage}
	}

	var buf bytes.Buffer
	if err := encodeGray(&buf, toGray(src), format); err != nil {
		return format, &ConversionError{Kind: KindEncode, Path: path, Err: err}
	}

	if err := replaceFile(path, buf.Bytes(), info.Mode().Perm()); err != nil {
		return format, &ConversionError{Kind: KindWrite, Path: path, Err: err}
	}

	return format, nil
}

func toGray(src image.Image) *image.Gray {
	if g, ok := src.(*image.Gray); ok {
		return g
	}
	b := src.Bounds()
	dst := image.NewGray(b)
	draw.Draw(dst, b, src, b.Min, draw.Src)
	return dst
}

func encodeGray(w io.Writer, img *image.Gray, format string) error {
	switch format {
	case "jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: jpegQuality})
	case "png":
		return png.Encode(w, img)
	case "gif":
		return gif.Encode(w, grayPaletted(img), nil)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

var grayPalette = func() color.Palette {
	p := make(color.Palette, 256)
	for i := range p {
		p[i] = color.Gray{Y: uint8(i)}
	}
	return p
}()

func grayPaletted(img *image.Gray) *image.Paletted {
	b := img.Bounds()
	dst := image.NewPaletted(b, grayPalette)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.SetColorIndex(x, y, img.GrayAt(x, y).Y)
		}
	}
	return dst
}

func replaceFile(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".gray-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}
