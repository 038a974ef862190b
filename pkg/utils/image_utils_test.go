package utils

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordedConversion struct {
	format string
	ok     bool
}

type fakeObserver struct {
	calls []recordedConversion
}

func (f *fakeObserver) ObserveConversion(format string, ok bool, _ time.Duration) {
	f.calls = append(f.calls, recordedConversion{format: format, ok: ok})
}

func colorImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 4), G: uint8(y * 5), B: uint8(255 - x*2), A: 255})
		}
	}
	return img
}

func writeFixture(t *testing.T, name string, encode func(*bytes.Buffer) error) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, encode(&buf))
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

func newTestConverter() (*GrayscaleConverter, *observer.ObservedLogs, *fakeObserver) {
	core, logs := observer.New(zapcore.DebugLevel)
	obs := &fakeObserver{}
	return NewGrayscaleConverter(zap.New(core), obs), logs, obs
}

func TestConvertPNGToGray(t *testing.T) {
	path := writeFixture(t, "photo.png", func(b *bytes.Buffer) error { return png.Encode(b, colorImage()) })
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	conv, logs, obs := newTestConverter()
	require.True(t, conv.ConvertToGrayscale(path))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEqual(t, len(before), len(after))

	img, format, err := image.Decode(bytes.NewReader(after))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.IsType(t, &image.Gray{}, img)
	assert.Equal(t, image.Rect(0, 0, 64, 48), img.Bounds())

	assert.Equal(t, 0, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
	assert.Equal(t, []recordedConversion{{format: "png", ok: true}}, obs.calls)
}

func TestConvertJPEGToGray(t *testing.T) {
	path := writeFixture(t, "photo.jpg", func(b *bytes.Buffer) error {
		return jpeg.Encode(b, colorImage(), &jpeg.Options{Quality: 90})
	})

	conv, _, _ := newTestConverter()
	require.True(t, conv.ConvertToGrayscale(path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, color.GrayModel, cfg.ColorModel)
}

func TestConvertGIFToGray(t *testing.T) {
	path := writeFixture(t, "anim.gif", func(b *bytes.Buffer) error { return gif.Encode(b, colorImage(), nil) })

	conv, _, _ := newTestConverter()
	require.True(t, conv.ConvertToGrayscale(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	img, err := gif.Decode(bytes.NewReader(data))
	require.NoError(t, err)

	paletted, ok := img.(*image.Paletted)
	require.True(t, ok)
	for _, c := range paletted.Palette {
		r, g, b, _ := c.RGBA()
		assert.True(t, r == g && g == b, "palette entry %v is not gray", c)
	}
}

func TestConvertAlreadyGray(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 8, 8))
	path := writeFixture(t, "gray.png", func(b *bytes.Buffer) error { return png.Encode(b, gray) })

	conv, _, _ := newTestConverter()
	assert.True(t, conv.ConvertToGrayscale(path))
}

func TestConvertKeepsFileMode(t *testing.T) {
	path := writeFixture(t, "photo.png", func(b *bytes.Buffer) error { return png.Encode(b, colorImage()) })
	require.NoError(t, os.Chmod(path, 0640))

	conv, _, _ := newTestConverter()
	require.True(t, conv.ConvertToGrayscale(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0640), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestConvertNonImageLeavesFileUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.png")
	content := []byte("definitely not a png")
	require.NoError(t, os.WriteFile(path, content, 0644))

	conv, logs, obs := newTestConverter()
	assert.False(t, conv.ConvertToGrayscale(path))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, after)

	errorLogs := logs.FilterLevelExact(zapcore.ErrorLevel)
	require.Equal(t, 1, errorLogs.Len())
	entry := errorLogs.All()[0]
	assert.Equal(t, string(KindDecode), entry.ContextMap()["kind"])
	assert.Equal(t, path, entry.ContextMap()["path"])

	assert.Equal(t, []recordedConversion{{format: "", ok: false}}, obs.calls)
}

func TestConvertErrorKinds(t *testing.T) {
	conv, _, _ := newTestConverter()

	_, err := conv.Convert(filepath.Join(t.TempDir(), "missing.png"))
	var convErr *ConversionError
	require.True(t, errors.As(err, &convErr))
	assert.Equal(t, KindRead, convErr.Kind)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	path := filepath.Join(t.TempDir(), "garbage.jpg")
	require.NoError(t, os.WriteFile(path, []byte{0xff, 0xd8, 0x00}, 0644))
	_, err = conv.Convert(path)
	require.True(t, errors.As(err, &convErr))
	assert.Equal(t, KindDecode, convErr.Kind)
	assert.Contains(t, err.Error(), "garbage.jpg")
}

func TestEncodeGrayUnsupportedFormat(t *testing.T) {
	err := encodeGray(&bytes.Buffer{}, image.NewGray(image.Rect(0, 0, 1, 1)), "bmp")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
