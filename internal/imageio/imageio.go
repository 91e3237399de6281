// Package imageio loads and saves the images colorize reads and writes.
//
// Decoding detects the format from content: PNG, JPEG, GIF, BMP, TIFF, WebP
// and AVIF. Encoding picks the format from the file extension; WebP has no
// encoder and extensions without one fall back to PNG in OutputPath.
package imageio

import (
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/avif"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	// ErrUnsupportedFormat is returned when no encoder exists for an extension.
	ErrUnsupportedFormat = errors.New("imageio: unsupported format")

	// ErrEmptyData is returned when an image file is empty.
	ErrEmptyData = errors.New("imageio: empty data")
)

// JPEGQuality is the quality used for JPEG output.
const JPEGQuality = 95

// AVIFQuality and AVIFSpeed are the encoder settings for AVIF output.
const (
	AVIFQuality = 80
	AVIFSpeed   = 8
)

// encoders maps a lower-case extension to its encoder.
var encoders = map[string]func(io.Writer, image.Image) error{
	".png":  png.Encode,
	".jpg":  encodeJPEG,
	".jpeg": encodeJPEG,
	".gif":  encodeGIF,
	".bmp":  bmp.Encode,
	".tif":  encodeTIFF,
	".tiff": encodeTIFF,
	".avif": encodeAVIF,
}

func encodeJPEG(w io.Writer, img image.Image) error {
	return jpeg.Encode(w, img, &jpeg.Options{Quality: JPEGQuality})
}

func encodeGIF(w io.Writer, img image.Image) error {
	return gif.Encode(w, img, &gif.Options{NumColors: 256})
}

func encodeAVIF(w io.Writer, img image.Image) error {
	return avif.Encode(w, img, avif.Options{Quality: AVIFQuality, Speed: AVIFSpeed})
}

func encodeTIFF(w io.Writer, img image.Image) error {
	return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
}

// CanEncode reports whether Save supports the extension of path.
func CanEncode(path string) bool {
	_, ok := encoders[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Load decodes the image at path and returns it with its format name.
func Load(path string) (image.Image, string, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, "", fmt.Errorf("imageio: open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if st, err := f.Stat(); err == nil && st.Size() == 0 {
		return nil, "", fmt.Errorf("%w: %s", ErrEmptyData, path)
	}
	return Decode(f)
}

// Decode decodes an image, detecting the format from content.
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("imageio: decode: %w", err)
	}
	return img, format, nil
}

// Encode writes img in the format selected by ext (".png", ".jpg", ...).
func Encode(w io.Writer, img image.Image, ext string) error {
	enc, ok := encoders[strings.ToLower(ext)]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err := enc(w, img); err != nil {
		return fmt.Errorf("imageio: encode %s: %w", strings.TrimPrefix(ext, "."), err)
	}
	return nil
}

// Save writes img to path in the format selected by its extension.
// The file is removed again if encoding fails.
func Save(path string, img image.Image) error {
	ext := filepath.Ext(path)
	if !CanEncode(path) {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("imageio: create file: %w", err)
	}
	if err := Encode(f, img, ext); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}

// OutputPath returns "<stem>_<scheme><ext>" for input, placed in dir or,
// when dir is empty, next to input. Extensions without an encoder become
// ".png".
func OutputPath(input, scheme, dir string) string {
	ext := filepath.Ext(input)
	stem := strings.TrimSuffix(filepath.Base(input), ext)
	if !CanEncode(input) {
		ext = ".png"
	}
	if dir == "" {
		dir = filepath.Dir(input)
	}
	return filepath.Join(dir, stem+"_"+scheme+ext)
}
