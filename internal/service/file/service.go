package file

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"math"

	"github.com/cmlabs-hris/hris-mobile-bff/internal/domain/liveness"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/image/draw"
)

// Target size of a selfie sent upstream.
const (
	MaxSelfieBytes = 150 * 1024
	MinSelfieBytes = 50 * 1024
)

var ErrEmptySelfie = errors.New("selfie is empty")

// EncodedSelfie is a selfie ready for the upstream punch body.
type EncodedSelfie struct {
	// DataURI is "data:image/jpeg;base64,..." of the compressed image.
	DataURI string
	// Fingerprint is the hex BLAKE2b-256 digest of the captured bytes.
	Fingerprint string
	Size        int
}

type FileService interface {
	// EncodeSelfie compresses a captured selfie to JPEG and wraps it as a
	// data URI. The input is not retained.
	EncodeSelfie(ctx context.Context, raw []byte) (EncodedSelfie, error)
}

type fileServiceImpl struct {
	maxSize int
	minSize int
}

func NewFileService() FileService {
	return &fileServiceImpl{
		maxSize: MaxSelfieBytes,
		minSize: MinSelfieBytes,
	}
}

// EncodeSelfie implements FileService.
func (s *fileServiceImpl) EncodeSelfie(ctx context.Context, raw []byte) (EncodedSelfie, error) {
	if len(raw) == 0 {
		return EncodedSelfie{}, ErrEmptySelfie
	}
	if err := ctx.Err(); err != nil {
		return EncodedSelfie{}, err
	}

	compressed, err := compressImage(raw, s.maxSize, s.minSize)
	if err != nil {
		return EncodedSelfie{}, fmt.Errorf("failed to compress selfie: %w", err)
	}

	return EncodedSelfie{
		DataURI:     "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(compressed),
		Fingerprint: Fingerprint(raw),
		Size:        len(compressed),
	}, nil
}

// Fingerprint returns the hex BLAKE2b-256 digest of data.
func Fingerprint(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ==================== HELPER FUNCTIONS ====================

// compressImage re-encodes an image as JPEG within [minSize, maxSize] bytes
// where possible. A JPEG already inside the range is returned as is. Data
// URIs are accepted.
func compressImage(buffer []byte, maxSize int, minSize int) ([]byte, error) {
	buffer, err := liveness.StripDataURI(buffer)
	if err != nil {
		return nil, err
	}
	img, format, err := liveness.DecodeImage(buffer)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	if format == "jpeg" && len(buffer) <= maxSize && len(buffer) >= minSize {
		return buffer, nil
	}

	bounds := img.Bounds()
	originalWidth := bounds.Dx()
	originalHeight := bounds.Dy()

	// Start with quality 85 and reduce progressively
	quality := 85
	var compressed []byte

	for quality >= 50 {
		compressed, err = encodeJPEG(img, quality)
		if err != nil {
			return nil, err
		}

		if len(compressed) <= maxSize {
			return compressed, nil
		}
		quality -= 5
	}

	// Still too large, downscale towards the middle of the range
	targetSize := (maxSize + minSize) / 2
	ratio := math.Sqrt(float64(targetSize) / float64(len(compressed)))
	newWidth := int(float64(originalWidth) * ratio)
	newHeight := int(float64(originalHeight) * ratio)
	if newWidth < 1 {
		newWidth = 1
	}
	if newHeight < 1 {
		newHeight = 1
	}

	return encodeJPEG(resizeImage(img, newWidth, newHeight), 70)
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// resizeImage resizes an image to the specified dimensions using high-quality interpolation
func resizeImage(src image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	// Use CatmullRom for high-quality downscaling
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}
