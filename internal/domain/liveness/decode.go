package liveness

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// Images larger than this on either side are refused before decoding.
const MaxImageDimension = 4096

var dataURIPrefix = []byte("data:")

// DecodeImage decodes raw JPEG, PNG or WebP bytes, or a base64 data URI of
// one of them. The header is checked against MaxImageDimension first so an
// oversized image is never allocated.
func DecodeImage(data []byte) (image.Image, string, error) {
	raw, err := StripDataURI(data)
	if err != nil {
		return nil, "", err
	}
	if len(raw) == 0 {
		return nil, "", ErrEmptyImage
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUndecodableImage, err)
	}
	if cfg.Width > MaxImageDimension || cfg.Height > MaxImageDimension {
		return nil, "", fmt.Errorf("%w: %w (%dx%d)", ErrUndecodableImage, ErrImageTooLarge, cfg.Width, cfg.Height)
	}

	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUndecodableImage, err)
	}
	return img, format, nil
}

// StripDataURI returns the binary payload of a base64 data URI, or data
// unchanged when it is not a data URI.
func StripDataURI(data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, dataURIPrefix) {
		return data, nil
	}
	comma := bytes.IndexByte(data, ',')
	if comma < 0 || !bytes.Contains(data[:comma], []byte(";base64")) {
		return nil, fmt.Errorf("%w: malformed data uri", ErrUndecodableImage)
	}
	payload := data[comma+1:]
	out := make([]byte, base64.StdEncoding.DecodedLen(len(payload)))
	n, err := base64.StdEncoding.Decode(out, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodableImage, err)
	}
	return out[:n], nil
}
