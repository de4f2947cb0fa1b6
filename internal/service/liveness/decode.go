package liveness

import (
	"github.com/cmlabs-hris/hris-mobile-bff/internal/domain/liveness"
)

// Decode turns raw JPEG, PNG or WebP bytes, or a base64 data URI of one of
// them, into a CapturedImage.
func Decode(data []byte) (liveness.CapturedImage, error) {
	img, _, err := liveness.DecodeImage(data)
	if err != nil {
		return liveness.CapturedImage{}, err
	}
	return liveness.FromImage(img), nil
}
