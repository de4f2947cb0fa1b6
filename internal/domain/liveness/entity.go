package liveness

import (
	"image"
	"image/draw"
)

// Rejection reasons surfaced to the user.
const (
	ReasonTooSmall   = "image too small"
	ReasonScreenshot = "appears to be a screenshot, not a live photo"
	ReasonTooDark    = "image too dark, face not visible"
	ReasonNoFace     = "no face detected"
	ReasonBlurry     = "image too blurry"
)

// Platform identifies the capture surface of the client.
type Platform string

const (
	PlatformWeb     Platform = "web"
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
)

// IsValid reports whether p is a known platform.
func (p Platform) IsValid() bool {
	switch p {
	case PlatformWeb, PlatformAndroid, PlatformIOS:
		return true
	}
	return false
}

// Verdict is the outcome of a single liveness analysis.
type Verdict struct {
	Accepted        bool   `json:"accepted"`
	RejectionReason string `json:"rejection_reason,omitempty"`
}

func Accept() Verdict {
	return Verdict{Accepted: true}
}

func Reject(reason string) Verdict {
	return Verdict{Accepted: false, RejectionReason: reason}
}

// CapturedImage is a decoded raster in RGBA, row-major, 4 bytes per pixel.
// It must not be modified after construction.
type CapturedImage struct {
	Width  int
	Height int
	Pix    []uint8
}

// FromImage copies any decoded image into a CapturedImage.
func FromImage(img image.Image) CapturedImage {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != 4*b.Dx() || b.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	pix := make([]uint8, len(rgba.Pix))
	copy(pix, rgba.Pix)
	return CapturedImage{Width: b.Dx(), Height: b.Dy(), Pix: pix}
}

// RGB returns the colour channels of the pixel at (x, y).
func (c CapturedImage) RGB(x, y int) (r, g, b uint8) {
	i := (y*c.Width + x) * 4
	return c.Pix[i], c.Pix[i+1], c.Pix[i+2]
}

// Luminance returns the perceived brightness of the pixel at (x, y).
func (c CapturedImage) Luminance(x, y int) float64 {
	r, g, b := c.RGB(x, y)
	return 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
}
