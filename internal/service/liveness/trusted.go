package liveness

import "github.com/cmlabs-hris/hris-mobile-bff/internal/domain/liveness"

// TrustedCaptureStrategy accepts every frame. Native clients capture straight
// from the platform camera and cannot inject a gallery image.
type TrustedCaptureStrategy struct{}

func NewTrustedCaptureStrategy() liveness.Strategy {
	return TrustedCaptureStrategy{}
}

func (TrustedCaptureStrategy) Name() string {
	return "trusted_capture"
}

func (TrustedCaptureStrategy) Analyze(liveness.CapturedImage) liveness.Verdict {
	return liveness.Accept()
}

// PlatformSelector maps capture platforms to strategies.
type PlatformSelector struct {
	pixel        liveness.Strategy
	trusted      liveness.Strategy
	enforcePixel bool
}

// NewPlatformSelector returns a selector that runs pixel heuristics for web
// captures and trusts native cameras, unless enforcePixel is set.
func NewPlatformSelector(pixel, trusted liveness.Strategy, enforcePixel bool) *PlatformSelector {
	return &PlatformSelector{
		pixel:        pixel,
		trusted:      trusted,
		enforcePixel: enforcePixel,
	}
}

func (s *PlatformSelector) For(platform liveness.Platform) (liveness.Strategy, error) {
	if platform == "" {
		platform = liveness.PlatformWeb
	}
	if !platform.IsValid() {
		return nil, liveness.ErrUnsupportedPlatform
	}
	if s.enforcePixel || platform == liveness.PlatformWeb {
		return s.pixel, nil
	}
	return s.trusted, nil
}
