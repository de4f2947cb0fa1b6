package liveness

import (
	"math/rand/v2"

	"github.com/cmlabs-hris/hris-mobile-bff/internal/domain/liveness"
)

const (
	minDimension = 200

	brightnessGrid     = 20
	lowLightBrightness = 60.0

	edgeSamples         = 10
	screenshotEdgeLimit = 50.0

	centerRegionFraction = 0.4
	centerStride         = 5
	minSkinRatio         = 0.10
	minSkinRatioLowLight = 0.05
	tooDarkCenter        = 15.0

	blurPairs         = 100
	blurLimit         = 10.0
	blurLimitLowLight = 5.0

	// Fixed so that identical pixels always yield the identical verdict.
	blurSeed1 = 0x9e3779b97f4a7c15
	blurSeed2 = 0xbf58476d1ce4e5b9
)

// PixelHeuristicStrategy gates captures with cheap pixel statistics. It is a
// deterrent against screenshots, photos of photos and empty frames, not a
// biometric check.
type PixelHeuristicStrategy struct{}

func NewPixelHeuristicStrategy() liveness.Strategy {
	return PixelHeuristicStrategy{}
}

func (PixelHeuristicStrategy) Name() string {
	return "pixel_heuristic"
}

// Analyze runs the checks in order; the first failure decides the verdict.
func (PixelHeuristicStrategy) Analyze(img liveness.CapturedImage) liveness.Verdict {
	if img.Width < minDimension || img.Height < minDimension || len(img.Pix) < img.Width*img.Height*4 {
		return liveness.Reject(liveness.ReasonTooSmall)
	}

	isLowLight := averageBrightness(img) < lowLightBrightness

	if !isLowLight && edgesLookUniform(img) {
		return liveness.Reject(liveness.ReasonScreenshot)
	}

	skinRatio, centerBrightness := skinToneRatio(img, isLowLight)
	required := minSkinRatio
	if isLowLight {
		required = minSkinRatioLowLight
	}
	if skinRatio < required {
		if centerBrightness < tooDarkCenter {
			return liveness.Reject(liveness.ReasonTooDark)
		}
		if !isLowLight {
			return liveness.Reject(liveness.ReasonNoFace)
		}
	}

	limit := blurLimit
	if isLowLight {
		limit = blurLimitLowLight
	}
	if !isLowLight && sharpness(img) < limit {
		return liveness.Reject(liveness.ReasonBlurry)
	}

	return liveness.Accept()
}

func averageBrightness(img liveness.CapturedImage) float64 {
	stepX := img.Width / brightnessGrid
	stepY := img.Height / brightnessGrid

	var sum float64
	for i := 0; i < brightnessGrid; i++ {
		for j := 0; j < brightnessGrid; j++ {
			sum += img.Luminance(i*stepX+stepX/2, j*stepY+stepY/2)
		}
	}
	return sum / float64(brightnessGrid*brightnessGrid)
}

// edgesLookUniform reports whether every border of the image is flat.
// Camera captures carry sensor noise to the borders; screenshots usually do not.
func edgesLookUniform(img liveness.CapturedImage) bool {
	w, h := img.Width-1, img.Height-1
	edges := [4]func(i int) (int, int){
		func(i int) (int, int) { return i * w / (edgeSamples - 1), 0 },
		func(i int) (int, int) { return i * w / (edgeSamples - 1), h },
		func(i int) (int, int) { return 0, i * h / (edgeSamples - 1) },
		func(i int) (int, int) { return w, i * h / (edgeSamples - 1) },
	}

	for _, at := range edges {
		if edgeVariance(img, at) >= screenshotEdgeLimit {
			return false
		}
	}
	return true
}

// edgeVariance is the mean of the per-channel variances of the edge samples.
func edgeVariance(img liveness.CapturedImage, at func(i int) (int, int)) float64 {
	var samples [3][edgeSamples]float64
	var means [3]float64
	for i := 0; i < edgeSamples; i++ {
		r, g, b := img.RGB(at(i))
		samples[0][i], samples[1][i], samples[2][i] = float64(r), float64(g), float64(b)
		means[0] += float64(r)
		means[1] += float64(g)
		means[2] += float64(b)
	}

	var total float64
	for c := 0; c < 3; c++ {
		mean := means[c] / edgeSamples
		var v float64
		for _, s := range samples[c] {
			v += (s - mean) * (s - mean)
		}
		total += v / edgeSamples
	}
	return total / 3
}

func skinToneRatio(img liveness.CapturedImage, isLowLight bool) (ratio, avgBrightness float64) {
	side := int(float64(min(img.Width, img.Height)) * centerRegionFraction)
	x0 := (img.Width - side) / 2
	y0 := (img.Height - side) / 2

	var skin, total int
	var brightness float64
	for y := y0; y < y0+side; y += centerStride {
		for x := x0; x < x0+side; x += centerStride {
			r, g, b := img.RGB(x, y)
			lum := img.Luminance(x, y)
			brightness += lum
			total++
			if isLowLight {
				if isSkinToneLowLight(r, g, b, lum) {
					skin++
				}
			} else if isSkinTone(r, g, b) {
				skin++
			}
		}
	}
	if total == 0 {
		return 0, 0
	}
	return float64(skin) / float64(total), brightness / float64(total)
}

func isSkinTone(r, g, b uint8) bool {
	return r > 95 && r < 255 &&
		g > 40 && g < 240 &&
		b > 20 && b < 200 &&
		r > g && r > b &&
		absDiff(r, g) > 15
}

func isSkinToneLowLight(r, g, b uint8, lum float64) bool {
	return r > 30 && r < 255 &&
		g > 20 && g < 240 &&
		b > 15 && b < 200 &&
		lum > 20
}

// sharpness averages the summed channel differences between random pixels and
// their right-hand neighbours. Low values indicate a blurred frame.
func sharpness(img liveness.CapturedImage) float64 {
	rng := rand.New(rand.NewPCG(blurSeed1, blurSeed2))

	var sum float64
	for i := 0; i < blurPairs; i++ {
		x := rng.IntN(img.Width - 1)
		y := rng.IntN(img.Height)
		r1, g1, b1 := img.RGB(x, y)
		r2, g2, b2 := img.RGB(x+1, y)
		sum += float64(absDiff(r1, r2)) + float64(absDiff(g1, g2)) + float64(absDiff(b1, b2))
	}
	return sum / blurPairs
}

func absDiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}
