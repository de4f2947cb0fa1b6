package liveness

import "context"

// Strategy decides whether a captured still plausibly shows a live face.
// Implementations must be safe for concurrent use.
type Strategy interface {
	// Name identifies the strategy in logs and audits.
	Name() string
	// Analyze inspects the image and returns a verdict. It never fails.
	Analyze(img CapturedImage) Verdict
}

// Selector resolves the strategy to use for a capture platform.
type Selector interface {
	For(platform Platform) (Strategy, error)
}

// AnalyzeRequest is a standalone liveness check of an uploaded photo.
type AnalyzeRequest struct {
	Platform Platform
	Photo    []byte
}

type AnalyzeResponse struct {
	Strategy string  `json:"strategy"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Verdict  Verdict `json:"verdict"`
}

// Service exposes liveness analysis over raw uploads.
type Service interface {
	Analyze(ctx context.Context, req AnalyzeRequest) (AnalyzeResponse, error)
}
