package liveness

import (
	"context"
	"log/slog"

	"github.com/cmlabs-hris/hris-mobile-bff/internal/domain/liveness"
)

type livenessServiceImpl struct {
	selector liveness.Selector
}

func NewLivenessService(selector liveness.Selector) liveness.Service {
	return &livenessServiceImpl{selector: selector}
}

// Analyze decodes an uploaded photo and runs the strategy for its platform.
func (s *livenessServiceImpl) Analyze(ctx context.Context, req liveness.AnalyzeRequest) (liveness.AnalyzeResponse, error) {
	strategy, err := s.selector.For(req.Platform)
	if err != nil {
		return liveness.AnalyzeResponse{}, err
	}

	img, err := Decode(req.Photo)
	if err != nil {
		return liveness.AnalyzeResponse{}, err
	}

	verdict := strategy.Analyze(img)
	if !verdict.Accepted {
		slog.InfoContext(ctx, "Liveness analysis rejected capture",
			"strategy", strategy.Name(),
			"platform", req.Platform,
			"reason", verdict.RejectionReason,
		)
	}

	return liveness.AnalyzeResponse{
		Strategy: strategy.Name(),
		Width:    img.Width,
		Height:   img.Height,
		Verdict:  verdict,
	}, nil
}
