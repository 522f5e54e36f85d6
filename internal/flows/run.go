package flows

import (
	"context"
	"fmt"
)

// Run decodes an untyped payload for the named flow and executes it. It is
// the single entry point used by transports that carry JSON payloads.
func (s *Service) Run(ctx context.Context, flow string, payload map[string]any) (any, error) {
	switch flow {
	case FlowRateResume:
		req, err := DecodeResumeRatingRequest(payload)
		if err != nil {
			return nil, err
		}
		return result(s.RateResume(ctx, req))
	case FlowSkillGap:
		req, err := DecodeSkillGapRequest(payload)
		if err != nil {
			return nil, err
		}
		return result(s.AnalyzeSkillGap(ctx, req))
	case FlowAppraisal:
		req, err := DecodeAppraisalRequest(payload)
		if err != nil {
			return nil, err
		}
		return result(s.AnalyzeAppraisal(ctx, req))
	case FlowWellbeing:
		req, err := DecodeWellbeingRequest(payload)
		if err != nil {
			return nil, err
		}
		return result(s.SuggestWellbeing(ctx, req))
	}
	return nil, fmt.Errorf("unknown flow %q", flow)
}

// result keeps a failed call from surfacing as a non-nil interface holding a
// nil pointer.
func result[T any](res *T, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return res, nil
}
