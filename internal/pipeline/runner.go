package pipeline

import (
	"context"
	"time"

	"github.com/yungbote/podforge-backend/internal/observability"
)

/*
StageResult is the canonical shape every stage execution normalizes to,
regardless of what its analyzer produced. Structured-only stages carry a
nil OutputText, prose-only stages a nil OutputData, and the draft stage
carries both. CostUSD is computed here from the model rate table; the
provider never reports cost.
*/
type StageResult struct {
	OutputData   map[string]any
	OutputText   *string
	InputTokens  int
	OutputTokens int
	CostUSD      float64
	DurationMs   int64
}

/*
runStage executes one (stage, sub-stage) task against the run context:
dispatches to the stage's analyzer under the per-stage timeout,
normalizes the raw result to the canonical shape, and prices it. No
retries happen here; analyzer errors pass through already typed so the
phase executor and processor can persist them.
*/
func (p *Processor) runStage(ctx context.Context, rc *RunContext, t stageTask) (*StageResult, error) {
	callCtx := ctx
	if p.stageTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.stageTimeout)
		defer cancel()
	}

	deps := stageDeps{
		ai:                       p.ai,
		model:                    t.Def.Model,
		preprocessTokenThreshold: p.preprocessTokenThreshold,
	}

	started := time.Now()
	raw, err := t.Def.analyze(callCtx, deps, rc, t.Sub)
	dur := time.Since(started)
	if err != nil {
		observability.Current().ObserveStage(t.label(), "failed", dur)
		return nil, err
	}

	data, text := raw.Data, raw.Text
	switch t.Def.Output {
	case OutputStructured:
		text = nil
	case OutputText:
		data = nil
	}

	cost := costUSD(p.log, t.Def.Model, raw.InputTokens, raw.OutputTokens)
	observability.Current().ObserveStage(t.label(), "completed", dur)
	observability.Current().AddLLMCost(t.Def.Model, cost)

	return &StageResult{
		OutputData:   data,
		OutputText:   text,
		InputTokens:  raw.InputTokens,
		OutputTokens: raw.OutputTokens,
		CostUSD:      cost,
		DurationMs:   dur.Milliseconds(),
	}, nil
}
