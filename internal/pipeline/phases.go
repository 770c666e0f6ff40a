package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"golang.org/x/sync/errgroup"

	"gorm.io/datatypes"

	types "github.com/yungbote/podforge-backend/internal/domain/content"
	"github.com/yungbote/podforge-backend/internal/pkg/dbctx"
)

type recordKey struct {
	stage int
	sub   string
}

func recordIndex(records []*types.StageRecord) map[recordKey]*types.StageRecord {
	idx := make(map[recordKey]*types.StageRecord, len(records))
	for _, rec := range records {
		if rec == nil {
			continue
		}
		idx[recordKey{stage: rec.StageNumber, sub: rec.SubStage}] = rec
	}
	return idx
}

type taskOutcome struct {
	res     *StageResult
	err     error
	durMs   int64
	dataRaw datatypes.JSON
}

/*
runPhase executes one phase: marks every member record processing, runs
all member tasks concurrently with results isolated per task, and only
after the whole group settles decides what to persist.

Failure policy is atomic: if any member fails, the failing members keep
failed records (error details, retry count bumped) and the successful
members are reset to pending with their in-memory results discarded, so
a later retry of the phase never finds half its stages already
completed. Only an all-success phase persists completed records and
merges results into the run context, in stage-number order.

Returns the phase's summed cost. done counts persisted-completed tasks
across the run and feeds the percent on progress events.
*/
func (p *Processor) runPhase(ctx context.Context, rc *RunContext, ph stagePhase, recs map[recordKey]*types.StageRecord, done *int) (float64, error) {
	op := fmt.Sprintf("pipeline.runPhase[%d]", ph.Number)
	dbc := dbctx.Context{Ctx: ctx}

	members := make([]*types.StageRecord, len(ph.Tasks))
	for i, t := range ph.Tasks {
		rec, ok := recs[recordKey{stage: int(t.Def.Stage), sub: t.Sub}]
		if !ok {
			return 0, types.NewError(types.CodePersistence, op, fmt.Sprintf("no stage record for %s", t.label()), nil)
		}
		members[i] = rec
	}

	startedAt := time.Now().UTC()
	for i, t := range ph.Tasks {
		if err := p.stages.UpdateFields(dbc, members[i].ID, map[string]interface{}{
			"status":        types.StageStatusProcessing,
			"started_at":    startedAt,
			"completed_at":  nil,
			"error_message": "",
			"error_details": nil,
		}); err != nil {
			return 0, err
		}
		p.emit(ProgressEvent{
			EpisodeID: rc.EpisodeID,
			Type:      EventStageStarted,
			Stage:     int(t.Def.Stage),
			SubStage:  t.Sub,
			StageKey:  t.Def.Key,
			Status:    string(types.StageStatusProcessing),
			Percent:   p.percent(*done),
		})
	}

	outcomes := make([]taskOutcome, len(ph.Tasks))
	g := new(errgroup.Group)
	for i, t := range ph.Tasks {
		g.Go(func() error {
			taskStart := time.Now()
			res, err := p.runStage(ctx, rc, t)
			outcomes[i] = taskOutcome{res: res, err: err, durMs: time.Since(taskStart).Milliseconds()}
			return err
		})
	}
	_ = g.Wait()

	var failures []int
	for i := range outcomes {
		if outcomes[i].err != nil {
			failures = append(failures, i)
		}
	}
	if len(failures) > 0 {
		return 0, p.failPhase(ctx, rc, ph, members, outcomes, failures, op)
	}

	// All members succeeded: persist completed in stage-number order, then
	// merge. Tasks are already ordered by (stage, sub-stage).
	var phaseCost float64
	completedAt := time.Now().UTC()
	for i, t := range ph.Tasks {
		res := outcomes[i].res
		if res.OutputData != nil {
			b, err := json.Marshal(res.OutputData)
			if err != nil {
				return 0, types.NewError(types.CodeInternal, op, fmt.Sprintf("encode %s output", t.label()), err)
			}
			outcomes[i].dataRaw = datatypes.JSON(b)
		}
		updates := map[string]interface{}{
			"status":        types.StageStatusCompleted,
			"input_tokens":  res.InputTokens,
			"output_tokens": res.OutputTokens,
			"cost_usd":      res.CostUSD,
			"completed_at":  completedAt,
			"duration_ms":   res.DurationMs,
		}
		if outcomes[i].dataRaw != nil {
			updates["output_data"] = outcomes[i].dataRaw
		} else {
			updates["output_data"] = nil
		}
		if res.OutputText != nil {
			updates["output_text"] = *res.OutputText
		} else {
			updates["output_text"] = nil
		}
		if err := p.stages.UpdateFields(dbc, members[i].ID, updates); err != nil {
			return 0, err
		}
		phaseCost += res.CostUSD
		*done++
		p.emit(ProgressEvent{
			EpisodeID: rc.EpisodeID,
			Type:      EventStageCompleted,
			Stage:     int(t.Def.Stage),
			SubStage:  t.Sub,
			StageKey:  t.Def.Key,
			Status:    string(types.StageStatusCompleted),
			Percent:   p.percent(*done),
			CostUSD:   res.CostUSD,
		})
	}

	if err := p.mergePhase(rc, ph, outcomes); err != nil {
		return phaseCost, err
	}
	return phaseCost, nil
}

// failPhase persists the atomic-failure outcome. Final-state writes use a
// detached context so diagnostics still land when the run context died
// mid-phase.
func (p *Processor) failPhase(ctx context.Context, rc *RunContext, ph stagePhase, members []*types.StageRecord, outcomes []taskOutcome, failures []int, op string) error {
	dbc := dbctx.Context{Ctx: context.WithoutCancel(ctx)}
	failedAt := time.Now().UTC()

	for _, i := range failures {
		t := ph.Tasks[i]
		taskErr := outcomes[i].err
		details, _ := json.Marshal(map[string]any{
			"code":      string(types.CodeOf(taskErr)),
			"retryable": types.IsRetryable(taskErr),
			"error":     taskErr.Error(),
		})
		if err := p.stages.UpdateFields(dbc, members[i].ID, map[string]interface{}{
			"status":        types.StageStatusFailed,
			"completed_at":  failedAt,
			"duration_ms":   outcomes[i].durMs,
			"error_message": truncateRunes(taskErr.Error(), 1000),
			"error_details": datatypes.JSON(details),
			"retry_count":   members[i].RetryCount + 1,
		}); err != nil {
			p.log.Error("Failed to persist stage failure", "error", err, "stage", t.label())
		}
		p.emit(ProgressEvent{
			EpisodeID: rc.EpisodeID,
			Type:      EventStageFailed,
			Stage:     int(t.Def.Stage),
			SubStage:  t.Sub,
			StageKey:  t.Def.Key,
			Status:    string(types.StageStatusFailed),
			Message:   taskErr.Error(),
		})
	}

	var resetIDs []uuid.UUID
	for i := range ph.Tasks {
		if outcomes[i].err == nil {
			resetIDs = append(resetIDs, members[i].ID)
		}
	}
	if len(resetIDs) > 0 {
		if err := p.stages.ResetByIDs(dbc, resetIDs); err != nil {
			p.log.Error("Failed to reset sibling stages after phase failure", "error", err, "phase", ph.Number)
		}
	}

	first := failures[0]
	ft := ph.Tasks[first]
	return types.WrapError(types.CodeInternal, op,
		fmt.Errorf("stage %d (%s) failed: %w", int(ft.Def.Stage), ft.label(), outcomes[first].err))
}

// mergePhase folds a fully successful phase into the run context in
// stage-number order. Entries are decoded from the exact bytes persisted
// on the records, so live context and resume-reconstructed context agree.
func (p *Processor) mergePhase(rc *RunContext, ph stagePhase, outcomes []taskOutcome) error {
	const op = "pipeline.mergePhase"
	byStage := map[Stage][]int{}
	var order []Stage
	for i, t := range ph.Tasks {
		if _, seen := byStage[t.Def.Stage]; !seen {
			order = append(order, t.Def.Stage)
		}
		byStage[t.Def.Stage] = append(byStage[t.Def.Stage], i)
	}
	for _, stage := range order {
		idxs := byStage[stage]
		def := ph.Tasks[idxs[0]].Def
		if def.FanOut() {
			raw := make(map[string]datatypes.JSON, len(idxs))
			for _, i := range idxs {
				raw[ph.Tasks[i].Sub] = outcomes[i].dataRaw
			}
			assembled, err := assembleFanOut(def, raw)
			if err != nil {
				return types.NewError(types.CodeInternal, op, fmt.Sprintf("assemble %s output", def.Key), err)
			}
			rc.mergeStage(stage, assembled, nil)
			continue
		}
		i := idxs[0]
		data, err := decodeOutputData(outcomes[i].dataRaw)
		if err != nil {
			return types.NewError(types.CodeInternal, op, fmt.Sprintf("decode %s output", def.Key), err)
		}
		rc.mergeStage(stage, data, outcomes[i].res.OutputText)
	}
	return nil
}

// assembleFanOut builds the effective structured output of a fan-out
// stage: per-variant outputs keyed by sub-stage, in declared order. Both
// the live merge and the resume loader go through here.
func assembleFanOut(def StageDef, raw map[string]datatypes.JSON) (map[string]any, error) {
	assembled := make(map[string]any, len(def.SubStages))
	for _, sub := range def.SubStages {
		data, err := decodeOutputData(raw[sub])
		if err != nil {
			return nil, err
		}
		if data == nil {
			data = map[string]any{}
		}
		assembled[sub] = data
	}
	return assembled, nil
}
