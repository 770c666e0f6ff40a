package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"gorm.io/datatypes"

	"github.com/yungbote/podforge-backend/internal/data/repos"
	types "github.com/yungbote/podforge-backend/internal/domain/content"
	"github.com/yungbote/podforge-backend/internal/observability"
	"github.com/yungbote/podforge-backend/internal/pkg/dbctx"
	"github.com/yungbote/podforge-backend/internal/platform/envutil"
	"github.com/yungbote/podforge-backend/internal/platform/logger"
	"github.com/yungbote/podforge-backend/internal/platform/openai"
)

// Progress event types, in the order a consumer usually sees them.
const (
	EventRunStarted     = "run_started"
	EventStageStarted   = "stage_started"
	EventStageCompleted = "stage_completed"
	EventStageFailed    = "stage_failed"
	EventRunCompleted   = "run_completed"
	EventRunFailed      = "run_failed"
	EventRunPaused      = "run_paused"
)

// ProgressEvent is pushed to the optional notifier as a run advances.
// Consumers fan it out to SSE subscribers; the pipeline never blocks on it.
type ProgressEvent struct {
	EpisodeID uuid.UUID `json:"episode_id"`
	Type      string    `json:"type"`
	Stage     int       `json:"stage,omitempty"`
	SubStage  string    `json:"sub_stage,omitempty"`
	StageKey  string    `json:"stage_key,omitempty"`
	Status    string    `json:"status,omitempty"`
	Percent   int       `json:"percent"`
	Message   string    `json:"message,omitempty"`
	CostUSD   float64   `json:"cost_usd,omitempty"`
}

type ProgressFunc func(ev ProgressEvent)

/*
Processor drives episode runs end to end: it claims the episode, creates
or loads stage records, walks the phases, persists every state
transition, and accumulates cost and duration. All collaborators come in
through the constructor; nothing here reaches for globals.

One logical run per episode: the claim is a status-guarded update, so a
second ProcessEpisode on a processing episode fails with a conflict
instead of racing.
*/
type Processor struct {
	log      *logger.Logger
	episodes repos.EpisodeRepo
	stages   repos.StageRecordRepo
	brands   repos.BrandProfileRepo
	ai       openai.Client
	notify   ProgressFunc

	defs  []StageDef
	total int

	stageTimeout             time.Duration
	preprocessTokenThreshold int
}

func New(
	baseLog *logger.Logger,
	episodes repos.EpisodeRepo,
	stages repos.StageRecordRepo,
	brands repos.BrandProfileRepo,
	ai openai.Client,
	notify ProgressFunc,
) (*Processor, error) {
	if baseLog == nil || episodes == nil || stages == nil || ai == nil {
		return nil, fmt.Errorf("pipeline: missing dependencies")
	}
	if err := validateStageTable(stageDefs); err != nil {
		return nil, fmt.Errorf("pipeline: invalid stage table: %w", err)
	}
	return &Processor{
		log:                      baseLog.With("service", "Pipeline"),
		episodes:                 episodes,
		stages:                   stages,
		brands:                   brands,
		ai:                       ai,
		notify:                   notify,
		defs:                     stageDefs,
		total:                    totalStageTasks(stageDefs),
		stageTimeout:             envutil.Duration("PIPELINE_STAGE_TIMEOUT", 5*time.Minute),
		preprocessTokenThreshold: envutil.Int("PIPELINE_PREPROCESS_TOKEN_THRESHOLD", 3000),
	}, nil
}

/*
Run is the handle for one background execution. ProcessEpisode validates
and claims synchronously, then hands back a Run; the caller decides
whether to detach (HTTP layer) or wait (tests, CLI). Err is only
meaningful after Done is closed.
*/
type Run struct {
	EpisodeID uuid.UUID

	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Done is closed when the run has fully settled, including final
// episode-state persistence.
func (r *Run) Done() <-chan struct{} { return r.done }

// Err returns the run outcome, nil while the run is still live.
func (r *Run) Err() error {
	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}

// Wait blocks until the run settles and returns its outcome.
func (r *Run) Wait() error {
	<-r.done
	return r.err
}

// Cancel aborts the run's context. In-flight provider calls fail and the
// episode lands in error state; prefer RequestPause for a clean stop.
func (r *Run) Cancel() { r.cancel() }

type ProcessOptions struct {
	StartFromStage Stage
}

/*
ProcessEpisode starts a pipeline run for stages StartFromStage through
the last stage. Synchronous part: validate, claim the episode via a
status-guarded update (draft/paused/error only), create or reset stage
records, and rebuild the run context from any completed earlier stages.
The stage work itself runs on a background goroutine owned by the
returned Run.

Resuming past an earlier stage that never completed logs a
resume-integrity warning and continues; the run then fails naturally if
a later stage dereferences the missing output.
*/
func (p *Processor) ProcessEpisode(ctx context.Context, episodeID uuid.UUID, opts ProcessOptions) (*Run, error) {
	const op = "pipeline.ProcessEpisode"
	from := opts.StartFromStage
	if from < 0 || from > LastStage {
		return nil, types.NewError(types.CodeValidation, op, fmt.Sprintf("start_from_stage %d out of range [0,%d]", from, LastStage), nil)
	}

	dbc := dbctx.Context{Ctx: ctx}
	ep, err := p.episodes.GetByID(dbc, episodeID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(ep.Transcript) == "" {
		return nil, types.NewError(types.CodeValidation, op, "episode has no transcript", nil)
	}
	if !ep.Status.Startable() {
		return nil, types.NewError(types.CodeConflict, op, fmt.Sprintf("episode is %s; runs start from draft, paused, or error", ep.Status), nil)
	}

	claimUpdates := map[string]interface{}{
		"status":          types.EpisodeStatusProcessing,
		"current_stage":   int(from),
		"error_message":   "",
		"pause_requested": false,
	}
	if from == 0 {
		claimUpdates["total_cost_usd"] = float64(0)
		claimUpdates["total_duration_sec"] = float64(0)
	}
	claimed, err := p.episodes.UpdateFieldsIfStatus(dbc, ep.ID, startableStatuses, claimUpdates)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, types.NewError(types.CodeConflict, op, "episode was claimed by another run", nil)
	}
	ep.Status = types.EpisodeStatusProcessing
	ep.CurrentStage = int(from)
	ep.PauseRequested = false
	if from == 0 {
		ep.TotalCostUSD = 0
		ep.TotalDurationSec = 0
	}

	records, err := p.stages.CreateMany(dbc, ep.ID, buildStageRecords(p.defs))
	if err != nil {
		return nil, p.failBeforeRun(ctx, ep.ID, err)
	}
	if from == 0 && anyNotPending(records) {
		// Full re-run over a previously processed episode: the explicit
		// bulk reset, the one sanctioned backward transition.
		if err := p.stages.ResetAll(dbc, ep.ID); err != nil {
			return nil, p.failBeforeRun(ctx, ep.ID, err)
		}
		if records, err = p.stages.ListByEpisode(dbc, ep.ID); err != nil {
			return nil, p.failBeforeRun(ctx, ep.ID, err)
		}
	}

	rc, err := p.buildRunContext(ctx, ep, records, from)
	if err != nil {
		return nil, p.failBeforeRun(ctx, ep.ID, err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	run := &Run{EpisodeID: ep.ID, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer cancel()
		run.err = p.run(runCtx, ep, rc, records, from)
		close(run.done)
	}()
	return run, nil
}

var startableStatuses = []types.EpisodeStatus{
	types.EpisodeStatusDraft,
	types.EpisodeStatusPaused,
	types.EpisodeStatusError,
}

func anyNotPending(records []*types.StageRecord) bool {
	for _, rec := range records {
		if rec != nil && rec.Status != types.StageStatusPending {
			return true
		}
	}
	return false
}

// run walks the phases. It owns every episode state transition after the
// claim: paused at an honored boundary, error on the first phase
// failure, completed when the last phase lands.
func (p *Processor) run(ctx context.Context, ep *types.Episode, rc *RunContext, records []*types.StageRecord, from Stage) error {
	runStart := time.Now()
	recs := recordIndex(records)
	phases := buildPhases(p.defs, from)

	done := 0
	for _, rec := range records {
		if rec != nil && rec.StageNumber < int(from) && rec.Status == types.StageStatusCompleted {
			done++
		}
	}

	var runCost float64
	p.emit(ProgressEvent{EpisodeID: ep.ID, Type: EventRunStarted, Stage: int(from), Percent: p.percent(done)})

	for _, ph := range phases {
		if err := ctx.Err(); err != nil {
			p.finishPaused(ctx, ep, runCost, runStart, "run canceled")
			return err
		}
		pausePending, err := p.pausePending(ctx, ep.ID)
		if err != nil {
			return p.finishFailed(ctx, ep, runCost, runStart, err)
		}
		if pausePending {
			p.finishPaused(ctx, ep, runCost, runStart, "pause honored at phase boundary")
			return nil
		}

		first := int(ph.Tasks[0].Def.Stage)
		if err := p.episodes.UpdateFields(dbctx.Context{Ctx: ctx}, ep.ID, map[string]interface{}{
			"current_stage": first,
		}); err != nil {
			return p.finishFailed(ctx, ep, runCost, runStart, err)
		}

		phaseCost, err := p.runPhase(ctx, rc, ph, recs, &done)
		runCost += phaseCost
		if err != nil {
			return p.finishFailed(ctx, ep, runCost, runStart, err)
		}
	}

	elapsed := time.Since(runStart).Seconds()
	dbc := dbctx.Context{Ctx: context.WithoutCancel(ctx)}
	if err := p.episodes.UpdateFields(dbc, ep.ID, map[string]interface{}{
		"status":             types.EpisodeStatusCompleted,
		"current_stage":      int(LastStage),
		"total_cost_usd":     ep.TotalCostUSD + runCost,
		"total_duration_sec": ep.TotalDurationSec + elapsed,
	}); err != nil {
		return err
	}
	observability.Current().IncRun("completed")
	p.emit(ProgressEvent{EpisodeID: ep.ID, Type: EventRunCompleted, Stage: int(LastStage), Percent: 100, CostUSD: runCost})
	p.log.Info("Pipeline run completed", "episode_id", ep.ID.String(), "cost_usd", runCost, "duration_sec", elapsed)
	return nil
}

func (p *Processor) pausePending(ctx context.Context, id uuid.UUID) (bool, error) {
	cur, err := p.episodes.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return false, err
	}
	return cur.PauseRequested, nil
}

func (p *Processor) finishPaused(ctx context.Context, ep *types.Episode, runCost float64, runStart time.Time, reason string) {
	dbc := dbctx.Context{Ctx: context.WithoutCancel(ctx)}
	elapsed := time.Since(runStart).Seconds()
	if err := p.episodes.UpdateFields(dbc, ep.ID, map[string]interface{}{
		"status":             types.EpisodeStatusPaused,
		"pause_requested":    false,
		"total_cost_usd":     ep.TotalCostUSD + runCost,
		"total_duration_sec": ep.TotalDurationSec + elapsed,
	}); err != nil {
		p.log.Error("Failed to persist episode pause", "error", err, "episode_id", ep.ID.String())
	}
	observability.Current().IncRun("paused")
	p.emit(ProgressEvent{EpisodeID: ep.ID, Type: EventRunPaused, Message: reason})
	p.log.Info("Pipeline run paused", "episode_id", ep.ID.String(), "reason", reason)
}

func (p *Processor) finishFailed(ctx context.Context, ep *types.Episode, runCost float64, runStart time.Time, cause error) error {
	dbc := dbctx.Context{Ctx: context.WithoutCancel(ctx)}
	elapsed := time.Since(runStart).Seconds()
	if err := p.episodes.UpdateFields(dbc, ep.ID, map[string]interface{}{
		"status":             types.EpisodeStatusError,
		"error_message":      truncateRunes(cause.Error(), 1000),
		"total_cost_usd":     ep.TotalCostUSD + runCost,
		"total_duration_sec": ep.TotalDurationSec + elapsed,
	}); err != nil {
		p.log.Error("Failed to persist episode failure", "error", err, "episode_id", ep.ID.String())
	}
	observability.Current().IncRun("failed")
	p.emit(ProgressEvent{EpisodeID: ep.ID, Type: EventRunFailed, Message: cause.Error()})
	p.log.Error("Pipeline run failed", "error", cause, "episode_id", ep.ID.String())
	return cause
}

// failBeforeRun releases a claimed episode when setup fails between the
// claim and the goroutine handoff.
func (p *Processor) failBeforeRun(ctx context.Context, episodeID uuid.UUID, cause error) error {
	dbc := dbctx.Context{Ctx: context.WithoutCancel(ctx)}
	if err := p.episodes.UpdateFields(dbc, episodeID, map[string]interface{}{
		"status":        types.EpisodeStatusError,
		"error_message": truncateRunes(cause.Error(), 1000),
	}); err != nil {
		p.log.Error("Failed to release claimed episode", "error", err, "episode_id", episodeID.String())
	}
	return cause
}

/*
buildRunContext assembles the per-run context. For resumes it replays
completed records below the resume point in stage-number order, decoding
the same persisted bytes the live merge wrote, so the reconstructed
entries match a from-scratch run exactly. Earlier records that are not
completed only warn: best-effort resume, the documented behavior.
*/
func (p *Processor) buildRunContext(ctx context.Context, ep *types.Episode, records []*types.StageRecord, from Stage) (*RunContext, error) {
	const op = "pipeline.buildRunContext"
	rc := newRunContext(ep, p.referenceFor(ctx, ep))
	if from <= 0 {
		return rc, nil
	}

	byStage := map[int][]*types.StageRecord{}
	for _, rec := range records {
		if rec == nil || rec.StageNumber >= int(from) {
			continue
		}
		byStage[rec.StageNumber] = append(byStage[rec.StageNumber], rec)
	}

	for n := 0; n < int(from); n++ {
		def, ok := defByStage(Stage(n))
		if !ok {
			continue
		}
		stageRecs := byStage[n]
		if len(stageRecs) == 0 {
			p.log.Warn("Resume integrity: no record for earlier stage; continuing",
				"episode_id", ep.ID.String(), "stage", n)
			continue
		}
		if def.FanOut() {
			raw := make(map[string]datatypes.JSON, len(def.SubStages))
			complete := true
			for _, sub := range def.SubStages {
				rec := findSubRecord(stageRecs, sub)
				if rec == nil || rec.Status != types.StageStatusCompleted {
					p.log.Warn("Resume integrity: earlier fan-out stage incomplete; continuing",
						"episode_id", ep.ID.String(), "stage", n, "sub_stage", sub)
					complete = false
					break
				}
				raw[sub] = rec.OutputData
			}
			if !complete {
				continue
			}
			assembled, err := assembleFanOut(def, raw)
			if err != nil {
				return nil, types.NewError(types.CodePersistence, op, fmt.Sprintf("decode stored stage %d output", n), err)
			}
			rc.mergeStage(Stage(n), assembled, nil)
			continue
		}
		rec := stageRecs[0]
		if rec.Status != types.StageStatusCompleted {
			p.log.Warn("Resume integrity: earlier stage not completed; continuing",
				"episode_id", ep.ID.String(), "stage", n, "status", string(rec.Status))
			continue
		}
		data, err := decodeOutputData(rec.OutputData)
		if err != nil {
			return nil, types.NewError(types.CodePersistence, op, fmt.Sprintf("decode stored stage %d output", n), err)
		}
		rc.mergeStage(Stage(n), data, rec.OutputText)
	}
	return rc, nil
}

func findSubRecord(records []*types.StageRecord, sub string) *types.StageRecord {
	for _, rec := range records {
		if rec != nil && rec.SubStage == sub {
			return rec
		}
	}
	return nil
}

func (p *Processor) referenceFor(ctx context.Context, ep *types.Episode) string {
	if ep.BrandProfileID != nil && p.brands != nil {
		bp, err := p.brands.GetByID(dbctx.Context{Ctx: ctx}, *ep.BrandProfileID)
		if err != nil {
			p.log.Warn("Brand profile load failed; using default guidelines",
				"error", err, "episode_id", ep.ID.String())
		} else if ref := brandReference(bp); ref != "" {
			return ref
		}
	}
	return defaultReference(p.log)
}

/*
RequestPause flags a processing episode to stop at the next phase
boundary. The in-flight phase always settles first, so status can read
processing for a while after this returns; the run clears the flag when
it honors the pause.
*/
func (p *Processor) RequestPause(ctx context.Context, episodeID uuid.UUID) error {
	const op = "pipeline.RequestPause"
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := p.episodes.GetByID(dbc, episodeID); err != nil {
		return err
	}
	updated, err := p.episodes.UpdateFieldsIfStatus(dbc, episodeID,
		[]types.EpisodeStatus{types.EpisodeStatusProcessing},
		map[string]interface{}{"pause_requested": true})
	if err != nil {
		return err
	}
	if !updated {
		return types.NewError(types.CodeConflict, op, "episode is not processing", nil)
	}
	return nil
}

/*
RegenerateStage re-runs a single stage against context rebuilt from the
stages before it, overwriting only that stage's record. Episode status,
totals, and every other stage stay untouched. For a fan-out stage an
empty subStage regenerates all variants; otherwise exactly the named
one.
*/
func (p *Processor) RegenerateStage(ctx context.Context, episodeID uuid.UUID, stage Stage, subStage string) error {
	const op = "pipeline.RegenerateStage"
	def, ok := defByStage(stage)
	if !ok {
		return types.NewError(types.CodeValidation, op, fmt.Sprintf("unknown stage %d", stage), nil)
	}
	var subs []string
	switch {
	case def.FanOut() && subStage == "":
		subs = def.SubStages
	case def.FanOut():
		if !containsString(def.SubStages, subStage) {
			return types.NewError(types.CodeValidation, op, fmt.Sprintf("unknown sub-stage %q for stage %s", subStage, def.Key), nil)
		}
		subs = []string{subStage}
	case subStage != "":
		return types.NewError(types.CodeValidation, op, fmt.Sprintf("stage %s has no sub-stages", def.Key), nil)
	default:
		subs = []string{""}
	}

	dbc := dbctx.Context{Ctx: ctx}
	ep, err := p.episodes.GetByID(dbc, episodeID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(ep.Transcript) == "" {
		return types.NewError(types.CodeValidation, op, "episode has no transcript", nil)
	}
	records, err := p.stages.ListByEpisode(dbc, episodeID)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return types.NewError(types.CodeNotFound, op, "episode has no stage records; process it first", nil)
	}
	rc, err := p.buildRunContext(ctx, ep, records, stage)
	if err != nil {
		return err
	}
	recs := recordIndex(records)
	for _, sub := range subs {
		rec, ok := recs[recordKey{stage: int(stage), sub: sub}]
		if !ok {
			return types.NewError(types.CodeNotFound, op, fmt.Sprintf("no record for stage %d (%s)", stage, def.Key), nil)
		}
		if err := p.regenerateOne(ctx, rc, stageTask{Def: def, Sub: sub}, rec); err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) regenerateOne(ctx context.Context, rc *RunContext, t stageTask, rec *types.StageRecord) error {
	dbc := dbctx.Context{Ctx: ctx}
	if err := p.stages.UpdateFields(dbc, rec.ID, map[string]interface{}{
		"status":        types.StageStatusProcessing,
		"started_at":    time.Now().UTC(),
		"completed_at":  nil,
		"error_message": "",
		"error_details": nil,
	}); err != nil {
		return err
	}
	p.emit(ProgressEvent{
		EpisodeID: rc.EpisodeID,
		Type:      EventStageStarted,
		Stage:     int(t.Def.Stage),
		SubStage:  t.Sub,
		StageKey:  t.Def.Key,
		Status:    string(types.StageStatusProcessing),
	})

	res, err := p.runStage(ctx, rc, t)
	if err != nil {
		pdbc := dbctx.Context{Ctx: context.WithoutCancel(ctx)}
		if uerr := p.stages.UpdateFields(pdbc, rec.ID, failedUpdates(err, 0, rec.RetryCount+1)); uerr != nil {
			p.log.Error("Failed to persist stage failure", "error", uerr, "stage", t.label())
		}
		p.emit(ProgressEvent{
			EpisodeID: rc.EpisodeID,
			Type:      EventStageFailed,
			Stage:     int(t.Def.Stage),
			SubStage:  t.Sub,
			StageKey:  t.Def.Key,
			Status:    string(types.StageStatusFailed),
			Message:   err.Error(),
		})
		return err
	}

	updates, _, uerr := completedUpdates(res, time.Now().UTC())
	if uerr != nil {
		return types.NewError(types.CodeInternal, "pipeline.regenerateOne", fmt.Sprintf("encode %s output", t.label()), uerr)
	}
	if err := p.stages.UpdateFields(dbc, rec.ID, updates); err != nil {
		return err
	}
	p.emit(ProgressEvent{
		EpisodeID: rc.EpisodeID,
		Type:      EventStageCompleted,
		Stage:     int(t.Def.Stage),
		SubStage:  t.Sub,
		StageKey:  t.Def.Key,
		Status:    string(types.StageStatusCompleted),
		CostUSD:   res.CostUSD,
	})
	return nil
}

// StageStatusInfo is one stage record's view in a status read.
type StageStatusInfo struct {
	Stage        int               `json:"stage"`
	SubStage     string            `json:"sub_stage,omitempty"`
	Key          string            `json:"key"`
	Name         string            `json:"name"`
	Status       types.StageStatus `json:"status"`
	CostUSD      float64           `json:"cost_usd"`
	DurationMs   int64             `json:"duration_ms"`
	RetryCount   int               `json:"retry_count,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
}

// ProcessingStatus is derived purely from the episode row and its stage
// records; reading it never mutates anything.
type ProcessingStatus struct {
	EpisodeID        uuid.UUID           `json:"episode_id"`
	Status           types.EpisodeStatus `json:"status"`
	PauseRequested   bool                `json:"pause_requested,omitempty"`
	Percent          int                 `json:"percent"`
	CurrentStage     int                 `json:"current_stage"`
	CurrentStageKey  string              `json:"current_stage_key,omitempty"`
	TotalCostUSD     float64             `json:"total_cost_usd"`
	TotalDurationSec float64             `json:"total_duration_sec"`
	ErrorMessage     string              `json:"error_message,omitempty"`
	Stages           []StageStatusInfo   `json:"stages"`
	FailedStages     []StageStatusInfo   `json:"failed_stages,omitempty"`
}

// GetProcessingStatus derives percent complete, the in-flight stage, and
// any failed stages from the stage records.
func (p *Processor) GetProcessingStatus(ctx context.Context, episodeID uuid.UUID) (*ProcessingStatus, error) {
	dbc := dbctx.Context{Ctx: ctx}
	ep, err := p.episodes.GetByID(dbc, episodeID)
	if err != nil {
		return nil, err
	}
	records, err := p.stages.ListByEpisode(dbc, episodeID)
	if err != nil {
		return nil, err
	}

	names := make(map[int]string, len(p.defs))
	for _, def := range p.defs {
		names[int(def.Stage)] = def.Name
	}

	status := &ProcessingStatus{
		EpisodeID:        ep.ID,
		Status:           ep.Status,
		PauseRequested:   ep.PauseRequested,
		CurrentStage:     ep.CurrentStage,
		TotalCostUSD:     ep.TotalCostUSD,
		TotalDurationSec: ep.TotalDurationSec,
		ErrorMessage:     ep.ErrorMessage,
	}
	if def, ok := defByStage(Stage(ep.CurrentStage)); ok {
		status.CurrentStageKey = def.Key
	}

	completed := 0
	for _, rec := range records {
		if rec == nil {
			continue
		}
		info := StageStatusInfo{
			Stage:        rec.StageNumber,
			SubStage:     rec.SubStage,
			Key:          rec.StageName,
			Name:         names[rec.StageNumber],
			Status:       rec.Status,
			CostUSD:      rec.CostUSD,
			DurationMs:   rec.DurationMs,
			RetryCount:   rec.RetryCount,
			ErrorMessage: rec.ErrorMessage,
		}
		status.Stages = append(status.Stages, info)
		switch rec.Status {
		case types.StageStatusCompleted:
			completed++
		case types.StageStatusFailed:
			status.FailedStages = append(status.FailedStages, info)
		}
	}
	if len(records) > 0 {
		status.Percent = completed * 100 / len(records)
	}
	if ep.Status == types.EpisodeStatusCompleted {
		status.Percent = 100
	}
	return status, nil
}

func (p *Processor) percent(done int) int {
	if p.total <= 0 {
		return 0
	}
	pct := done * 100 / p.total
	if pct < 0 {
		return 0
	}
	if pct > 99 {
		return 99
	}
	return pct
}

func (p *Processor) emit(ev ProgressEvent) {
	if p.notify == nil {
		return
	}
	p.notify(ev)
}

// completedUpdates builds the persisted shape of a successful stage
// result. Returns the raw output bytes so callers can merge context from
// exactly what was stored.
func completedUpdates(res *StageResult, completedAt time.Time) (map[string]interface{}, datatypes.JSON, error) {
	var dataRaw datatypes.JSON
	if res.OutputData != nil {
		b, err := json.Marshal(res.OutputData)
		if err != nil {
			return nil, nil, err
		}
		dataRaw = datatypes.JSON(b)
	}
	updates := map[string]interface{}{
		"status":        types.StageStatusCompleted,
		"input_tokens":  res.InputTokens,
		"output_tokens": res.OutputTokens,
		"cost_usd":      res.CostUSD,
		"completed_at":  completedAt,
		"duration_ms":   res.DurationMs,
	}
	if dataRaw != nil {
		updates["output_data"] = dataRaw
	} else {
		updates["output_data"] = nil
	}
	if res.OutputText != nil {
		updates["output_text"] = *res.OutputText
	} else {
		updates["output_text"] = nil
	}
	return updates, dataRaw, nil
}

func failedUpdates(taskErr error, durMs int64, retryCount int) map[string]interface{} {
	details, _ := json.Marshal(map[string]any{
		"code":      string(types.CodeOf(taskErr)),
		"retryable": types.IsRetryable(taskErr),
		"error":     taskErr.Error(),
	})
	return map[string]interface{}{
		"status":        types.StageStatusFailed,
		"completed_at":  time.Now().UTC(),
		"duration_ms":   durMs,
		"error_message": truncateRunes(taskErr.Error(), 1000),
		"error_details": datatypes.JSON(details),
		"retry_count":   retryCount,
	}
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
