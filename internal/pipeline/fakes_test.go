package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"gorm.io/datatypes"

	types "github.com/yungbote/podforge-backend/internal/domain/content"
	"github.com/yungbote/podforge-backend/internal/pkg/dbctx"
	"github.com/yungbote/podforge-backend/internal/platform/openai"
)

// fakeEpisodeRepo is an in-memory EpisodeRepo. Updates go through the
// same map[string]interface{} shape the real repo takes so the processor
// exercises identical write paths.
type fakeEpisodeRepo struct {
	mu       sync.Mutex
	episodes map[uuid.UUID]*types.Episode
}

func newFakeEpisodeRepo() *fakeEpisodeRepo {
	return &fakeEpisodeRepo{episodes: map[uuid.UUID]*types.Episode{}}
}

func (r *fakeEpisodeRepo) Create(dbc dbctx.Context, episodes []*types.Episode) ([]*types.Episode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ep := range episodes {
		if ep.ID == uuid.Nil {
			ep.ID = uuid.New()
		}
		if ep.Status == "" {
			ep.Status = types.EpisodeStatusDraft
		}
		ep.CreatedAt = time.Now().UTC()
		r.episodes[ep.ID] = ep
	}
	return episodes, nil
}

func (r *fakeEpisodeRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Episode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ep, ok := r.episodes[id]
	if !ok {
		return nil, types.NewError(types.CodeNotFound, "fakeEpisodeRepo.GetByID", "episode not found", nil)
	}
	cp := *ep
	return &cp, nil
}

func (r *fakeEpisodeRepo) List(dbc dbctx.Context, limit, offset int) ([]*types.Episode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Episode
	for _, ep := range r.episodes {
		cp := *ep
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeEpisodeRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ep, ok := r.episodes[id]
	if !ok {
		return types.NewError(types.CodeNotFound, "fakeEpisodeRepo.UpdateFields", "episode not found", nil)
	}
	applyEpisodeUpdates(ep, updates)
	return nil
}

func (r *fakeEpisodeRepo) UpdateFieldsIfStatus(dbc dbctx.Context, id uuid.UUID, allowed []types.EpisodeStatus, updates map[string]interface{}) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ep, ok := r.episodes[id]
	if !ok {
		return false, types.NewError(types.CodeNotFound, "fakeEpisodeRepo.UpdateFieldsIfStatus", "episode not found", nil)
	}
	match := false
	for _, s := range allowed {
		if ep.Status == s {
			match = true
			break
		}
	}
	if !match {
		return false, nil
	}
	applyEpisodeUpdates(ep, updates)
	return true, nil
}

func (r *fakeEpisodeRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.episodes, id)
	return nil
}

func applyEpisodeUpdates(ep *types.Episode, updates map[string]interface{}) {
	for k, v := range updates {
		switch k {
		case "status":
			ep.Status = v.(types.EpisodeStatus)
		case "current_stage":
			ep.CurrentStage = v.(int)
		case "pause_requested":
			ep.PauseRequested = v.(bool)
		case "total_cost_usd":
			ep.TotalCostUSD = v.(float64)
		case "total_duration_sec":
			ep.TotalDurationSec = v.(float64)
		case "error_message":
			ep.ErrorMessage = v.(string)
		case "transcript":
			ep.Transcript = v.(string)
		}
	}
	ep.UpdatedAt = time.Now().UTC()
}

type stageTransition struct {
	Stage int
	Sub   string
	From  types.StageStatus
	To    types.StageStatus
	Reset bool
}

// fakeStageRepo is an in-memory StageRecordRepo that also journals every
// status transition so tests can assert ordering rules.
type fakeStageRepo struct {
	mu          sync.Mutex
	records     map[uuid.UUID]*types.StageRecord
	transitions []stageTransition
}

func newFakeStageRepo() *fakeStageRepo {
	return &fakeStageRepo{records: map[uuid.UUID]*types.StageRecord{}}
}

func (r *fakeStageRepo) CreateMany(dbc dbctx.Context, episodeID uuid.UUID, records []*types.StageRecord) ([]*types.StageRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range records {
		if r.findLocked(episodeID, rec.StageNumber, rec.SubStage) != nil {
			continue
		}
		cp := *rec
		cp.ID = uuid.New()
		cp.EpisodeID = episodeID
		cp.CreatedAt = time.Now().UTC()
		if cp.Status == "" {
			cp.Status = types.StageStatusPending
		}
		r.records[cp.ID] = &cp
	}
	return r.listLocked(episodeID), nil
}

func (r *fakeStageRepo) Find(dbc dbctx.Context, episodeID uuid.UUID, stageNumber int, subStage string) (*types.StageRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.findLocked(episodeID, stageNumber, subStage)
	if rec == nil {
		return nil, types.NewError(types.CodeNotFound, "fakeStageRepo.Find", "stage record not found", nil)
	}
	cp := *rec
	return &cp, nil
}

func (r *fakeStageRepo) ListByEpisode(dbc dbctx.Context, episodeID uuid.UUID) ([]*types.StageRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listLocked(episodeID), nil
}

func (r *fakeStageRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return types.NewError(types.CodeNotFound, "fakeStageRepo.UpdateFields", "stage record not found", nil)
	}
	r.applyLocked(rec, updates, false)
	return nil
}

func (r *fakeStageRepo) UpdateByKey(dbc dbctx.Context, episodeID uuid.UUID, stageNumber int, subStage string, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.findLocked(episodeID, stageNumber, subStage)
	if rec == nil {
		return types.NewError(types.CodeNotFound, "fakeStageRepo.UpdateByKey", "stage record not found", nil)
	}
	r.applyLocked(rec, updates, false)
	return nil
}

func (r *fakeStageRepo) ResetAll(dbc dbctx.Context, episodeID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.EpisodeID == episodeID {
			r.applyLocked(rec, fakeResetUpdates(), true)
		}
	}
	return nil
}

func (r *fakeStageRepo) ResetByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if rec, ok := r.records[id]; ok {
			r.applyLocked(rec, fakeResetUpdates(), true)
		}
	}
	return nil
}

func (r *fakeStageRepo) DeleteByEpisode(dbc dbctx.Context, episodeID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, rec := range r.records {
		if rec.EpisodeID == episodeID {
			delete(r.records, id)
		}
	}
	return nil
}

func (r *fakeStageRepo) findLocked(episodeID uuid.UUID, stageNumber int, subStage string) *types.StageRecord {
	for _, rec := range r.records {
		if rec.EpisodeID == episodeID && rec.StageNumber == stageNumber && rec.SubStage == subStage {
			return rec
		}
	}
	return nil
}

func (r *fakeStageRepo) listLocked(episodeID uuid.UUID) []*types.StageRecord {
	var out []*types.StageRecord
	for _, rec := range r.records {
		if rec.EpisodeID == episodeID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StageNumber != out[j].StageNumber {
			return out[i].StageNumber < out[j].StageNumber
		}
		return out[i].SubStage < out[j].SubStage
	})
	return out
}

func (r *fakeStageRepo) applyLocked(rec *types.StageRecord, updates map[string]interface{}, reset bool) {
	if v, ok := updates["status"]; ok {
		to := v.(types.StageStatus)
		if to != rec.Status {
			r.transitions = append(r.transitions, stageTransition{
				Stage: rec.StageNumber,
				Sub:   rec.SubStage,
				From:  rec.Status,
				To:    to,
				Reset: reset,
			})
		}
		rec.Status = to
	}
	for k, v := range updates {
		switch k {
		case "status":
		case "output_data":
			if v == nil {
				rec.OutputData = nil
			} else {
				rec.OutputData = v.(datatypes.JSON)
			}
		case "output_text":
			if v == nil {
				rec.OutputText = nil
			} else {
				s := v.(string)
				rec.OutputText = &s
			}
		case "input_tokens":
			rec.InputTokens = v.(int)
		case "output_tokens":
			rec.OutputTokens = v.(int)
		case "cost_usd":
			rec.CostUSD = v.(float64)
		case "started_at":
			if v == nil {
				rec.StartedAt = nil
			} else {
				t := v.(time.Time)
				rec.StartedAt = &t
			}
		case "completed_at":
			if v == nil {
				rec.CompletedAt = nil
			} else {
				t := v.(time.Time)
				rec.CompletedAt = &t
			}
		case "duration_ms":
			rec.DurationMs = v.(int64)
		case "error_message":
			rec.ErrorMessage = v.(string)
		case "error_details":
			if v == nil {
				rec.ErrorDetails = nil
			} else {
				rec.ErrorDetails = v.(datatypes.JSON)
			}
		case "retry_count":
			rec.RetryCount = v.(int)
		default:
			panic(fmt.Sprintf("fakeStageRepo: unexpected update key %q", k))
		}
	}
	rec.UpdatedAt = time.Now().UTC()
}

func (r *fakeStageRepo) transitionLog() []stageTransition {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]stageTransition, len(r.transitions))
	copy(out, r.transitions)
	return out
}

func fakeResetUpdates() map[string]interface{} {
	return map[string]interface{}{
		"status":        types.StageStatusPending,
		"output_data":   nil,
		"output_text":   nil,
		"input_tokens":  0,
		"output_tokens": 0,
		"cost_usd":      float64(0),
		"started_at":    nil,
		"completed_at":  nil,
		"duration_ms":   int64(0),
		"error_message": "",
		"error_details": nil,
	}
}

type fakeBrandRepo struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*types.BrandProfile
}

func newFakeBrandRepo() *fakeBrandRepo {
	return &fakeBrandRepo{profiles: map[uuid.UUID]*types.BrandProfile{}}
}

func (r *fakeBrandRepo) Create(dbc dbctx.Context, profiles []*types.BrandProfile) ([]*types.BrandProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, bp := range profiles {
		if bp.ID == uuid.Nil {
			bp.ID = uuid.New()
		}
		r.profiles[bp.ID] = bp
	}
	return profiles, nil
}

func (r *fakeBrandRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.BrandProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bp, ok := r.profiles[id]
	if !ok {
		return nil, types.NewError(types.CodeNotFound, "fakeBrandRepo.GetByID", "brand profile not found", nil)
	}
	cp := *bp
	return &cp, nil
}

func (r *fakeBrandRepo) List(dbc dbctx.Context) ([]*types.BrandProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.BrandProfile
	for _, bp := range r.profiles {
		cp := *bp
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeBrandRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	return nil
}

func (r *fakeBrandRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.profiles, id)
	return nil
}

/*
fakeAI is a scripted completion provider. Calls are keyed by the request
key: the schema name for structured calls, "text" for prose calls. Each
key can be failed, blocked on a gate channel, or answered with the canned
payload; the last user prompt per key is journaled so tests can compare
live and resumed runs call for call.
*/
type fakeAI struct {
	mu       sync.Mutex
	failOn   map[string]error
	gates    map[string]chan struct{}
	started  chan string
	prompts  map[string][]string
	calls    int
	response func(key string) string
}

func newFakeAI() *fakeAI {
	return &fakeAI{
		failOn:  map[string]error{},
		gates:   map[string]chan struct{}{},
		prompts: map[string][]string{},
	}
}

func requestKey(req openai.CompletionRequest) string {
	if req.SchemaName != "" {
		return req.SchemaName
	}
	return "text"
}

func (f *fakeAI) failWith(key string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failOn[key] = err
}

func (f *fakeAI) clearFailure(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.failOn, key)
}

func (f *fakeAI) gate(key string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[key] = ch
	return ch
}

func (f *fakeAI) promptsFor(key string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.prompts[key]))
	copy(out, f.prompts[key])
	return out
}

func (f *fakeAI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeAI) Complete(ctx context.Context, req openai.CompletionRequest) (*openai.Completion, error) {
	key := requestKey(req)

	f.mu.Lock()
	f.calls++
	f.prompts[key] = append(f.prompts[key], req.User)
	failErr := f.failOn[key]
	gate := f.gates[key]
	started := f.started
	respond := f.response
	f.mu.Unlock()

	if started != nil {
		select {
		case started <- key:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if failErr != nil {
		return nil, failErr
	}

	text := cannedCompletion(key)
	if respond != nil {
		text = respond(key)
	}
	return &openai.Completion{Text: text, InputTokens: 120, OutputTokens: 40}, nil
}

// cannedCompletion returns a schema-valid payload for every stage call.
func cannedCompletion(key string) string {
	switch {
	case key == "transcript_preprocess":
		return `{"condensed_transcript":"The host and guest cover shipping small and charging early.","key_topics":["pricing","launches"]}`
	case key == "episode_summary":
		return `{"summary":"A conversation about shipping small products and charging from day one.","topics":["pricing","launches"],"key_takeaways":["Ship small","Charge early","Talk to users"]}`
	case key == "episode_quotes":
		return `{"quotes":[{"text":"Charge from day one.","speaker":"Dana","timestamp":"00:12:30","theme":"pricing"},{"text":"Small launches compound.","speaker":"Dana","timestamp":"00:31:05","theme":"launches"}]}`
	case key == "audience_profile":
		return `{"persona":"Early-stage founders who build in public.","pain_points":["pricing anxiety","launch paralysis"],"tone":"direct and encouraging","platforms":["twitter","linkedin"]}`
	case key == "title_candidates":
		return `{"candidates":[{"title":"Charge From Day One","hook":"Why free pilots stall startups"},{"title":"Small Launches Compound","hook":"The case for shipping weekly"}],"recommended_title":"Charge From Day One"}`
	case key == "blog_outline":
		return `{"sections":[{"heading":"Why free pilots stall","points":["anchoring","signal loss"]},{"heading":"Pricing as a filter","points":["qualify demand"]},{"heading":"Shipping small","points":["weekly cadence"]}],"word_target":900}`
	case key == "blog_draft":
		return `{"draft":"# Charge From Day One\n\nFree pilots feel safe, but as Dana put it, \"Charge from day one.\" Pricing is a filter.\n\n## Shipping small\n\nSmall launches compound."}`
	case key == "seo_package":
		return `{"meta_title":"Charge From Day One","meta_description":"Why early pricing beats free pilots.","slug":"charge-from-day-one","keywords":["pricing","startup","launch","founder","saas"]}`
	case strings.HasPrefix(key, "social_posts_"):
		platform := strings.TrimPrefix(key, "social_posts_")
		return fmt.Sprintf(`{"posts":[{"text":"New episode: why you should charge from day one. (%s)","hashtags":["#podcast","#pricing"]}]}`, platform)
	case key == "email_campaign":
		return `{"subject_lines":["Charge from day one","Stop running free pilots","The pricing filter"],"preview_text":"Why early pricing beats free pilots.","body_sections":[{"heading":"This week","body":"Dana on pricing as a filter."},{"heading":"Read the post","body":"The full writeup is live."}],"call_to_action":"Read the post"}`
	case key == "text":
		return "# Charge From Day One\n\nFree pilots feel safe. \"Charge from day one,\" Dana said, and the rest of the conversation backs it up.\n\n## Shipping small\n\nSmall launches compound."
	default:
		return "{}"
	}
}
