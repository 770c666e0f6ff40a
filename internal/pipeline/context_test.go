package pipeline

import (
	"testing"

	"gorm.io/datatypes"

	types "github.com/yungbote/podforge-backend/internal/domain/content"
)

func testRunContext() *RunContext {
	ep := &types.Episode{Transcript: "raw transcript"}
	return newRunContext(ep, "Tone: test")
}

func TestMergeStageAlwaysCarriesOutputText(t *testing.T) {
	rc := testRunContext()

	// Structured-only stage: the key is present and explicitly nil.
	rc.mergeStage(StageSummary, map[string]any{"summary": "tight"}, nil)
	entry, ok := rc.StageOutput(StageSummary)
	if !ok {
		t.Fatalf("no entry for summary")
	}
	v, present := entry["output_text"]
	if !present {
		t.Fatalf("output_text key missing from structured entry")
	}
	if v != nil {
		t.Fatalf("output_text = %v, want nil", v)
	}
	if entry["summary"] != "tight" {
		t.Fatalf("structured field lost: %v", entry)
	}

	// Prose-only stage.
	text := "refined post"
	rc.mergeStage(StageRefine, nil, &text)
	if got, ok := rc.StageText(StageRefine); !ok || got != text {
		t.Fatalf("StageText = %q/%v, want %q", got, ok, text)
	}

	// Both halves.
	draft := "draft body"
	rc.mergeStage(StageDraft, map[string]any{"word_count": 42}, &draft)
	if got, ok := rc.StageText(StageDraft); !ok || got != draft {
		t.Fatalf("draft StageText = %q/%v", got, ok)
	}
	if rc.StageString(StageDraft, "word_count") == "" {
		t.Fatalf("draft word_count lost")
	}
}

func TestStageTextMissingCases(t *testing.T) {
	rc := testRunContext()

	if _, ok := rc.StageText(StageDraft); ok {
		t.Fatalf("StageText on unmerged stage reported ok")
	}
	rc.mergeStage(StageDraft, map[string]any{"word_count": 1}, nil)
	if _, ok := rc.StageText(StageDraft); ok {
		t.Fatalf("StageText on nil text reported ok")
	}
	empty := ""
	rc.mergeStage(StageRefine, nil, &empty)
	if _, ok := rc.StageText(StageRefine); ok {
		t.Fatalf("StageText on empty text reported ok")
	}
}

func TestTranscriptForPrompt(t *testing.T) {
	rc := testRunContext()

	// No preprocess entry yet: the raw transcript.
	if got := rc.transcriptForPrompt(); got != "raw transcript" {
		t.Fatalf("transcript = %q", got)
	}

	// Skipped preprocess keeps the raw transcript.
	rc.mergeStage(StagePreprocess, map[string]any{"skipped": true}, nil)
	if got := rc.transcriptForPrompt(); got != "raw transcript" {
		t.Fatalf("transcript after skip = %q", got)
	}

	// Real condensation wins.
	rc.mergeStage(StagePreprocess, map[string]any{"skipped": false, "condensed_transcript": "condensed"}, nil)
	if got := rc.transcriptForPrompt(); got != "condensed" {
		t.Fatalf("transcript after condensation = %q", got)
	}
}

func TestUserContextForPrompt(t *testing.T) {
	rc := testRunContext()
	if got := rc.userContextForPrompt(); got != "(none)" {
		t.Fatalf("empty user context = %q", got)
	}

	rc.UserContext = map[string]any{"cta": "newsletter", "audience": "founders"}
	got := rc.userContextForPrompt()
	// Keys render sorted so prompts are deterministic.
	want := "audience: founders\ncta: newsletter"
	if got != want {
		t.Fatalf("user context = %q, want %q", got, want)
	}
}

func TestStageFieldJSON(t *testing.T) {
	rc := testRunContext()
	rc.mergeStage(StageQuotes, map[string]any{
		"quotes": []any{map[string]any{"text": "q", "speaker": "s"}},
	}, nil)

	got := rc.stageFieldJSON(StageQuotes, "quotes")
	if got != `[{"speaker":"s","text":"q"}]` {
		t.Fatalf("quotes json = %s", got)
	}
	if rc.stageFieldJSON(StageQuotes, "missing") != "[]" {
		t.Fatalf("missing field should render as []")
	}
	if rc.stageFieldJSON(StageTitles, "candidates") != "[]" {
		t.Fatalf("unmerged stage should render as []")
	}
}

func TestDecodeOutputData(t *testing.T) {
	data, err := decodeOutputData(nil)
	if err != nil || data != nil {
		t.Fatalf("nil bytes: %v %v", data, err)
	}
	data, err = decodeOutputData(datatypes.JSON(`{"a":1}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data["a"] != float64(1) {
		t.Fatalf("decoded = %v", data)
	}
	if _, err := decodeOutputData(datatypes.JSON(`{`)); err == nil {
		t.Fatalf("truncated json accepted")
	}
}

func TestAssembleFanOut(t *testing.T) {
	def, _ := defByStage(StageSocial)
	raw := map[string]datatypes.JSON{
		"twitter":  datatypes.JSON(`{"posts":[{"text":"a"}]}`),
		"linkedin": datatypes.JSON(`{"posts":[{"text":"b"}]}`),
	}
	assembled, err := assembleFanOut(def, raw)
	if err != nil {
		t.Fatalf("assembleFanOut: %v", err)
	}
	if len(assembled) != len(def.SubStages) {
		t.Fatalf("assembled %d variants, want %d", len(assembled), len(def.SubStages))
	}
	// Missing variants come back as empty objects, not nil, so prompt
	// interpolation and JSON re-encoding stay uniform.
	for _, sub := range def.SubStages {
		if assembled[sub] == nil {
			t.Fatalf("variant %s is nil", sub)
		}
	}
	tw := assembled["twitter"].(map[string]any)
	if _, ok := tw["posts"]; !ok {
		t.Fatalf("twitter posts lost: %v", tw)
	}
}
