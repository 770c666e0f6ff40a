package pipeline

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"gorm.io/datatypes"

	types "github.com/yungbote/podforge-backend/internal/domain/content"
)

/*
RunContext is the ephemeral, in-memory state of one pipeline execution:
the transcript, the user-supplied context map, shared reference content
(brand voice guidelines), and the merged output of every finished stage.
It is rebuilt from stage records on resume and discarded when the run
ends; nothing in here is persisted directly.

Merge law: a stage's contribution under its stage number is always

	{ ...output_data fields, "output_text": <text or nil> }

The output_text key is present on every entry, nil when the stage
produced no prose. Both halves are merged unconditionally; a downstream
stage that needs prose from a stage that also produced structured data
must never find the key missing. Entries are decoded from the same JSON
bytes that were persisted on the stage record, so a resumed context is
identical to the live one it replaces.
*/
type RunContext struct {
	EpisodeID   uuid.UUID
	Transcript  string
	UserContext map[string]any
	Reference   string

	previousStages map[Stage]map[string]any
}

func newRunContext(ep *types.Episode, reference string) *RunContext {
	var userCtx map[string]any
	if len(ep.UserContext) > 0 {
		userCtx = map[string]any(ep.UserContext)
	}
	return &RunContext{
		EpisodeID:      ep.ID,
		Transcript:     ep.Transcript,
		UserContext:    userCtx,
		Reference:      reference,
		previousStages: map[Stage]map[string]any{},
	}
}

// mergeStage records a finished stage's contribution under the merge law.
func (rc *RunContext) mergeStage(stage Stage, data map[string]any, text *string) {
	entry := make(map[string]any, len(data)+1)
	for k, v := range data {
		entry[k] = v
	}
	if text != nil {
		entry["output_text"] = *text
	} else {
		entry["output_text"] = nil
	}
	rc.previousStages[stage] = entry
}

// StageOutput returns the merged entry for a finished stage.
func (rc *RunContext) StageOutput(stage Stage) (map[string]any, bool) {
	entry, ok := rc.previousStages[stage]
	return entry, ok
}

// StageText returns a prior stage's prose output. ok is false when the
// stage has not run or produced no text.
func (rc *RunContext) StageText(stage Stage) (string, bool) {
	entry, ok := rc.previousStages[stage]
	if !ok {
		return "", false
	}
	v, ok := entry["output_text"]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// StageField returns one named structured field of a prior stage.
func (rc *RunContext) StageField(stage Stage, key string) (any, bool) {
	entry, ok := rc.previousStages[stage]
	if !ok {
		return nil, false
	}
	v, ok := entry[key]
	return v, ok
}

// StageString is StageField rendered as a string, "" when missing.
func (rc *RunContext) StageString(stage Stage, key string) string {
	v, ok := rc.StageField(stage, key)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// stageFieldJSON renders one structured field as compact JSON for prompt
// interpolation. Lists and nested objects survive; missing fields render
// as "[]" so prompts stay well formed.
func (rc *RunContext) stageFieldJSON(stage Stage, key string) string {
	v, ok := rc.StageField(stage, key)
	if !ok || v == nil {
		return "[]"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// transcriptForPrompt prefers the condensed transcript when preprocessing
// ran, falling back to the original.
func (rc *RunContext) transcriptForPrompt() string {
	if skipped, ok := rc.StageField(StagePreprocess, "skipped"); ok {
		if b, isBool := skipped.(bool); isBool && !b {
			if condensed := rc.StageString(StagePreprocess, "condensed_transcript"); condensed != "" {
				return condensed
			}
		}
	}
	return rc.Transcript
}

// userContextForPrompt flattens the user-supplied context map into
// "key: value" lines, "(none)" when the map is empty.
func (rc *RunContext) userContextForPrompt() string {
	if len(rc.UserContext) == 0 {
		return "(none)"
	}
	keys := make([]string, 0, len(rc.UserContext))
	for k := range rc.UserContext {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("%s: %v\n", k, rc.UserContext[k]))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// decodeOutputData unmarshals a stage record's structured output. Nil or
// empty bytes decode to a nil map, which mergeStage treats as "no
// structured fields".
func decodeOutputData(raw datatypes.JSON) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, err
	}
	return data, nil
}
