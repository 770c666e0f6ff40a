package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	types "github.com/yungbote/podforge-backend/internal/domain/content"
	"github.com/yungbote/podforge-backend/internal/pkg/httpx"
	"github.com/yungbote/podforge-backend/internal/platform/openai"
)

/*
Analyzers turn one stage's slice of the run context into a raw result.
They read named fields out of prior-stage entries (each analyzer's doc
comment lists exactly which), call the completion provider, and return
structured data and/or prose plus token counts. They never retry and
never touch the store; failures wrap upward for the processor to persist.
*/

type stageDeps struct {
	ai    openai.Client
	model string

	// preprocess only: transcripts under this many estimated tokens skip
	// the condensation call entirely.
	preprocessTokenThreshold int
}

type analyzerResult struct {
	Data         map[string]any
	Text         *string
	InputTokens  int
	OutputTokens int
}

type analyzerFunc func(ctx context.Context, d stageDeps, rc *RunContext, sub string) (*analyzerResult, error)

// estimateTokens approximates token count as ceil(runes/4), the rough
// ratio for English prose. Only used for the preprocess skip check, so
// precision does not matter.
func estimateTokens(s string) int {
	n := utf8.RuneCountInString(s)
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}

func truncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}

// completeJSON runs a schema-constrained completion and decodes the
// structured result. Provider failures and undecodable payloads both
// come back as provider errors, transient ones flagged retryable.
func completeJSON(ctx context.Context, d stageDeps, op, system, user, schemaName string, schema map[string]any) (map[string]any, int, int, error) {
	out, err := d.ai.Complete(ctx, openai.CompletionRequest{
		Model:      d.model,
		System:     system,
		User:       user,
		SchemaName: schemaName,
		Schema:     schema,
	})
	if err != nil {
		return nil, 0, 0, wrapProviderError(op, err)
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(out.Text), &data); err != nil {
		return nil, out.InputTokens, out.OutputTokens, types.NewError(types.CodeProvider, op, "malformed structured response", err)
	}
	return data, out.InputTokens, out.OutputTokens, nil
}

// completeText runs an unconstrained completion for prose-only stages.
func completeText(ctx context.Context, d stageDeps, op, system, user string) (string, int, int, error) {
	out, err := d.ai.Complete(ctx, openai.CompletionRequest{
		Model:  d.model,
		System: system,
		User:   user,
	})
	if err != nil {
		return "", 0, 0, wrapProviderError(op, err)
	}
	return out.Text, out.InputTokens, out.OutputTokens, nil
}

func wrapProviderError(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		return types.RetryableError(types.CodeProvider, op, "provider call timed out", err)
	case httpx.IsRetryableError(err):
		return types.RetryableError(types.CodeProvider, op, "provider request failed (transient)", err)
	default:
		return types.WrapError(types.CodeProvider, op, err)
	}
}

/*
analyzePreprocess (stage 0) condenses long transcripts so downstream
prompts stay within budget. Reads nothing from prior stages. Transcripts
under the token threshold skip the provider call and record
{"skipped": true} at zero cost; downstream stages then use the original
transcript.
*/
func analyzePreprocess(ctx context.Context, d stageDeps, rc *RunContext, sub string) (*analyzerResult, error) {
	const op = "pipeline.analyzePreprocess"
	if estimateTokens(rc.Transcript) < d.preprocessTokenThreshold {
		return &analyzerResult{Data: map[string]any{"skipped": true}}, nil
	}

	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"condensed_transcript": map[string]any{"type": "string"},
			"key_topics":           map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
		"required":             []string{"condensed_transcript", "key_topics"},
		"additionalProperties": false,
	}
	data, in, out, err := completeJSON(ctx, d, op,
		"You condense long podcast transcripts into a faithful shorter form that preserves speaker attributions, factual claims, and quotable lines.",
		fmt.Sprintf("Transcript:\n%s\n\nCondense this transcript to roughly a third of its length. Keep speaker names, numbers, and memorable phrasing intact. Also list the key topics covered.", rc.Transcript),
		"transcript_preprocess",
		schema,
	)
	if err != nil {
		return nil, err
	}
	data["skipped"] = false
	return &analyzerResult{Data: data, InputTokens: in, OutputTokens: out}, nil
}

/*
analyzeSummary (stage 1) produces the episode summary, topics, and key
takeaways. Reads previousStages[0].condensed_transcript when
preprocessing ran; otherwise the original transcript.
*/
func analyzeSummary(ctx context.Context, d stageDeps, rc *RunContext, sub string) (*analyzerResult, error) {
	const op = "pipeline.analyzeSummary"
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"summary":       map[string]any{"type": "string"},
			"topics":        map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"key_takeaways": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
		"required":             []string{"summary", "topics", "key_takeaways"},
		"additionalProperties": false,
	}
	data, in, out, err := completeJSON(ctx, d, op,
		"You summarize podcast episodes for content marketing teams.",
		fmt.Sprintf("Transcript:\n%s\n\nUser notes:\n%s\n\nSummarize the episode in two to three paragraphs, list the main topics, and extract three to seven key takeaways.",
			rc.transcriptForPrompt(), rc.userContextForPrompt()),
		"episode_summary",
		schema,
	)
	if err != nil {
		return nil, err
	}
	return &analyzerResult{Data: data, InputTokens: in, OutputTokens: out}, nil
}

/*
analyzeQuotes (stage 2) extracts verbatim pull quotes. Reads
previousStages[0].condensed_transcript when preprocessing ran; otherwise
the original transcript.
*/
func analyzeQuotes(ctx context.Context, d stageDeps, rc *RunContext, sub string) (*analyzerResult, error) {
	const op = "pipeline.analyzeQuotes"
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"quotes": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"text":      map[string]any{"type": "string"},
						"speaker":   map[string]any{"type": "string"},
						"timestamp": map[string]any{"type": "string"},
						"theme":     map[string]any{"type": "string"},
					},
					"required":             []string{"text", "speaker", "timestamp", "theme"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"quotes"},
		"additionalProperties": false,
	}
	data, in, out, err := completeJSON(ctx, d, op,
		"You extract short verbatim pull quotes from podcast transcripts.",
		fmt.Sprintf("Transcript:\n%s\n\nExtract five to ten quotes worth sharing. Quote the transcript verbatim, name the speaker when identifiable, include an approximate timestamp when the transcript carries one (empty string otherwise), and tag each quote with a one-word theme.",
			rc.transcriptForPrompt()),
		"episode_quotes",
		schema,
	)
	if err != nil {
		return nil, err
	}
	return &analyzerResult{Data: data, InputTokens: in, OutputTokens: out}, nil
}

/*
analyzeAudience (stage 3) profiles the target audience. Reads
previousStages[0].condensed_transcript when preprocessing ran; otherwise
the original transcript.
*/
func analyzeAudience(ctx context.Context, d stageDeps, rc *RunContext, sub string) (*analyzerResult, error) {
	const op = "pipeline.analyzeAudience"
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"persona":     map[string]any{"type": "string"},
			"pain_points": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"tone":        map[string]any{"type": "string"},
			"platforms":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
		"required":             []string{"persona", "pain_points", "tone", "platforms"},
		"additionalProperties": false,
	}
	data, in, out, err := completeJSON(ctx, d, op,
		"You profile the target audience for podcast-derived marketing content.",
		fmt.Sprintf("Transcript:\n%s\n\nUser notes:\n%s\n\nDescribe the audience most likely to care about this episode: a one-paragraph persona, their pain points, the tone that would resonate with them, and the platforms they are most active on.",
			rc.transcriptForPrompt(), rc.userContextForPrompt()),
		"audience_profile",
		schema,
	)
	if err != nil {
		return nil, err
	}
	return &analyzerResult{Data: data, InputTokens: in, OutputTokens: out}, nil
}

/*
analyzeTitles (stage 4) proposes blog title candidates. Reads
previousStages[1].summary, previousStages[1].key_takeaways,
previousStages[3].persona, and previousStages[3].tone.
*/
func analyzeTitles(ctx context.Context, d stageDeps, rc *RunContext, sub string) (*analyzerResult, error) {
	const op = "pipeline.analyzeTitles"
	summary := rc.StageString(StageSummary, "summary")
	if summary == "" {
		return nil, types.NewError(types.CodeValidation, op, "missing summary from stage 1", nil)
	}
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"candidates": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"title": map[string]any{"type": "string"},
						"hook":  map[string]any{"type": "string"},
					},
					"required":             []string{"title", "hook"},
					"additionalProperties": false,
				},
			},
			"recommended_title": map[string]any{"type": "string"},
		},
		"required":             []string{"candidates", "recommended_title"},
		"additionalProperties": false,
	}
	data, in, out, err := completeJSON(ctx, d, op,
		"You write compelling blog titles grounded in episode content.",
		fmt.Sprintf("Episode summary:\n%s\n\nKey takeaways: %s\n\nAudience persona: %s\nPreferred tone: %s\n\nPropose five title candidates with a one-line hook each, then repeat the strongest as recommended_title.",
			summary,
			rc.stageFieldJSON(StageSummary, "key_takeaways"),
			rc.StageString(StageAudience, "persona"),
			rc.StageString(StageAudience, "tone")),
		"title_candidates",
		schema,
	)
	if err != nil {
		return nil, err
	}
	return &analyzerResult{Data: data, InputTokens: in, OutputTokens: out}, nil
}

/*
analyzeOutline (stage 5) structures the blog post. Reads
previousStages[1].summary, previousStages[1].topics, and
previousStages[4].recommended_title.
*/
func analyzeOutline(ctx context.Context, d stageDeps, rc *RunContext, sub string) (*analyzerResult, error) {
	const op = "pipeline.analyzeOutline"
	title := rc.StageString(StageTitles, "recommended_title")
	if title == "" {
		return nil, types.NewError(types.CodeValidation, op, "missing recommended_title from stage 4", nil)
	}
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"sections": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"heading": map[string]any{"type": "string"},
						"points":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					},
					"required":             []string{"heading", "points"},
					"additionalProperties": false,
				},
			},
			"word_target": map[string]any{"type": "integer"},
		},
		"required":             []string{"sections", "word_target"},
		"additionalProperties": false,
	}
	data, in, out, err := completeJSON(ctx, d, op,
		"You structure long-form blog posts from podcast material.",
		fmt.Sprintf("Title: %s\n\nEpisode summary:\n%s\n\nTopics: %s\n\nOutline a blog post: four to seven sections with a heading and the points each section covers, plus a realistic overall word target.",
			title,
			rc.StageString(StageSummary, "summary"),
			rc.stageFieldJSON(StageSummary, "topics")),
		"blog_outline",
		schema,
	)
	if err != nil {
		return nil, err
	}
	return &analyzerResult{Data: data, InputTokens: in, OutputTokens: out}, nil
}

/*
analyzeDraft (stage 6) writes the full blog draft. Reads
previousStages[1].summary, previousStages[2].quotes, and
previousStages[5].sections. The only stage that returns both halves:
output_text carries the prose, output_data carries word_count.
*/
func analyzeDraft(ctx context.Context, d stageDeps, rc *RunContext, sub string) (*analyzerResult, error) {
	const op = "pipeline.analyzeDraft"
	sections := rc.stageFieldJSON(StageOutline, "sections")
	if sections == "[]" {
		return nil, types.NewError(types.CodeValidation, op, "missing sections from stage 5", nil)
	}
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"draft": map[string]any{"type": "string"},
		},
		"required":             []string{"draft"},
		"additionalProperties": false,
	}
	data, in, out, err := completeJSON(ctx, d, op,
		"You write publication-ready blog posts from podcast material, following the outline you are given.",
		fmt.Sprintf("Outline (JSON): %s\n\nEpisode summary:\n%s\n\nQuotes to weave in: %s\n\nVoice guidelines:\n%s\n\nWrite the full blog post in markdown. Follow the outline's sections, work in two or three of the quotes verbatim with attribution, and land near the outline's word target.",
			sections,
			rc.StageString(StageSummary, "summary"),
			rc.stageFieldJSON(StageQuotes, "quotes"),
			rc.Reference),
		"blog_draft",
		schema,
	)
	if err != nil {
		return nil, err
	}
	draft, _ := data["draft"].(string)
	if strings.TrimSpace(draft) == "" {
		return nil, types.NewError(types.CodeProvider, op, "draft response was empty", nil)
	}
	return &analyzerResult{
		Data:         map[string]any{"word_count": len(strings.Fields(draft))},
		Text:         &draft,
		InputTokens:  in,
		OutputTokens: out,
	}, nil
}

/*
analyzeRefine (stage 7) rewrites the draft against the voice guidelines.
Reads exactly previousStages[6].output_text and fails with a missing
draft error when it is null.
*/
func analyzeRefine(ctx context.Context, d stageDeps, rc *RunContext, sub string) (*analyzerResult, error) {
	const op = "pipeline.analyzeRefine"
	draft, ok := rc.StageText(StageDraft)
	if !ok {
		return nil, types.NewError(types.CodeValidation, op, "missing draft: stage 6 produced no output_text", nil)
	}
	text, in, out, err := completeText(ctx, d, op,
		"You edit marketing blog drafts for clarity, flow, and brand voice.",
		fmt.Sprintf("Voice guidelines:\n%s\n\nDraft:\n%s\n\nRewrite the draft applying the guidelines. Tighten transitions, vary sentence length, and keep every factual claim and quote unchanged. Return only the revised post.",
			rc.Reference, draft),
	)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, types.NewError(types.CodeProvider, op, "refinement response was empty", nil)
	}
	return &analyzerResult{Text: &text, InputTokens: in, OutputTokens: out}, nil
}

/*
analyzeSEO (stage 8) produces the search package for the refined post.
Reads previousStages[7].output_text and
previousStages[4].recommended_title.
*/
func analyzeSEO(ctx context.Context, d stageDeps, rc *RunContext, sub string) (*analyzerResult, error) {
	const op = "pipeline.analyzeSEO"
	post, ok := rc.StageText(StageRefine)
	if !ok {
		return nil, types.NewError(types.CodeValidation, op, "missing refined post: stage 7 produced no output_text", nil)
	}
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"meta_title":       map[string]any{"type": "string"},
			"meta_description": map[string]any{"type": "string"},
			"slug":             map[string]any{"type": "string"},
			"keywords":         map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
		"required":             []string{"meta_title", "meta_description", "slug", "keywords"},
		"additionalProperties": false,
	}
	data, in, out, err := completeJSON(ctx, d, op,
		"You prepare SEO metadata for long-form blog posts.",
		fmt.Sprintf("Working title: %s\n\nPost:\n%s\n\nProduce a meta title under 60 characters, a meta description under 160, a URL slug, and five to ten keywords.",
			rc.StageString(StageTitles, "recommended_title"),
			truncateRunes(post, 6000)),
		"seo_package",
		schema,
	)
	if err != nil {
		return nil, err
	}
	return &analyzerResult{Data: data, InputTokens: in, OutputTokens: out}, nil
}

// platformGuidance keys match socialPlatforms.
var platformGuidance = map[string]string{
	"twitter":   "Write a thread of three to five tweets. Each tweet stays under 280 characters. The first tweet must hook; the last links to the post.",
	"linkedin":  "Write one post of 150 to 250 words with a strong first line, short paragraphs, and a question at the end. Professional but not stiff.",
	"instagram": "Write one caption of 100 to 180 words with line breaks for rhythm and a call to action to tap the link in bio.",
	"facebook":  "Write one conversational post of 80 to 150 words that invites comments.",
}

/*
analyzeSocial (stage 9) writes platform-native posts, one sub-stage per
platform. Reads previousStages[7].output_text,
previousStages[2].quotes, and previousStages[3].tone.
*/
func analyzeSocial(ctx context.Context, d stageDeps, rc *RunContext, sub string) (*analyzerResult, error) {
	const op = "pipeline.analyzeSocial"
	guidance, ok := platformGuidance[sub]
	if !ok {
		return nil, types.NewError(types.CodeValidation, op, fmt.Sprintf("unknown platform %q", sub), nil)
	}
	post, ok := rc.StageText(StageRefine)
	if !ok {
		return nil, types.NewError(types.CodeValidation, op, "missing refined post: stage 7 produced no output_text", nil)
	}
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"posts": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"text":     map[string]any{"type": "string"},
						"hashtags": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					},
					"required":             []string{"text", "hashtags"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"posts"},
		"additionalProperties": false,
	}
	data, in, out, err := completeJSON(ctx, d, op,
		"You write platform-native social posts that promote podcast episodes.",
		fmt.Sprintf("Platform: %s\n%s\n\nTone: %s\n\nBlog post the social content promotes:\n%s\n\nQuotes available: %s",
			sub, guidance,
			rc.StageString(StageAudience, "tone"),
			truncateRunes(post, 4000),
			rc.stageFieldJSON(StageQuotes, "quotes")),
		"social_posts_"+sub,
		schema,
	)
	if err != nil {
		return nil, err
	}
	return &analyzerResult{Data: data, InputTokens: in, OutputTokens: out}, nil
}

/*
analyzeEmail (stage 10) builds the announcement campaign. Reads
previousStages[1].summary, previousStages[1].key_takeaways, and
previousStages[7].output_text.
*/
func analyzeEmail(ctx context.Context, d stageDeps, rc *RunContext, sub string) (*analyzerResult, error) {
	const op = "pipeline.analyzeEmail"
	post, ok := rc.StageText(StageRefine)
	if !ok {
		return nil, types.NewError(types.CodeValidation, op, "missing refined post: stage 7 produced no output_text", nil)
	}
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"subject_lines": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"preview_text":  map[string]any{"type": "string"},
			"body_sections": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"heading": map[string]any{"type": "string"},
						"body":    map[string]any{"type": "string"},
					},
					"required":             []string{"heading", "body"},
					"additionalProperties": false,
				},
			},
			"call_to_action": map[string]any{"type": "string"},
		},
		"required":             []string{"subject_lines", "preview_text", "body_sections", "call_to_action"},
		"additionalProperties": false,
	}
	data, in, out, err := completeJSON(ctx, d, op,
		"You write announcement emails for new podcast episodes and their companion posts.",
		fmt.Sprintf("Episode summary:\n%s\n\nKey takeaways: %s\n\nCompanion blog post:\n%s\n\nWrite the campaign: three subject line options, preview text, two or three short body sections, and a call to action pointing at the post.",
			rc.StageString(StageSummary, "summary"),
			rc.stageFieldJSON(StageSummary, "key_takeaways"),
			truncateRunes(post, 4000)),
		"email_campaign",
		schema,
	)
	if err != nil {
		return nil, err
	}
	return &analyzerResult{Data: data, InputTokens: in, OutputTokens: out}, nil
}
