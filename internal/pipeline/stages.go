package pipeline

import (
	"fmt"
	"sort"

	types "github.com/yungbote/podforge-backend/internal/domain/content"
)

/*
Stage identifies one transformation step of the content pipeline. Values
are dense and ordered; they double as the stage_number persisted on stage
records, so they must never be renumbered once episodes exist.
*/
type Stage int

const (
	StagePreprocess Stage = iota
	StageSummary
	StageQuotes
	StageAudience
	StageTitles
	StageOutline
	StageDraft
	StageRefine
	StageSEO
	StageSocial
	StageEmail
)

// LastStage is the highest stage number the pipeline runs.
const LastStage = StageEmail

// OutputShape declares which halves of a stage result are populated.
type OutputShape int

const (
	OutputStructured OutputShape = iota
	OutputText
	OutputBoth
)

/*
StageDef is the static metadata for one stage: identity, assigned
provider/model, phase membership, upstream dependencies, output shape,
fan-out variants, and the analyzer that produces the result. The table
below is the single source of truth; validateStageTable rejects any
edit that breaks the phase DAG.
*/
type StageDef struct {
	Stage     Stage
	Key       string
	Name      string
	Provider  string
	Model     string
	Phase     int
	DependsOn []Stage
	Output    OutputShape
	SubStages []string
	analyze   analyzerFunc
}

// FanOut reports whether the stage runs once per sub-stage variant.
func (d StageDef) FanOut() bool { return len(d.SubStages) > 0 }

const (
	providerOpenAI = "openai"

	modelStandard = "gpt-4o-mini"
	modelPremium  = "gpt-4o"
)

// socialPlatforms is the fan-out order for the social stage. Order is
// load-bearing: records and context assembly both follow it.
var socialPlatforms = []string{"twitter", "linkedin", "instagram", "facebook"}

// SocialPlatforms returns the social fan-out platforms in run order.
func SocialPlatforms() []string {
	out := make([]string, len(socialPlatforms))
	copy(out, socialPlatforms)
	return out
}

var stageDefs = []StageDef{
	{
		Stage:    StagePreprocess,
		Key:      "preprocess",
		Name:     "Transcript preprocessing",
		Provider: providerOpenAI,
		Model:    modelStandard,
		Phase:    0,
		Output:   OutputStructured,
		analyze:  analyzePreprocess,
	},
	{
		Stage:     StageSummary,
		Key:       "summary",
		Name:      "Episode summary",
		Provider:  providerOpenAI,
		Model:     modelStandard,
		Phase:     1,
		DependsOn: []Stage{StagePreprocess},
		Output:    OutputStructured,
		analyze:   analyzeSummary,
	},
	{
		Stage:     StageQuotes,
		Key:       "quotes",
		Name:      "Quote extraction",
		Provider:  providerOpenAI,
		Model:     modelStandard,
		Phase:     1,
		DependsOn: []Stage{StagePreprocess},
		Output:    OutputStructured,
		analyze:   analyzeQuotes,
	},
	{
		Stage:     StageAudience,
		Key:       "audience",
		Name:      "Audience profile",
		Provider:  providerOpenAI,
		Model:     modelStandard,
		Phase:     1,
		DependsOn: []Stage{StagePreprocess},
		Output:    OutputStructured,
		analyze:   analyzeAudience,
	},
	{
		Stage:     StageTitles,
		Key:       "titles",
		Name:      "Title candidates",
		Provider:  providerOpenAI,
		Model:     modelStandard,
		Phase:     2,
		DependsOn: []Stage{StageSummary, StageAudience},
		Output:    OutputStructured,
		analyze:   analyzeTitles,
	},
	{
		Stage:     StageOutline,
		Key:       "outline",
		Name:      "Blog outline",
		Provider:  providerOpenAI,
		Model:     modelStandard,
		Phase:     3,
		DependsOn: []Stage{StageSummary, StageTitles},
		Output:    OutputStructured,
		analyze:   analyzeOutline,
	},
	{
		Stage:     StageDraft,
		Key:       "draft",
		Name:      "Blog draft",
		Provider:  providerOpenAI,
		Model:     modelPremium,
		Phase:     4,
		DependsOn: []Stage{StageSummary, StageQuotes, StageOutline},
		Output:    OutputBoth,
		analyze:   analyzeDraft,
	},
	{
		Stage:     StageRefine,
		Key:       "refine",
		Name:      "Draft refinement",
		Provider:  providerOpenAI,
		Model:     modelPremium,
		Phase:     5,
		DependsOn: []Stage{StageDraft},
		Output:    OutputText,
		analyze:   analyzeRefine,
	},
	{
		Stage:     StageSEO,
		Key:       "seo",
		Name:      "SEO package",
		Provider:  providerOpenAI,
		Model:     modelStandard,
		Phase:     6,
		DependsOn: []Stage{StageTitles, StageRefine},
		Output:    OutputStructured,
		analyze:   analyzeSEO,
	},
	{
		Stage:     StageSocial,
		Key:       "social",
		Name:      "Social posts",
		Provider:  providerOpenAI,
		Model:     modelStandard,
		Phase:     6,
		DependsOn: []Stage{StageQuotes, StageAudience, StageRefine},
		Output:    OutputStructured,
		SubStages: socialPlatforms,
		analyze:   analyzeSocial,
	},
	{
		Stage:     StageEmail,
		Key:       "email",
		Name:      "Email campaign",
		Provider:  providerOpenAI,
		Model:     modelStandard,
		Phase:     6,
		DependsOn: []Stage{StageSummary, StageRefine},
		Output:    OutputStructured,
		analyze:   analyzeEmail,
	},
}

func defByStage(stage Stage) (StageDef, bool) {
	for _, def := range stageDefs {
		if def.Stage == stage {
			return def, true
		}
	}
	return StageDef{}, false
}

/*
validateStageTable checks the invariants the rest of the package leans
on: dense stage numbers starting at zero, unique keys, an analyzer for
every stage, non-decreasing phases, and a strict phase DAG (every
dependency lives in an earlier phase). Called once from New so a bad
table edit fails fast instead of mid-run.
*/
func validateStageTable(defs []StageDef) error {
	if len(defs) == 0 {
		return fmt.Errorf("stage table is empty")
	}
	keys := map[string]bool{}
	byStage := map[Stage]StageDef{}
	for i, def := range defs {
		if int(def.Stage) != i {
			return fmt.Errorf("stage %d out of order at index %d", def.Stage, i)
		}
		if def.Key == "" {
			return fmt.Errorf("stage %d: key is required", def.Stage)
		}
		if keys[def.Key] {
			return fmt.Errorf("duplicate stage key: %s", def.Key)
		}
		keys[def.Key] = true
		if def.analyze == nil {
			return fmt.Errorf("stage %d (%s): analyzer is required", def.Stage, def.Key)
		}
		if def.Provider == "" || def.Model == "" {
			return fmt.Errorf("stage %d (%s): provider/model is required", def.Stage, def.Key)
		}
		if i > 0 && def.Phase < defs[i-1].Phase {
			return fmt.Errorf("stage %d (%s): phase %d precedes phase %d", def.Stage, def.Key, def.Phase, defs[i-1].Phase)
		}
		subSeen := map[string]bool{}
		for _, sub := range def.SubStages {
			if sub == "" {
				return fmt.Errorf("stage %d (%s): empty sub-stage", def.Stage, def.Key)
			}
			if subSeen[sub] {
				return fmt.Errorf("stage %d (%s): duplicate sub-stage %s", def.Stage, def.Key, sub)
			}
			subSeen[sub] = true
		}
		byStage[def.Stage] = def
	}
	for _, def := range defs {
		for _, dep := range def.DependsOn {
			upstream, ok := byStage[dep]
			if !ok {
				return fmt.Errorf("stage %d (%s): unknown dependency %d", def.Stage, def.Key, dep)
			}
			if upstream.Phase >= def.Phase {
				return fmt.Errorf("stage %d (%s): dependency %d is not in an earlier phase", def.Stage, def.Key, dep)
			}
		}
	}
	return nil
}

// buildStageRecords expands the stage table into the pending records a
// fresh episode needs, one per (stage, sub-stage) pair.
func buildStageRecords(defs []StageDef) []*types.StageRecord {
	var records []*types.StageRecord
	for _, def := range defs {
		subs := def.SubStages
		if len(subs) == 0 {
			subs = []string{""}
		}
		for _, sub := range subs {
			records = append(records, &types.StageRecord{
				StageNumber: int(def.Stage),
				SubStage:    sub,
				StageName:   def.Key,
				Status:      types.StageStatusPending,
				Provider:    def.Provider,
				Model:       def.Model,
			})
		}
	}
	return records
}

/*
stagePhase is one readiness tier of the run: every member task may start
once all earlier phases finished. Tasks are (stage, sub-stage) pairs; a
fan-out stage contributes one task per variant, all in the same phase.
*/
type stagePhase struct {
	Number int
	Tasks  []stageTask
}

type stageTask struct {
	Def StageDef
	Sub string
}

func (t stageTask) label() string {
	if t.Sub == "" {
		return t.Def.Key
	}
	return t.Def.Key + "/" + t.Sub
}

// buildPhases groups stages >= from into ordered phases. A phase whose
// members all precede from is dropped; a phase straddling the boundary
// keeps only the members at or past it.
func buildPhases(defs []StageDef, from Stage) []stagePhase {
	grouped := map[int][]stageTask{}
	for _, def := range defs {
		if def.Stage < from {
			continue
		}
		subs := def.SubStages
		if len(subs) == 0 {
			subs = []string{""}
		}
		for _, sub := range subs {
			grouped[def.Phase] = append(grouped[def.Phase], stageTask{Def: def, Sub: sub})
		}
	}
	numbers := make([]int, 0, len(grouped))
	for n := range grouped {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	phases := make([]stagePhase, 0, len(numbers))
	for _, n := range numbers {
		phases = append(phases, stagePhase{Number: n, Tasks: grouped[n]})
	}
	return phases
}

// totalStageTasks counts the records one full run touches, the
// denominator for percent-complete.
func totalStageTasks(defs []StageDef) int {
	total := 0
	for _, def := range defs {
		if def.FanOut() {
			total += len(def.SubStages)
			continue
		}
		total++
	}
	return total
}
