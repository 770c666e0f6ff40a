package pipeline

import (
	"testing"

	types "github.com/yungbote/podforge-backend/internal/domain/content"
)

func TestStageTableIsValid(t *testing.T) {
	if err := validateStageTable(stageDefs); err != nil {
		t.Fatalf("stage table invalid: %v", err)
	}
	if len(stageDefs) != int(LastStage)+1 {
		t.Fatalf("stage defs = %d, want %d", len(stageDefs), int(LastStage)+1)
	}
}

func TestStageTableValidationCatchesBadEdits(t *testing.T) {
	clone := func() []StageDef {
		out := make([]StageDef, len(stageDefs))
		copy(out, stageDefs)
		return out
	}

	bad := clone()
	bad[3].Stage = bad[2].Stage
	if err := validateStageTable(bad); err == nil {
		t.Fatalf("duplicate stage number accepted")
	}

	bad = clone()
	bad[5].Phase = 1
	if err := validateStageTable(bad); err == nil {
		t.Fatalf("dependency in same phase accepted")
	}

	bad = clone()
	bad[1].DependsOn = []Stage{Stage(99)}
	if err := validateStageTable(bad); err == nil {
		t.Fatalf("unknown dependency accepted")
	}

	bad = clone()
	bad[9].SubStages = []string{"twitter", "twitter"}
	if err := validateStageTable(bad); err == nil {
		t.Fatalf("duplicate sub-stage accepted")
	}
}

func TestBuildStageRecords(t *testing.T) {
	records := buildStageRecords(stageDefs)
	if len(records) != totalStageTasks(stageDefs) {
		t.Fatalf("record count = %d, want %d", len(records), totalStageTasks(stageDefs))
	}

	social := 0
	for _, rec := range records {
		if rec.Status != types.StageStatusPending {
			t.Fatalf("fresh record status = %s", rec.Status)
		}
		if rec.Provider == "" || rec.Model == "" || rec.StageName == "" {
			t.Fatalf("record identity incomplete: %+v", rec)
		}
		if rec.StageNumber == int(StageSocial) {
			social++
			if rec.SubStage == "" {
				t.Fatalf("social record missing sub-stage")
			}
		} else if rec.SubStage != "" {
			t.Fatalf("stage %d unexpectedly fanned out", rec.StageNumber)
		}
	}
	if social != len(socialPlatforms) {
		t.Fatalf("social records = %d, want %d", social, len(socialPlatforms))
	}
}

func TestBuildPhases(t *testing.T) {
	full := buildPhases(stageDefs, 0)
	if len(full) != 7 {
		t.Fatalf("full run phases = %d, want 7", len(full))
	}
	for i := 1; i < len(full); i++ {
		if full[i].Number <= full[i-1].Number {
			t.Fatalf("phases out of order: %d then %d", full[i-1].Number, full[i].Number)
		}
	}
	if len(full[1].Tasks) != 3 {
		t.Fatalf("analysis phase tasks = %d, want 3", len(full[1].Tasks))
	}

	last := full[len(full)-1]
	// SEO, four social variants, email.
	if len(last.Tasks) != 2+len(socialPlatforms) {
		t.Fatalf("final phase tasks = %d, want %d", len(last.Tasks), 2+len(socialPlatforms))
	}

	// Resuming mid-pipeline drops finished phases and trims the boundary
	// phase to the members at or past the resume point.
	fromRefine := buildPhases(stageDefs, StageRefine)
	if len(fromRefine) != 2 {
		t.Fatalf("resume-from-refine phases = %d, want 2", len(fromRefine))
	}
	if fromRefine[0].Tasks[0].Def.Stage != StageRefine {
		t.Fatalf("resume starts at stage %d, want refine", fromRefine[0].Tasks[0].Def.Stage)
	}

	fromEmail := buildPhases(stageDefs, StageEmail)
	if len(fromEmail) != 1 || len(fromEmail[0].Tasks) != 1 {
		t.Fatalf("resume-from-email = %+v, want single task", fromEmail)
	}
}

func TestStageTaskLabel(t *testing.T) {
	plain := stageTask{Def: StageDef{Key: "summary"}}
	if plain.label() != "summary" {
		t.Fatalf("label = %q", plain.label())
	}
	fan := stageTask{Def: StageDef{Key: "social"}, Sub: "twitter"}
	if fan.label() != "social/twitter" {
		t.Fatalf("label = %q", fan.label())
	}
}
