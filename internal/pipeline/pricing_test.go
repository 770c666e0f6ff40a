package pipeline

import (
	"math"
	"testing"

	"github.com/yungbote/podforge-backend/internal/platform/logger"
)

func testLog(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func TestCostUSDKnownModel(t *testing.T) {
	log := testLog(t)
	got := costUSD(log, "gpt-4o-mini", 1000, 1000)
	want := 0.00015 + 0.0006
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("cost = %f, want %f", got, want)
	}
	if costUSD(log, "gpt-4o-mini", 0, 0) != 0 {
		t.Fatalf("zero tokens should cost zero")
	}
	if costUSD(log, "gpt-4o-mini", -50, -50) != 0 {
		t.Fatalf("negative tokens should clamp to zero")
	}
}

func TestCostUSDVersionedModelMatchesBase(t *testing.T) {
	log := testLog(t)
	base := costUSD(log, "gpt-4o-mini", 1000, 1000)
	versioned := costUSD(log, "gpt-4o-mini-2024-07-18", 1000, 1000)
	if math.Abs(base-versioned) > 1e-12 {
		t.Fatalf("versioned snapshot priced %f, base %f", versioned, base)
	}

	// Longest prefix wins: gpt-4o-mini-* must not price as gpt-4o.
	fourO := costUSD(log, "gpt-4o", 1000, 1000)
	if math.Abs(versioned-fourO) < 1e-12 {
		t.Fatalf("mini snapshot priced like gpt-4o")
	}
}

func TestCostUSDUnknownModelUsesDefault(t *testing.T) {
	log := testLog(t)
	got := costUSD(log, "some-future-model", 1000, 1000)
	if got <= 0 {
		t.Fatalf("unknown model priced at %f, want default rate > 0", got)
	}
}
