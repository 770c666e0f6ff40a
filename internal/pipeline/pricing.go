package pipeline

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/podforge-backend/internal/platform/logger"
)

const pricingYAMLEnv = "PIPELINE_PRICING_YAML"

//go:embed pricing.yaml
var pricingFS embed.FS

// fallback rates used when the YAML is missing or invalid
var fallbackPricing = pricingTable{
	Models: map[string]modelRate{
		"gpt-4o":      {InputPer1K: 0.0025, OutputPer1K: 0.01},
		"gpt-4o-mini": {InputPer1K: 0.00015, OutputPer1K: 0.0006},
	},
	Default: modelRate{InputPer1K: 0.0025, OutputPer1K: 0.01},
}

type modelRate struct {
	InputPer1K  float64 `yaml:"input_per_1k"`
	OutputPer1K float64 `yaml:"output_per_1k"`
}

type pricingTable struct {
	Pricing string               `yaml:"pricing"`
	Version int                  `yaml:"version"`
	Models  map[string]modelRate `yaml:"models"`
	Default modelRate            `yaml:"default"`
}

var pricingOnce sync.Once
var pricingCache *pricingTable
var pricingErr error

func currentPricingTable(log *logger.Logger) *pricingTable {
	pricingOnce.Do(func() {
		pricingCache, pricingErr = loadPricingTable()
	})
	if pricingErr != nil {
		if log != nil {
			log.Warn("pipeline: pricing table load failed; using fallback", "error", pricingErr)
		}
		return &fallbackPricing
	}
	return pricingCache
}

func loadPricingTable() (*pricingTable, error) {
	data, err := readPricingYAML()
	if err != nil {
		return nil, err
	}
	var table pricingTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, err
	}
	if err := validatePricingTable(&table); err != nil {
		return nil, err
	}
	return &table, nil
}

func readPricingYAML() ([]byte, error) {
	if path := strings.TrimSpace(os.Getenv(pricingYAMLEnv)); path != "" {
		return os.ReadFile(path)
	}
	return pricingFS.ReadFile("pricing.yaml")
}

func validatePricingTable(table *pricingTable) error {
	if table == nil {
		return errors.New("missing pricing table")
	}
	if strings.TrimSpace(table.Pricing) != "model_rates" {
		return fmt.Errorf("unexpected pricing document: %s", table.Pricing)
	}
	if len(table.Models) == 0 {
		return errors.New("no model rates defined")
	}
	for name, rate := range table.Models {
		if strings.TrimSpace(name) == "" {
			return errors.New("model rate name is required")
		}
		if rate.InputPer1K < 0 || rate.OutputPer1K < 0 {
			return fmt.Errorf("model %s: negative rate", name)
		}
	}
	if table.Default.InputPer1K < 0 || table.Default.OutputPer1K < 0 {
		return errors.New("default rate is negative")
	}
	return nil
}

/*
costUSD prices one completion from the per-model rate table. Versioned
model ids (gpt-4o-2024-08-06) resolve by longest matching prefix so new
snapshots price like their base model; unknown models fall back to the
table default rather than pricing at zero.
*/
func costUSD(log *logger.Logger, model string, inputTokens, outputTokens int) float64 {
	if inputTokens < 0 {
		inputTokens = 0
	}
	if outputTokens < 0 {
		outputTokens = 0
	}
	rate := rateForModel(log, model)
	return float64(inputTokens)/1000.0*rate.InputPer1K + float64(outputTokens)/1000.0*rate.OutputPer1K
}

func rateForModel(log *logger.Logger, model string) modelRate {
	table := currentPricingTable(log)
	model = strings.TrimSpace(strings.ToLower(model))
	if model == "" {
		return table.Default
	}
	if rate, ok := table.Models[model]; ok {
		return rate
	}
	bestLen := 0
	best := table.Default
	for name, rate := range table.Models {
		if strings.HasPrefix(model, name) && len(name) > bestLen {
			bestLen = len(name)
			best = rate
		}
	}
	return best
}
