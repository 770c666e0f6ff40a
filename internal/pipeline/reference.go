package pipeline

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	types "github.com/yungbote/podforge-backend/internal/domain/content"
	"github.com/yungbote/podforge-backend/internal/platform/logger"
)

const guidelinesYAMLEnv = "PIPELINE_GUIDELINES_YAML"

//go:embed guidelines.yaml
var guidelinesFS embed.FS

const fallbackReference = "Tone: confident, warm, practical\n" +
	"Audience: busy professionals who skim first and read later\n" +
	"Rules:\n- Lead with the payoff, then the detail.\n- Never invent facts that are not in the episode."

type guidelinesDoc struct {
	Guidelines string `yaml:"guidelines"`
	Version    int    `yaml:"version"`
	Voice      struct {
		Tone     string   `yaml:"tone"`
		Audience string   `yaml:"audience"`
		Rules    []string `yaml:"rules"`
	} `yaml:"voice"`
}

var guidelinesOnce sync.Once
var guidelinesCache string
var guidelinesErr error

// defaultReference is the voice reference used when an episode has no
// brand profile. Loaded once from the embedded YAML (or the env override
// path) and rendered to the prompt-ready text block analyzers consume.
func defaultReference(log *logger.Logger) string {
	guidelinesOnce.Do(func() {
		guidelinesCache, guidelinesErr = loadGuidelines()
	})
	if guidelinesErr != nil {
		if log != nil {
			log.Warn("pipeline: guidelines load failed; using fallback", "error", guidelinesErr)
		}
		return fallbackReference
	}
	return guidelinesCache
}

func loadGuidelines() (string, error) {
	data, err := readGuidelinesYAML()
	if err != nil {
		return "", err
	}
	var doc guidelinesDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return "", err
	}
	if strings.TrimSpace(doc.Guidelines) != "voice_defaults" {
		return "", fmt.Errorf("unexpected guidelines document: %s", doc.Guidelines)
	}
	if doc.Voice.Tone == "" && doc.Voice.Audience == "" && len(doc.Voice.Rules) == 0 {
		return "", errors.New("guidelines document is empty")
	}
	return renderReference(doc.Voice.Tone, doc.Voice.Audience, doc.Voice.Rules), nil
}

func readGuidelinesYAML() ([]byte, error) {
	if path := strings.TrimSpace(os.Getenv(guidelinesYAMLEnv)); path != "" {
		return os.ReadFile(path)
	}
	return guidelinesFS.ReadFile("guidelines.yaml")
}

// brandReference renders a brand profile into the same text block shape
// as the defaults so analyzers never branch on the source.
func brandReference(bp *types.BrandProfile) string {
	if bp == nil {
		return ""
	}
	rules := make([]string, 0, 8)
	for _, vp := range bp.ValuePropList() {
		if vp = strings.TrimSpace(vp); vp != "" {
			rules = append(rules, "Reinforce: "+vp)
		}
	}
	if g := strings.TrimSpace(bp.Guidelines); g != "" {
		for _, line := range strings.Split(g, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				rules = append(rules, line)
			}
		}
	}
	return renderReference(bp.Tone, bp.Audience, rules)
}

func renderReference(tone, audience string, rules []string) string {
	var sb strings.Builder
	if tone = strings.TrimSpace(tone); tone != "" {
		sb.WriteString("Tone: " + tone + "\n")
	}
	if audience = strings.TrimSpace(audience); audience != "" {
		sb.WriteString("Audience: " + audience + "\n")
	}
	if len(rules) > 0 {
		sb.WriteString("Rules:\n")
		for _, r := range rules {
			if r = strings.TrimSpace(r); r != "" {
				sb.WriteString("- " + r + "\n")
			}
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
