package alerts

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rule assigns a severity to an alert type, optionally gated on a minimum
// detection confidence. Below the gate the rule is skipped and later rules
// or the default apply.
type Rule struct {
	Type          string  `yaml:"type" json:"type"`
	Severity      string  `yaml:"severity" json:"severity"`
	MinConfidence float64 `yaml:"min_confidence" json:"min_confidence"`
}

type Rules struct {
	DefaultSeverity string `yaml:"default_severity" json:"default_severity"`
	Rules           []Rule `yaml:"rules" json:"rules"`
}

func DefaultRules() Rules {
	return Rules{
		DefaultSeverity: "medium",
		Rules: []Rule{
			{Type: "fall", Severity: "critical", MinConfidence: 0.7},
			{Type: "fall", Severity: "high"},
			{Type: "intrusion", Severity: "high"},
		},
	}
}

func LoadRules(path string) (Rules, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("failed to read alert rules: %w", err)
	}

	var rules Rules
	if err := yaml.Unmarshal(content, &rules); err != nil {
		return Rules{}, fmt.Errorf("failed to parse alert rules: %w", err)
	}
	if rules.DefaultSeverity == "" {
		rules.DefaultSeverity = "medium"
	}
	return rules, nil
}

// SeverityFor picks the first rule matching the alert type whose confidence
// gate passes.
func (r Rules) SeverityFor(alertType string, confidence float64) string {
	for _, rule := range r.Rules {
		if rule.Type != alertType {
			continue
		}
		if confidence >= rule.MinConfidence {
			return rule.Severity
		}
	}
	return r.DefaultSeverity
}
