package alerts

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSeverityForConfidenceGate(t *testing.T) {
	rules := DefaultRules()

	if got := rules.SeverityFor("fall", 0.92); got != "critical" {
		t.Fatalf("expected critical for confident fall, got %s", got)
	}
	if got := rules.SeverityFor("fall", 0.4); got != "high" {
		t.Fatalf("expected high for low-confidence fall, got %s", got)
	}
	if got := rules.SeverityFor("intrusion", 0.1); got != "high" {
		t.Fatalf("expected high for intrusion, got %s", got)
	}
	if got := rules.SeverityFor("wandering", 0.9); got != "medium" {
		t.Fatalf("expected default severity for unknown type, got %s", got)
	}
}

func TestLoadRulesFromFile(t *testing.T) {
	content := `
default_severity: low
rules:
  - type: fall
    severity: critical
    min_confidence: 0.5
`
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write rules file: %v", err)
	}

	rules, err := LoadRules(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rules.DefaultSeverity != "low" {
		t.Fatalf("unexpected default severity: %s", rules.DefaultSeverity)
	}
	if got := rules.SeverityFor("fall", 0.6); got != "critical" {
		t.Fatalf("expected critical, got %s", got)
	}
	if got := rules.SeverityFor("fall", 0.2); got != "low" {
		t.Fatalf("expected fallback to default, got %s", got)
	}

	if _, err := LoadRules(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
