package rules

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultTable(t *testing.T) {
	table := Default()

	if len(table.RiskPatterns) == 0 {
		t.Error("default table has no risk patterns")
	}
	if table.DensityKeyword == "" {
		t.Error("default table has no density keyword")
	}
	if len(table.StopWords) == 0 {
		t.Error("default table has no stop words")
	}
	if len(table.Intents) == 0 {
		t.Error("default table has no intents")
	}
}

func TestChannelName(t *testing.T) {
	table := Default()

	if got := table.ChannelName("email"); got != "e-mail" {
		t.Errorf("ChannelName(email) = %q, want %q", got, "e-mail")
	}
	if got := table.ChannelName("carrier-pigeon"); got != "carrier-pigeon" {
		t.Errorf("ChannelName fallback = %q, want the tag itself", got)
	}
}

func TestIsStopWord(t *testing.T) {
	table := Default()

	if !table.IsStopWord("the") {
		t.Error("IsStopWord(the) = false, want true")
	}
	if table.IsStopWord("invoice") {
		t.Error("IsStopWord(invoice) = true, want false")
	}
}

func TestLoadEmptyPath(t *testing.T) {
	table, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") failed: %v", err)
	}
	if len(table.RiskPatterns) != len(Default().RiskPatterns) {
		t.Error("empty path should yield the default table")
	}
}

func TestLoadMissingFile(t *testing.T) {
	table, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load on missing file failed: %v", err)
	}
	if table.DensityKeyword != Default().DensityKeyword {
		t.Error("missing file should yield the default table")
	}
}

func TestLoadOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `density_keyword: sistema
channel_names:
  chat: chat web
intents:
  - intent: gratitude
    keywords: [obrigado, valeu]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write rules file: %v", err)
	}

	table, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if table.DensityKeyword != "sistema" {
		t.Errorf("DensityKeyword = %q, want overlay value", table.DensityKeyword)
	}
	if got := table.ChannelName("chat"); got != "chat web" {
		t.Errorf("ChannelName(chat) = %q, want overlay value", got)
	}
	if len(table.Intents) != 1 || table.Intents[0].Intent != IntentGratitude {
		t.Errorf("Intents = %+v, want single overlay intent", table.Intents)
	}

	// Sections absent from the overlay keep their defaults.
	if len(table.RiskPatterns) != len(Default().RiskPatterns) {
		t.Error("overlay without risk_patterns should keep defaults")
	}
	if len(table.StopWords) == 0 {
		t.Error("overlay without stop_words should keep defaults")
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte("{not yaml: ["), 0644); err != nil {
		t.Fatalf("write rules file: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed rules file")
	}
}
