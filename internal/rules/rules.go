package rules

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Table holds every keyword and pattern list the engine consults. The engine
// itself is language-neutral; swapping the table localizes risk detection,
// summaries and suggestions without touching any contract.
type Table struct {
	// RiskPatterns are matched case-insensitively against interaction text.
	RiskPatterns []RiskPattern `yaml:"risk_patterns"`
	// DensityKeyword is the substring whose repetition (>3) trips the
	// keyword-density signal.
	DensityKeyword string `yaml:"density_keyword"`
	// StopWords are dropped before topic extraction in the rolling summary.
	StopWords []string `yaml:"stop_words"`
	// Intents are checked in order; the first whose keywords match wins.
	Intents []IntentRule `yaml:"intents"`
	// Topics map display names to the keywords that reveal them.
	Topics []TopicRule `yaml:"topics"`
	// ChannelNames map channel tags to human-facing names for suggestions.
	ChannelNames map[string]string `yaml:"channel_names"`
}

type RiskPattern struct {
	Category    string `yaml:"category"`
	Pattern     string `yaml:"pattern"`
	Description string `yaml:"description"`
}

type IntentRule struct {
	Intent   string   `yaml:"intent"`
	Keywords []string `yaml:"keywords"`
}

type TopicRule struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Intent names used by the suggestion generator.
const (
	IntentGratitude = "gratitude"
	IntentFarewell  = "farewell"
	IntentQuestion  = "question"
	IntentProblem   = "problem"
	IntentRequest   = "request"
)

// Default returns the built-in English table.
func Default() *Table {
	return &Table{
		RiskPatterns: []RiskPattern{
			{Category: "instruction-override", Pattern: `ignore\s+previous\s+instructions`, Description: "instruction override attempt"},
			{Category: "role-elevation", Pattern: `act\s+as\s+(system|developer|root|administrator)`, Description: "role elevation attempt"},
			{Category: "jailbreak", Pattern: `begin_system_instructions`, Description: "system prompt marker"},
			{Category: "jailbreak", Pattern: `developer\s+mode`, Description: "developer mode marker"},
			{Category: "jailbreak", Pattern: `bypass\s+(safeguards|policies)`, Description: "safeguard bypass attempt"},
			{Category: "jailbreak", Pattern: `jailbreak`, Description: "jailbreak marker"},
			{Category: "credential-exfiltration", Pattern: `leak\s+(all\s+)?(api|secrets?|keys?|passwords?)`, Description: "credential exfiltration attempt"},
			{Category: "financial-pii", Pattern: `credit\s+card\s+(number|details|cvv)`, Description: "card data exfiltration attempt"},
			{Category: "financial-pii", Pattern: `(bank|banking)\s+(password|pin)`, Description: "banking secret exfiltration attempt"},
		},
		DensityKeyword: "system",
		StopWords: []string{
			"the", "a", "an", "and", "or", "but", "if", "of", "to", "in",
			"on", "at", "for", "with", "about", "as", "is", "are", "was",
			"were", "be", "been", "being", "it", "its", "this", "that",
			"these", "those", "i", "you", "he", "she", "we", "they", "my",
			"your", "our", "their", "me", "him", "her", "them", "us", "do",
			"does", "did", "have", "has", "had", "not", "no", "yes", "so",
			"just", "can", "could", "would", "should", "will", "there",
			"here", "from", "please", "hello", "hi",
		},
		Intents: []IntentRule{
			{Intent: IntentGratitude, Keywords: []string{"thank", "thanks", "appreciate", "grateful"}},
			{Intent: IntentFarewell, Keywords: []string{"bye", "goodbye", "farewell", "see you"}},
			{Intent: IntentQuestion, Keywords: []string{"how", "when", "where", "what", "which", "can i", "could i"}},
			{Intent: IntentProblem, Keywords: []string{"problem", "error", "issue", "trouble", "can't", "cannot", "unable", "doesn't work"}},
			{Intent: IntentRequest, Keywords: []string{"want", "need", "would like", "request"}},
		},
		Topics: []TopicRule{
			{Name: "installments", Keywords: []string{"installment", "installments", "instalment", "split the payment"}},
			{Name: "address change", Keywords: []string{"address", "relocation", "moving", "zip code", "postcode"}},
			{Name: "card", Keywords: []string{"card", "statement", "invoice"}},
			{Name: "payment", Keywords: []string{"pay", "payment", "bill", "transfer", "wire"}},
			{Name: "cancellation", Keywords: []string{"cancel", "cancellation", "terminate", "deactivate"}},
			{Name: "general inquiries", Keywords: []string{"question", "information", "know", "wondering"}},
			{Name: "a problem", Keywords: []string{"problem", "error", "issue", "trouble", "broken"}},
		},
		ChannelNames: map[string]string{
			"chat":     "web chat",
			"webchat":  "web chat",
			"email":    "e-mail",
			"voice":    "phone",
			"whatsapp": "WhatsApp",
			"sms":      "SMS",
			"telegram": "Telegram",
		},
	}
}

// Load returns the default table overlaid with any fields present in the
// YAML file at path. An empty path or missing file yields the defaults.
func Load(path string) (*Table, error) {
	table := Default()

	path = strings.TrimSpace(path)
	if path == "" {
		return table, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return table, nil
		}
		return nil, fmt.Errorf("read rules file %q: %w", path, err)
	}

	var overlay Table
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("parse rules file %q: %w", path, err)
	}

	if len(overlay.RiskPatterns) > 0 {
		table.RiskPatterns = overlay.RiskPatterns
	}
	if overlay.DensityKeyword != "" {
		table.DensityKeyword = overlay.DensityKeyword
	}
	if len(overlay.StopWords) > 0 {
		table.StopWords = overlay.StopWords
	}
	if len(overlay.Intents) > 0 {
		table.Intents = overlay.Intents
	}
	if len(overlay.Topics) > 0 {
		table.Topics = overlay.Topics
	}
	if len(overlay.ChannelNames) > 0 {
		table.ChannelNames = overlay.ChannelNames
	}

	return table, nil
}

// ChannelName returns the display name for a channel tag, falling back to
// the tag itself.
func (t *Table) ChannelName(channel string) string {
	if name, ok := t.ChannelNames[channel]; ok {
		return name
	}
	return channel
}

// IsStopWord reports whether the lowercased token is in the stop-word list.
func (t *Table) IsStopWord(token string) bool {
	for _, w := range t.StopWords {
		if w == token {
			return true
		}
	}
	return false
}
