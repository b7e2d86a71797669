package risk

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nortechlabs/recall/internal/rules"
)

const (
	// QuarantineThreshold is the score at or above which an event is
	// quarantined at creation.
	QuarantineThreshold = 60

	patternWeight  = 25
	longTextWeight = 15
	densityWeight  = 10

	longTextChars     = 2000
	densityKeywordMax = 3
	codeFenceMax      = 5
)

// Assessment is the result of scoring one piece of text. Signals are in
// detection order and may repeat descriptions.
type Assessment struct {
	Score   int      `json:"score"`
	Signals []string `json:"signals"`
}

// Assessor scores text for injection and exfiltration signals. It is
// stateless: the same text always yields the same assessment.
type Assessor struct {
	patterns       []compiledPattern
	densityKeyword string
}

type compiledPattern struct {
	re          *regexp.Regexp
	description string
}

// NewAssessor compiles the rule table's risk patterns.
func NewAssessor(table *rules.Table) (*Assessor, error) {
	a := &Assessor{densityKeyword: table.DensityKeyword}
	for _, p := range table.RiskPatterns {
		re, err := regexp.Compile("(?i)" + p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("compile risk pattern %q: %w", p.Pattern, err)
		}
		a.patterns = append(a.patterns, compiledPattern{re: re, description: p.Description})
	}
	return a, nil
}

// Assess scores text in [0,100]. It never fails; empty text scores 0 with
// no signals.
func (a *Assessor) Assess(text string) Assessment {
	assessment := Assessment{Signals: []string{}}
	lower := strings.ToLower(text)

	for _, p := range a.patterns {
		if p.re.MatchString(lower) {
			assessment.Score += patternWeight
			assessment.Signals = append(assessment.Signals, "suspicious pattern: "+p.description)
		}
	}

	if len(text) > longTextChars {
		assessment.Score += longTextWeight
		assessment.Signals = append(assessment.Signals, "excessively long text")
	}

	keywordCount := 0
	if a.densityKeyword != "" {
		keywordCount = strings.Count(lower, a.densityKeyword)
	}
	fenceCount := strings.Count(text, "```")
	if keywordCount > densityKeywordMax || fenceCount > codeFenceMax {
		assessment.Score += densityWeight
		assessment.Signals = append(assessment.Signals, "anomalous density of technical markers")
	}

	if assessment.Score > 100 {
		assessment.Score = 100
	}
	return assessment
}
