package memory

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nortechlabs/recall/internal/risk"
)

// GCReport summarizes one compaction run.
type GCReport struct {
	EventsBefore   int  `json:"events_before"`
	EventsAfter    int  `json:"events_after"`
	TokensBefore   int  `json:"tokens_before"`
	TokensAfter    int  `json:"tokens_after"`
	SummaryUpdated bool `json:"summary_updated"`
}

// ForceGC compacts one client on demand. Fails with ErrClientNotFound for
// unknown clients, with no mutation.
func (e *Engine) ForceGC(clientID string) (GCReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.clients[clientID]
	if !ok {
		return GCReport{}, fmt.Errorf("gc for %q: %w", clientID, ErrClientNotFound)
	}

	report := GCReport{EventsBefore: len(c.Events), TokensBefore: c.totalTokens()}
	e.compactLocked(c)
	report.EventsAfter = len(c.Events)
	report.TokensAfter = c.totalTokens()
	report.SummaryUpdated = true

	e.persistLocked("gc")
	return report, nil
}

// SweepGC compacts every client currently over its limits and returns how
// many were compacted.
func (e *Engine) SweepGC() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	compacted := 0
	for _, c := range e.clients {
		if c.totalTokens() > c.Limits.MaxTokens || len(c.Events) > c.Limits.MaxEvents {
			e.compactLocked(c)
			compacted++
		}
	}
	if compacted > 0 {
		e.persistLocked("sweep")
	}
	return compacted
}

// compactLocked rewrites the client's event list: quarantined events pass
// through untouched and end up last, the newest RecentWindow normal events
// stay verbatim, and older normal events are clustered by similarity with
// each cluster of two or more folded into one synthetic summary event.
// Running it again without new events removes nothing further.
func (e *Engine) compactLocked(c *ClientData) {
	var quarantined, normal []*Event
	for _, ev := range c.Events {
		if ev.Quarantined {
			quarantined = append(quarantined, ev)
		} else {
			normal = append(normal, ev)
		}
	}

	recent := normal
	var old []*Event
	if len(normal) > RecentWindow {
		old = normal[:len(normal)-RecentWindow]
		recent = normal[len(normal)-RecentWindow:]
	}

	var processed []*Event
	for _, group := range groupBySimilarity(old, SimilarityThreshold) {
		if len(group) == 1 {
			processed = append(processed, group[0])
			continue
		}

		text := e.groupSummary(group)
		accessTotal := 0
		for _, ev := range group {
			accessTotal += ev.AccessCount
		}
		processed = append(processed, &Event{
			ID:          e.newID("mem"),
			TS:          formatTS(e.now()),
			Channel:     SyntheticChannel,
			Text:        text,
			Tokens:      countTokens(text),
			AccessCount: accessTotal,
			Risk:        risk.Assessment{Signals: []string{}},
			Quarantined: false,
		})
	}

	events := make([]*Event, 0, len(processed)+len(recent)+len(quarantined))
	events = append(events, processed...)
	events = append(events, recent...)
	events = append(events, quarantined...)
	c.Events = events

	now := formatTS(e.now())
	c.Limits.LastGCAt = &now
	e.refreshSummaryLocked(c)
}

// groupSummary derives the replacement text for a similarity cluster: the
// member text itself for singletons (truncated), otherwise the cluster's
// most frequent words plus the channels involved.
func (e *Engine) groupSummary(group []*Event) string {
	if len(group) == 1 {
		text := group[0].Text
		if len(text) > 100 {
			return text[:100] + "..."
		}
		return text
	}

	var words []string
	for _, ev := range group {
		words = append(words, strings.Fields(strings.ToLower(ev.Text))...)
	}
	top := topWords(words, 5, nil)

	var channels []string
	for _, ev := range group {
		if !containsString(channels, ev.Channel) {
			channels = append(channels, ev.Channel)
		}
	}

	return fmt.Sprintf("Multiple interactions about: %s (channels: %s)",
		strings.Join(top, ", "), strings.Join(channels, ", "))
}

// topWords returns the n most frequent words, skipping any for which skip
// returns true. Ties break toward earlier first occurrence.
func topWords(words []string, n int, skip func(string) bool) []string {
	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	var order []string
	for i, w := range words {
		if skip != nil && skip(w) {
			continue
		}
		if _, ok := counts[w]; !ok {
			firstSeen[w] = i
			order = append(order, w)
		}
		counts[w]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		if counts[order[i]] != counts[order[j]] {
			return counts[order[i]] > counts[order[j]]
		}
		return firstSeen[order[i]] < firstSeen[order[j]]
	})

	if len(order) > n {
		order = order[:n]
	}
	return order
}
