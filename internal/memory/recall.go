package memory

import "sort"

// recallLocked returns up to limit events from channels other than the
// requesting one, newest first, skipping quarantined and synthetic events.
// Each returned event's access count is incremented exactly once.
func (e *Engine) recallLocked(c *ClientData, channel string, limit int) []*Event {
	if limit <= 0 {
		limit = DefaultContextLimit
	}

	var candidates []*Event
	for _, ev := range c.Events {
		if ev.Channel == channel || ev.Channel == SyntheticChannel || ev.Quarantined {
			continue
		}
		candidates = append(candidates, ev)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Time().After(candidates[j].Time())
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	for _, ev := range candidates {
		ev.AccessCount++
	}
	return candidates
}
