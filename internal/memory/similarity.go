package memory

import "strings"

// tokenSet lowercases and whitespace-tokenizes text into a word set.
func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(text)) {
		set[w] = struct{}{}
	}
	return set
}

// jaccard is |A∩B| / |A∪B| over word sets. Two empty sets are fully
// similar.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}

	intersection := 0
	for w := range a {
		if _, ok := b[w]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}

// groupBySimilarity partitions events with a single greedy left-to-right
// pass. Each ungrouped event seeds a group and claims every later ungrouped
// event whose similarity to the seed meets the threshold. Membership is
// single-link to the seed only: two members need not be similar to each
// other. Every event lands in exactly one group and relative order is
// preserved inside groups.
func groupBySimilarity(events []*Event, threshold float64) [][]*Event {
	var groups [][]*Event
	used := make([]bool, len(events))

	for i, seed := range events {
		if used[i] {
			continue
		}
		used[i] = true
		group := []*Event{seed}
		seedSet := tokenSet(seed.Text)

		for j := i + 1; j < len(events); j++ {
			if used[j] {
				continue
			}
			if jaccard(seedSet, tokenSet(events[j].Text)) >= threshold {
				group = append(group, events[j])
				used[j] = true
			}
		}
		groups = append(groups, group)
	}

	return groups
}
