package memory

import "testing"

func TestJaccard(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "pay my invoice", "pay my invoice", 1.0},
		{"both empty", "", "", 1.0},
		{"one empty", "pay my invoice", "", 0.0},
		{"disjoint", "pay invoice", "cancel card", 0.0},
		{"half overlap", "pay invoice", "pay card", 1.0 / 3.0},
		{"case folded", "PAY INVOICE", "pay invoice", 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := jaccard(tokenSet(tt.a), tokenSet(tt.b))
			if got != tt.want {
				t.Errorf("jaccard(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestJaccardSymmetric(t *testing.T) {
	a := tokenSet("pay my invoice today")
	b := tokenSet("invoice payment late")
	if jaccard(a, b) != jaccard(b, a) {
		t.Error("jaccard is not symmetric")
	}
}

func TestGroupBySimilarityPartition(t *testing.T) {
	events := []*Event{
		{ID: "a", Text: "pay my invoice now"},
		{ID: "b", Text: "pay my invoice today"},
		{ID: "c", Text: "cancel the card"},
		{ID: "d", Text: "pay my invoice please"},
	}

	groups := groupBySimilarity(events, 0.3)

	total := 0
	seen := make(map[string]bool)
	for _, g := range groups {
		for _, ev := range g {
			if seen[ev.ID] {
				t.Errorf("event %s appears in more than one group", ev.ID)
			}
			seen[ev.ID] = true
			total++
		}
	}
	if total != len(events) {
		t.Errorf("grouped %d events, want %d", total, len(events))
	}

	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2: %v", len(groups), groupIDs(groups))
	}
	if len(groups[0]) != 3 {
		t.Errorf("first group has %d members, want a, b, d", len(groups[0]))
	}
	if groups[1][0].ID != "c" {
		t.Errorf("second group = %v, want the dissimilar event alone", groupIDs(groups[1:]))
	}
}

func TestGroupBySimilaritySingleLinkToSeed(t *testing.T) {
	// b and c each overlap the seed enough to join, even though b and c
	// share nothing with each other.
	events := []*Event{
		{ID: "seed", Text: "alpha beta gamma delta"},
		{ID: "b", Text: "alpha beta one two"},
		{ID: "c", Text: "gamma delta three four"},
	}

	groups := groupBySimilarity(events, 0.3)
	if len(groups) != 1 || len(groups[0]) != 3 {
		t.Errorf("got groups %v, want one group of three", groupIDs(groups))
	}
}

func TestGroupBySimilarityEmpty(t *testing.T) {
	if groups := groupBySimilarity(nil, 0.3); len(groups) != 0 {
		t.Errorf("got %d groups for no events, want 0", len(groups))
	}
}

func groupIDs(groups [][]*Event) [][]string {
	out := make([][]string, 0, len(groups))
	for _, g := range groups {
		ids := make([]string, 0, len(g))
		for _, ev := range g {
			ids = append(ids, ev.ID)
		}
		out = append(out, ids)
	}
	return out
}
