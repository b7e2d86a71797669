package memory

import (
	"strings"
	"time"

	"github.com/nortechlabs/recall/internal/risk"
)

// SyntheticChannel tags events produced by compaction. They are excluded
// from recall and summaries.
const SyntheticChannel = "memory"

const (
	// DefaultMaxTokens and DefaultMaxEvents are the per-client compaction
	// triggers applied to newly created clients.
	DefaultMaxTokens = 2500
	DefaultMaxEvents = 200

	// RecentWindow is the number of newest normal events compaction keeps
	// verbatim.
	RecentWindow = 10

	// SimilarityThreshold is the minimum Jaccard similarity for an event to
	// join a compaction group.
	SimilarityThreshold = 0.3

	// DefaultContextLimit is the cross-channel recall result size.
	DefaultContextLimit = 5

	schemaVersion = 1
)

// tsLayout is fixed-width UTC so stored timestamps sort lexicographically.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Event is one recorded interaction. Immutable after creation except for
// AccessCount, which recall increments.
type Event struct {
	ID          string          `json:"id"`
	TS          string          `json:"ts"`
	Channel     string          `json:"channel"`
	Text        string          `json:"text"`
	Tokens      int             `json:"tokens"`
	AccessCount int             `json:"access_count"`
	Risk        risk.Assessment `json:"risk"`
	Quarantined bool            `json:"quarantined"`
}

// Time parses the event timestamp; zero time if unparseable.
func (e *Event) Time() time.Time {
	return parseTS(e.TS)
}

// ClientProfile holds optional contact attributes.
type ClientProfile struct {
	Name      *string `json:"name"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
	Address   *string `json:"address"`
	UpdatedAt string  `json:"updated_at"`
}

// ClientLimits holds the per-client compaction triggers.
type ClientLimits struct {
	MaxTokens int     `json:"max_tokens"`
	MaxEvents int     `json:"max_events"`
	LastGCAt  *string `json:"last_gc_at"`
}

// ClientMeta tracks schema version and deletion bookkeeping.
type ClientMeta struct {
	Version    int     `json:"version"`
	LastDelete *string `json:"last_delete"`
}

// ClientData owns everything known about one client.
type ClientData struct {
	Profile      ClientProfile `json:"profile"`
	StateSummary string        `json:"state_summary"`
	Channels     []string      `json:"channels"`
	Events       []*Event      `json:"interactions"`
	Limits       ClientLimits  `json:"limits"`
	Meta         ClientMeta    `json:"meta"`
}

// Snapshot is the full store document, keyed by client id. This is also the
// persisted JSON format.
type Snapshot struct {
	Clients map[string]*ClientData `json:"clients"`
}

// NewSnapshot returns an empty store document.
func NewSnapshot() *Snapshot {
	return &Snapshot{Clients: make(map[string]*ClientData)}
}

// Clone deep-copies the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	out := NewSnapshot()
	for id, c := range s.Clients {
		out.Clients[id] = c.clone()
	}
	return out
}

func (c *ClientData) clone() *ClientData {
	out := &ClientData{
		Profile:      c.Profile,
		StateSummary: c.StateSummary,
		Channels:     append([]string(nil), c.Channels...),
		Limits:       c.Limits,
		Meta:         c.Meta,
	}
	out.Profile.Name = clonePtr(c.Profile.Name)
	out.Profile.Email = clonePtr(c.Profile.Email)
	out.Profile.Phone = clonePtr(c.Profile.Phone)
	out.Profile.Address = clonePtr(c.Profile.Address)
	out.Limits.LastGCAt = clonePtr(c.Limits.LastGCAt)
	out.Meta.LastDelete = clonePtr(c.Meta.LastDelete)
	for _, e := range c.Events {
		out.Events = append(out.Events, e.clone())
	}
	return out
}

func (e *Event) clone() *Event {
	cloned := *e
	cloned.Risk.Signals = append([]string(nil), e.Risk.Signals...)
	return &cloned
}

func clonePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func (c *ClientData) totalTokens() int {
	total := 0
	for _, e := range c.Events {
		total += e.Tokens
	}
	return total
}

// countTokens approximates token usage by whitespace-delimited word count.
func countTokens(text string) int {
	return len(strings.Fields(text))
}

func formatTS(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

func parseTS(s string) time.Time {
	for _, layout := range []string{tsLayout, time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
