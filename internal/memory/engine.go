package memory

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nortechlabs/recall/internal/risk"
	"github.com/nortechlabs/recall/internal/rules"
)

// Persister is the durability port. Load returns the parsed store or an
// empty one; Save failures are logged by the engine and never block the
// in-memory operation that triggered them.
type Persister interface {
	Load() (*Snapshot, error)
	Save(*Snapshot) error
}

// Options tunes per-client defaults. Zero values fall back to the package
// defaults.
type Options struct {
	MaxTokens    int
	MaxEvents    int
	ContextLimit int
}

// Engine owns all client state. Operations are serialized by a single
// mutex: per-client work is read-modify-write over that client's record and
// must not interleave.
type Engine struct {
	mu      sync.Mutex
	clients map[string]*ClientData

	assessor *risk.Assessor
	table    *rules.Table
	store    Persister

	maxTokens    int
	maxEvents    int
	contextLimit int

	now   func() time.Time
	newID func(prefix string) string
}

// RecordResult is the outcome of one recorded interaction.
type RecordResult struct {
	EventID     string
	RiskScore   int
	Quarantined bool
	GCRan       bool
	Suggestion  string
}

// ContextResult is the cross-channel context for one client.
type ContextResult struct {
	StateSummary string
	Events       []Event
	Suggestion   string
}

// NewEngine builds an engine over the given rule table and persistence
// port. State is loaded from the port; a load failure starts empty rather
// than failing startup.
func NewEngine(table *rules.Table, store Persister, opts Options) (*Engine, error) {
	assessor, err := risk.NewAssessor(table)
	if err != nil {
		return nil, fmt.Errorf("build risk assessor: %w", err)
	}

	e := &Engine{
		clients:      make(map[string]*ClientData),
		assessor:     assessor,
		table:        table,
		store:        store,
		maxTokens:    opts.MaxTokens,
		maxEvents:    opts.MaxEvents,
		contextLimit: opts.ContextLimit,
		now:          time.Now,
		newID:        defaultID,
	}
	if e.maxTokens <= 0 {
		e.maxTokens = DefaultMaxTokens
	}
	if e.maxEvents <= 0 {
		e.maxEvents = DefaultMaxEvents
	}
	if e.contextLimit <= 0 {
		e.contextLimit = DefaultContextLimit
	}

	if store != nil {
		snap, err := store.Load()
		if err != nil {
			log.Printf("[memory] load failed, starting empty: %v", err)
		} else if snap != nil {
			e.clients = snap.Clients
			if e.clients == nil {
				e.clients = make(map[string]*ClientData)
			}
		}
	}

	return e, nil
}

func defaultID(prefix string) string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return prefix + "_" + hex[:8]
}

// RecordInteraction appends one interaction, running risk assessment,
// conditional compaction and the summary refresh. Unknown clients are
// created on first write.
func (e *Engine) RecordInteraction(clientID, channel, text string) RecordResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	c := e.clientLocked(clientID, now)

	assessment := e.assessor.Assess(text)
	event := &Event{
		ID:          e.newID("evt"),
		TS:          formatTS(e.appendTimeLocked(c, now)),
		Channel:     channel,
		Text:        text,
		Tokens:      countTokens(text),
		AccessCount: 1,
		Risk:        assessment,
		Quarantined: assessment.Score >= risk.QuarantineThreshold,
	}
	c.Events = append(c.Events, event)

	if !containsString(c.Channels, channel) {
		c.Channels = append(c.Channels, channel)
	}
	c.Profile.UpdatedAt = formatTS(now)

	gcRan := false
	if c.totalTokens() > c.Limits.MaxTokens || len(c.Events) > c.Limits.MaxEvents {
		e.compactLocked(c)
		gcRan = true
	}

	e.refreshSummaryLocked(c)
	suggestion := e.suggestLocked(c, channel)
	e.persistLocked("record")

	return RecordResult{
		EventID:     event.ID,
		RiskScore:   assessment.Score,
		Quarantined: event.Quarantined,
		GCRan:       gcRan,
		Suggestion:  suggestion,
	}
}

// Context returns the client's rolling summary, cross-channel events and a
// suggested response. Fails with ErrClientNotFound for unknown clients.
func (e *Engine) Context(clientID, channel string) (ContextResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.clients[clientID]
	if !ok {
		return ContextResult{}, fmt.Errorf("context for %q: %w", clientID, ErrClientNotFound)
	}

	events := e.recallLocked(c, channel, e.contextLimit)
	suggestion := e.suggestLocked(c, channel)
	e.persistLocked("context")

	out := ContextResult{StateSummary: c.StateSummary, Suggestion: suggestion}
	for _, ev := range events {
		out.Events = append(out.Events, *ev.clone())
	}
	return out, nil
}

// CrossChannel returns up to limit recent events from other channels,
// incrementing each returned event's access count. Unknown clients yield an
// empty result with no side effect.
func (e *Engine) CrossChannel(clientID, channel string, limit int) []Event {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.clients[clientID]
	if !ok {
		return nil
	}

	events := e.recallLocked(c, channel, limit)
	e.persistLocked("recall")

	out := make([]Event, 0, len(events))
	for _, ev := range events {
		out = append(out, *ev.clone())
	}
	return out
}

// Deletion scopes.
const (
	ScopeAll    = "all"
	ScopeEvent  = "event"
	ScopeFields = "fields"
)

// Delete removes memory per scope: the whole client, one event by id, or
// named profile fields. Malformed requests fail with ErrInvalidDelete and
// unknown clients with ErrClientNotFound; nothing is mutated on failure.
func (e *Engine) Delete(clientID, scope, eventID string, fieldKeys []string) error {
	switch scope {
	case ScopeAll:
	case ScopeEvent:
		if eventID == "" {
			return fmt.Errorf("scope=event requires event_id: %w", ErrInvalidDelete)
		}
	case ScopeFields:
		if len(fieldKeys) == 0 {
			return fmt.Errorf("scope=fields requires field_keys: %w", ErrInvalidDelete)
		}
	default:
		return fmt.Errorf("unknown scope %q: %w", scope, ErrInvalidDelete)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.clients[clientID]
	if !ok {
		return fmt.Errorf("delete for %q: %w", clientID, ErrClientNotFound)
	}

	now := formatTS(e.now())

	switch scope {
	case ScopeAll:
		delete(e.clients, clientID)
	case ScopeEvent:
		kept := c.Events[:0]
		for _, ev := range c.Events {
			if ev.ID != eventID {
				kept = append(kept, ev)
			}
		}
		c.Events = kept
		e.refreshSummaryLocked(c)
	case ScopeFields:
		for _, key := range fieldKeys {
			switch key {
			case "name":
				c.Profile.Name = nil
			case "email":
				c.Profile.Email = nil
			case "phone":
				c.Profile.Phone = nil
			case "address":
				c.Profile.Address = nil
			}
		}
		c.Profile.UpdatedAt = now
	}

	if _, exists := e.clients[clientID]; exists {
		c.Meta.LastDelete = &now
	}

	e.persistLocked("delete")
	return nil
}

// Dump returns a deep copy of the whole store, optionally stripping
// quarantined events from every client.
func (e *Engine) Dump(includeQuarantined bool) *Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := (&Snapshot{Clients: e.clients}).Clone()
	if !includeQuarantined {
		for _, c := range snap.Clients {
			kept := c.Events[:0]
			for _, ev := range c.Events {
				if !ev.Quarantined {
					kept = append(kept, ev)
				}
			}
			c.Events = kept
		}
	}
	return snap
}

// ListClients returns all known client ids in sorted order.
func (e *Engine) ListClients() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids := make([]string, 0, len(e.clients))
	for id := range e.clients {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ClientExists reports whether the client id is known. Callers use it to
// tell "no history" apart from "no client".
func (e *Engine) ClientExists(clientID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.clients[clientID]
	return ok
}

// clientLocked returns the client record, creating it on first write.
func (e *Engine) clientLocked(clientID string, now time.Time) *ClientData {
	if c, ok := e.clients[clientID]; ok {
		return c
	}
	c := &ClientData{
		Profile: ClientProfile{UpdatedAt: formatTS(now)},
		Limits:  ClientLimits{MaxTokens: e.maxTokens, MaxEvents: e.maxEvents},
		Meta:    ClientMeta{Version: schemaVersion},
	}
	e.clients[clientID] = c
	return c
}

// appendTimeLocked clamps now to the last event's timestamp so per-client
// timestamps never decrease in insertion order.
func (e *Engine) appendTimeLocked(c *ClientData, now time.Time) time.Time {
	if len(c.Events) == 0 {
		return now
	}
	if last := c.Events[len(c.Events)-1].Time(); now.Before(last) {
		return last
	}
	return now
}

func (e *Engine) persistLocked(op string) {
	if e.store == nil {
		return
	}
	if err := e.store.Save(&Snapshot{Clients: e.clients}); err != nil {
		log.Printf("[memory] save after %s failed: %v", op, err)
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
