package memory

import (
	"fmt"
	"strings"

	"github.com/nortechlabs/recall/internal/rules"
)

const (
	summaryWindow     = 10
	summaryTopicCount = 5
	suggestionRecall  = 3

	noActivitySummary = "No recent activity available."
	defaultGreeting   = "Hello! Welcome. How can I help you today?"
)

// refreshSummaryLocked recomputes the client's rolling summary from scratch
// out of the newest window of normal events. Called after every mutating
// operation.
func (e *Engine) refreshSummaryLocked(c *ClientData) {
	tail := c.Events
	if len(tail) > summaryWindow {
		tail = tail[len(tail)-summaryWindow:]
	}

	var recent []*Event
	for _, ev := range tail {
		if ev.Quarantined || ev.Channel == SyntheticChannel {
			continue
		}
		recent = append(recent, ev)
	}

	if len(recent) == 0 {
		c.StateSummary = noActivitySummary
		return
	}

	var words []string
	var channels []string
	for _, ev := range recent {
		words = append(words, strings.Fields(strings.ToLower(ev.Text))...)
		if !containsString(channels, ev.Channel) {
			channels = append(channels, ev.Channel)
		}
	}

	topics := topWords(words, summaryTopicCount, func(w string) bool {
		return len(w) <= 2 || e.table.IsStopWord(w)
	})

	c.StateSummary = fmt.Sprintf("Client interacted via %s about: %s.",
		strings.Join(channels, ", "), strings.Join(topics, ", "))
}

// suggestLocked renders an assistive response for the requesting channel.
// Cross-channel recall here carries its usual access-count side effect.
func (e *Engine) suggestLocked(c *ClientData, channel string) string {
	var current []*Event
	for _, ev := range c.Events {
		if ev.Channel == channel && !ev.Quarantined {
			current = append(current, ev)
		}
	}

	cross := e.recallLocked(c, channel, suggestionRecall)
	channelName := e.table.ChannelName(channel)

	if len(current) == 0 && len(cross) == 0 {
		return defaultGreeting
	}

	if len(current) == 0 {
		var otherNames []string
		for _, ev := range cross {
			name := e.table.ChannelName(ev.Channel)
			if !containsString(otherNames, name) {
				otherNames = append(otherNames, name)
			}
		}
		topics := e.describeTopics(cross)

		if len(otherNames) == 1 {
			return fmt.Sprintf("Hello! I can see you already contacted us via %s about %s. How can I keep helping you here on %s?",
				otherNames[0], topics, channelName)
		}
		return fmt.Sprintf("Hello! I found your history via %s about %s. I can pick things up here on %s. What can I do for you?",
			strings.Join(otherNames, " and "), topics, channelName)
	}

	last := current[len(current)-1]
	return e.intentResponse(last, cross)
}

// intentResponse classifies the last message by keyword heuristics and
// renders a canned, context-flavored reply.
func (e *Engine) intentResponse(last *Event, cross []*Event) string {
	text := strings.ToLower(last.Text)
	hasContext := len(cross) > 0

	switch e.classifyIntent(text) {
	case rules.IntentGratitude:
		if hasContext {
			return "Happy to help! If you need anything else related to what we discussed before, I'm here."
		}
		return "You're welcome! Glad to help. If anything else comes up, just ask."

	case rules.IntentFarewell:
		return "Bye for now! Feel free to reach out again any time. Have a great day!"

	case rules.IntentQuestion:
		topics := e.describeTopics(append([]*Event{last}, cross...))
		if hasContext {
			return fmt.Sprintf("Sure! I'll help you with that question about %s. I already have the context from our earlier conversations, so I can give you a complete answer.", topics)
		}
		return fmt.Sprintf("Of course! Let me clear up that question about %s. Give me a moment to check the latest information.", topics)

	case rules.IntentProblem:
		if hasContext {
			return "I understand the problem. I'll go through it together with the history of our conversations to find the best solution. One moment."
		}
		return "I see what's happening. Let me check what might be going on and help you sort it out."

	case rules.IntentRequest:
		topics := e.describeTopics(append([]*Event{last}, cross...))
		if hasContext {
			return fmt.Sprintf("Understood, your request about %s. Since we already have a history together, I can speed this up. Let me check what needs to be done.", topics)
		}
		return fmt.Sprintf("Perfect! I'll process your request about %s. Give me a moment to check the procedure.", topics)

	default:
		if hasContext {
			return fmt.Sprintf("Understood! Considering our earlier conversation about %s, I'll pick the case up from there. How can I help specifically?", e.describeTopics(cross))
		}
		return "Got your message. How can I best help you?"
	}
}

// classifyIntent returns the first intent whose keywords match, or "" when
// none do. A question mark always counts toward the question intent.
func (e *Engine) classifyIntent(text string) string {
	for _, rule := range e.table.Intents {
		matched := false
		for _, kw := range rule.Keywords {
			if strings.Contains(text, kw) {
				matched = true
				break
			}
		}
		if rule.Intent == rules.IntentQuestion && strings.Contains(text, "?") {
			matched = true
		}
		if matched {
			return rule.Intent
		}
	}
	return ""
}

// describeTopics names the topics detected across the events, rendered as a
// natural list ("a, b and c").
func (e *Engine) describeTopics(events []*Event) string {
	var all strings.Builder
	for _, ev := range events {
		all.WriteString(strings.ToLower(ev.Text))
		all.WriteString(" ")
	}
	text := all.String()

	var detected []string
	for _, topic := range e.table.Topics {
		for _, kw := range topic.Keywords {
			if strings.Contains(text, kw) {
				detected = append(detected, topic.Name)
				break
			}
		}
	}

	switch len(detected) {
	case 0:
		return "your requests"
	case 1:
		return detected[0]
	default:
		return strings.Join(detected[:len(detected)-1], ", ") + " and " + detected[len(detected)-1]
	}
}
