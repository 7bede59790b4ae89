package agent

import (
	"fmt"
	"strings"
)

// DefaultStepLimit bounds the number of planning rounds before a final
// answer is forced.
const DefaultStepLimit = 10

// ResearchContext is the mutable state accumulated across the agent loop.
// It is exclusively owned by the loop for the lifetime of one request: the
// loop appends to it on its own goroutine and every other component only
// reads through the accessor methods.
type ResearchContext struct {
	step          int
	stepLimit     int
	searchHistory []SearchRecord
	feedback      string
	conversation  []ChatMessage
	location      *UserLocation
}

func NewResearchContext(conversation []ChatMessage, location *UserLocation) *ResearchContext {
	return &ResearchContext{
		stepLimit:    DefaultStepLimit,
		conversation: conversation,
		location:     location,
	}
}

// WithStepLimit overrides the default step limit. Values < 1 are ignored.
func (c *ResearchContext) WithStepLimit(limit int) *ResearchContext {
	if limit >= 1 {
		c.stepLimit = limit
	}
	return c
}

func (c *ResearchContext) Step() int {
	return c.step
}

// IncrementStep advances the step counter by one. There is no way to move
// it backwards.
func (c *ResearchContext) IncrementStep() {
	c.step++
}

// ShouldStop reports whether the step limit has been reached. Pure
// predicate, no side effects.
func (c *ResearchContext) ShouldStop() bool {
	return c.step >= c.stepLimit
}

// ReportSearch appends a completed query's record to the history. History
// grows monotonically; no removal operation exists.
func (c *ResearchContext) ReportSearch(record SearchRecord) {
	c.searchHistory = append(c.searchHistory, record)
}

// SearchHistory returns the accumulated records in append order.
func (c *ResearchContext) SearchHistory() []SearchRecord {
	return c.searchHistory
}

// UpdateFeedback replaces the stored evaluator feedback.
func (c *ResearchContext) UpdateFeedback(text string) {
	c.feedback = text
}

func (c *ResearchContext) Feedback() string {
	return c.feedback
}

func (c *ResearchContext) Conversation() []ChatMessage {
	return c.conversation
}

func (c *ResearchContext) Location() *UserLocation {
	return c.location
}

// LatestQuestion returns the most recent user message, or "" if none exists.
func (c *ResearchContext) LatestQuestion() string {
	for i := len(c.conversation) - 1; i >= 0; i-- {
		if c.conversation[i].Role == "user" {
			return c.conversation[i].Content
		}
	}
	return ""
}

// RenderConversation renders the conversation as a single text block for
// prompting. Pure function of current state.
func (c *ResearchContext) RenderConversation() string {
	var b strings.Builder
	for _, msg := range c.conversation {
		fmt.Fprintf(&b, "%s: %s\n\n", msg.Role, msg.Content)
	}
	return strings.TrimSpace(b.String())
}

// RenderSearchHistory renders every accumulated search record, including
// per-page summaries, as a single text block for prompting.
func (c *ResearchContext) RenderSearchHistory() string {
	var b strings.Builder
	for _, record := range c.searchHistory {
		fmt.Fprintf(&b, "## Query: %q\n\n", record.Query)
		for _, r := range record.Results {
			fmt.Fprintf(&b, "### %s (%s)\n", r.Title, r.Date)
			fmt.Fprintf(&b, "URL: %s\n", r.URL)
			fmt.Fprintf(&b, "Snippet: %s\n", r.Snippet)
			fmt.Fprintf(&b, "Summary: %s\n\n", r.Summary)
		}
	}
	return strings.TrimSpace(b.String())
}

// RenderLocation renders the user location, or "" when it is unknown.
func (c *ResearchContext) RenderLocation() string {
	if c.location == nil {
		return ""
	}
	return fmt.Sprintf("The user is located in %s, %s (lat %.4f, lon %.4f).",
		c.location.City, c.location.Country, c.location.Latitude, c.location.Longitude)
}
