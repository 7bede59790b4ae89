package agent

// ActionType tags a progress annotation variant.
type ActionType string

const (
	ActionPlan     ActionType = "plan"
	ActionSearch   ActionType = "search"
	ActionDecision ActionType = "decision"
	ActionAnswer   ActionType = "answer"
	ActionSources  ActionType = "sources"
)

// Source is one deduplicated entry of the sources annotation.
type Source struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Favicon string `json:"favicon"`
}

// Action is a tagged progress annotation. Actions are pure output events:
// the loop emits them for UI rendering and never reads them back.
type Action struct {
	Type     ActionType `json:"type"`
	Plan     string     `json:"plan,omitempty"`
	Query    string     `json:"query,omitempty"`
	Decision *Decision  `json:"decision,omitempty"`
	Sources  []Source   `json:"sources,omitempty"`
}

// ProgressSink receives progress annotations. A nil sink is valid and must
// not change loop behavior.
type ProgressSink func(Action)

func (s ProgressSink) emit(a Action) {
	if s != nil {
		s(a)
	}
}
