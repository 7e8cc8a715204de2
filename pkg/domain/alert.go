package domain

import "time"

// AlertAction selects what happens when a rule fires.
type AlertAction int

const (
	// ActionHighlight marks the matched entries highlighted in the store.
	ActionHighlight AlertAction = iota
	// ActionNotify raises the alert-fired notification only.
	ActionNotify
	// ActionBoth highlights and notifies.
	ActionBoth
	// ActionSaveToFile appends the alert to the side-channel alert file.
	ActionSaveToFile
)

func (a AlertAction) String() string {
	switch a {
	case ActionHighlight:
		return "highlight"
	case ActionNotify:
		return "notify"
	case ActionBoth:
		return "both"
	case ActionSaveToFile:
		return "save_to_file"
	}
	return "notify"
}

// AlertRule is a sliding-window threshold rule evaluated against every
// ingested entry. Rules live for the session; LastTriggered and TriggerCount
// are the only fields mutated after creation.
type AlertRule struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Pattern   string        `json:"pattern"`
	IsRegex   bool          `json:"is_regex"`
	MinLevel  Level         `json:"min_level"`
	Threshold int           `json:"threshold"`
	Window    time.Duration `json:"window"`
	Enabled   bool          `json:"enabled"`
	Action    AlertAction   `json:"action"`

	LastTriggered time.Time `json:"last_triggered,omitempty"`
	TriggerCount  int       `json:"trigger_count"`
}

// LogAlert is the immutable record of one rule firing. Only Acknowledged is
// mutated afterwards.
type LogAlert struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	RuleName     string    `json:"rule_name"`
	Message      string    `json:"message"`
	MatchedCount int       `json:"matched_count"`
	Severity     Level     `json:"severity"`
	Acknowledged bool      `json:"acknowledged"`
}
