package alerts

import (
	"time"

	"github.com/loglens/loglens/pkg/domain"
)

// DefaultRules are the rule set seeded at engine start when seeding is
// enabled in configuration.
func DefaultRules() []*domain.AlertRule {
	return []*domain.AlertRule{
		{
			Name:      "Critical Errors",
			Pattern:   "",
			MinLevel:  domain.LevelCritical,
			Threshold: 1,
			Window:    time.Minute,
			Enabled:   true,
			Action:    domain.ActionBoth,
		},
		{
			Name:      "Database Connection",
			Pattern:   "database connection",
			MinLevel:  domain.LevelError,
			Threshold: 3,
			Window:    5 * time.Minute,
			Enabled:   true,
			Action:    domain.ActionBoth,
		},
		{
			Name:      "Timeout Storm",
			Pattern:   `(?i)time[d]? ?out`,
			IsRegex:   true,
			MinLevel:  domain.LevelWarning,
			Threshold: 10,
			Window:    5 * time.Minute,
			Enabled:   true,
			Action:    domain.ActionNotify,
		},
		{
			Name:      "Unhandled Exception",
			Pattern:   `\w+Exception`,
			IsRegex:   true,
			MinLevel:  domain.LevelError,
			Threshold: 5,
			Window:    10 * time.Minute,
			Enabled:   true,
			Action:    domain.ActionHighlight,
		},
	}
}

// SeedDefaults registers the default rules, skipping any name already
// present.
func (e *Engine) SeedDefaults() {
	existing := make(map[string]bool)
	for _, r := range e.Rules() {
		existing[r.Name] = true
	}
	for _, rule := range DefaultRules() {
		if !existing[rule.Name] {
			_ = e.AddRule(rule)
		}
	}
}
