// Package alerts evaluates sliding-window threshold rules against every
// ingested entry and records rule firings as bounded recent alerts.
package alerts

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/loglens/loglens/pkg/domain"
)

const (
	// maxRecentAlerts caps the recent-alerts list; oldest are dropped.
	maxRecentAlerts = 100
	// notifyThrottle suppresses repeat notifications per rule to prevent
	// alert storms. History keeps accumulating while throttled.
	notifyThrottle = 60 * time.Second
)

// Highlighter marks matched entries highlighted; the store provides it.
type Highlighter interface {
	SetHighlighted(id int64, on bool) bool
}

// match is one (timestamp, entry) pair in a rule's rolling history.
type match struct {
	at    time.Time
	entry *domain.LogEntry
}

// Engine evaluates enabled rules per entry. ProcessEntry is serialized by
// the engine mutex so sliding-window counts stay consistent under
// concurrent ingestion.
type Engine struct {
	mu           sync.Mutex
	logger       *zap.Logger
	rules        map[string]*domain.AlertRule
	patterns     map[string]*regexp.Regexp // compiled regex rules
	history      map[string][]match
	lastNotified map[string]time.Time
	recent       []*domain.LogAlert
	observers    []domain.AlertObserver
	highlighter  Highlighter
	alertFile    string

	now func() time.Time
}

// New creates an alert engine. highlighter may be nil (highlight actions
// become no-ops); alertFile may be empty (save-to-file actions are skipped).
func New(logger *zap.Logger, highlighter Highlighter, alertFile string) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		logger:       logger.Named("alerts"),
		rules:        make(map[string]*domain.AlertRule),
		patterns:     make(map[string]*regexp.Regexp),
		history:      make(map[string][]match),
		lastNotified: make(map[string]time.Time),
		highlighter:  highlighter,
		alertFile:    alertFile,
		now:          time.Now,
	}
}

// Subscribe registers an observer for alert-fired notifications.
func (e *Engine) Subscribe(o domain.AlertObserver) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, o)
}

// AddRule registers a rule. An empty id is assigned a fresh uuid. Regex
// patterns are compiled up front; a bad pattern is rejected.
func (e *Engine) AddRule(rule *domain.AlertRule) error {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	if rule.Threshold <= 0 {
		rule.Threshold = 1
	}
	var re *regexp.Regexp
	if rule.IsRegex {
		var err error
		re, err = regexp.Compile(rule.Pattern)
		if err != nil {
			return fmt.Errorf("rule %q: invalid pattern: %w", rule.Name, err)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules[rule.ID] = rule
	// Drop any previously compiled pattern so a regex-to-literal update
	// cannot keep matching against the old regex.
	delete(e.patterns, rule.ID)
	if re != nil {
		e.patterns[rule.ID] = re
	}
	return nil
}

// UpdateRule replaces an existing rule, recompiling its pattern.
func (e *Engine) UpdateRule(rule *domain.AlertRule) error {
	e.mu.Lock()
	_, ok := e.rules[rule.ID]
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("rule %q not found", rule.ID)
	}
	return e.AddRule(rule)
}

// RemoveRule drops a rule and its history.
func (e *Engine) RemoveRule(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.rules, id)
	delete(e.patterns, id)
	delete(e.history, id)
	delete(e.lastNotified, id)
}

// Rules returns a snapshot of all rules.
func (e *Engine) Rules() []*domain.AlertRule {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*domain.AlertRule, 0, len(e.rules))
	for _, r := range e.rules {
		out = append(out, r)
	}
	return out
}

// ProcessEntry evaluates every enabled rule against one newly ingested
// entry, firing rules whose window reaches their threshold.
func (e *Engine) ProcessEntry(entry *domain.LogEntry) {
	e.mu.Lock()

	var fired []*domain.LogAlert
	now := e.now()
	for id, rule := range e.rules {
		if !rule.Enabled || entry.Level < rule.MinLevel || !e.matchesLocked(id, rule, entry) {
			continue
		}

		// Append, then prune the window before the threshold check.
		hist := append(e.history[id], match{at: now, entry: entry})
		cutoff := now.Add(-rule.Window)
		start := 0
		for start < len(hist) && hist[start].at.Before(cutoff) {
			start++
		}
		hist = hist[start:]
		e.history[id] = hist

		if len(hist) < rule.Threshold {
			continue
		}
		if last, ok := e.lastNotified[id]; ok && now.Sub(last) < notifyThrottle {
			continue // throttled; history keeps accumulating
		}

		alert := &domain.LogAlert{
			ID:           uuid.NewString(),
			Timestamp:    now,
			RuleName:     rule.Name,
			Message:      fmt.Sprintf("%s: %d matching entries within %s", rule.Name, len(hist), rule.Window),
			MatchedCount: len(hist),
			Severity:     entry.Level,
		}
		rule.LastTriggered = now
		rule.TriggerCount++
		e.lastNotified[id] = now

		e.recent = append([]*domain.LogAlert{alert}, e.recent...)
		if len(e.recent) > maxRecentAlerts {
			e.recent = e.recent[:maxRecentAlerts]
		}
		e.runActionLocked(rule, alert, hist)
		fired = append(fired, alert)
	}

	obs := make([]domain.AlertObserver, len(e.observers))
	copy(obs, e.observers)
	e.mu.Unlock()

	for _, alert := range fired {
		e.logger.Warn("alert fired",
			zap.String("rule", alert.RuleName),
			zap.Int("matched", alert.MatchedCount),
			zap.String("severity", alert.Severity.String()))
		for _, o := range obs {
			o.OnAlertFired(alert)
		}
	}
}

// matchesLocked checks the rule pattern against the entry message: compiled
// regex for regex rules, case-insensitive substring otherwise.
func (e *Engine) matchesLocked(id string, rule *domain.AlertRule, entry *domain.LogEntry) bool {
	if rule.Pattern == "" {
		return true
	}
	if re, ok := e.patterns[id]; ok {
		return re.MatchString(entry.Message)
	}
	return strings.Contains(strings.ToLower(entry.Message), strings.ToLower(rule.Pattern))
}

// runActionLocked executes the rule's configured action. Failures are logged
// and never abort processing.
func (e *Engine) runActionLocked(rule *domain.AlertRule, alert *domain.LogAlert, hist []match) {
	if rule.Action == domain.ActionHighlight || rule.Action == domain.ActionBoth {
		if e.highlighter != nil {
			for _, m := range hist {
				e.highlighter.SetHighlighted(m.entry.ID, true)
			}
		}
	}
	if rule.Action == domain.ActionSaveToFile || rule.Action == domain.ActionBoth {
		if err := e.appendAlertFile(alert); err != nil {
			e.logger.Error("alert file write failed", zap.Error(err))
		}
	}
}

// appendAlertFile writes one alert line to the side-channel alert file.
func (e *Engine) appendAlertFile(alert *domain.LogAlert) error {
	if e.alertFile == "" {
		return nil
	}
	f, err := os.OpenFile(e.alertFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, "%s [%s] %s\n",
		alert.Timestamp.Format(time.RFC3339), alert.Severity, alert.Message)
	return err
}

// RecentAlerts returns the capped recent-alerts list, newest first.
func (e *Engine) RecentAlerts() []*domain.LogAlert {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*domain.LogAlert, len(e.recent))
	copy(out, e.recent)
	return out
}

// Acknowledge marks a recent alert acknowledged.
func (e *Engine) Acknowledge(alertID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, a := range e.recent {
		if a.ID == alertID {
			a.Acknowledged = true
			return true
		}
	}
	return false
}
