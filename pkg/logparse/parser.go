// Package logparse turns raw log lines of heterogeneous formats into
// canonical domain.LogEntry records. Strategies are tried in a fixed order;
// the first one that recognizes the line wins, and a plain-text fallback
// guarantees every non-blank line yields an entry.
package logparse

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/loglens/loglens/pkg/domain"
)

const rawExcerptLen = 200

// strategy recognizes one known log shape.
type strategy interface {
	TryParse(line string, ctx lineContext) (*domain.LogEntry, bool)
}

// lineContext carries per-line provenance into strategies.
type lineContext struct {
	filePath   string
	lineNumber int
	source     string
}

// Parser converts raw lines into canonical entries. Safe for concurrent use.
type Parser struct {
	logger     *zap.Logger
	strategies []strategy
}

// New creates a Parser with the built-in strategy chain: structured JSON,
// the known textual shapes, then the plain-text fallback.
func New(logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{
		logger: logger.Named("parser"),
		strategies: []strategy{
			&jsonStrategy{},
			newRegexStrategies(),
		},
	}
}

// Parse converts one raw line into an entry. Blank lines yield nil. Parse
// never panics outward: an internal failure is downgraded to a Warning entry
// describing the problem.
func (p *Parser) Parse(line, filePath string, lineNumber int) (entry *domain.LogEntry) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn("parse panic recovered",
				zap.Any("panic", r),
				zap.String("file", filePath),
				zap.Int("line", lineNumber))
			entry = parseFailureEntry(line, filePath, lineNumber, r)
		}
	}()

	ctx := lineContext{
		filePath:   filePath,
		lineNumber: lineNumber,
		source:     inferSource(filePath),
	}

	for _, s := range p.strategies {
		if e, ok := s.TryParse(trimmed, ctx); ok {
			e.Raw = line
			return e
		}
	}
	return plainFallback(trimmed, line, ctx)
}

// parseFailureEntry is the recoverable form of an internal parser failure.
func parseFailureEntry(line, filePath string, lineNumber int, cause interface{}) *domain.LogEntry {
	excerpt := line
	if len(excerpt) > rawExcerptLen {
		excerpt = excerpt[:rawExcerptLen]
	}
	return &domain.LogEntry{
		Timestamp:  nowFunc(),
		Level:      domain.LevelWarning,
		Source:     "parser",
		Message:    "failed to parse line: " + excerpt,
		FilePath:   filePath,
		LineNumber: lineNumber,
		Raw:        line,
	}
}

var exceptionRe = regexp.MustCompile(`(\w+(?:Exception|Error))\s*:\s*(.*)`)

// plainFallback treats the whole line as an Information entry at ingestion
// time, upgrading to Error when an exception signature is present.
func plainFallback(trimmed, raw string, ctx lineContext) *domain.LogEntry {
	e := &domain.LogEntry{
		Timestamp:  nowFunc(),
		Level:      domain.LevelInfo,
		Source:     ctx.source,
		Message:    trimmed,
		FilePath:   ctx.filePath,
		LineNumber: ctx.lineNumber,
		Raw:        raw,
	}
	if m := exceptionRe.FindStringSubmatch(trimmed); m != nil {
		e.Level = domain.LevelError
		e.ExceptionType = m[1]
		e.ExceptionMessage = strings.TrimSpace(m[2])
	}
	return e
}

// inferSource derives a source name from well-known filename keywords when
// the payload itself does not carry one.
func inferSource(filePath string) string {
	name := strings.ToLower(baseName(filePath))
	switch {
	case strings.Contains(name, "desktop"):
		return "Desktop"
	case strings.Contains(name, "server"):
		return "Server"
	case strings.Contains(name, "launcher"):
		return "Launcher"
	case strings.Contains(name, "agent"):
		return "Agent"
	case strings.Contains(name, "viewer"):
		return "Viewer"
	}
	if name == "" {
		return "Unknown"
	}
	// Strip the extension chain (app.log.gz -> app).
	if i := strings.IndexByte(name, '.'); i > 0 {
		name = name[:i]
	}
	return name
}

func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}
