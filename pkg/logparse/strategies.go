package logparse

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/loglens/loglens/pkg/domain"
)

// ---------------------------------------------------------------------------
// JSON strategy
// ---------------------------------------------------------------------------

// Field alias lists: common spellings seen across structured log producers.
var (
	timestampKeys = []string{"timestamp", "time", "ts", "@timestamp", "datetime", "date"}
	levelKeys     = []string{"level", "severity", "lvl", "loglevel", "log_level"}
	messageKeys   = []string{"message", "msg", "text", "body"}
	sourceKeys    = []string{"source", "logger", "component", "service", "src"}
	exceptionKeys = []string{"exception", "exception_type", "error_type"}
	excMsgKeys    = []string{"exception_message", "error_message", "error", "err"}
	stackKeys     = []string{"stack_trace", "stacktrace", "stack"}
	threadKeys    = []string{"thread", "thread_id", "tid"}
	processKeys   = []string{"process", "process_id", "pid"}
	machineKeys   = []string{"machine", "host", "hostname"}
	userKeys      = []string{"user", "username"}
)

// jsonStrategy parses single-line JSON payloads keyed by field alias lists.
type jsonStrategy struct{}

func (s *jsonStrategy) TryParse(line string, ctx lineContext) (*domain.LogEntry, bool) {
	if !strings.HasPrefix(line, "{") {
		return nil, false
	}
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(line), &data); err != nil {
		return nil, false
	}

	e := &domain.LogEntry{
		Timestamp:  nowFunc(),
		Level:      domain.LevelInfo,
		Source:     ctx.source,
		Message:    line,
		FilePath:   ctx.filePath,
		LineNumber: ctx.lineNumber,
	}

	if v, ok := firstString(data, timestampKeys); ok {
		if ts, ok := parseTimestamp(v); ok {
			e.Timestamp = ts
		}
	}
	if v, ok := firstString(data, levelKeys); ok {
		e.Level = domain.ParseLevel(v)
	}
	if v, ok := firstString(data, messageKeys); ok {
		e.Message = v
	}
	if v, ok := firstString(data, sourceKeys); ok {
		e.Source = v
	}
	if v, ok := firstString(data, exceptionKeys); ok {
		e.ExceptionType = v
	}
	if v, ok := firstString(data, excMsgKeys); ok {
		e.ExceptionMessage = v
	}
	if v, ok := firstString(data, stackKeys); ok {
		e.StackTrace = v
	}
	if v, ok := firstString(data, threadKeys); ok {
		e.ThreadID = v
	}
	if v, ok := firstString(data, processKeys); ok {
		e.ProcessID = v
	}
	if v, ok := firstString(data, machineKeys); ok {
		e.Machine = v
	}
	if v, ok := firstString(data, userKeys); ok {
		e.User = v
	}
	return e, true
}

// firstString returns the first non-empty value among the alias keys.
func firstString(data map[string]interface{}, keys []string) (string, bool) {
	for _, k := range keys {
		if v, ok := data[k]; ok && v != nil {
			s := fmt.Sprintf("%v", v)
			if s != "" {
				return s, true
			}
		}
	}
	return "", false
}

// ---------------------------------------------------------------------------
// Textual regex strategies
// ---------------------------------------------------------------------------

const tsPat = `\d{4}[-/]\d{2}[-/]\d{2}[T ]\d{2}:\d{2}:\d{2}(?:[.,]\d{1,9})?(?:Z|[+-]\d{2}:?\d{2})?`

// regexStrategies is the ordered list of known textual log shapes. First
// match wins.
type regexStrategies struct {
	bracketed  *regexp.Regexp // [a] [b] message, level/timestamp either order
	levelFirst *regexp.Regexp // LEVEL timestamp message
	tsBracket  *regexp.Regexp // timestamp [Level] message
	generic    *regexp.Regexp // timestamp LEVEL? message
}

func newRegexStrategies() *regexStrategies {
	return &regexStrategies{
		bracketed:  regexp.MustCompile(`^\[([^\]]+)\]\s*\[([^\]]+)\]\s*:?\s*(.*)$`),
		levelFirst: regexp.MustCompile(`^([A-Za-z]+)\s+(` + tsPat + `)\s*:?\s*(.*)$`),
		tsBracket:  regexp.MustCompile(`^(` + tsPat + `)\s+\[([^\]]+)\]\s*:?\s*(.*)$`),
		generic:    regexp.MustCompile(`^(` + tsPat + `)\s+(?:([A-Za-z]+)\s+)?(.*)$`),
	}
}

func (s *regexStrategies) TryParse(line string, ctx lineContext) (*domain.LogEntry, bool) {
	if m := s.bracketed.FindStringSubmatch(line); m != nil {
		// Level and timestamp may appear in either order.
		if domain.KnownLevel(m[1]) {
			return buildTextEntry(m[2], m[1], m[3], ctx), true
		}
		if domain.KnownLevel(m[2]) {
			return buildTextEntry(m[1], m[2], m[3], ctx), true
		}
	}
	if m := s.levelFirst.FindStringSubmatch(line); m != nil && domain.KnownLevel(m[1]) {
		return buildTextEntry(m[2], m[1], m[3], ctx), true
	}
	if m := s.tsBracket.FindStringSubmatch(line); m != nil && domain.KnownLevel(m[2]) {
		return buildTextEntry(m[1], m[2], m[3], ctx), true
	}
	if m := s.generic.FindStringSubmatch(line); m != nil {
		level, msg := m[2], m[3]
		if !domain.KnownLevel(level) {
			// The token was part of the message, not a level.
			if level != "" {
				msg = level + " " + msg
			}
			level = ""
		}
		return buildTextEntry(m[1], level, msg, ctx), true
	}
	return nil, false
}

func buildTextEntry(tsRaw, levelRaw, msg string, ctx lineContext) *domain.LogEntry {
	e := &domain.LogEntry{
		Timestamp:  nowFunc(),
		Level:      domain.LevelInfo,
		Source:     ctx.source,
		Message:    strings.TrimSpace(msg),
		FilePath:   ctx.filePath,
		LineNumber: ctx.lineNumber,
	}
	if ts, ok := parseTimestamp(tsRaw); ok {
		e.Timestamp = ts
	}
	if levelRaw != "" {
		e.Level = domain.ParseLevel(levelRaw)
	}
	if m := exceptionRe.FindStringSubmatch(e.Message); m != nil {
		e.ExceptionType = m[1]
		e.ExceptionMessage = strings.TrimSpace(m[2])
		if e.Level < domain.LevelError {
			e.Level = domain.LevelError
		}
	}
	return e
}
