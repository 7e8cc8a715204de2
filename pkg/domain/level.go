package domain

import "strings"

// Level is the severity of a log entry, ordered from least to most severe.
type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelSuccess
	LevelWarning
	LevelError
	LevelCritical
)

var levelNames = map[Level]string{
	LevelTrace:    "Trace",
	LevelDebug:    "Debug",
	LevelInfo:     "Information",
	LevelSuccess:  "Success",
	LevelWarning:  "Warning",
	LevelError:    "Error",
	LevelCritical: "Critical",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "Information"
}

// levelAliases maps the spellings seen in the wild onto the seven levels.
var levelAliases = map[string]Level{
	"trace":       LevelTrace,
	"trc":         LevelTrace,
	"verbose":     LevelTrace,
	"vrb":         LevelTrace,
	"debug":       LevelDebug,
	"dbg":         LevelDebug,
	"info":        LevelInfo,
	"information": LevelInfo,
	"inf":         LevelInfo,
	"notice":      LevelInfo,
	"log":         LevelInfo,
	"success":     LevelSuccess,
	"succeeded":   LevelSuccess,
	"ok":          LevelSuccess,
	"warn":        LevelWarning,
	"warning":     LevelWarning,
	"wrn":         LevelWarning,
	"error":       LevelError,
	"err":         LevelError,
	"fail":        LevelError,
	"failed":      LevelError,
	"failure":     LevelError,
	"critical":    LevelCritical,
	"crit":        LevelCritical,
	"fatal":       LevelCritical,
	"panic":       LevelCritical,
	"emergency":   LevelCritical,
}

// ParseLevel normalizes a level spelling to one of the seven levels.
// Unknown spellings map to Information.
func ParseLevel(s string) Level {
	if l, ok := levelAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return l
	}
	return LevelInfo
}

// KnownLevel reports whether s is a recognized level alias.
func KnownLevel(s string) bool {
	_, ok := levelAliases[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// MarshalJSON renders the level as its canonical name.
func (l Level) MarshalJSON() ([]byte, error) {
	return []byte(`"` + l.String() + `"`), nil
}

// UnmarshalJSON accepts any known alias.
func (l *Level) UnmarshalJSON(data []byte) error {
	*l = ParseLevel(strings.Trim(string(data), `"`))
	return nil
}
