package logs

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"cageclock/internal/logging"
)

// Entry is one decoded JSON log record.
type Entry struct {
	Time      time.Time
	Level     string
	Message   string
	Component string
	EventType string
	Fields    map[string]string
}

var reservedKeys = map[string]bool{
	logging.JSONTimeKey:    true,
	logging.JSONLevelKey:   true,
	logging.JSONMessageKey: true,
	logging.FieldComponent: true,
	logging.FieldEventType: true,
}

// Parse decodes a line written by the JSON log handler. Lines that are not
// JSON objects report ok=false and should be printed verbatim.
func Parse(line string) (Entry, bool) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return Entry{}, false
	}
	entry := Entry{
		Level:     stringField(raw, logging.JSONLevelKey),
		Message:   stringField(raw, logging.JSONMessageKey),
		Component: stringField(raw, logging.FieldComponent),
		EventType: stringField(raw, logging.FieldEventType),
	}
	if ts := stringField(raw, logging.JSONTimeKey); ts != "" {
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			entry.Time = parsed
		}
	}
	for key, value := range raw {
		if reservedKeys[key] {
			continue
		}
		if entry.Fields == nil {
			entry.Fields = make(map[string]string)
		}
		entry.Fields[key] = formatValue(value)
	}
	return entry, true
}

func stringField(raw map[string]any, key string) string {
	if value, ok := raw[key].(string); ok {
		return value
	}
	return ""
}

func formatValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return "null"
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	}
}

var levelRank = map[string]int{
	"debug": 0,
	"info":  1,
	"warn":  2,
	"error": 3,
}

// Filter keeps entries at or above MinLevel and, when set, from Component.
type Filter struct {
	MinLevel  string
	Component string
}

// Match reports whether entry passes the filter. Unknown levels pass.
func (f Filter) Match(entry Entry) bool {
	if f.Component != "" && !strings.EqualFold(entry.Component, f.Component) {
		return false
	}
	min, ok := levelRank[strings.ToLower(f.MinLevel)]
	if !ok {
		return true
	}
	rank, ok := levelRank[strings.ToLower(entry.Level)]
	return !ok || rank >= min
}

// Format renders entry as a single human-readable line in local time.
func Format(entry Entry) string {
	var b strings.Builder
	if !entry.Time.IsZero() {
		b.WriteString(entry.Time.Local().Format("15:04:05"))
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "%-5s ", strings.ToUpper(entry.Level))
	if entry.Component != "" {
		fmt.Fprintf(&b, "[%s] ", entry.Component)
	}
	b.WriteString(entry.Message)

	keys := make([]string, 0, len(entry.Fields))
	for key := range entry.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&b, " %s=%s", key, entry.Fields[key])
	}
	return b.String()
}
