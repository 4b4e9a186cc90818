package common

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Record is one raw queue entry as returned by a downloader backend. Values
// keep their JSON shape (json.Number for numbers) so accessors can accept
// the string-encoded numbers some backends emit.
type Record map[string]any

// DecodeRecord decodes a raw queue entry. It reports false when the payload
// is not a JSON object.
func DecodeRecord(raw json.RawMessage) (Record, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}
	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()
	var record Record
	if err := decoder.Decode(&record); err != nil || record == nil {
		return nil, false
	}
	return record, true
}

// Has reports whether any of the keys is present with a non-null value.
func (r Record) Has(keys ...string) bool {
	for _, key := range keys {
		if value, ok := r[key]; ok && value != nil {
			return true
		}
	}
	return false
}

// String returns the first non-empty string-like value among keys.
func (r Record) String(keys ...string) string {
	for _, key := range keys {
		switch value := r[key].(type) {
		case string:
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		case json.Number:
			return value.String()
		}
	}
	return ""
}

// Float returns the first finite numeric value among keys.
func (r Record) Float(keys ...string) (float64, bool) {
	for _, key := range keys {
		if value, ok := toFloat(r[key]); ok {
			return value, true
		}
	}
	return 0, false
}

// Int returns the first numeric value among keys truncated to int64.
func (r Record) Int(keys ...string) (int64, bool) {
	value, ok := r.Float(keys...)
	if !ok {
		return 0, false
	}
	return int64(value), true
}

// Bool returns the first boolean-like value among keys.
func (r Record) Bool(keys ...string) bool {
	for _, key := range keys {
		switch value := r[key].(type) {
		case bool:
			return value
		case json.Number:
			if parsed, err := value.Float64(); err == nil {
				return parsed != 0
			}
		case string:
			switch strings.ToLower(strings.TrimSpace(value)) {
			case "1", "true", "yes":
				return true
			case "0", "false", "no":
				return false
			}
		}
	}
	return false
}

// Strings returns the first array-of-strings value among keys.
func (r Record) Strings(keys ...string) []string {
	for _, key := range keys {
		values, ok := r[key].([]any)
		if !ok {
			continue
		}
		out := make([]string, 0, len(values))
		for _, value := range values {
			if text, ok := value.(string); ok && strings.TrimSpace(text) != "" {
				out = append(out, strings.TrimSpace(text))
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

func toFloat(value any) (float64, bool) {
	var parsed float64
	switch typed := value.(type) {
	case json.Number:
		number, err := typed.Float64()
		if err != nil {
			return 0, false
		}
		parsed = number
	case float64:
		parsed = typed
	case string:
		text := strings.TrimSpace(typed)
		if text == "" {
			return 0, false
		}
		number, err := strconv.ParseFloat(strings.ReplaceAll(text, ",", "."), 64)
		if err != nil {
			return 0, false
		}
		parsed = number
	default:
		return 0, false
	}
	if math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return 0, false
	}
	return parsed, true
}

// ParseHumanSize parses strings such as "1.5 GB" or "700 MB" into bytes
// using 1024-based units. Unparseable input yields 0.
func ParseHumanSize(raw string) int64 {
	value := strings.TrimSpace(strings.ToUpper(raw))
	value = strings.ReplaceAll(value, "IB", "B")
	if value == "" {
		return 0
	}

	unit := ""
	number := value
	for _, suffix := range []string{"PB", "TB", "GB", "MB", "KB", "B", "P", "T", "G", "M", "K"} {
		if strings.HasSuffix(number, suffix) {
			unit = strings.TrimSuffix(suffix, "B")
			number = strings.TrimSpace(strings.TrimSuffix(number, suffix))
			break
		}
	}

	parsed, err := strconv.ParseFloat(strings.ReplaceAll(number, ",", "."), 64)
	if err != nil || parsed < 0 || math.IsInf(parsed, 0) || math.IsNaN(parsed) {
		return 0
	}

	multiplier := float64(1)
	switch unit {
	case "K":
		multiplier = 1 << 10
	case "M":
		multiplier = 1 << 20
	case "G":
		multiplier = 1 << 30
	case "T":
		multiplier = 1 << 40
	case "P":
		multiplier = 1 << 50
	}
	return int64(parsed * multiplier)
}

// ParseClock parses "H:MM:SS", "D:HH:MM:SS" or "MM:SS" into seconds.
func ParseClock(raw string) (float64, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, false
	}
	parts := strings.Split(value, ":")
	if len(parts) < 2 || len(parts) > 4 {
		return 0, false
	}
	multipliers := []float64{1, 60, 3600, 86400}
	total := float64(0)
	for i := range parts {
		part := strings.TrimSpace(parts[len(parts)-1-i])
		number, err := strconv.Atoi(part)
		if err != nil || number < 0 {
			return 0, false
		}
		total += float64(number) * multipliers[i]
	}
	return total, true
}

func Clamp(value, low, high float64) float64 {
	if math.IsNaN(value) {
		return low
	}
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}

// ProgressFromRemaining derives a percentage from a total and the amount
// still to transfer. An unknown or zero total yields 0.
func ProgressFromRemaining(total, remaining float64) float64 {
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return 0
	}
	if remaining < 0 || math.IsNaN(remaining) {
		remaining = 0
	}
	return Clamp((total-remaining)/total*100, 0, 100)
}
