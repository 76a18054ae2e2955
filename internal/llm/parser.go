// Package llm parses raw extraction-backend output into structured records.
// Backends wrap JSON in markdown fences, prepend explanatory prose, or emit
// slightly broken JSON; the parser tolerates all of that and reports "no
// usable data" as a nil map rather than an error, so callers can treat a
// garbled response the same as an empty one.
package llm

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// ParseResponse extracts and repairs the JSON document inside a raw backend
// response and returns it as a generic map. Returns nil when no usable JSON
// object can be recovered.
func ParseResponse(raw string) map[string]interface{} {
	jsonStr := extractJSON(raw)
	if jsonStr == "" {
		log.Debug().Int("bytes", len(raw)).Msg("No JSON found in backend response")
		return nil
	}

	repaired, strategies, err := RepairJSON(jsonStr)
	if err != nil {
		log.Debug().Err(err).Strs("strategies", strategies).Msg("JSON repair failed")
		return nil
	}
	if len(strategies) > 0 {
		log.Debug().Strs("strategies", strategies).Msg("JSON repair applied")
	}

	var out map[string]interface{}
	if err := json.Unmarshal([]byte(repaired), &out); err != nil {
		return nil
	}
	return out
}

// DecodeResponse parses a raw backend response directly into a typed target.
// Returns false when the response carries no usable JSON.
func DecodeResponse(raw string, target interface{}) bool {
	jsonStr := extractJSON(raw)
	if jsonStr == "" {
		return false
	}
	repaired, _, err := RepairJSON(jsonStr)
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(repaired), target) == nil
}

// Confidence pulls the self-reported confidence score out of a parsed
// response. The second return value is false when the field is absent, which
// acceptance predicates treat as "no gate".
func Confidence(parsed map[string]interface{}) (float64, bool) {
	if parsed == nil {
		return 0, false
	}
	v, ok := parsed["confidence"]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

// FieldNames returns the sorted list of top-level keys, used for audit
// logging of what an attempt extracted.
func FieldNames(parsed map[string]interface{}) []string {
	if len(parsed) == 0 {
		return nil
	}
	out := make([]string, 0, len(parsed))
	for k := range parsed {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// extractJSON finds the JSON document inside mixed prose/JSON output,
// preferring fenced code blocks over brace scanning.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "{") || strings.HasPrefix(raw, "[") {
		return raw
	}

	if strings.Contains(raw, "```") {
		lines := strings.Split(raw, "\n")
		var jsonLines []string
		inCodeBlock := false
		for _, line := range lines {
			if strings.HasPrefix(strings.TrimSpace(line), "```") {
				inCodeBlock = !inCodeBlock
				continue
			}
			if inCodeBlock {
				jsonLines = append(jsonLines, line)
			}
		}
		if len(jsonLines) > 0 {
			return strings.Join(jsonLines, "\n")
		}
	}

	startIdx := strings.Index(raw, "{")
	if startIdx == -1 {
		startIdx = strings.Index(raw, "[")
		if startIdx == -1 {
			return ""
		}
	}

	openChar := raw[startIdx]
	closeChar := byte('}')
	if openChar == '[' {
		closeChar = ']'
	}

	count := 0
	for i := startIdx; i < len(raw); i++ {
		if raw[i] == openChar {
			count++
		} else if raw[i] == closeChar {
			count--
			if count == 0 {
				return raw[startIdx : i+1]
			}
		}
	}

	// Unterminated structure, let repair close it.
	return raw[startIdx:]
}
