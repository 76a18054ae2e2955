package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// RepairJSON attempts to repair malformed JSON using cheap local strategies
// first and the jsonrepair library as the sophisticated fallback. The second
// return value lists the strategies that were applied.
func RepairJSON(raw string) (string, []string, error) {
	var testObj interface{}
	if json.Unmarshal([]byte(raw), &testObj) == nil {
		return raw, nil, nil
	}

	repaired := raw
	var strategies []string

	if strings.Contains(repaired, ",}") || strings.Contains(repaired, ",]") {
		repaired = removeTrailingCommas(repaired)
		strategies = append(strategies, "trailing_commas")
	}

	if needsCompletion(repaired) {
		if fixed := completeJSON(repaired); fixed != repaired {
			repaired = fixed
			strategies = append(strategies, "completion")
		}
	}

	if strings.Contains(repaired, "//") || strings.Contains(repaired, "/*") {
		if fixed := removeComments(repaired); fixed != repaired {
			repaired = fixed
			strategies = append(strategies, "comments_removed")
		}
	}

	if hasMissingKeyQuotes(repaired) {
		if fixed := addKeyQuotes(repaired); fixed != repaired {
			repaired = fixed
			strategies = append(strategies, "key_quotes")
		}
	}

	if hasSingleQuotes(repaired) {
		if fixed := fixSingleQuotes(repaired); fixed != repaired {
			repaired = fixed
			strategies = append(strategies, "single_quotes")
		}
	}

	if json.Unmarshal([]byte(repaired), &testObj) != nil {
		libraryRepaired, libraryErr := jsonrepair.JSONRepair(repaired)
		if libraryErr == nil && libraryRepaired != repaired {
			repaired = libraryRepaired
			strategies = append(strategies, "jsonrepair_library")
		}
	}

	if json.Unmarshal([]byte(repaired), &testObj) != nil {
		return repaired, strategies, fmt.Errorf("JSON repair failed after %d strategies", len(strategies))
	}
	return repaired, strategies, nil
}

func removeTrailingCommas(s string) string {
	s = regexp.MustCompile(`,\s*}`).ReplaceAllString(s, "}")
	return regexp.MustCompile(`,\s*]`).ReplaceAllString(s, "]")
}

func needsCompletion(s string) bool {
	s = strings.TrimSpace(s)
	openBraces := strings.Count(s, "{") - strings.Count(s, "}")
	openBrackets := strings.Count(s, "[") - strings.Count(s, "]")
	return openBraces > 0 || openBrackets > 0
}

// completeJSON closes unterminated objects and arrays in LIFO order.
func completeJSON(s string) string {
	s = strings.TrimSpace(s)
	var stack []rune
	for _, char := range s {
		switch char {
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}':
			if len(stack) > 0 && stack[len(stack)-1] == '}' {
				stack = stack[:len(stack)-1]
			}
		case ']':
			if len(stack) > 0 && stack[len(stack)-1] == ']' {
				stack = stack[:len(stack)-1]
			}
		}
	}
	for i := len(stack) - 1; i >= 0; i-- {
		s += string(stack[i])
	}
	return s
}

func removeComments(s string) string {
	lines := strings.Split(s, "\n")
	var clean []string
	for _, line := range lines {
		if idx := strings.Index(line, "//"); idx != -1 {
			line = line[:idx]
		}
		clean = append(clean, line)
	}
	s = strings.Join(clean, "\n")
	return regexp.MustCompile(`/\*.*?\*/`).ReplaceAllString(s, "")
}

func hasMissingKeyQuotes(s string) bool {
	return regexp.MustCompile(`[{,]\s*[a-zA-Z_][a-zA-Z0-9_]*\s*:`).MatchString(s)
}

func addKeyQuotes(s string) string {
	return regexp.MustCompile(`([{,]\s*)([a-zA-Z_][a-zA-Z0-9_]*)(\s*:)`).ReplaceAllString(s, `$1"$2"$3`)
}

func hasSingleQuotes(s string) bool {
	return regexp.MustCompile(`'[^']*'`).MatchString(s)
}

func fixSingleQuotes(s string) string {
	return regexp.MustCompile(`'([^']*)'`).ReplaceAllString(s, `"$1"`)
}
