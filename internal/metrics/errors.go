package metrics

import (
	"strings"
	"unicode"
)

// FriendlyErrorName turns a Go error type name, as produced by %T, into a
// label fit for the report's error breakdown.
func FriendlyErrorName(typeName string) string {
	name := strings.TrimPrefix(strings.TrimSpace(typeName), "*")
	if name == "" {
		return "Unknown error"
	}
	if idx := strings.LastIndex(name, "/"); idx != -1 {
		name = name[idx+1:]
	}

	pkg := ""
	if idx := strings.Index(name, "."); idx != -1 {
		pkg, name = name[:idx], name[idx+1:]
	}

	switch {
	case pkg == "runner" && name == "HTTPError":
		return "HTTP error response"
	case pkg == "check" && name == "MismatchError":
		return "Response check failed"
	case pkg == "url":
		return "Request URL error"
	case pkg == "context" && strings.Contains(strings.ToLower(name), "deadline"):
		return "Context deadline exceeded"
	}

	label := strings.Join(camelWords(name), " ")
	if label == "" {
		label = name
	}
	if pkg != "" && pkg != "main" {
		return label + " (" + pkg + ")"
	}
	return label
}

// camelWords splits "deadlineExceededError" into capitalized words, leaving
// all-caps runs like "HTTP" intact.
func camelWords(name string) []string {
	var words []string
	var cur []rune

	flush := func() {
		if len(cur) == 0 {
			return
		}
		w := string(cur)
		if !isAllUpper(w) {
			w = capitalize(w)
		}
		words = append(words, w)
		cur = cur[:0]
	}

	runes := []rune(name)
	for i, r := range runes {
		if i > 0 {
			prev := runes[i-1]
			upperStart := unicode.IsUpper(r) && (unicode.IsLower(prev) ||
				(unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1])))
			digitStart := unicode.IsDigit(r) && !unicode.IsDigit(prev)
			if upperStart || digitStart {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return words
}

func isAllUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

func capitalize(s string) string {
	runes := []rune(strings.ToLower(s))
	if len(runes) == 0 {
		return s
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
