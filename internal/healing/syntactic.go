package healing

import (
	"strings"

	"github.com/jonathan/pressroom/internal/llm"
)

// SyntacticRepair applies cheap deterministic fixes to model output that is
// almost-JSON: code fences, leading/trailing prose, trailing commas, and
// unclosed brackets. It never calls a model.
func SyntacticRepair(raw string) string {
	text := llm.CleanJSONBlock(raw)
	text = trimToJSON(text)
	text = removeTrailingCommas(text)
	text = closeBrackets(text)
	return text
}

// trimToJSON cuts surrounding prose, keeping the span from the first opening
// brace or bracket to the last closing one.
func trimToJSON(text string) string {
	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return text
	}
	end := strings.LastIndexAny(text, "}]")
	if end < start {
		return text[start:]
	}
	return text[start : end+1]
}

// removeTrailingCommas drops commas that directly precede a closing brace or
// bracket, the most common model-emitted syntax error. String contents are
// left untouched.
func removeTrailingCommas(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))

	inString := false
	escaped := false
	runes := []rune(text)

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if inString {
			sb.WriteRune(r)
			if escaped {
				escaped = false
			} else if r == '\\' {
				escaped = true
			} else if r == '"' {
				inString = false
			}
			continue
		}

		if r == '"' {
			inString = true
			sb.WriteRune(r)
			continue
		}

		if r == ',' {
			// Look ahead past whitespace for a closer.
			j := i + 1
			for j < len(runes) && (runes[j] == ' ' || runes[j] == '\t' || runes[j] == '\n' || runes[j] == '\r') {
				j++
			}
			if j < len(runes) && (runes[j] == '}' || runes[j] == ']') {
				continue
			}
		}

		sb.WriteRune(r)
	}

	return sb.String()
}

// closeBrackets appends closers for any braces or brackets left open, in the
// reverse of the order they were opened. An unterminated string gets its
// closing quote first.
func closeBrackets(text string) string {
	var stack []rune
	inString := false
	escaped := false

	for _, r := range text {
		if inString {
			if escaped {
				escaped = false
			} else if r == '\\' {
				escaped = true
			} else if r == '"' {
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 && stack[len(stack)-1] == r {
				stack = stack[:len(stack)-1]
			}
		}
	}

	var sb strings.Builder
	sb.WriteString(text)
	if inString {
		sb.WriteRune('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		sb.WriteRune(stack[i])
	}
	return sb.String()
}
