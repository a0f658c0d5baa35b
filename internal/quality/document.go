package quality

import (
	"strings"
	"unicode"
)

// document is a lightweight parse of markdown content, computed once per
// scoring run and shared by the sub-scorers.
type document struct {
	raw        string
	lower      string
	headings   []string
	paragraphs []string
	sentences  []string
	words      []string
	hasList    bool
	hasLink    bool
	hasDigits  bool
}

func parseDocument(content string) *document {
	doc := &document{
		raw:   content,
		lower: strings.ToLower(content),
	}

	var bodyLines []string
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
		case strings.HasPrefix(trimmed, "#"):
			doc.headings = append(doc.headings, strings.TrimLeft(trimmed, "# "))
		case strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* ") || isOrderedItem(trimmed):
			doc.hasList = true
			bodyLines = append(bodyLines, trimmed)
		default:
			bodyLines = append(bodyLines, trimmed)
		}
	}

	doc.hasLink = strings.Contains(content, "](")
	doc.hasDigits = strings.ContainsFunc(content, unicode.IsDigit)

	// Paragraphs are runs of body lines separated by blank lines in the
	// original text; after trimming we approximate with the line groups.
	doc.paragraphs = splitParagraphs(content)
	body := strings.Join(bodyLines, " ")
	doc.sentences = splitSentences(body)
	doc.words = strings.Fields(doc.lower)

	return doc
}

func isOrderedItem(line string) bool {
	if len(line) < 3 {
		return false
	}
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	return i > 0 && i+1 < len(line) && line[i] == '.' && line[i+1] == ' '
}

func splitParagraphs(content string) []string {
	var paragraphs []string
	for _, block := range strings.Split(content, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" || strings.HasPrefix(block, "#") {
			continue
		}
		paragraphs = append(paragraphs, block)
	}
	return paragraphs
}

func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			sentence := strings.TrimSpace(current.String())
			if len(strings.Fields(sentence)) > 1 {
				sentences = append(sentences, sentence)
			}
			current.Reset()
		}
	}
	if tail := strings.TrimSpace(current.String()); len(strings.Fields(tail)) > 2 {
		sentences = append(sentences, tail)
	}
	return sentences
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
