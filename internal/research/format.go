package research

import (
	"fmt"
	"strings"
)

// FormatSources renders gathered sources as a block suitable for inclusion
// in a research prompt.
func FormatSources(sources []Source) string {
	if len(sources) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, s := range sources {
		sb.WriteString(fmt.Sprintf("--- Source %d: %s (%s) ---\n", i+1, s.Title, s.URL))
		sb.WriteString(s.Text)
		sb.WriteString("\n\n")
	}
	return strings.TrimSpace(sb.String())
}
