package builtin

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const maxDiffLines = 200

// generateUnifiedDiff renders a line-based diff between old and new content
// for display in approval prompts.
func generateUnifiedDiff(oldContent, newContent, filename string) string {
	if oldContent == newContent {
		return ""
	}

	// Skip diffing very large files.
	if len(oldContent) > 10*1024*1024 || len(newContent) > 10*1024*1024 {
		return fmt.Sprintf("--- a/%s\n+++ b/%s\n@@ Large file, diff skipped @@", filename, filename)
	}

	dmp := diffmatchpatch.New()
	src, dst, lines := dmp.DiffLinesToChars(oldContent, newContent)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(src, dst, false), lines)

	var result strings.Builder
	result.WriteString(fmt.Sprintf("--- a/%s\n", filename))
	result.WriteString(fmt.Sprintf("+++ b/%s\n", filename))

	for _, diff := range diffs {
		prefix := " "
		switch diff.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		for _, line := range splitDiffLines(diff.Text) {
			result.WriteString(prefix)
			result.WriteString(line)
			result.WriteString("\n")
		}
	}

	return limitLines(result.String(), maxDiffLines)
}

func splitDiffLines(text string) []string {
	trimmed := strings.TrimSuffix(text, "\n")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}

func limitLines(text string, max int) string {
	lines := strings.Split(text, "\n")
	if len(lines) <= max {
		return text
	}
	kept := lines[:max]
	return strings.Join(kept, "\n") + fmt.Sprintf("\n... (%d more lines)", len(lines)-max)
}
