package archive

import (
	"strconv"
	"strings"
)

const (
	summaryHeading = "# Documentation Summary\n\n"
	summaryProse   = "The output is a Markdown document summarizing a directory’s structure and file contents. " +
		"It begins with token and size statistics, followed by a hierarchical view of the directory layout. " +
		"For each file (unless omitted in structure-only mode), its contents are included in fenced code blocks " +
		"with optional language annotations and metadata like file size, forming a complete, self-contained reference.\n\n"
	splitNote = "Note: This document has been split into multiple parts due to size limitations.\n\n"
)

// Header returns the summary block placed ahead of the body. It is not
// counted in the document statistics.
func (d *Document) Header(split bool) string {
	var b strings.Builder
	b.WriteString(summaryHeading)
	b.WriteString(summaryProse)
	if split {
		b.WriteString(splitNote)
	}
	b.WriteString("Token Size: ")
	b.WriteString(strconv.FormatUint(d.Stats.Tokens, 10))
	b.WriteString("\n\n")
	return b.String()
}

// Finalize returns the complete archive text.
func (d *Document) Finalize(split bool) string {
	return d.Header(split) + d.Body
}
