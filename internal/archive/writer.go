// Package archive renders a scanned directory into a Markdown archive and
// splits large archives into parts without breaking file records apart.
package archive

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/jadenpxrk/dirdoc/internal/logging"
	"github.com/jadenpxrk/dirdoc/internal/scan"
	"github.com/jadenpxrk/dirdoc/internal/tokenizer"

	"go.uber.org/zap"
)

// Format markers shared with the reconstructor.
const (
	DocumentHeading    = "# Directory Documentation: "
	StructureHeading   = "## Structure"
	ContentsHeading    = "## Contents"
	RecordPrefix       = "### 📄 "
	BinaryPlaceholder  = "*Binary file*"
	ErrorPlaceholder   = "*Error reading file*"
	NoEOLMarker        = "noeol"
	VerbatimMarker     = "verbatim"
	PlainTag           = "text"
	errorPrefix        = "*Error"
	minFenceLen        = 3
	dirIcon, fileIcon  = "📁", "📄"
	branch, lastBranch = "├── ", "└── "
	pipeIndent, indent = "│   ", "    "
)

// DocumentStats accumulates the size of everything written.
type DocumentStats struct {
	Bytes  uint64
	Tokens uint64
}

// Document is a rendered archive body, before the summary header.
type Document struct {
	Name          string
	Body          string
	Stats         DocumentStats
	Files         int // file records written
	Placeholders  int // records rendered as a binary or error placeholder
	StructureOnly bool
}

// RenderOptions controls a render pass.
type RenderOptions struct {
	Name          string // heading name; defaults to the scanned root's base name
	StructureOnly bool   // omit the Contents section
}

// Writer renders scan results.
type Writer struct {
	in     Inspector
	tk     tokenizer.Counter
	logger *zap.Logger
}

// NewWriter returns a writer. A nil inspector uses the default FileInspector,
// a nil counter uses tokenizer.Approx.
func NewWriter(in Inspector, tk tokenizer.Counter, logger *zap.Logger) *Writer {
	if in == nil {
		in = NewFileInspector(nil)
	}
	if tk == nil {
		tk = tokenizer.Approx{}
	}
	return &Writer{in: in, tk: tk, logger: logging.OrNop(logger)}
}

type render struct {
	b     strings.Builder
	stats DocumentStats
	tk    tokenizer.Counter
}

func (r *render) write(s string) {
	r.b.WriteString(s)
	r.stats.Bytes += uint64(len(s))
	r.stats.Tokens += uint64(r.tk.CountTokens(s))
}

// Render writes the document heading, the structure tree and, unless
// StructureOnly is set, one record per file in canonical order.
func (w *Writer) Render(res *scan.Result, opts RenderOptions) *Document {
	name := opts.Name
	if name == "" {
		name = res.Name
	}
	doc := &Document{Name: name, StructureOnly: opts.StructureOnly}
	r := &render{tk: w.tk}

	r.write(DocumentHeading + name + "\n\n")
	r.write(StructureHeading + "\n\n")
	tree := RenderTree(res.Tree)
	fence := FenceFor(tree)
	r.write(fence + "\n")
	r.write(tree)
	r.write(fence + "\n")

	if !opts.StructureOnly {
		r.write("\n" + ContentsHeading + "\n\n")
		for _, e := range res.Tree.Files() {
			r.write(RecordPrefix + e.Path + "\n\n")
			full := filepath.Join(res.Root, filepath.FromSlash(e.Path))
			if !w.writeBody(r, full) {
				doc.Placeholders++
			}
			r.write("\n")
			doc.Files++
		}
	}

	doc.Body = r.b.String()
	doc.Stats = r.stats
	w.logger.Debug("Rendered document",
		zap.String("name", name),
		zap.Int("files", doc.Files),
		zap.Uint64("bytes", doc.Stats.Bytes),
		zap.Uint64("tokens", doc.Stats.Tokens))
	return doc
}

// writeBody writes a fenced body, or a placeholder. It reports whether the
// real content was written.
func (w *Writer) writeBody(r *render, path string) bool {
	if w.in.IsBinary(path) || !w.in.IsText(path) {
		r.write(BinaryPlaceholder + "\n")
		r.write("- Size: " + w.in.HumanSize(path) + "\n")
		return false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		w.logger.Warn("Cannot read file, writing error placeholder", zap.String("path", path), zap.Error(err))
		r.write(ErrorPlaceholder + "\n")
		return false
	}

	content := string(data)
	fence := FenceFor(content)
	noEOL := content != "" && !strings.HasSuffix(content, "\n")
	r.write(fence + infoString(w.in.Language(path), noEOL, IsPlaceholder(content)) + "\n")
	r.write(content)
	if noEOL {
		r.write("\n")
	}
	r.write(fence + "\n")
	return true
}

// infoString builds a fence info string. Marker words always follow a
// language tag so renderers do not take a marker for the language.
func infoString(tag string, noEOL, verbatim bool) string {
	if tag == "" && (noEOL || verbatim) {
		tag = PlainTag
	}
	if noEOL {
		tag += " " + NoEOLMarker
	}
	if verbatim {
		tag += " " + VerbatimMarker
	}
	return tag
}

// IsPlaceholder reports whether line starts like a binary or error
// placeholder.
func IsPlaceholder(line string) bool {
	return strings.HasPrefix(line, BinaryPlaceholder) || strings.HasPrefix(line, errorPrefix)
}

// MaxBacktickRun returns the longest run of consecutive backticks in s.
func MaxBacktickRun(s string) int {
	longest, run := 0, 0
	for i := 0; i < len(s); i++ {
		if s[i] == '`' {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}
	return longest
}

// FenceFor returns a backtick fence longer than any backtick run in content,
// and at least three long.
func FenceFor(content string) string {
	n := MaxBacktickRun(content) + 1
	if n < minFenceLen {
		n = minFenceLen
	}
	return strings.Repeat("`", n)
}

// RenderTree draws the tree with box-drawing connectors. Top-level entries
// have no connector; every line is prefixed with a folder or file icon and
// directories end in '/'.
func RenderTree(t *scan.Tree) string {
	var b strings.Builder
	for _, c := range t.Children(scan.RootIndex) {
		writeNode(&b, t, c, "", "")
	}
	return b.String()
}

func writeNode(b *strings.Builder, t *scan.Tree, i int, prefix, connector string) {
	n := &t.Nodes[i]
	b.WriteString(prefix)
	b.WriteString(connector)
	if n.IsDir {
		b.WriteString(dirIcon + " " + n.Name + "/\n")
	} else {
		b.WriteString(fileIcon + " " + n.Name + "\n")
	}

	childPrefix := prefix
	switch connector {
	case branch:
		childPrefix += pipeIndent
	case lastBranch:
		childPrefix += indent
	}

	children := t.Children(i)
	for k, c := range children {
		if k == len(children)-1 {
			writeNode(b, t, c, childPrefix, lastBranch)
		} else {
			writeNode(b, t, c, childPrefix, branch)
		}
	}
}
