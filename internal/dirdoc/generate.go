// Package dirdoc runs a complete archive generation: scan, render, resolve
// an oversized result, finalize and split.
package dirdoc

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jadenpxrk/dirdoc/internal/archive"
	"github.com/jadenpxrk/dirdoc/internal/ignore"
	"github.com/jadenpxrk/dirdoc/internal/logging"
	"github.com/jadenpxrk/dirdoc/internal/scan"
	"github.com/jadenpxrk/dirdoc/internal/tokenizer"

	"go.uber.org/zap"
)

var (
	// ErrAborted is returned when the decider chose to quit.
	ErrAborted = errors.New("archive creation cancelled")
	// ErrNoEntries is returned for a root with nothing in it.
	ErrNoEntries = errors.New("no files or folders found")
)

// Options is the complete configuration of one run.
type Options struct {
	Name          string   // heading name; defaults to the root's base name
	Ignore        []string // extra ignore patterns, evaluated after .gitignore rules
	Exclude       []string // output files of this run; ignored with their _partN siblings when under the root
	Scan          scan.Options
	StructureOnly bool
	Split         bool // split without asking when over SplitLimit
	SplitLimit    int  // bytes; 0 disables the size check
}

// Deps are the collaborators of a run. Nil fields get defaults: the
// file inspector over the embedded language table, the approximate
// counter, no decider (oversized archives are kept whole) and a no-op
// logger.
type Deps struct {
	Inspector archive.Inspector
	Counter   tokenizer.Counter
	Decide    Decider
	Logger    *zap.Logger
}

// Output is the result of a run.
type Output struct {
	Result   *scan.Result
	Document *archive.Document
	Parts    []archive.Part // a single part when the archive was not split
	Limit    int            // split limit in effect
}

// IsSplit reports whether the archive was divided into several parts.
func (o *Output) IsSplit() bool {
	return len(o.Parts) > 1
}

// Generate scans root and produces the finalized archive.
func Generate(root string, opts Options, deps Deps) (*Output, error) {
	logger := logging.OrNop(deps.Logger)

	extra := ignore.NewRuleSet(logger)
	extra.AddPatterns("", opts.Ignore...)
	extra.AddPatterns("", excludePatterns(root, opts.Exclude)...)

	res, err := scan.Scan(root, extra, opts.Scan, logger)
	if err != nil {
		return nil, err
	}
	if res.Tree.Len() == 0 {
		if res.Ignored == 0 && res.Skipped == 0 {
			return nil, fmt.Errorf("%w in %s", ErrNoEntries, res.Root)
		}
		logger.Warn("All entries were ignored", zap.String("root", res.Root), zap.Int("ignored", res.Ignored))
	}

	w := archive.NewWriter(deps.Inspector, deps.Counter, logger)
	renderOpts := archive.RenderOptions{Name: opts.Name, StructureOnly: opts.StructureOnly}
	doc := w.Render(res, renderOpts)

	out := &Output{Result: res, Limit: opts.SplitLimit}
	text := doc.Finalize(false)
	split := opts.Split

	if out.Limit > 0 && len(text) > out.Limit && !split {
		choice, err := decide(deps.Decide, Oversize{Bytes: len(text), Tokens: doc.Stats.Tokens, Limit: out.Limit}, logger)
		if err != nil {
			return nil, fmt.Errorf("oversize decision: %w", err)
		}
		logger.Debug("Oversize decision", zap.Stringer("decision", choice.Decision), zap.Int("limit", choice.Limit))

		switch choice.Decision {
		case DecisionSplit:
			split = true
			if choice.Limit > 0 {
				out.Limit = choice.Limit
			}
		case DecisionStructureOnly:
			renderOpts.StructureOnly = true
			doc = w.Render(res, renderOpts)
			text = doc.Finalize(false)
		case DecisionQuit:
			return nil, ErrAborted
		}
	}

	out.Document = doc
	if split && out.Limit > 0 && len(text) > out.Limit {
		out.Parts = archive.Split(doc.Finalize(true), out.Limit)
		logger.Debug("Split archive", zap.Int("parts", len(out.Parts)), zap.Int("limit", out.Limit))
	} else {
		out.Parts = []archive.Part{{Number: 1, Text: text, First: true, Last: true}}
	}
	return out, nil
}

// excludePatterns returns anchored ignore patterns for every output path
// that lies under root: the path itself and its _partN siblings.
func excludePatterns(root string, outputs []string) []string {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil
	}
	var patterns []string
	for _, out := range outputs {
		if out == "" {
			continue
		}
		abs, err := filepath.Abs(out)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(absRoot, abs)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		rel = filepath.ToSlash(rel)
		// PartName puts the part number between the stem and the extension.
		name := filepath.ToSlash(archive.PartName(rel, 0))
		i := strings.LastIndex(name, "_part0")
		patterns = append(patterns,
			"/"+escapeGlob(rel),
			"/"+escapeGlob(name[:i])+"_part*"+escapeGlob(name[i+len("_part0"):]))
	}
	return patterns
}

// escapeGlob makes every character of s match literally.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', '\\', '!', '#':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func decide(d Decider, o Oversize, logger *zap.Logger) (Choice, error) {
	if d == nil {
		logger.Warn("Archive exceeds the split limit, keeping it whole",
			zap.Int("bytes", o.Bytes), zap.Int("limit", o.Limit))
		return Choice{Decision: DecisionContinue}, nil
	}
	return d(o)
}
