// Package reconstruct recreates a file tree from a directory archive.
package reconstruct

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/jadenpxrk/dirdoc/internal/archive"
	"github.com/jadenpxrk/dirdoc/internal/logging"

	"go.uber.org/zap"
)

const sizePrefix = "- Size:"

// Stats counts what a reconstruction produced.
type Stats struct {
	Files        int   // files written, placeholders included
	Placeholders int   // files left empty because their body was a placeholder
	Skipped      int   // records that could not be written
	Bytes        int64 // content bytes written
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Files += o.Files
	s.Placeholders += o.Placeholders
	s.Skipped += o.Skipped
	s.Bytes += o.Bytes
}

type record struct {
	rel         string
	path        string // empty when the record cannot be written
	body        strings.Builder
	noEOL       bool
	verbatim    bool // body is literal even if it looks like a placeholder
	placeholder bool
}

type parser struct {
	outDir string
	logger *zap.Logger
	stats  Stats

	cur *record

	fence   string // set while inside a code block
	bare    bool   // the open block is not a record body
	started bool   // the open block has seen a line
	pending []string
}

// ReconstructFile opens the archive at docPath and reconstructs it into
// outDir.
func ReconstructFile(docPath, outDir string, logger *zap.Logger) (Stats, error) {
	f, err := os.Open(docPath)
	if err != nil {
		return Stats{}, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()
	return Reconstruct(f, outDir, logger)
}

// Reconstruct reads an archive or one part of it and writes every file
// record below outDir. Only failures to read the document or create outDir
// are returned; a record that cannot be written is logged and skipped.
func Reconstruct(r io.Reader, outDir string, logger *zap.Logger) (Stats, error) {
	logger = logging.OrNop(logger)
	abs, err := filepath.Abs(outDir)
	if err != nil {
		return Stats{}, fmt.Errorf("resolve output directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return Stats{}, fmt.Errorf("create output directory: %w", err)
	}

	p := &parser{outDir: abs, logger: logger}
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			p.line(line)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			p.close()
			return p.stats, fmt.Errorf("read archive: %w", err)
		}
	}
	p.close()

	logger.Debug("Reconstructed archive",
		zap.String("outDir", abs),
		zap.Int("files", p.stats.Files),
		zap.Int("placeholders", p.stats.Placeholders),
		zap.Int("skipped", p.stats.Skipped))
	return p.stats, nil
}

func (p *parser) line(raw string) {
	text := strings.TrimRight(raw, "\r\n")
	if p.fence != "" {
		p.codeLine(raw, text)
		return
	}

	if strings.HasPrefix(text, archive.RecordPrefix) {
		p.open(strings.TrimPrefix(text, archive.RecordPrefix))
		return
	}
	if fence, info, ok := archive.ParseFence(text); ok {
		p.fence = fence
		p.bare = p.cur == nil
		p.started = false
		p.pending = nil
		if p.cur != nil {
			p.cur.body.Reset()
			p.cur.noEOL = hasWord(info, archive.NoEOLMarker)
			p.cur.verbatim = hasWord(info, archive.VerbatimMarker)
		}
		return
	}
	if p.cur != nil && archive.IsPlaceholder(text) {
		p.cur.placeholder = true
		p.close()
	}
}

func (p *parser) codeLine(raw, text string) {
	if text == p.fence {
		p.fence = ""
		if p.bare {
			return
		}
		if p.pending != nil && p.cur != nil {
			p.cur.placeholder = true
		}
		p.pending = nil
		p.close()
		return
	}
	if p.bare || p.cur == nil {
		return
	}

	// An unmarked block holding only a placeholder, optionally followed by
	// its size line, stands for a file without content.
	switch {
	case !p.started && !p.cur.verbatim && archive.IsPlaceholder(text):
		p.pending = append(p.pending, raw)
	case len(p.pending) == 1 && strings.HasPrefix(text, sizePrefix):
		p.pending = append(p.pending, raw)
	default:
		for _, l := range p.pending {
			p.cur.body.WriteString(l)
		}
		p.pending = nil
		p.cur.body.WriteString(raw)
	}
	p.started = true
}

func (p *parser) open(rel string) {
	p.close()
	rec := &record{rel: rel}
	p.cur = rec

	if rel == "" || strings.HasSuffix(rel, "/") {
		p.logger.Warn("Skipping record without a file path", zap.String("path", rel))
		return
	}
	path, err := securejoin.SecureJoin(p.outDir, filepath.FromSlash(rel))
	if err != nil {
		p.logger.Warn("Skipping record with unusable path", zap.String("path", rel), zap.Error(err))
		return
	}
	if path == p.outDir {
		p.logger.Warn("Skipping record that resolves to the output directory", zap.String("path", rel))
		return
	}
	rec.path = path
}

// close writes the open record, if any.
func (p *parser) close() {
	rec := p.cur
	p.cur = nil
	if rec == nil {
		return
	}
	if rec.path == "" {
		p.stats.Skipped++
		return
	}

	content := rec.body.String()
	if rec.placeholder {
		content = ""
	} else if rec.noEOL {
		content = strings.TrimSuffix(content, "\n")
	}

	if err := os.MkdirAll(filepath.Dir(rec.path), 0o755); err != nil {
		p.logger.Warn("Cannot create parent directory", zap.String("path", rec.rel), zap.Error(err))
		p.stats.Skipped++
		return
	}
	if err := os.WriteFile(rec.path, []byte(content), 0o644); err != nil {
		p.logger.Warn("Cannot write file", zap.String("path", rec.rel), zap.Error(err))
		p.stats.Skipped++
		return
	}

	p.stats.Files++
	p.stats.Bytes += int64(len(content))
	if rec.placeholder {
		p.stats.Placeholders++
	}
	p.logger.Debug("Restored file", zap.String("path", rec.rel), zap.Int("bytes", len(content)))
}

func hasWord(info, word string) bool {
	for _, f := range strings.Fields(info) {
		if f == word {
			return true
		}
	}
	return false
}
