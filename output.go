package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/atotto/clipboard"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jadenpxrk/dirdoc/internal/archive"
	"github.com/jadenpxrk/dirdoc/internal/dirdoc"
	"go.uber.org/zap"
)

const stdoutPath = "-"

var stdout io.Writer = os.Stdout

// writeOutput writes the archive to dest, or each part to its _partN file
// next to dest when the archive was split. A split archive bound for stdout
// is written whole. It returns the paths written.
func writeOutput(out *dirdoc.Output, dest string) ([]string, error) {
	if dest == "" {
		dest = defaultOutput
	}
	if dest == stdoutPath {
		text := out.Parts[0].Text
		if out.IsSplit() {
			logger.Warn("Parts need an output file, writing the archive whole to stdout", zap.Int("parts", len(out.Parts)))
			text = out.Document.Finalize(false)
		}
		if _, err := io.WriteString(stdout, text); err != nil {
			return nil, fmt.Errorf("write to stdout: %w", err)
		}
		return []string{stdoutPath}, nil
	}

	if dir := filepath.Dir(dest); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("cannot create output directory: %w", err)
		}
	}

	if !out.IsSplit() {
		if err := os.WriteFile(dest, []byte(out.Parts[0].Text), 0o644); err != nil {
			return nil, fmt.Errorf("cannot create output file: %w", err)
		}
		return []string{dest}, nil
	}

	written := make([]string, 0, len(out.Parts))
	for _, p := range out.Parts {
		name := archive.PartName(dest, p.Number)
		if err := os.WriteFile(name, []byte(p.Text), 0o644); err != nil {
			return written, fmt.Errorf("cannot create part %d: %w", p.Number, err)
		}
		written = append(written, name)
	}
	// A stale unsplit archive from an earlier run would shadow the parts.
	if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
		logger.Warn("Could not remove unsplit output", zap.String("path", dest), zap.Error(err))
	}
	return written, nil
}

// copyToClipboard copies an unsplit archive. Split archives are too large
// to be useful on a clipboard.
func copyToClipboard(out *dirdoc.Output) {
	if out.IsSplit() {
		fmt.Fprintln(os.Stderr, "Archive was split, not copying to clipboard.")
		return
	}
	if err := clipboard.WriteAll(out.Parts[0].Text); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing to clipboard: %v\n", err)
		return
	}
	fmt.Fprintln(os.Stderr, "Output copied to clipboard.")
}

// printStats prints the completion summary.
func printStats(w io.Writer, written []string, out *dirdoc.Output) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)

	green.Fprintln(w, "\n✨ Directory documentation complete!")
	if len(written) == 1 {
		fmt.Fprintf(w, "📝 Output: %s\n", bold.Sprint(written[0]))
	} else {
		fmt.Fprintf(w, "✅ Output successfully split into %d parts:\n", len(written))
		for _, p := range written {
			fmt.Fprintf(w, "   - %s\n", bold.Sprint(p))
		}
	}

	stats := out.Document.Stats
	fmt.Fprintln(w, "📊 Stats:")
	fmt.Fprintf(w, "   - Files: %d\n", out.Document.Files)
	fmt.Fprintf(w, "   - Total Tokens: %s\n", humanize.Comma(int64(stats.Tokens)))
	fmt.Fprintf(w, "   - Total Size: %.2f MB (%s)\n", float64(stats.Bytes)/bytesPerMB, humanize.IBytes(stats.Bytes))
	if out.Document.Placeholders > 0 {
		fmt.Fprintf(w, "   - Binary or unreadable: %d\n", out.Document.Placeholders)
	}
}
