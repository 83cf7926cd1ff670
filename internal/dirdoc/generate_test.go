package dirdoc

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jadenpxrk/dirdoc/internal/archive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func project(t *testing.T, n int) string {
	t.Helper()
	root := t.TempDir()
	for i := 0; i < n; i++ {
		full := filepath.Join(root, "src", fmt.Sprintf("file%02d.txt", i))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(strings.Repeat("some line\n", 10)), 0o644))
	}
	return root
}

// recorder is a decider that remembers what it was asked.
type recorder struct {
	choice Choice
	err    error
	calls  []Oversize
}

func (r *recorder) decide(o Oversize) (Choice, error) {
	r.calls = append(r.calls, o)
	return r.choice, r.err
}

func TestGenerate(t *testing.T) {
	root := project(t, 2)

	out, err := Generate(root, Options{}, Deps{})
	require.NoError(t, err)

	require.Len(t, out.Parts, 1)
	assert.False(t, out.IsSplit())
	text := out.Parts[0].Text
	assert.True(t, strings.HasPrefix(text, "# Documentation Summary\n\n"))
	assert.Contains(t, text, "# Directory Documentation: "+filepath.Base(root)+"\n")
	assert.Contains(t, text, "### 📄 src/file01.txt\n")
	assert.Equal(t, 2, out.Document.Files)
	assert.Equal(t, filepath.Base(root), out.Result.Name)
}

func TestGenerateName(t *testing.T) {
	out, err := Generate(project(t, 1), Options{Name: "repo"}, Deps{})
	require.NoError(t, err)
	assert.Contains(t, out.Parts[0].Text, "# Directory Documentation: repo\n")
}

func TestGenerateEmptyRoot(t *testing.T) {
	_, err := Generate(t.TempDir(), Options{}, Deps{})
	assert.ErrorIs(t, err, ErrNoEntries)
}

func TestGenerateAllIgnored(t *testing.T) {
	out, err := Generate(project(t, 3), Options{Ignore: []string{"*"}}, Deps{})
	require.NoError(t, err)
	assert.Zero(t, out.Result.Tree.Len())
	assert.Zero(t, out.Document.Files)
	assert.Len(t, out.Parts, 1)
}

func TestGenerateMissingRoot(t *testing.T) {
	_, err := Generate(filepath.Join(t.TempDir(), "nope"), Options{}, Deps{})
	require.Error(t, err)
}

func TestGenerateOversizeSplit(t *testing.T) {
	rec := &recorder{choice: Choice{Decision: DecisionSplit, Limit: 800}}

	out, err := Generate(project(t, 20), Options{SplitLimit: 500}, Deps{Decide: rec.decide})
	require.NoError(t, err)

	require.Len(t, rec.calls, 1)
	assert.Equal(t, 500, rec.calls[0].Limit)
	assert.Greater(t, rec.calls[0].Bytes, 500)
	assert.Positive(t, rec.calls[0].Tokens)

	assert.Equal(t, 800, out.Limit)
	require.True(t, out.IsSplit())
	assert.Contains(t, out.Parts[0].Text, "split into multiple parts")
	last := out.Parts[len(out.Parts)-1]
	assert.True(t, last.Last)
	assert.Contains(t, last.Text, fmt.Sprintf("**Continued from part %d**", last.Number-1))
}

func TestGenerateOversizeStructureOnly(t *testing.T) {
	rec := &recorder{choice: Choice{Decision: DecisionStructureOnly}}

	out, err := Generate(project(t, 20), Options{SplitLimit: 500}, Deps{Decide: rec.decide})
	require.NoError(t, err)

	assert.True(t, out.Document.StructureOnly)
	require.Len(t, out.Parts, 1)
	assert.NotContains(t, out.Parts[0].Text, archive.ContentsHeading)
	assert.Contains(t, out.Parts[0].Text, "file19.txt")
}

func TestGenerateOversizeContinue(t *testing.T) {
	rec := &recorder{choice: Choice{Decision: DecisionContinue}}

	out, err := Generate(project(t, 20), Options{SplitLimit: 500}, Deps{Decide: rec.decide})
	require.NoError(t, err)

	require.Len(t, out.Parts, 1)
	assert.Greater(t, len(out.Parts[0].Text), 500)
	assert.NotContains(t, out.Parts[0].Text, "split into multiple parts")
}

func TestGenerateOversizeQuit(t *testing.T) {
	out, err := Generate(project(t, 20), Options{SplitLimit: 500}, Deps{Decide: Fixed(DecisionQuit)})
	assert.ErrorIs(t, err, ErrAborted)
	assert.Nil(t, out)
}

func TestGenerateDeciderError(t *testing.T) {
	boom := errors.New("no terminal")
	rec := &recorder{err: boom}

	_, err := Generate(project(t, 20), Options{SplitLimit: 500}, Deps{Decide: rec.decide})
	assert.ErrorIs(t, err, boom)
}

func TestGenerateNoDeciderKeepsWhole(t *testing.T) {
	out, err := Generate(project(t, 20), Options{SplitLimit: 500}, Deps{})
	require.NoError(t, err)
	assert.Len(t, out.Parts, 1)
}

func TestGenerateSplitRequested(t *testing.T) {
	rec := &recorder{choice: Choice{Decision: DecisionQuit}}

	out, err := Generate(project(t, 20), Options{Split: true, SplitLimit: 600}, Deps{Decide: rec.decide})
	require.NoError(t, err)

	assert.Empty(t, rec.calls)
	require.True(t, out.IsSplit())
	for i, p := range out.Parts {
		assert.Equal(t, i+1, p.Number)
	}
}

func TestGenerateUnderLimit(t *testing.T) {
	rec := &recorder{choice: Choice{Decision: DecisionQuit}}

	out, err := Generate(project(t, 1), Options{Split: true, SplitLimit: 1 << 20}, Deps{Decide: rec.decide})
	require.NoError(t, err)
	assert.Empty(t, rec.calls)
	require.Len(t, out.Parts, 1)
	assert.NotContains(t, out.Parts[0].Text, "split into multiple parts")
}

func TestParseDecision(t *testing.T) {
	tests := []struct {
		in   string
		want Decision
	}{
		{"split", DecisionSplit},
		{"S", DecisionSplit},
		{"structure", DecisionStructureOnly},
		{"b", DecisionStructureOnly},
		{" Continue ", DecisionContinue},
		{"q", DecisionQuit},
	}
	for _, tt := range tests {
		got, err := ParseDecision(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseDecision("maybe")
	assert.Error(t, err)

	assert.Equal(t, "structure", DecisionStructureOnly.String())
	assert.Equal(t, "Decision(9)", Decision(9).String())
}

func TestGenerateExcludesOwnOutput(t *testing.T) {
	root := project(t, 2)
	dest := filepath.Join(root, "directory_documentation.md")
	opts := Options{Exclude: []string{dest}}

	var texts []string
	for run := 0; run < 3; run++ {
		out, err := Generate(root, opts, Deps{})
		require.NoError(t, err)
		text := out.Parts[0].Text
		texts = append(texts, text)
		require.NoError(t, os.WriteFile(dest, []byte(text), 0o644))
		require.NoError(t, os.WriteFile(archive.PartName(dest, run+1), []byte(text), 0o644))
	}

	last := texts[len(texts)-1]
	assert.NotContains(t, last, archive.RecordPrefix+"directory_documentation")
	assert.NotContains(t, last, "directory_documentation_part")
	assert.Equal(t, texts[0], last)
	assert.Contains(t, last, archive.RecordPrefix+"src/file00.txt\n")
}

func TestExcludePatterns(t *testing.T) {
	root := t.TempDir()

	tests := []struct {
		output string
		want   []string
	}{
		{filepath.Join(root, "doc.md"), []string{"/doc.md", "/doc_part*.md"}},
		{filepath.Join(root, "sub", "doc.md"), []string{"/sub/doc.md", "/sub/doc_part*.md"}},
		{filepath.Join(root, ".archive"), []string{"/.archive", "/.archive_part*"}},
		{filepath.Join(root, "a*b.md"), []string{`/a\*b.md`, `/a\*b_part*.md`}},
		{filepath.Join(filepath.Dir(root), "outside.md"), nil},
		{root, nil},
		{"", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, excludePatterns(root, []string{tt.output}), tt.output)
	}
}

func TestGenerateExcludeMatchesLiterally(t *testing.T) {
	root := project(t, 1)
	for _, name := range []string{"a*b.md", "aXb.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("x\n"), 0o644))
	}

	out, err := Generate(root, Options{Exclude: []string{filepath.Join(root, "a*b.md")}}, Deps{})
	require.NoError(t, err)
	text := out.Parts[0].Text
	assert.NotContains(t, text, archive.RecordPrefix+"a*b.md\n")
	assert.Contains(t, text, archive.RecordPrefix+"aXb.md\n")
}
