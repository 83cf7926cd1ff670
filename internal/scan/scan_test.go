package scan

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/jadenpxrk/dirdoc/internal/ignore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTree creates files (and their parents) under root. A path ending in
// '/' creates an empty directory.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if rel[len(rel)-1] == '/' {
			require.NoError(t, os.MkdirAll(path, 0755))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func paths(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Path
	}
	return out
}

func TestComparePaths(t *testing.T) {
	in := []Entry{{Path: "src/main.c"}, {Path: "b"}, {Path: "src"}, {Path: "a"}}
	SortEntries(in)
	assert.Equal(t, []string{"a", "b", "src", "src/main.c"}, paths(in))

	assert.Negative(t, ComparePaths("src", "src/main.c"))
	assert.Negative(t, ComparePaths("a/z", "a-b"), "components compare before separators")
	assert.Zero(t, ComparePaths("x/y", "x/y"))
}

func TestScanOrderingAndDepth(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"b.txt":           "b",
		"a.txt":           "a",
		"src/main.c":      "int main;",
		"src/lib/util.c":  "u",
		"src-extra/x.txt": "x",
		"empty/":          "",
	})

	res, err := Scan(root, nil, Options{}, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(root), res.Name)

	entries := res.Entries()
	assert.Equal(t, []string{
		"a.txt",
		"b.txt",
		"empty",
		"src",
		"src/lib",
		"src/lib/util.c",
		"src/main.c",
		"src-extra",
		"src-extra/x.txt",
	}, paths(entries))

	for _, e := range entries {
		switch e.Path {
		case "src":
			assert.True(t, e.IsDir)
			assert.Equal(t, 0, e.Depth)
		case "src/lib/util.c":
			assert.False(t, e.IsDir)
			assert.Equal(t, 2, e.Depth)
		}
	}

	tree := res.Tree
	for i, n := range tree.Nodes {
		if i == RootIndex {
			continue
		}
		assert.Equal(t, tree.Nodes[n.Parent].Depth+1, n.Depth, n.Path)
	}
}

func TestScanGitignoreScoping(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		".gitignore":          "*.log\nbuild/\n",
		"app.log":             "x",
		"build/out.o":         "x",
		"keep.txt":            "x",
		"sub/.gitignore":      "!important.log\n/local.txt\n",
		"sub/important.log":   "x",
		"sub/other.log":       "x",
		"sub/local.txt":       "x",
		"sub/deep/local.txt":  "x",
		"other/local.txt":     "x",
		"other/important.log": "x",
	})

	res, err := Scan(root, nil, Options{}, nil)
	require.NoError(t, err)

	got := paths(res.Entries())
	assert.Contains(t, got, "keep.txt")
	assert.Contains(t, got, "sub/important.log")
	assert.Contains(t, got, "sub/deep/local.txt")
	assert.Contains(t, got, "other/local.txt")
	assert.Contains(t, got, ".gitignore")
	assert.NotContains(t, got, "app.log")
	assert.NotContains(t, got, "build")
	assert.NotContains(t, got, "build/out.o")
	assert.NotContains(t, got, "sub/other.log")
	assert.NotContains(t, got, "sub/local.txt")
	assert.NotContains(t, got, "other/important.log", "sub's negation must not leak into siblings")
	assert.Positive(t, res.Ignored)
}

func TestScanNoGitignore(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		".gitignore": "*.log\n",
		"app.log":    "x",
	})

	res, err := Scan(root, nil, Options{NoGitignore: true}, nil)
	require.NoError(t, err)
	assert.Contains(t, paths(res.Entries()), "app.log")
}

func TestScanExtraRulesWin(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		".gitignore": "*.log\n",
		"app.log":    "x",
		"notes.md":   "x",
	})

	extra := ignore.NewRuleSet(nil)
	extra.AddPatterns("", "!app.log", "*.md")

	res, err := Scan(root, extra, Options{}, nil)
	require.NoError(t, err)
	got := paths(res.Entries())
	assert.Contains(t, got, "app.log")
	assert.NotContains(t, got, "notes.md")
}

func TestScanSkipsGitDirectory(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		".git/HEAD":  "ref: refs/heads/main",
		"sub/.git/x": "x",
		"README.md":  "hi",
	})

	res, err := Scan(root, nil, Options{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"README.md", "sub"}, paths(res.Entries()))

	res, err = Scan(root, nil, Options{IncludeGit: true}, nil)
	require.NoError(t, err)
	assert.Contains(t, paths(res.Entries()), ".git/HEAD")
}

func TestScanMaxDepth(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a/b/c.txt": "x",
		"top.txt":   "x",
	})

	res, err := Scan(root, nil, Options{MaxDepth: 2}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a/b", "top.txt"}, paths(res.Entries()))
}

func TestScanAllIgnored(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.tmp": "x", "b.tmp": "y"})

	extra := ignore.NewRuleSet(nil)
	extra.AddPatterns("", "*.tmp")

	res, err := Scan(root, extra, Options{}, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Entries())
	assert.Equal(t, 2, res.Ignored)
}

func TestScanRootErrors(t *testing.T) {
	_, err := Scan(filepath.Join(t.TempDir(), "missing"), nil, Options{}, nil)
	assert.ErrorIs(t, err, ErrRootUnreadable)

	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	_, err = Scan(file, nil, Options{}, nil)
	assert.ErrorIs(t, err, ErrRootUnreadable)
}

func TestScanUnreadableSubdirectory(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}
	root := t.TempDir()
	writeTree(t, root, map[string]string{"locked/secret.txt": "x", "ok.txt": "x"})
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Chmod(locked, 0000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0755) })

	res, err := Scan(root, nil, Options{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"locked", "ok.txt"}, paths(res.Entries()))
	assert.Equal(t, 1, res.Skipped)
}

func TestNewTree(t *testing.T) {
	tree := NewTree([]Entry{
		{Path: "src/main.c", Depth: 1},
		{Path: "a", Depth: 0},
		{Path: "src", IsDir: true, Depth: 0},
		{Path: "b", Depth: 0},
		{Path: "orphan/x", Depth: 1},
	})

	assert.Equal(t, []string{"a", "b", "src", "src/main.c"}, paths(tree.Entries()))
	assert.Equal(t, []string{"a", "b", "src/main.c"}, paths(tree.Files()))
}
