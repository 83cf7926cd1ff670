package ignore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileFlags(t *testing.T) {
	tests := []struct {
		pattern  string
		negated  bool
		anchored bool
		dirOnly  bool
	}{
		{"*.log", false, false, false},
		{"!important.log", true, false, false},
		{"/root.txt", false, true, false},
		{"build/", false, false, true},
		{"!/dist/  ", true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			r, err := Compile(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.negated, r.Negated)
			assert.Equal(t, tt.anchored, r.Anchored)
			assert.Equal(t, tt.dirOnly, r.DirOnly)
		})
	}
}

func TestCompileEmpty(t *testing.T) {
	for _, p := range []string{"!", "/", "!/", "   "} {
		_, err := Compile(p)
		assert.ErrorIs(t, err, ErrEmptyPattern, p)
	}
}

func TestRuleMatch(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		isDir   bool
		want    bool
	}{
		{"*.log", "error.log", false, true},
		{"*.log", "logs/error.log", false, true},
		{"*.log", "error.log.txt", false, false},
		{"/root.txt", "root.txt", false, true},
		{"/root.txt", "sub/root.txt", false, false},
		{"build/", "build", true, true},
		{"build/", "build", false, false},
		{"build/", "build/main.o", false, true},
		{"build/", "src/build/obj/x.o", false, true},
		{"build/", "buildsomething.txt", false, false},
		{"build/", "rebuild", true, false},
		{"a?c", "abc", false, true},
		{"a?c", "a/c", false, false},
		{"docs/*.md", "docs/readme.md", false, true},
		{"docs/*.md", "docs/deep/readme.md", false, false},
		{"docs/**/*.md", "docs/readme.md", false, true},
		{"docs/**/*.md", "docs/a/b/readme.md", false, true},
		{"**/vendor", "vendor", true, true},
		{"**/vendor", "x/y/vendor", true, true},
		{"out/**", "out/a/b", false, true},
		{"file(1).txt", "file(1).txt", false, true},
		{"file(1).txt", "file1.txt", false, false},
		{"[ab].txt", "[ab].txt", false, true},
		{"[ab].txt", "a.txt", false, false},
		{`\#notes`, "#notes", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"~"+tt.path, func(t *testing.T) {
			r, err := Compile(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.Match(tt.path, tt.isDir))
		})
	}
}

func TestLastRuleWins(t *testing.T) {
	rs := NewRuleSet(nil)
	rs.AddPatterns("", "*.log", "!important.log")

	assert.True(t, rs.Matches("error.log", false))
	assert.False(t, rs.Matches("important.log", false))

	reversed := NewRuleSet(nil)
	reversed.AddPatterns("", "!important.log", "*.log")

	assert.True(t, reversed.Matches("error.log", false))
	assert.True(t, reversed.Matches("important.log", false), "order decides ties")
}

func TestMatchesWithRule(t *testing.T) {
	rs := NewRuleSet(nil)
	rs.AddPatterns("", "*.tmp", "cache/", "!keep.tmp")

	ignored, rule := rs.MatchesWithRule("keep.tmp", false)
	assert.False(t, ignored)
	require.NotNil(t, rule)
	assert.Equal(t, "!keep.tmp", rule.Pattern)

	ignored, rule = rs.MatchesWithRule("main.go", false)
	assert.False(t, ignored)
	assert.Nil(t, rule)
}

func TestAddPatternsSkipsCommentsAndMalformed(t *testing.T) {
	rs := NewRuleSet(nil)
	n := rs.AddPatterns("", "# comment", "", "   ", "!", "*.o", "/")
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, rs.Len())
}

func TestScopedRules(t *testing.T) {
	rs := NewRuleSet(nil)
	rs.AddPatterns("src", "*.gen.go", "/local.txt")

	assert.True(t, rs.Matches("src/a.gen.go", false))
	assert.True(t, rs.Matches("src/pkg/a.gen.go", false))
	assert.False(t, rs.Matches("a.gen.go", false), "rules do not leak above their directory")
	assert.True(t, rs.Matches("src/local.txt", false))
	assert.False(t, rs.Matches("src/pkg/local.txt", false), "anchored to the declaring directory")
	assert.False(t, rs.Matches("src", true))
}

func TestWithDoesNotMutate(t *testing.T) {
	parent := NewRuleSet(nil)
	parent.AddPatterns("", "*.log")

	child := NewRuleSet(nil)
	child.AddPatterns("sub", "!keep.log")

	combined := parent.With(child)
	assert.Equal(t, 1, parent.Len())
	assert.Equal(t, 2, combined.Len())
	assert.False(t, combined.Matches("sub/keep.log", false))
	assert.True(t, parent.Matches("sub/keep.log", false))
}

func TestNilRuleSet(t *testing.T) {
	var rs *RuleSet
	assert.False(t, rs.Matches("anything", false))
	assert.Equal(t, 0, rs.Len())
	assert.Equal(t, 0, rs.With(nil).Len())
}

func TestAddFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".gitignore")
	require.NoError(t, os.WriteFile(path, []byte("# generated\nnode_modules/\r\n*.pyc\n\n!keep.pyc\n"), 0644))

	rs := NewRuleSet(nil)
	require.NoError(t, rs.AddFile("", path))
	assert.Equal(t, 3, rs.Len())
	assert.True(t, rs.Matches("node_modules/x/index.js", false))
	assert.True(t, rs.Matches("a/b.pyc", false))
	assert.False(t, rs.Matches("keep.pyc", false))

	err := rs.AddFile("", filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
