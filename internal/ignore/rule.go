// Package ignore compiles gitignore-style patterns into regular expressions
// and evaluates them with last-rule-wins precedence.
package ignore

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ErrEmptyPattern is returned when nothing is left of a pattern after its
// negation, anchor and directory markers are removed.
var ErrEmptyPattern = errors.New("empty ignore pattern")

// Rule is one compiled ignore pattern.
type Rule struct {
	Pattern  string // Pattern as written, before any marker was removed.
	Base     string // Directory the rule was declared in, relative to the scan root ("" for the root).
	Negated  bool   // Leading '!': a match re-includes the path.
	Anchored bool   // Leading '/': the body must match from the start of the path.
	DirOnly  bool   // Trailing '/': only directories and their contents match.

	exact *regexp.Regexp // Matches the path itself.
	below *regexp.Regexp // DirOnly rules: matches any path inside a matching directory.
}

// Compile parses a single pattern declared at the scan root.
func Compile(pattern string) (*Rule, error) {
	return compileIn("", pattern)
}

func compileIn(base, pattern string) (*Rule, error) {
	r := &Rule{
		Pattern: pattern,
		Base:    strings.Trim(filepath.ToSlash(base), "/"),
	}

	body := strings.TrimRight(pattern, " \t\r\n")
	switch {
	case strings.HasPrefix(body, `\!`), strings.HasPrefix(body, `\#`):
		// Escaped marker: keep the character literally.
		body = body[1:]
	case strings.HasPrefix(body, "!"):
		r.Negated = true
		body = body[1:]
	}
	if strings.HasPrefix(body, "/") {
		r.Anchored = true
		body = body[1:]
	}
	if strings.HasSuffix(body, "/") {
		r.DirOnly = true
		body = strings.TrimSuffix(body, "/")
	}
	if body == "" {
		return nil, fmt.Errorf("%w: %q", ErrEmptyPattern, pattern)
	}

	prefix := "^(?:.*/)?"
	if r.Anchored {
		prefix = "^"
	}
	glob := translateGlob(body)

	var err error
	r.exact, err = regexp.Compile(prefix + glob + "$")
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", pattern, err)
	}
	if r.DirOnly {
		r.below, err = regexp.Compile(prefix + glob + "/")
		if err != nil {
			return nil, fmt.Errorf("compile pattern %q: %w", pattern, err)
		}
	}
	return r, nil
}

// translateGlob turns a glob body into a regular expression fragment.
// "**" crosses separators, "*" and "?" do not, everything else is literal.
func translateGlob(body string) string {
	var b strings.Builder
	for i := 0; i < len(body); {
		c := body[i]
		switch {
		case c == '*' && i+1 < len(body) && body[i+1] == '*':
			i += 2
			for i < len(body) && body[i] == '*' {
				i++
			}
			if i < len(body) && body[i] == '/' {
				// "**/" also matches zero directories.
				b.WriteString("(?:.*/)?")
				i++
			} else {
				b.WriteString(".*")
			}
		case c == '*':
			b.WriteString("[^/]*")
			i++
		case c == '?':
			b.WriteString("[^/]")
			i++
		case c == '\\' && i+1 < len(body):
			r, size := utf8.DecodeRuneInString(body[i+1:])
			b.WriteString(regexp.QuoteMeta(string(r)))
			i += 1 + size
		default:
			r, size := utf8.DecodeRuneInString(body[i:])
			b.WriteString(regexp.QuoteMeta(string(r)))
			i += size
		}
	}
	return b.String()
}

// Match reports whether the rule matches path. Path is relative to the scan
// root and uses '/' separators; rules declared in a subdirectory only see
// paths below that directory.
func (r *Rule) Match(path string, isDir bool) bool {
	rel, ok := r.relative(path)
	if !ok {
		return false
	}
	if r.DirOnly {
		if r.below.MatchString(rel) {
			return true
		}
		return isDir && r.exact.MatchString(rel)
	}
	return r.exact.MatchString(rel)
}

func (r *Rule) relative(path string) (string, bool) {
	path = normalizePath(path)
	if r.Base == "" {
		return path, true
	}
	if rest, ok := strings.CutPrefix(path, r.Base+"/"); ok && rest != "" {
		return rest, true
	}
	return "", false
}

// String returns the pattern as written.
func (r *Rule) String() string {
	if r.Base == "" {
		return r.Pattern
	}
	return r.Base + ": " + r.Pattern
}

// normalizePath converts OS-specific separators and strips "./" and slashes
// at either end.
func normalizePath(path string) string {
	path = filepath.ToSlash(path)
	for strings.HasPrefix(path, "./") {
		path = path[2:]
	}
	return strings.Trim(path, "/")
}
