// Package scan walks a directory tree, applies ignore rules and produces the
// ordered entry list that an archive is rendered from.
package scan

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jadenpxrk/dirdoc/internal/ignore"
	"github.com/jadenpxrk/dirdoc/internal/logging"

	"go.uber.org/zap"
)

// IgnoreFileName is the per-directory ignore file folded into the rules of
// its subtree.
const IgnoreFileName = ".gitignore"

// ErrRootUnreadable is returned when the scan root cannot be opened.
var ErrRootUnreadable = errors.New("cannot open scan root")

// Options controls a scan.
type Options struct {
	NoGitignore bool // Do not load per-directory .gitignore files.
	IncludeGit  bool // Descend into .git directories.
	MaxDepth    int  // Levels listed below the root; 0 means unlimited.
}

// Result is the outcome of a successful scan.
type Result struct {
	Root    string // Absolute path of the scanned directory.
	Name    string // Base name of Root.
	Tree    *Tree
	Ignored int // Paths dropped by ignore rules.
	Skipped int // Paths dropped because they could not be read.
}

// Entries returns the surviving entries in canonical order.
func (r *Result) Entries() []Entry {
	return r.Tree.Entries()
}

type scanner struct {
	opts    Options
	extra   *ignore.RuleSet
	logger  *zap.Logger
	result  *Result
	visited map[string]bool
}

// Scan walks root depth-first. Extra rules are evaluated after the .gitignore
// rules in effect for each directory, so they have the last word. Only a root
// that cannot be opened is an error; unreadable subdirectories are logged and
// treated as empty.
func Scan(root string, extra *ignore.RuleSet, opts Options, logger *zap.Logger) (*Result, error) {
	logger = logging.OrNop(logger)

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrRootUnreadable, root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrRootUnreadable, root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w %s: not a directory", ErrRootUnreadable, root)
	}

	s := &scanner{
		opts:    opts,
		extra:   extra,
		logger:  logger,
		result:  &Result{Root: abs, Name: filepath.Base(abs), Tree: newTree()},
		visited: make(map[string]bool),
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		s.visited[real] = true
	}

	logger.Debug("Starting scan", zap.String("root", abs))
	if err := s.walk(abs, "", RootIndex, nil); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrRootUnreadable, root, err)
	}
	s.result.Tree.sortChildren()

	logger.Debug("Scan complete",
		zap.Int("entries", s.result.Tree.Len()),
		zap.Int("ignored", s.result.Ignored),
		zap.Int("skipped", s.result.Skipped))
	return s.result, nil
}

func (s *scanner) walk(dir, rel string, parent int, inherited *ignore.RuleSet) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	local := inherited
	if !s.opts.NoGitignore {
		giPath := filepath.Join(dir, IgnoreFileName)
		if _, statErr := os.Stat(giPath); statErr == nil {
			set := ignore.NewRuleSet(s.logger)
			if err := set.AddFile(rel, giPath); err != nil {
				s.logger.Warn("Could not load ignore file", zap.String("file", giPath), zap.Error(err))
			} else {
				local = inherited.With(set)
			}
		}
	}
	active := local.With(s.extra)
	depth := s.result.Tree.Nodes[parent].Depth + 1

	for _, de := range entries {
		name := de.Name()
		if name == ".git" && !s.opts.IncludeGit {
			continue
		}

		full := filepath.Join(dir, name)
		childRel := name
		if rel != "" {
			childRel = rel + "/" + name
		}

		isDir, err := entryIsDir(de, full)
		if err != nil {
			s.logger.Warn("Skipping unreadable path", zap.String("path", full), zap.Error(err))
			s.result.Skipped++
			continue
		}

		if ignored, rule := active.MatchesWithRule(childRel, isDir); ignored {
			s.logger.Debug("Ignoring path", zap.String("path", childRel), zap.Stringer("rule", rule))
			s.result.Ignored++
			continue
		}

		idx := s.result.Tree.add(parent, name, childRel, isDir)
		if !isDir {
			continue
		}
		if s.opts.MaxDepth > 0 && depth+1 >= s.opts.MaxDepth {
			continue
		}
		if real, err := filepath.EvalSymlinks(full); err == nil {
			if s.visited[real] {
				s.logger.Warn("Skipping directory cycle", zap.String("path", full), zap.String("target", real))
				continue
			}
			s.visited[real] = true
		}
		if err := s.walk(full, childRel, idx, local); err != nil {
			s.logger.Warn("Cannot read directory, treating it as empty", zap.String("path", full), zap.Error(err))
			s.result.Skipped++
		}
	}
	return nil
}

// entryIsDir resolves symlinks so a link to a directory is listed as one.
func entryIsDir(de fs.DirEntry, full string) (bool, error) {
	if de.Type()&fs.ModeSymlink == 0 {
		return de.IsDir(), nil
	}
	info, err := os.Stat(full)
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}
