package ignore

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
)

// RuleSet is an ordered list of rules. Order is never changed: a later
// matching rule overrides every earlier one.
type RuleSet struct {
	rules  []*Rule
	logger *zap.Logger
}

// NewRuleSet returns an empty rule set. A nil logger discards warnings.
func NewRuleSet(logger *zap.Logger) *RuleSet {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RuleSet{logger: logger}
}

// Len returns the number of compiled rules.
func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.rules)
}

// Rules returns a copy of the rules in declaration order.
func (rs *RuleSet) Rules() []*Rule {
	if rs == nil {
		return nil
	}
	return append([]*Rule(nil), rs.rules...)
}

// Add appends already compiled rules.
func (rs *RuleSet) Add(rules ...*Rule) {
	rs.rules = append(rs.rules, rules...)
}

// AddPatterns compiles lines declared in directory base (relative to the scan
// root, "" for the root) and appends them. Blank lines and '#' comments are
// skipped; malformed patterns are dropped with a warning. It returns the
// number of rules added.
func (rs *RuleSet) AddPatterns(base string, lines ...string) int {
	added := 0
	for i, line := range lines {
		trimmed := strings.TrimRight(line, " \t\r\n")
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		rule, err := compileIn(base, trimmed)
		if err != nil {
			rs.logger.Warn("Dropping malformed ignore pattern",
				zap.String("pattern", line),
				zap.String("base", base),
				zap.Int("lineNo", i+1),
				zap.Error(err))
			continue
		}
		rs.rules = append(rs.rules, rule)
		rs.logger.Debug("Compiled ignore pattern",
			zap.String("pattern", rule.Pattern),
			zap.String("base", rule.Base),
			zap.Bool("negated", rule.Negated),
			zap.Bool("anchored", rule.Anchored),
			zap.Bool("dirOnly", rule.DirOnly))
		added++
	}
	return added
}

// AddFile reads an ignore file whose rules apply to directory base.
func (rs *RuleSet) AddFile(base, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read ignore file %s: %w", path, err)
	}
	n := rs.AddPatterns(base, strings.Split(string(content), "\n")...)
	rs.logger.Debug("Loaded ignore file", zap.String("file", path), zap.Int("rules", n))
	return nil
}

// With returns a new set holding rs's rules followed by other's. Neither
// input is modified, so a subtree can extend its parent's rules without the
// additions leaking back up.
func (rs *RuleSet) With(other *RuleSet) *RuleSet {
	out := &RuleSet{logger: zap.NewNop()}
	if rs != nil {
		out.logger = rs.logger
		out.rules = append(out.rules, rs.rules...)
	}
	if other != nil {
		out.rules = append(out.rules, other.rules...)
	}
	return out
}

// Matches reports whether path is ignored.
func (rs *RuleSet) Matches(path string, isDir bool) bool {
	ignored, _ := rs.MatchesWithRule(path, isDir)
	return ignored
}

// MatchesWithRule evaluates every rule in order and returns the final state
// together with the last rule that matched, if any.
func (rs *RuleSet) MatchesWithRule(path string, isDir bool) (bool, *Rule) {
	if rs == nil {
		return false, nil
	}
	ignored := false
	var last *Rule
	for _, rule := range rs.rules {
		if rule.Match(path, isDir) {
			ignored = !rule.Negated
			last = rule
		}
	}
	return ignored, last
}
