package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jadenpxrk/dirdoc/internal/dirdoc"
	fuzzyfinder "github.com/ktr0731/go-fuzzyfinder"
	"go.uber.org/zap"
	"golang.org/x/term"
)

const oversizeAsk = "ask"

type decisionOption struct {
	decision dirdoc.Decision
	label    string
	detail   string
}

// newDecider maps the oversize_action setting to a decider. "ask" prompts
// when stdin is a terminal; headless runs get no decider, so an oversized
// archive is kept whole with a warning.
func newDecider(action string) (dirdoc.Decider, error) {
	if action == "" || action == oversizeAsk {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			logger.Debug("No terminal on stdin, oversize prompt disabled")
			return nil, nil
		}
		return promptOversize, nil
	}
	d, err := dirdoc.ParseDecision(action)
	if err != nil {
		return nil, fmt.Errorf("invalid oversize action: %w", err)
	}
	return dirdoc.Fixed(d), nil
}

func mb(n int) float64 {
	return float64(n) / bytesPerMB
}

// promptOversize lets the user pick what happens to an archive over the
// size limit.
func promptOversize(o dirdoc.Oversize) (dirdoc.Choice, error) {
	summary := fmt.Sprintf("The generated documentation is %.2f MB (%d tokens), over the %.2f MB limit.",
		mb(o.Bytes), o.Tokens, mb(o.Limit))
	options := []decisionOption{
		{dirdoc.DecisionSplit, "Split output into multiple files", fmt.Sprintf("Write parts of at most %.2f MB each. The part size is picked next.", mb(o.Limit))},
		{dirdoc.DecisionStructureOnly, "Build structure only", "Skip file contents and write the directory tree only."},
		{dirdoc.DecisionContinue, "Continue as is", "Write a single document larger than the limit."},
		{dirdoc.DecisionQuit, "Quit creation", "Write nothing."},
	}

	idx, err := fuzzyfinder.Find(
		options,
		func(i int) string {
			return options[i].label
		},
		fuzzyfinder.WithPromptString("oversize> "),
		fuzzyfinder.WithPreviewWindow(func(i, w, h int) string {
			if i == -1 {
				return summary
			}
			return summary + "\n\n" + options[i].detail
		}),
	)
	if err != nil {
		if errors.Is(err, fuzzyfinder.ErrAbort) { // User pressed Esc or Ctrl+C
			return dirdoc.Choice{Decision: dirdoc.DecisionQuit}, nil
		}
		return dirdoc.Choice{}, fmt.Errorf("fuzzy finder error: %w", err)
	}

	choice := dirdoc.Choice{Decision: options[idx].decision}
	if choice.Decision == dirdoc.DecisionSplit {
		choice.Limit, err = promptLimit(o)
		if err != nil {
			return dirdoc.Choice{}, err
		}
	}
	logger.Debug("Oversize choice", zap.Stringer("decision", choice.Decision), zap.Int("limit", choice.Limit))
	return choice, nil
}

// splitLimits proposes part sizes: the configured limit, smaller fractions
// of it, and the size that yields two parts.
func splitLimits(o dirdoc.Oversize) []int {
	limits := []int{o.Limit}
	for _, n := range []int{o.Limit / 2, o.Limit / 4, o.Bytes/2 + 1} {
		if n <= 0 {
			continue
		}
		dup := false
		for _, l := range limits {
			dup = dup || l == n
		}
		if !dup {
			limits = append(limits, n)
		}
	}
	return limits
}

func promptLimit(o dirdoc.Oversize) (int, error) {
	limits := splitLimits(o)
	idx, err := fuzzyfinder.Find(
		limits,
		func(i int) string {
			return fmt.Sprintf("%.2f MB", mb(limits[i]))
		},
		fuzzyfinder.WithPromptString("part size> "),
	)
	if err != nil {
		if errors.Is(err, fuzzyfinder.ErrAbort) {
			return 0, nil // keep the configured limit
		}
		return 0, fmt.Errorf("fuzzy finder error: %w", err)
	}
	return limits[idx], nil
}
