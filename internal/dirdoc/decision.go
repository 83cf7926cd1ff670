package dirdoc

import (
	"fmt"
	"strings"
)

// Decision is the answer to an archive that exceeds the size limit.
type Decision int

const (
	DecisionSplit         Decision = iota // split into parts
	DecisionStructureOnly                 // re-render without file contents
	DecisionContinue                      // keep one oversized document
	DecisionQuit                          // abort the run
)

var decisionNames = map[Decision]string{
	DecisionSplit:         "split",
	DecisionStructureOnly: "structure",
	DecisionContinue:      "continue",
	DecisionQuit:          "quit",
}

func (d Decision) String() string {
	if name, ok := decisionNames[d]; ok {
		return name
	}
	return fmt.Sprintf("Decision(%d)", int(d))
}

// ParseDecision accepts a decision name or its first letter, in any case.
// "b" (build structure only) is accepted for DecisionStructureOnly.
func ParseDecision(s string) (Decision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "split", "s":
		return DecisionSplit, nil
	case "structure", "structure-only", "b":
		return DecisionStructureOnly, nil
	case "continue", "c":
		return DecisionContinue, nil
	case "quit", "q":
		return DecisionQuit, nil
	}
	return DecisionContinue, fmt.Errorf("unknown oversize decision %q", s)
}

// Oversize describes a finalized archive larger than the split limit.
type Oversize struct {
	Bytes  int
	Tokens uint64
	Limit  int
}

// Choice is a decider's answer. A positive Limit replaces the split limit
// when Decision is DecisionSplit.
type Choice struct {
	Decision Decision
	Limit    int
}

// Decider is asked what to do when an archive exceeds the limit and
// splitting was not requested up front.
type Decider func(Oversize) (Choice, error)

// Fixed returns a decider that always answers d.
func Fixed(d Decision) Decider {
	return func(Oversize) (Choice, error) {
		return Choice{Decision: d}, nil
	}
}
