package solverlog

import (
	"fmt"
	"regexp"
)

const ruleWidth = 75

var (
	incrementRule = regexp.MustCompile(fmt.Sprintf(`\s#{%d}`, ruleWidth))
	iterationRule = regexp.MustCompile(fmt.Sprintf(`={%d}`, ruleWidth))
)

// splitOnRule cuts text at every match of rule. Text without a rule comes
// back as a single chunk.
func splitOnRule(text string, rule *regexp.Regexp) []string {
	return rule.Split(text, -1)
}

// SplitIncrements returns the increment chunks of a stdout log in log order.
// The banner before the first rule is dropped, so a log without any rule has
// no increments.
func SplitIncrements(text string) []string {
	chunks := splitOnRule(text, incrementRule)
	return chunks[1:]
}

// SplitIterations returns the iteration chunks of one increment. The last
// chunk holds whatever followed the final rule (usually the convergence
// verdict) and is not an iteration report.
func SplitIterations(increment string) []string {
	return splitOnRule(increment, iterationRule)
}
