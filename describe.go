package assist

import (
	"fmt"
	"strings"
)

const (
	cautionClause = "Be careful, there are objects close to you."
	clearClause   = "The path ahead appears clear."
)

func countObjects(n int) string {
	if n == 1 {
		return "1 object"
	}
	return fmt.Sprintf("%d objects", n)
}

// Describe summarises a scan: an object count followed by a caution clause
// when anything is near, or a path-clear clause otherwise.
func Describe(set ObjectSet) string {
	clause := clearClause
	if set.HasNear() {
		clause = cautionClause
	}
	return fmt.Sprintf("I detected %s in your surroundings. %s", countObjects(set.Len()), clause)
}

// ObjectNarration reads every object in scan order.
func ObjectNarration(set ObjectSet) string {
	parts := make([]string, 0, len(set))
	for _, o := range set {
		parts = append(parts, fmt.Sprintf("%s is on your %s, %s distance.", o.Name, o.Position, o.Distance))
	}
	return strings.Join(parts, " ")
}

// ScanNarration is spoken when a scan completes: count sentence, per-object
// narration, then the description's caution or clear clause, in that order.
func ScanNarration(set ObjectSet) string {
	return joinSentences(
		fmt.Sprintf("I can see %s.", countObjects(set.Len())),
		ObjectNarration(set),
		Describe(set),
	)
}

// DescribeNarration answers a "describe" request from the stored
// description and the set it was generated from.
func DescribeNarration(description string, set ObjectSet) string {
	return joinSentences(description, ObjectNarration(set))
}

func joinSentences(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
