package assist

import "strings"

type IntentKind string

const (
	IntentScan              IntentKind = "scan"
	IntentDescribe          IntentKind = "describe"
	IntentActivateCamera    IntentKind = "activate_camera"
	IntentReportObjectCount IntentKind = "report_object_count"
	IntentHelp              IntentKind = "help"
	IntentUnrecognized      IntentKind = "unrecognized"
)

// Intent is the normalised command behind an utterance.
type Intent struct {
	Kind IntentKind
	// NothingToDescribe is set on IntentDescribe when no scan has produced a
	// description yet.
	NothingToDescribe bool
	// Count is the object count for IntentReportObjectCount.
	Count int
}

// Keyword sets, checked in this order. The first set with a match wins, so an
// utterance such as "scan and describe" is a scan.
var (
	scanKeywords     = []string{"scan", "look", "see", "environment"}
	describeKeywords = []string{"describe", "what", "tell"}
	cameraKeywords   = []string{"camera", "start"}
)

const (
	objectKeyword = "object"
	helpKeyword   = "help"
)

// Interpret maps an utterance to an Intent by case-insensitive substring
// matching. It has no side effects.
func Interpret(utterance string, hasPriorDescription bool, objectCount int) Intent {
	u := strings.ToLower(utterance)
	switch {
	case containsAny(u, scanKeywords):
		return Intent{Kind: IntentScan}
	case containsAny(u, describeKeywords):
		return Intent{Kind: IntentDescribe, NothingToDescribe: !hasPriorDescription}
	case containsAny(u, cameraKeywords):
		return Intent{Kind: IntentActivateCamera}
	case strings.Contains(u, objectKeyword) && objectCount > 0:
		return Intent{Kind: IntentReportObjectCount, Count: objectCount}
	case strings.Contains(u, helpKeyword):
		return Intent{Kind: IntentHelp}
	default:
		return Intent{Kind: IntentUnrecognized}
	}
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
