package membersync

import "strings"

// ReasonUnknown is returned when a cancellation reason is empty or matches
// nothing in the keyword table.
const ReasonUnknown = "unknown"

// reasonMapping pairs a keyword fragment with the taxonomy code it maps to.
type reasonMapping struct {
	keyword string
	code    string
}

// reasonTable maps Chargebee cancellation reasons to taxonomy codes by
// keyword fragment. Order matters: the first keyword found anywhere in the
// input wins, regardless of where it appears in the input string. The order
// must not change — downstream reporting depends on it.
var reasonTable = []reasonMapping{
	{"time", "time"},          // "Time Constraints"
	{"engage", "engagement"},  // "Engagement (Lack of)"
	{"financ", "cost"},        // "Financial Considerations"
	{"relocat", "relocation"}, // "Relocation"
	{"equip", "equipment"},    // "Facility & Equipment Insufficiencies"
	{"manag", "management"},   // "Management & Communication Dissatisfaction"
	{"commu", "community"},    // "Community/Culture Dissatisfaction"
	{"orient", "orientation"}, // "Orientation, Did Not Complete"
	{"term", "predefined"},    // "Term/Project (planned) Completed"
	{"payment", "3rdparty"},   // "Payment End (External Employer/Program)"
	{"discip", "removed"},     // "Disciplinary Removal"
	{"other", "other"},        // "Other"
}

// NormalizeCancelReason maps a free-text cancellation reason to a fixed
// taxonomy code. The input is lowercased and trimmed, then tested against the
// keyword table in order; the first match wins. Empty input or no match
// yields ReasonUnknown.
func NormalizeCancelReason(reason string) string {
	normalized := strings.ToLower(strings.TrimSpace(reason))
	if normalized == "" {
		return ReasonUnknown
	}
	for _, m := range reasonTable {
		if strings.Contains(normalized, m.keyword) {
			return m.code
		}
	}
	return ReasonUnknown
}
