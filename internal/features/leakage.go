package features

import "strings"

// Outcome data must never become a feature. The gate is structural: any
// candidate column whose name sits in the outcome namespace is rejected
// here, regardless of where the value came from. Both the extractor (when
// copying snapshot values) and the trainer (when selecting columns) run
// every name through this predicate.

var forbiddenExact = map[string]struct{}{
	"label":       {},
	"pl":          {},
	"r":           {},
	"hold_days":   {},
	"touch_first": {},
}

var forbiddenPrefixes = []string{
	"eval_",
	"y_",
	"label_",
	"pl_",
	"outcome_",
}

// AllowedFeatureName reports whether a column name may enter the feature
// vector. Names are compared case-insensitively.
func AllowedFeatureName(name string) bool {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return false
	}
	if _, bad := forbiddenExact[n]; bad {
		return false
	}
	for _, p := range forbiddenPrefixes {
		if strings.HasPrefix(n, p) {
			return false
		}
	}
	return true
}

// SelectFeatureColumns filters candidate column names down to the ones
// allowed as features, preserving order.
func SelectFeatureColumns(candidates []string) []string {
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if AllowedFeatureName(c) {
			out = append(out, c)
		}
	}
	return out
}
