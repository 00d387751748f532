// Package display provides human-readable names for machine codes.
//
// Rule: code is for machines, words are for humans. Use these functions
// in CLI output and logs; keep raw kinds for JSON fields and equality
// comparisons.
package display

import "glmirror/internal/model"

var kindNames = map[model.ActionKind]string{
	model.ActionClone:    "Cloned",
	model.ActionUpdate:   "Updated",
	model.ActionUpToDate: "Up to date",
	model.ActionExcluded: "Excluded",
	model.ActionError:    "Error",
	model.ActionOrphan:   "Orphan",
}

// one-character status markers for per-project progress lines
var kindSymbols = map[model.ActionKind]string{
	model.ActionClone:    "+",
	model.ActionUpdate:   "^",
	model.ActionUpToDate: "=",
	model.ActionExcluded: "-",
	model.ActionError:    "x",
	model.ActionOrphan:   "?",
}

var validityNames = map[model.Validity]string{
	model.ValidRepo:      "repository",
	model.InvalidNonRepo: "foreign content",
	model.EmptyDir:       "empty directory",
}

// Kind returns the human-readable name for an action kind.
// Unknown kinds are returned as-is.
func Kind(k model.ActionKind) string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return string(k)
}

// Symbol returns the one-character marker for an action kind.
func Symbol(k model.ActionKind) string {
	if s, ok := kindSymbols[k]; ok {
		return s
	}
	return "?"
}

// Validity returns the human-readable name for a scanner classification.
func Validity(v model.Validity) string {
	if name, ok := validityNames[v]; ok {
		return name
	}
	return string(v)
}
