package core

import "strings"

// FieldExtractionResult reports which required fields a block of text
// addressed. It is transient: recomputed whenever the text changes, never
// persisted.
type FieldExtractionResult struct {
	Present []string
	Missing []string
}

// Complete reports whether no required field is missing.
func (r FieldExtractionResult) Complete() bool {
	return len(r.Missing) == 0
}

// Check determines, for each field in schema, whether text addresses it.
// A field is present if any of its trigger keywords occurs as a
// case-insensitive substring. This is a documented heuristic, not a
// semantic check: keyword presence is a cheap proxy for "the model
// addressed this dimension". Empty text leaves every field missing. The
// function is total over any string input; fields with empty synonym sets
// are rejected earlier by ValidateRegistry.
func Check(text string, schema []string, synonyms map[string][]string) FieldExtractionResult {
	lower := strings.ToLower(text)
	var result FieldExtractionResult
	for _, field := range schema {
		found := false
		if lower != "" {
			for _, keyword := range synonyms[field] {
				if keyword != "" && strings.Contains(lower, strings.ToLower(keyword)) {
					found = true
					break
				}
			}
		}
		if found {
			result.Present = append(result.Present, field)
		} else {
			result.Missing = append(result.Missing, field)
		}
	}
	return result
}

// FirstMissing picks the field to ask about next: the first missing field
// in canonical OLDCARTS precedence. Missing fields outside the canonical
// order fall back to schema order, after all canonical ones. Returns ""
// when nothing is missing.
func FirstMissing(missing []string) string {
	if len(missing) == 0 {
		return ""
	}
	set := make(map[string]bool, len(missing))
	for _, f := range missing {
		set[f] = true
	}
	for _, f := range FieldOrder {
		if set[f] {
			return f
		}
	}
	return missing[0]
}
