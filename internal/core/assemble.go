package core

import (
	"regexp"
	"strings"

	"agenticmd/pkg"
)

// dosagePattern recognizes a quantity token such as "500 mg", "2 tablets"
// or "10ml" inside a medication line.
var dosagePattern = regexp.MustCompile(`(?i)\b\d+(?:[.,]\d+)?\s*(?:mg|mcg|g|ml|iu|units?|tablets?|capsules?|puffs?|drops?|patch(?:es)?)\b`)

// bulletPrefix strips list markers from the start of a line.
var bulletPrefix = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s*`)

// lineSeparators split a medication line into name/instruction parts.
var lineSeparators = []string{" — ", " – ", " - ", ": ", "; "}

// placeholderEntry keeps the workflow renderable when the prescription
// text deviates from the expected line structure. Malformed model output
// must degrade, never crash downstream rendering.
func placeholderEntry() []pkg.PrescriptionEntry {
	return []pkg.PrescriptionEntry{{
		Name:         "Prescription under clinician review",
		Quantity:     "",
		Instructions: "The generated prescription could not be parsed into individual entries; refer to the full consultation record.",
	}}
}

// Assemble parses line-oriented medication entries out of the finalized
// prescription text. A line counts as an entry when it carries a list
// marker or a recognizable dosage token. When no entry can be identified
// with confidence, a single placeholder entry is returned instead of an
// error so the workflow always produces a renderable document.
func Assemble(prescriptionText string) []pkg.PrescriptionEntry {
	var entries []pkg.PrescriptionEntry
	for _, raw := range strings.Split(prescriptionText, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		bulleted := bulletPrefix.MatchString(line)
		line = bulletPrefix.ReplaceAllString(line, "")
		dosage := dosagePattern.FindString(line)
		if dosage == "" && !bulleted {
			continue
		}
		// Section headings like "Medications:" are not entries.
		if strings.HasSuffix(line, ":") {
			continue
		}
		if entry, ok := parseEntry(line, dosage); ok {
			entries = append(entries, entry)
		}
	}
	if len(entries) == 0 {
		return placeholderEntry()
	}
	return entries
}

func parseEntry(line, dosage string) (pkg.PrescriptionEntry, bool) {
	name := line
	instructions := ""
	for _, sep := range lineSeparators {
		if idx := strings.Index(line, sep); idx > 0 {
			name = strings.TrimSpace(line[:idx])
			instructions = strings.TrimSpace(line[idx+len(sep):])
			break
		}
	}
	if dosage != "" {
		// Quantity lives in the name segment for lines like
		// "Amoxicillin 500 mg - one capsule three times daily".
		if idx := strings.Index(strings.ToLower(name), strings.ToLower(dosage)); idx >= 0 {
			name = strings.TrimSpace(strings.TrimRight(name[:idx], " ,"))
		}
	}
	if name == "" {
		return pkg.PrescriptionEntry{}, false
	}
	return pkg.PrescriptionEntry{
		Name:         name,
		Quantity:     strings.TrimSpace(dosage),
		Instructions: instructions,
	}, true
}
