package study

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DisplayPatientName converts a raw DICOM person name (caret-delimited,
// conventionally upper case, e.g. "DOE^JOHN^A") into a display form such as
// "Doe, John A". Unknown or empty names render as "Unknown".
func DisplayPatientName(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "Unknown"
	}

	// PN component order: family, given, middle, prefix, suffix.
	parts := strings.Split(trimmed, "^")
	for i, part := range parts {
		parts[i] = strings.TrimSpace(part)
	}

	titler := cases.Title(language.Und)
	family := titler.String(strings.ToLower(parts[0]))

	rest := make([]string, 0, len(parts)-1)
	for _, part := range parts[1:] {
		if part == "" {
			continue
		}
		rest = append(rest, titler.String(strings.ToLower(part)))
	}

	switch {
	case family == "" && len(rest) == 0:
		return "Unknown"
	case family == "":
		return strings.Join(rest, " ")
	case len(rest) == 0:
		return family
	default:
		return family + ", " + strings.Join(rest, " ")
	}
}
