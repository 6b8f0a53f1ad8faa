package extract

import (
	"regexp"
	"strings"

	"github.com/ppiankov/letteraudit/internal/model"
)

// headingRE matches a line made up only of a known heading, optionally
// followed by a colon. "Reasons for Decision", "Reasons and Bases" and
// "Reasons Bases" all fold into the reasons slice.
var headingRE = regexp.MustCompile(`(?i)^\s*(decision|evidence|reasons(?:\s+for\s+decision|\s+and\s+bases|\s+bases)?|references)\s*:?\s*$`)

// heading is a recognized heading and the offset of its line in the text
type heading struct {
	name   model.SectionName
	offset int
}

// findHeadings scans normalized text line by line for recognized headings
func findHeadings(full string) []heading {
	var marks []heading
	offset := 0
	for _, line := range strings.SplitAfter(full, "\n") {
		if m := headingRE.FindStringSubmatch(strings.TrimSuffix(line, "\n")); m != nil {
			marks = append(marks, heading{name: canonicalHeading(m[1]), offset: offset})
		}
		offset += len(line)
	}
	return marks
}

// canonicalHeading maps a matched heading (or synonym) to its section name
func canonicalHeading(match string) model.SectionName {
	first := strings.ToLower(strings.Fields(match)[0])
	switch first {
	case "decision":
		return model.SectionDecision
	case "evidence":
		return model.SectionEvidence
	case "reasons":
		return model.SectionReasons
	default:
		return model.SectionReferences
	}
}

// Segment slices normalized text into named regions. A slice runs from the
// first occurrence of its heading to the next heading with a different name,
// so a repeated heading does not cut its own slice short. Headings that are
// absent are simply missing from the map.
func Segment(full string) map[model.SectionName]string {
	marks := findHeadings(full)
	slices := make(map[model.SectionName]string)

	for i, mark := range marks {
		if _, seen := slices[mark.name]; seen {
			continue
		}

		end := len(full)
		for _, next := range marks[i+1:] {
			if next.name != mark.name {
				end = next.offset
				break
			}
		}

		slices[mark.name] = strings.TrimSpace(full[mark.offset:end])
	}

	return slices
}

// buildSections converts segmenter output into the reported Sections value
func buildSections(full string, slices map[model.SectionName]string) model.Sections {
	return model.Sections{
		Decision:   slices[model.SectionDecision],
		Evidence:   slices[model.SectionEvidence],
		Reasons:    slices[model.SectionReasons],
		References: slices[model.SectionReferences],
		Full:       full,
	}
}
