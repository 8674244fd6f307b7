package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rivo/tview"

	"github.com/casetrace/trace-console/internal/extract"
)

// typeTag maps an indicator type to a markup color: hashtags green, network
// addresses amber, hashes red, everything else the accent color.
func typeTag(th Theme, t extract.Type) string {
	switch t {
	case extract.TypeTag:
		return th.TagSuccess
	case extract.TypeIPv4, extract.TypeIPv6:
		return th.TagWarning
	case extract.TypeMD5, extract.TypeSHA1, extract.TypeSHA256:
		return th.TagError
	default:
		return th.TagAccent
	}
}

// highlightContent renders note text with color tags around every indicator
// and hashtag span. Plain segments are escaped so stored brackets survive.
func highlightContent(content string, th Theme) string {
	spans := mergeSpans(extract.Spans(content), extract.TagSpans(content))
	if len(spans) == 0 {
		return tview.Escape(content)
	}

	var b strings.Builder
	pos := 0
	for _, sp := range spans {
		if sp.Start > pos {
			b.WriteString(tview.Escape(content[pos:sp.Start]))
		}
		fmt.Fprintf(&b, "[%s]%s[-]", typeTag(th, sp.Type), tview.Escape(content[sp.Start:sp.End]))
		pos = sp.End
	}
	if pos < len(content) {
		b.WriteString(tview.Escape(content[pos:]))
	}
	return b.String()
}

// mergeSpans combines indicator and hashtag spans into one ordered,
// non-overlapping list. Indicator spans win when a hashtag overlaps one.
func mergeSpans(iocs, tags []extract.Span) []extract.Span {
	merged := make([]extract.Span, 0, len(iocs)+len(tags))
	merged = append(merged, iocs...)
	for _, t := range tags {
		overlaps := false
		for _, i := range iocs {
			if t.Start < i.End && i.Start < t.End {
				overlaps = true
				break
			}
		}
		if !overlaps {
			merged = append(merged, t)
		}
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Start < merged[j].Start })
	return merged
}
