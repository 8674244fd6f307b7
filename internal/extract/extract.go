// Package extract scans note text for hashtags and indicators of compromise.
//
// IOC extraction is a single pass: every pattern's matches are collected with
// their byte ranges, sorted by position and specificity, and accepted
// greedily so that no two accepted spans overlap. A URL therefore swallows
// the domain in its authority, an email the domain after the '@', and a
// SHA-256 any shorter hex run inside it. Tags are a separate classification
// axis and may overlap IOC spans positionally.
package extract

import (
	"net/netip"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Type labels an extracted indicator.
type Type string

const (
	TypeURL    Type = "url"
	TypeEmail  Type = "email"
	TypeSHA256 Type = "sha256"
	TypeSHA1   Type = "sha1"
	TypeMD5    Type = "md5"
	TypeIPv6   Type = "ipv6"
	TypeIPv4   Type = "ipv4"
	TypeDomain Type = "domain"

	// TypeTag marks hashtag spans; it never appears in IOC lists.
	TypeTag Type = "tag"
)

// rank orders candidate types at a span collision; lower wins.
var rank = map[Type]int{
	TypeURL:    0,
	TypeEmail:  1,
	TypeSHA256: 2,
	TypeSHA1:   3,
	TypeMD5:    4,
	TypeIPv6:   5,
	TypeIPv4:   6,
	TypeDomain: 7,
}

// Span is one accepted match covering text[Start:End].
type Span struct {
	Start int
	End   int
	Type  Type
	Value string
}

// Indicator is a typed IOC value, deduplicated per note.
type Indicator struct {
	Type  Type   `json:"type"`
	Value string `json:"value"`
}

var (
	urlRe    = regexp.MustCompile(`https?://[^\s<>"']+`)
	emailRe  = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	sha256Re = regexp.MustCompile(`\b[a-fA-F0-9]{64}\b`)
	sha1Re   = regexp.MustCompile(`\b[a-fA-F0-9]{40}\b`)
	md5Re    = regexp.MustCompile(`\b[a-fA-F0-9]{32}\b`)
	ipv4Re   = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
	// Colon-separated hex groups, empty groups allowed so "::" forms match.
	// Candidates are validated with netip.ParseAddr; \b cannot anchor a
	// leading "::", so boundaries are checked manually.
	ipv6Re   = regexp.MustCompile(`[0-9a-fA-F]{0,4}(?::[0-9a-fA-F]{0,4})+`)
	domainRe = regexp.MustCompile(`\b(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}\b`)
	tagRe    = regexp.MustCompile(`#(\w+)`)
)

// Spans returns every accepted IOC occurrence in position order. Accepted
// spans are pairwise disjoint; duplicates of the same value at different
// positions are all reported, which is what highlighting needs.
func Spans(text string) []Span {
	cands := collect(text)
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Start != cands[j].Start {
			return cands[i].Start < cands[j].Start
		}
		return rank[cands[i].Type] < rank[cands[j].Type]
	})

	var spans []Span
	lastEnd := 0
	for _, c := range cands {
		if c.Start < lastEnd {
			continue // overlaps an accepted span of higher precedence
		}
		spans = append(spans, c)
		lastEnd = c.End
	}
	return spans
}

// Indicators returns the accepted IOCs deduplicated by normalized value in
// first-occurrence order. Domains and emails normalize to lower case; other
// types keep the matched text.
func Indicators(text string) []Indicator {
	var out []Indicator
	seen := make(map[string]bool)
	for _, sp := range Spans(text) {
		v := sp.Value
		if sp.Type == TypeDomain || sp.Type == TypeEmail {
			v = strings.ToLower(v)
		}
		key := string(sp.Type) + "\x00" + v
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, Indicator{Type: sp.Type, Value: v})
	}
	return out
}

// Tags returns hashtags lower-cased and deduplicated, first-occurrence order.
func Tags(text string) []string {
	var tags []string
	seen := make(map[string]bool)
	for _, m := range tagRe.FindAllStringSubmatch(text, -1) {
		tag := strings.ToLower(m[1])
		if !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	return tags
}

// TagSpans returns hashtag positions (leading '#' included) for highlighting.
func TagSpans(text string) []Span {
	var spans []Span
	for _, m := range tagRe.FindAllStringSubmatchIndex(text, -1) {
		spans = append(spans, Span{
			Start: m[0],
			End:   m[1],
			Type:  TypeTag,
			Value: strings.ToLower(text[m[2]:m[3]]),
		})
	}
	return spans
}

func collect(text string) []Span {
	var cands []Span

	for _, m := range urlRe.FindAllStringIndex(text, -1) {
		start, end := m[0], trimURLEnd(text, m[0], m[1])
		// Trimming may strip the match down to a bare scheme.
		if sep := strings.Index(text[start:end], "://"); sep >= 0 && end-start > sep+3 {
			cands = append(cands, Span{start, end, TypeURL, text[start:end]})
		}
	}

	for _, m := range emailRe.FindAllStringIndex(text, -1) {
		cands = append(cands, Span{m[0], m[1], TypeEmail, text[m[0]:m[1]]})
	}

	// Hex runs classify by exact length only, longest first. The word
	// boundaries in the patterns keep a shorter pattern from firing inside a
	// longer run.
	for _, h := range []struct {
		typ Type
		re  *regexp.Regexp
	}{
		{TypeSHA256, sha256Re},
		{TypeSHA1, sha1Re},
		{TypeMD5, md5Re},
	} {
		for _, m := range h.re.FindAllStringIndex(text, -1) {
			cands = append(cands, Span{m[0], m[1], h.typ, text[m[0]:m[1]]})
		}
	}

	for _, m := range ipv6Re.FindAllStringIndex(text, -1) {
		v := text[m[0]:m[1]]
		if !strings.Contains(v, "::") && strings.Count(v, ":") != 7 {
			continue
		}
		if isWordByte(byteBefore(text, m[0])) || isWordByte(byteAt(text, m[1])) {
			continue
		}
		if addr, err := netip.ParseAddr(v); err != nil || !addr.Is6() {
			continue
		}
		cands = append(cands, Span{m[0], m[1], TypeIPv6, v})
	}

	for _, m := range ipv4Re.FindAllStringIndex(text, -1) {
		v := text[m[0]:m[1]]
		if !validOctets(v) {
			continue // e.g. 999.999.999.999 is prose, not an address
		}
		cands = append(cands, Span{m[0], m[1], TypeIPv4, v})
	}

	for _, m := range domainRe.FindAllStringIndex(text, -1) {
		v := text[m[0]:m[1]]
		if strings.HasPrefix(v, "example.") {
			continue
		}
		cands = append(cands, Span{m[0], m[1], TypeDomain, v})
	}

	return cands
}

// trimURLEnd drops trailing punctuation that is prose rather than URL.
func trimURLEnd(text string, start, end int) int {
	for end > start {
		switch text[end-1] {
		case '.', ',', ';', ':', '!', '?', ')', ']', '}':
			end--
		default:
			return end
		}
	}
	return end
}

// validOctets accepts a dotted quad only when all four components parse as
// integers in [0,255].
func validOctets(v string) bool {
	for _, part := range strings.Split(v, ".") {
		n, err := strconv.Atoi(part)
		if err != nil || n > 255 {
			return false
		}
	}
	return true
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= '0' && b <= '9') ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z')
}

func byteBefore(text string, i int) byte {
	if i <= 0 {
		return 0
	}
	return text[i-1]
}

func byteAt(text string, i int) byte {
	if i >= len(text) {
		return 0
	}
	return text[i]
}
