package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casetrace/trace-console/internal/extract"
)

func TestHighlightContentColorsSpans(t *testing.T) {
	th := themeDark()

	out := highlightContent("beacon to 10.0.0.8 #malware", th)

	assert.True(t, strings.HasPrefix(out, "beacon to "))
	assert.Contains(t, out, "["+th.TagWarning+"]10.0.0.8[-]")
	assert.Contains(t, out, "["+th.TagSuccess+"]#malware[-]")
}

func TestHighlightContentPlainTextUnchanged(t *testing.T) {
	out := highlightContent("nothing suspicious in this line", themeDark())
	assert.Equal(t, "nothing suspicious in this line", out)
}

func TestHighlightContentURLFragmentIsNotATag(t *testing.T) {
	th := themeDark()

	// The '#payload' inside the URL matches the hashtag pattern but sits
	// inside the URL span, so it must not be colored as a tag.
	out := highlightContent("see https://evil.test/page#payload", th)

	assert.Contains(t, out, "["+th.TagAccent+"]https://evil.test/page#payload[-]")
	assert.NotContains(t, out, "["+th.TagSuccess+"]")
}

func TestHighlightContentEscapesStoredBrackets(t *testing.T) {
	out := highlightContent("saw [redacted] in logs", themeDark())
	assert.NotContains(t, out, "[redacted]")
	assert.Contains(t, out, "redacted")
}

func TestMergeSpansDropsOverlappingTags(t *testing.T) {
	iocs := []extract.Span{
		{Start: 5, End: 15, Type: extract.TypeURL, Value: "u"},
	}
	tags := []extract.Span{
		{Start: 10, End: 18, Type: extract.TypeTag, Value: "inside"},
		{Start: 20, End: 26, Type: extract.TypeTag, Value: "clear"},
	}

	merged := mergeSpans(iocs, tags)

	require.Len(t, merged, 2)
	assert.Equal(t, extract.TypeURL, merged[0].Type)
	assert.Equal(t, extract.TypeTag, merged[1].Type)
	assert.Equal(t, 20, merged[1].Start)
}

func TestTypeTagGroupsByThreatKind(t *testing.T) {
	th := themeDark()

	assert.Equal(t, th.TagSuccess, typeTag(th, extract.TypeTag))
	assert.Equal(t, th.TagWarning, typeTag(th, extract.TypeIPv4))
	assert.Equal(t, th.TagWarning, typeTag(th, extract.TypeIPv6))
	assert.Equal(t, th.TagError, typeTag(th, extract.TypeSHA256))
	assert.Equal(t, th.TagError, typeTag(th, extract.TypeMD5))
	assert.Equal(t, th.TagAccent, typeTag(th, extract.TypeURL))
	assert.Equal(t, th.TagAccent, typeTag(th, extract.TypeDomain))
}
