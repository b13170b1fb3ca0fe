package analyzer

import (
	"regexp"

	"github.com/podlove/outliner/internal/outline"
)

// urlPattern matches http(s) URLs within node content. It is deliberately
// permissive about the tail (stops at whitespace or a closing paren/bracket
// that isn't part of the URL itself), so it matches any http(s) URL rather
// than one fixed host.
var urlPattern = regexp.MustCompile(`https?://[^\s()<>\[\]"']+`)

// ExtractURLs scans content for http(s) URLs and returns one URLRecord per
// match with byte offsets into content (StartBytes/SizeBytes). NodeID and
// Metadata are left for the caller to fill in.
func ExtractURLs(content string) []outline.URLRecord {
	matches := urlPattern.FindAllStringIndex(content, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]outline.URLRecord, 0, len(matches))
	for _, m := range matches {
		start, end := m[0], m[1]
		// Trim trailing punctuation that's almost certainly prose, not URL.
		for end > start && isTrailingPunct(content[end-1]) {
			end--
		}
		out = append(out, outline.URLRecord{
			StartBytes: start,
			SizeBytes:  end - start,
			URL:        content[start:end],
		})
	}
	return out
}

func isTrailingPunct(b byte) bool {
	switch b {
	case '.', ',', ';', ':', '!', '?':
		return true
	default:
		return false
	}
}
