package pipeline

// Envelope markers wrapping the payload of a legacy response. Both are
// matched case-insensitively; the end marker has no closing bracket.
const (
	StartTag = "<IWPHEADER>"
	EndTag   = "<ENDIWPHEADER"
)

type envelopeState uint8

const (
	envelopeAbsent envelopeState = iota
	envelopeComplete
	// start tag found, end tag missing
	envelopeUnterminated
)

// StripEnvelope returns the text between StartTag and EndTag. Text without
// a start tag is returned unchanged. When the end tag is missing the
// remainder after the start tag is the payload.
func StripEnvelope(text string) string {
	payload, _ := unwrap(text)
	return payload
}

func unwrap(text string) (string, envelopeState) {
	start := indexFold(text, StartTag)
	if start < 0 {
		return text, envelopeAbsent
	}
	rest := text[start+len(StartTag):]
	end := indexFold(rest, EndTag)
	if end < 0 {
		return rest, envelopeUnterminated
	}
	return rest[:end], envelopeComplete
}

// indexFold is strings.Index with ASCII case folding. Unicode folding is
// avoided so byte offsets stay valid for the original string.
func indexFold(s, substr string) int {
	n := len(substr)
	for i := 0; i+n <= len(s); i++ {
		if equalFoldASCII(s[i:i+n], substr) {
			return i
		}
	}
	return -1
}

func equalFoldASCII(a, b string) bool {
	for i := 0; i < len(a); i++ {
		if lowerASCII(a[i]) != lowerASCII(b[i]) {
			return false
		}
	}
	return true
}

func lowerASCII(c byte) byte {
	if 'A' <= c && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}
