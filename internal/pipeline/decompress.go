package pipeline

import (
	"bytes"
	"encoding/base64"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
)

// maxInflated caps the size of an inflated blob.
const maxInflated = 64 << 20

// Decompress reverses the optional base64+raw-deflate step applied to
// stored blobs. Anything that does not decode and inflate cleanly is
// returned unchanged; most rows were never compressed.
func Decompress(blob string) string {
	out, _ := decompress(blob)
	return out
}

func decompress(blob string) (string, bool) {
	raw, err := decodeBase64(blob)
	if err != nil || len(raw) == 0 {
		return blob, false
	}

	r := flate.NewReader(bytes.NewReader(raw))
	defer r.Close()

	out, err := io.ReadAll(io.LimitReader(r, maxInflated+1))
	if err != nil || len(out) > maxInflated {
		return blob, false
	}
	return string(out), true
}

// decodeBase64 accepts padded and unpadded standard base64. Line breaks are
// ignored by the decoder; surrounding whitespace is trimmed.
func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	out, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return out, nil
	}
	if alt, altErr := base64.RawStdEncoding.DecodeString(s); altErr == nil {
		return alt, nil
	}
	return nil, err
}
