package pipeline

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"

	"client-report-card/internal/testutil"
)

func TestDecompressInflatesCompressedBlob(t *testing.T) {
	plain := testutil.TaggedBlob(map[string]any{"hits": 3})
	assert.Equal(t, plain, Decompress(testutil.Compress(plain)))
}

func TestDecompressLeavesPlainTextAlone(t *testing.T) {
	tests := []string{
		"",
		"hello world",
		"not base64!!",
		"junk<IWPHEADER>PAYLOAD<ENDIWPHEADER>trailer",
		testutil.TaggedBlob(map[string]any{"a": 1}),
		// valid base64 that is not a deflate stream
		base64.StdEncoding.EncodeToString([]byte(`a:1:{s:1:"x";i:1;}`)),
	}
	for _, in := range tests {
		assert.Equal(t, in, Decompress(in))
		// idempotent
		assert.Equal(t, Decompress(in), Decompress(Decompress(in)))
	}
}

func TestDecompressReportsWhetherItInflated(t *testing.T) {
	_, ok := decompress(testutil.Compress("payload"))
	assert.True(t, ok)

	_, ok = decompress("payload")
	assert.False(t, ok)
}

func TestDecodeBase64AcceptsMissingPadding(t *testing.T) {
	raw := base64.RawStdEncoding.EncodeToString([]byte("ab"))
	out, err := decodeBase64(raw)
	assert.NoError(t, err)
	assert.Equal(t, "ab", string(out))

	_, err = decodeBase64("***")
	assert.Error(t, err)
}
