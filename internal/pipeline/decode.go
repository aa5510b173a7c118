package pipeline

import (
	"strings"

	"github.com/goccy/go-json"

	"client-report-card/internal/model"
)

// JSONMarker prefixes the base64 JSON document of a tagged payload.
const JSONMarker = "_IWP_JSON_PREFIX_"

// DetectFormat reports which serialization Decode will use for text.
func DetectFormat(text string) Format {
	if strings.Contains(text, JSONMarker) {
		return FormatJSON
	}
	return FormatLegacy
}

// Decode deserializes an unwrapped payload. The presence of JSONMarker
// commits to the tagged JSON format; a payload that carries the marker but
// fails to parse is not retried as legacy data.
func Decode(text string) (model.Value, error) {
	if _, after, found := strings.Cut(text, JSONMarker); found {
		return decodeTagged(after)
	}
	return decodeLegacyText(text)
}

func decodeTagged(s string) (model.Value, error) {
	raw, err := decodeBase64(s)
	if err != nil {
		return model.Value{}, &DecodeError{Format: FormatJSON, Err: err}
	}
	var v model.Value
	if err := json.Unmarshal(raw, &v); err != nil {
		return model.Value{}, &DecodeError{Format: FormatJSON, Err: err}
	}
	return v, nil
}

func decodeLegacyText(s string) (model.Value, error) {
	raw, err := decodeBase64(s)
	if err != nil {
		return model.Value{}, &DecodeError{Format: FormatLegacy, Err: err}
	}
	v, err := UnmarshalLegacy(raw)
	if err != nil {
		return model.Value{}, &DecodeError{Format: FormatLegacy, Err: err}
	}
	return v, nil
}
