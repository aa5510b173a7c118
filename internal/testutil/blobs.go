// Package testutil builds legacy response blobs for tests and fixtures.
package testutil

import (
	"bytes"
	"encoding/base64"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/flate"

	"client-report-card/internal/model"
)

const (
	startTag   = "<IWPHEADER>"
	endTag     = "<ENDIWPHEADER>"
	jsonMarker = "_IWP_JSON_PREFIX_"
)

// Wrap surrounds payload with the envelope tags.
func Wrap(payload string) string {
	return startTag + payload + endTag
}

// TaggedBlob encodes v the way newer clients do: envelope, marker and base64
// JSON.
func TaggedBlob(v any) string {
	doc, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return Wrap(jsonMarker + base64.StdEncoding.EncodeToString(doc))
}

// TaggedDocument wraps a JSON document given as text, so tests control key
// order and number spelling.
func TaggedDocument(doc string) string {
	return Wrap(jsonMarker + base64.StdEncoding.EncodeToString([]byte(doc)))
}

// LegacyBlob encodes v the way older clients do: envelope around base64 of
// the native serialization.
func LegacyBlob(v model.Value) string {
	return Wrap(base64.StdEncoding.EncodeToString(MarshalLegacy(v)))
}

// Compress applies the optional storage compression: raw deflate then
// base64.
func Compress(s string) string {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		panic(err)
	}
	if _, err := w.Write([]byte(s)); err != nil {
		panic(err)
	}
	if err := w.Close(); err != nil {
		panic(err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// MarshalLegacy writes v in the legacy native serialization. Sequences are
// written as arrays with keys 0..n-1.
func MarshalLegacy(v model.Value) []byte {
	return appendLegacy(nil, v)
}

func appendLegacy(dst []byte, v model.Value) []byte {
	switch v.Kind() {
	case model.KindNull:
		return append(dst, "N;"...)
	case model.KindBool:
		b, _ := v.Boolean()
		if b {
			return append(dst, "b:1;"...)
		}
		return append(dst, "b:0;"...)
	case model.KindNumber:
		n, _ := v.Num()
		if n == float64(int64(n)) {
			dst = append(dst, "i:"...)
			dst = strconv.AppendInt(dst, int64(n), 10)
			return append(dst, ';')
		}
		dst = append(dst, "d:"...)
		dst = strconv.AppendFloat(dst, n, 'g', -1, 64)
		return append(dst, ';')
	case model.KindString:
		s, _ := v.Str()
		return appendLegacyString(dst, s)
	case model.KindList:
		items := v.Items()
		dst = append(dst, "a:"...)
		dst = strconv.AppendInt(dst, int64(len(items)), 10)
		dst = append(dst, ":{"...)
		for i, item := range items {
			dst = append(dst, "i:"...)
			dst = strconv.AppendInt(dst, int64(i), 10)
			dst = append(dst, ';')
			dst = appendLegacy(dst, item)
		}
		return append(dst, '}')
	case model.KindMap:
		keys := v.Keys()
		dst = append(dst, "a:"...)
		dst = strconv.AppendInt(dst, int64(len(keys)), 10)
		dst = append(dst, ":{"...)
		for _, k := range keys {
			item, _ := v.Get(k)
			dst = appendLegacyString(dst, k)
			dst = appendLegacy(dst, item)
		}
		return append(dst, '}')
	}
	panic("testutil: unknown value kind " + v.Kind().String())
}

func appendLegacyString(dst []byte, s string) []byte {
	dst = append(dst, "s:"...)
	dst = strconv.AppendInt(dst, int64(len(s)), 10)
	dst = append(dst, ":\""...)
	dst = append(dst, s...)
	return append(dst, "\";"...)
}

// Ptr returns a pointer to s, for RawRecord.Blob.
func Ptr(s string) *string {
	return &s
}
