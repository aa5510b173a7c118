package pipeline

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"client-report-card/internal/model"
)

const maxLegacyDepth = 512

// UnmarshalLegacy decodes the legacy native serialization into a Value.
//
// Only plain data is accepted: null, bool, int, float, string, array and
// object property lists. Objects become Mappings of their properties; the
// class name is read and discarded. Custom-serialized objects, enums and
// references fail with ErrUnsupportedToken.
//
// Arrays keyed exactly 0..n-1 in order decode to a Sequence, every other
// array to a Mapping with string keys.
func UnmarshalLegacy(data []byte) (model.Value, error) {
	d := legacyDecoder{data: data}
	v, err := d.value(0)
	if err != nil {
		return model.Value{}, err
	}
	if rest := bytes.TrimRight(d.data[d.pos:], " \t\r\n\x00"); len(rest) > 0 {
		return model.Value{}, fmt.Errorf("%w at offset %d", ErrTrailingData, d.pos)
	}
	return v, nil
}

type legacyDecoder struct {
	data []byte
	pos  int
}

func (d *legacyDecoder) errorf(format string, args ...any) error {
	return fmt.Errorf("offset %d: %s", d.pos, fmt.Sprintf(format, args...))
}

func (d *legacyDecoder) value(depth int) (model.Value, error) {
	if depth > maxLegacyDepth {
		return model.Value{}, d.errorf("nesting deeper than %d", maxLegacyDepth)
	}
	if d.pos >= len(d.data) {
		return model.Value{}, io.ErrUnexpectedEOF
	}

	tag := d.data[d.pos]
	d.pos++
	switch tag {
	case 'N':
		if err := d.expect(';'); err != nil {
			return model.Value{}, err
		}
		return model.Null(), nil
	case 'b':
		s, err := d.scalar()
		if err != nil {
			return model.Value{}, err
		}
		switch s {
		case "0":
			return model.Bool(false), nil
		case "1":
			return model.Bool(true), nil
		}
		return model.Value{}, d.errorf("invalid bool %q", s)
	case 'i':
		s, err := d.scalar()
		if err != nil {
			return model.Value{}, err
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return model.Value{}, d.errorf("invalid int %q", s)
		}
		return model.Int(n), nil
	case 'd':
		s, err := d.scalar()
		if err != nil {
			return model.Value{}, err
		}
		f, err := parseLegacyFloat(s)
		if err != nil {
			return model.Value{}, d.errorf("invalid float %q", s)
		}
		return model.Number(f), nil
	case 's':
		s, err := d.str()
		if err != nil {
			return model.Value{}, err
		}
		if err := d.expect(';'); err != nil {
			return model.Value{}, err
		}
		return model.String(s), nil
	case 'a':
		if err := d.expect(':'); err != nil {
			return model.Value{}, err
		}
		n, err := d.count()
		if err != nil {
			return model.Value{}, err
		}
		return d.array(n, depth)
	case 'O':
		if err := d.expect(':'); err != nil {
			return model.Value{}, err
		}
		if _, err := d.quoted(); err != nil {
			return model.Value{}, err
		}
		if err := d.expect(':'); err != nil {
			return model.Value{}, err
		}
		n, err := d.count()
		if err != nil {
			return model.Value{}, err
		}
		return d.object(n, depth)
	case 'C', 'E', 'r', 'R':
		return model.Value{}, fmt.Errorf("%w %q at offset %d", ErrUnsupportedToken, tag, d.pos-1)
	default:
		return model.Value{}, fmt.Errorf("unknown legacy token %q at offset %d", tag, d.pos-1)
	}
}

func (d *legacyDecoder) array(n, depth int) (model.Value, error) {
	if err := d.expect('{'); err != nil {
		return model.Value{}, err
	}

	keys := make([]string, 0, min(n, 64))
	vals := make([]model.Value, 0, min(n, 64))
	sequential := true
	for i := 0; i < n; i++ {
		key, isInt, err := d.key()
		if err != nil {
			return model.Value{}, err
		}
		if !isInt || key != strconv.Itoa(i) {
			sequential = false
		}
		item, err := d.value(depth + 1)
		if err != nil {
			return model.Value{}, err
		}
		keys = append(keys, key)
		vals = append(vals, item)
	}
	if err := d.expect('}'); err != nil {
		return model.Value{}, err
	}

	if sequential {
		return model.List(vals...), nil
	}
	out := model.NewMap()
	for i, k := range keys {
		out.Set(k, vals[i])
	}
	return out, nil
}

func (d *legacyDecoder) object(n, depth int) (model.Value, error) {
	if err := d.expect('{'); err != nil {
		return model.Value{}, err
	}
	out := model.NewMap()
	for i := 0; i < n; i++ {
		key, _, err := d.key()
		if err != nil {
			return model.Value{}, err
		}
		item, err := d.value(depth + 1)
		if err != nil {
			return model.Value{}, err
		}
		out.Set(propertyName(key), item)
	}
	if err := d.expect('}'); err != nil {
		return model.Value{}, err
	}
	return out, nil
}

// key reads an array key, which must be an int or a string.
func (d *legacyDecoder) key() (string, bool, error) {
	if d.pos >= len(d.data) {
		return "", false, io.ErrUnexpectedEOF
	}
	tag := d.data[d.pos]
	d.pos++
	switch tag {
	case 'i':
		s, err := d.scalar()
		if err != nil {
			return "", false, err
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return "", false, d.errorf("invalid int key %q", s)
		}
		return strconv.FormatInt(n, 10), true, nil
	case 's':
		s, err := d.str()
		if err != nil {
			return "", false, err
		}
		return s, false, d.expect(';')
	default:
		return "", false, d.errorf("invalid key token %q", tag)
	}
}

// scalar reads ":<text>;" and returns text.
func (d *legacyDecoder) scalar() (string, error) {
	if err := d.expect(':'); err != nil {
		return "", err
	}
	return d.until(';')
}

// str reads `:<len>:"<bytes>"` and returns the bytes.
func (d *legacyDecoder) str() (string, error) {
	if err := d.expect(':'); err != nil {
		return "", err
	}
	return d.quoted()
}

// quoted reads `<len>:"<bytes>"`.
func (d *legacyDecoder) quoted() (string, error) {
	n, err := d.count()
	if err != nil {
		return "", err
	}
	if err := d.expect('"'); err != nil {
		return "", err
	}
	if n > len(d.data)-d.pos {
		return "", io.ErrUnexpectedEOF
	}
	s := string(d.data[d.pos : d.pos+n])
	d.pos += n
	if err := d.expect('"'); err != nil {
		return "", err
	}
	return s, nil
}

// count reads a non-negative integer terminated by ':'.
func (d *legacyDecoder) count() (int, error) {
	s, err := d.until(':')
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, d.errorf("invalid length %q", s)
	}
	if n > len(d.data) {
		return 0, d.errorf("length %d exceeds input", n)
	}
	return n, nil
}

func (d *legacyDecoder) until(delim byte) (string, error) {
	end := bytes.IndexByte(d.data[d.pos:], delim)
	if end < 0 {
		return "", io.ErrUnexpectedEOF
	}
	s := string(d.data[d.pos : d.pos+end])
	d.pos += end + 1
	return s, nil
}

func (d *legacyDecoder) expect(c byte) error {
	if d.pos >= len(d.data) {
		return io.ErrUnexpectedEOF
	}
	if d.data[d.pos] != c {
		return d.errorf("expected %q, found %q", c, d.data[d.pos])
	}
	d.pos++
	return nil
}

func parseLegacyFloat(s string) (float64, error) {
	switch s {
	case "INF":
		return math.Inf(1), nil
	case "-INF":
		return math.Inf(-1), nil
	case "NAN":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

// propertyName strips the "\x00*\x00" and "\x00Class\x00" visibility
// prefixes from serialized object property names.
func propertyName(key string) string {
	if len(key) == 0 || key[0] != 0 {
		return key
	}
	if i := strings.IndexByte(key[1:], 0); i >= 0 {
		return key[i+2:]
	}
	return key
}
