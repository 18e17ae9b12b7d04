package parser

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxMemoryField is the key under which the CONFIG GET maxmemory result is stored
const MaxMemoryField = "maxmemory"

// Fields is the untyped key/value content of an INFO-style reply
type Fields map[string]string

// ParseInfo parses "key:value" lines. Blank lines and "#" comments are skipped.
// A line without a colon is accepted in "key,value" form; anything else is ignored.
func ParseInfo(text string) Fields {
	fields := make(Fields)
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			key, value, ok = strings.Cut(line, ",")
		}
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		fields[key] = strings.TrimSpace(value)
	}
	return fields
}

// MemoryLimit extracts the limit from a CONFIG GET maxmemory reply
// (["maxmemory", "<bytes>"]).
func MemoryLimit(reply []interface{}) (string, error) {
	if len(reply) < 2 {
		return "", &MissingFieldError{Field: MaxMemoryField}
	}
	switch v := reply[1].(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	default:
		return "", &InvalidFieldError{Field: MaxMemoryField, Value: fmt.Sprint(v), Err: fmt.Errorf("unexpected reply type %T", v)}
	}
}

// Has reports whether key is present
func (f Fields) Has(key string) bool {
	_, ok := f[key]
	return ok
}

// Enabled reports whether key is present and equal to "1"
func (f Fields) Enabled(key string) bool {
	return f[key] == "1"
}

// KeyspaceKeys reads the key count out of a keyspace entry such as
// "keys=12,expires=0,avg_ttl=0". Anything unreadable counts as 0.
func (f Fields) KeyspaceKeys(key string) int64 {
	first, _, _ := strings.Cut(f[key], ",")
	name, value, ok := strings.Cut(first, "=")
	if !ok || name != "keys" {
		return 0
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Extract returns an Extractor over f
func (f Fields) Extract() *Extractor {
	return &Extractor{fields: f}
}

// Extractor performs typed conversion of Fields. The first failure is kept
// and every later call becomes a no-op returning the zero value, so a record
// can be filled in a straight line and checked once with Err.
type Extractor struct {
	fields Fields
	err    error
}

// Err returns the first conversion failure
func (x *Extractor) Err() error {
	return x.err
}

func (x *Extractor) lookup(key string) (string, bool) {
	if x.err != nil {
		return "", false
	}
	v, ok := x.fields[key]
	if !ok {
		x.err = &MissingFieldError{Field: key}
	}
	return v, ok
}

func (x *Extractor) fail(key, value string, err error) {
	x.err = &InvalidFieldError{Field: key, Value: value, Err: err}
}

// String returns a required string field
func (x *Extractor) String(key string) string {
	v, _ := x.lookup(key)
	return v
}

// StringOr returns key or def when absent
func (x *Extractor) StringOr(key, def string) string {
	if v, ok := x.fields[key]; ok {
		return v
	}
	return def
}

// Int returns a required non-negative integer field
func (x *Extractor) Int(key string) int64 {
	v, ok := x.lookup(key)
	if !ok {
		return 0
	}
	return x.parseInt(key, v)
}

func (x *Extractor) parseInt(key, v string) int64 {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		x.fail(key, v, err)
		return 0
	}
	if n < 0 {
		x.fail(key, v, fmt.Errorf("negative value"))
		return 0
	}
	return n
}

// Float returns a required float field
func (x *Extractor) Float(key string) float64 {
	v, ok := x.lookup(key)
	if !ok {
		return 0
	}
	return x.parseFloat(key, v)
}

// FloatOr returns a float field, or def when the field is absent
func (x *Extractor) FloatOr(key string, def float64) float64 {
	if x.err != nil {
		return 0
	}
	v, ok := x.fields[key]
	if !ok {
		return def
	}
	return x.parseFloat(key, v)
}

func (x *Extractor) parseFloat(key, v string) float64 {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		x.fail(key, v, err)
		return 0
	}
	return f
}

// Flag returns a required "0"/"1" field as a bool
func (x *Extractor) Flag(key string) bool {
	v, ok := x.lookup(key)
	if !ok {
		return false
	}
	return v == "1"
}

// SumInts returns the sum of a required comma-separated list of
// per-shard integers ("3,4,5" -> 12).
func (x *Extractor) SumInts(key string) int64 {
	v, ok := x.lookup(key)
	if !ok {
		return 0
	}
	var total int64
	for _, part := range strings.Split(v, ",") {
		n := x.parseInt(key, strings.TrimSpace(part))
		if x.err != nil {
			return 0
		}
		total += n
	}
	return total
}

// MaxFloats returns the largest value of a required comma-separated sample list
func (x *Extractor) MaxFloats(key string) float64 {
	v, ok := x.lookup(key)
	if !ok {
		return 0
	}
	return x.maxOf(key, v)
}

// MaxFloatsOr is MaxFloats returning def when the field is absent
func (x *Extractor) MaxFloatsOr(key string, def float64) float64 {
	if x.err != nil {
		return 0
	}
	v, ok := x.fields[key]
	if !ok {
		return def
	}
	return x.maxOf(key, v)
}

func (x *Extractor) maxOf(key, v string) float64 {
	var highest float64
	for i, part := range strings.Split(v, ",") {
		f := x.parseFloat(key, strings.TrimSpace(part))
		if x.err != nil {
			return 0
		}
		if i == 0 || f > highest {
			highest = f
		}
	}
	return highest
}
