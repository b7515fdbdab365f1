package core

import (
	"fmt"
	"strconv"
	"time"
)

// Kind tags the type of an encoded field.
type Kind string

const (
	KindString    Kind = "string"
	KindInteger   Kind = "integer"
	KindFloat     Kind = "float"
	KindBool      Kind = "bool"
	KindTimestamp Kind = "timestamp"
	KindNull      Kind = "null"
)

// Field is the lossless tagged form of a Value, used by stores that cannot
// keep integers, timestamps and strings apart on their own (JSON, YAML, jsonb).
type Field struct {
	Kind  Kind   `json:"kind" yaml:"kind"`
	Value string `json:"value,omitempty" yaml:"value,omitempty"`
}

// EncodeRecord converts a normalized record to its tagged form.
// Sentinels must be resolved beforehand.
func EncodeRecord(rec Record) (map[string]Field, error) {
	out := make(map[string]Field, len(rec))
	for k, v := range rec {
		f, err := encodeValue(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		out[k] = f
	}
	return out, nil
}

func encodeValue(v any) (Field, error) {
	nv, err := NormalizeValue(v)
	if err != nil {
		return Field{}, err
	}
	switch x := nv.(type) {
	case nil:
		return Field{Kind: KindNull}, nil
	case string:
		return Field{Kind: KindString, Value: x}, nil
	case bool:
		return Field{Kind: KindBool, Value: strconv.FormatBool(x)}, nil
	case int64:
		return Field{Kind: KindInteger, Value: strconv.FormatInt(x, 10)}, nil
	case float64:
		return Field{Kind: KindFloat, Value: strconv.FormatFloat(x, 'g', -1, 64)}, nil
	case time.Time:
		return Field{Kind: KindTimestamp, Value: x.Format(time.RFC3339Nano)}, nil
	case Sentinel:
		return Field{}, fmt.Errorf("%w: unresolved %s", ErrValidation, x)
	}
	return Field{}, fmt.Errorf("%w: unsupported value %v", ErrValidation, nv)
}

// DecodeRecord converts a tagged record back to its normalized values.
func DecodeRecord(fields map[string]Field) (Record, error) {
	out := make(Record, len(fields))
	for k, f := range fields {
		v, err := decodeValue(f)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

func decodeValue(f Field) (any, error) {
	switch f.Kind {
	case KindNull:
		return nil, nil
	case KindString:
		return f.Value, nil
	case KindBool:
		return strconv.ParseBool(f.Value)
	case KindInteger:
		return strconv.ParseInt(f.Value, 10, 64)
	case KindFloat:
		return strconv.ParseFloat(f.Value, 64)
	case KindTimestamp:
		t, err := time.Parse(time.RFC3339Nano, f.Value)
		if err != nil {
			return nil, err
		}
		return t.UTC(), nil
	}
	return nil, fmt.Errorf("unknown field kind %q", f.Kind)
}
