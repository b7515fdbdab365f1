// Package core holds the record model, the store contract and the bulk writer.
package core

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"
)

// Record is a flat set of named fields representing one entity to persist.
type Record map[string]any

// Entry pairs a document identifier with the Record stored under it.
type Entry struct {
	ID     string
	Record Record
}

// Sentinel marks a value the store resolves at write time.
type Sentinel int

const (
	// ServerTimestamp asks the store to write its own commit time into the field.
	ServerTimestamp Sentinel = iota + 1
)

func (s Sentinel) String() string {
	switch s {
	case ServerTimestamp:
		return "server_timestamp"
	default:
		return fmt.Sprintf("sentinel(%d)", int(s))
	}
}

// EventType represents the outcome of a single write.
type EventType string

const (
	EventWritten EventType = "WRITTEN"
	EventFailed  EventType = "FAILED"
)

// Event is emitted by the Writer after each attempted write.
type Event struct {
	Type       EventType
	Collection string
	ID         string
	Timestamp  int64 // Unix timestamp
}

func (e Event) String() string {
	return fmt.Sprintf("%s %s/%s", e.Type, e.Collection, e.ID)
}

// NormalizeValue converts v to the canonical representation used by every store:
// integers become int64, floats become float64 and timestamps are moved to UTC.
// Values that cannot be stored in a flat record yield ErrValidation.
func NormalizeValue(v any) (any, error) {
	switch x := v.(type) {
	case nil, string, bool, int64, float64, Sentinel:
		return x, nil
	case time.Time:
		return x.UTC(), nil
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint:
		return normalizeUnsigned(uint64(x))
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		return normalizeUnsigned(x)
	case float32:
		return float64(x), nil
	}
	return nil, fmt.Errorf("%w: unsupported value type %s", ErrValidation, reflect.TypeOf(v))
}

func normalizeUnsigned(u uint64) (any, error) {
	if u > math.MaxInt64 {
		return nil, fmt.Errorf("%w: integer %d overflows int64", ErrValidation, u)
	}
	return int64(u), nil
}

// Normalize returns a normalized copy of the record.
func (r Record) Normalize() (Record, error) {
	out := make(Record, len(r))
	for k, v := range r {
		if k == "" {
			return nil, fmt.Errorf("%w: empty field name", ErrValidation)
		}
		nv, err := NormalizeValue(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		out[k] = nv
	}
	return out, nil
}

// ResolveSentinels returns a copy of the record with ServerTimestamp replaced by now.
// It is used by stores that have no native server-side timestamp.
func (r Record) ResolveSentinels(now time.Time) Record {
	out := make(Record, len(r))
	for k, v := range r {
		if s, ok := v.(Sentinel); ok && s == ServerTimestamp {
			out[k] = now.UTC()
			continue
		}
		out[k] = v
	}
	return out
}

// Clone returns a shallow copy of the record. Values are immutable scalars so this is a full copy.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ValidateCollection checks that a collection name can address every store.
func ValidateCollection(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: collection name cannot be empty", ErrValidation)
	}
	if strings.Contains(name, "/") {
		return fmt.Errorf("%w: collection name %q contains '/'", ErrValidation, name)
	}
	return nil
}

// ValidateID checks a document identifier.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: document ID cannot be empty", ErrValidation)
	}
	if strings.Contains(id, "/") {
		return fmt.Errorf("%w: document ID %q contains '/'", ErrValidation, id)
	}
	if id == "." || id == ".." {
		return fmt.Errorf("%w: document ID %q is reserved", ErrValidation, id)
	}
	return nil
}
