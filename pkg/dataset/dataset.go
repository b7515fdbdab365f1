// Package dataset loads the records to seed from YAML files, keeping literal data out of code.
package dataset

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/furrow/pkg/core"
)

// IDStrategy selects how document identifiers are assigned.
type IDStrategy string

const (
	// IDSequential numbers records start, start+1, ... in file order.
	IDSequential IDStrategy = "sequential"
	// IDField takes the identifier from a record field and removes that field.
	IDField IDStrategy = "field"
	// IDUUID derives a name-based UUID from the collection and record position,
	// so reseeding the same file targets the same documents.
	IDUUID IDStrategy = "uuid"
)

// File is the on-disk layout of a dataset.
type File struct {
	Collection string           `yaml:"collection"`
	IDs        IDStrategy       `yaml:"ids"`
	Start      *int             `yaml:"start"`
	IDField    string           `yaml:"id_field"`
	Timestamp  *FixedTimestamp  `yaml:"timestamp"`
	TimeFields []string         `yaml:"time_fields"`
	Records    []map[string]any `yaml:"records"`
}

// FixedTimestamp is stamped into every record that does not set the field itself.
type FixedTimestamp struct {
	Field string `yaml:"field"`
	Value string `yaml:"value"`
}

// Batch is a loaded dataset: the target collection and its ordered entries.
type Batch struct {
	Name       string
	Collection string
	Entries    []core.Entry
}

// clockPrecision bounds $now values to what every store can hold exactly.
const clockPrecision = time.Millisecond

type loadOptions struct {
	now func() time.Time
}

// Option configures Load.
type Option func(*loadOptions)

// WithClock sets the clock used by the $now directives.
func WithClock(now func() time.Time) Option {
	return func(o *loadOptions) {
		o.now = now
	}
}

// Load parses a dataset from r. name labels the batch in logs and errors.
func Load(name string, r io.Reader, opts ...Option) (Batch, error) {
	o := &loadOptions{now: time.Now}
	for _, opt := range opts {
		opt(o)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return Batch{}, err
	}

	var f File
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil && err != io.EOF {
		return Batch{}, fmt.Errorf("dataset %s: invalid yaml: %w", name, err)
	}

	entries, err := f.entries(o.now().UTC().Truncate(clockPrecision))
	if err != nil {
		return Batch{}, fmt.Errorf("dataset %s: %w", name, err)
	}

	return Batch{Name: name, Collection: f.Collection, Entries: entries}, nil
}

// LoadFile loads a dataset from a YAML file on disk.
func LoadFile(path string, opts ...Option) (Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return Batch{}, err
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Load(name, f, opts...)
}

func (f *File) entries(now time.Time) ([]core.Entry, error) {
	if err := core.ValidateCollection(f.Collection); err != nil {
		return nil, err
	}

	strategy := f.IDs
	if strategy == "" {
		strategy = IDSequential
	}
	start := 1
	if f.Start != nil {
		start = *f.Start
	}
	idField := f.IDField
	if idField == "" {
		idField = "id"
	}

	var stamp any
	if f.Timestamp != nil {
		if f.Timestamp.Field == "" {
			return nil, fmt.Errorf("%w: timestamp.field is empty", core.ErrValidation)
		}
		v, err := resolveTime(f.Timestamp.Value, now)
		if err != nil {
			return nil, fmt.Errorf("timestamp.value: %w", err)
		}
		stamp = v
	}

	timeFields := make(map[string]bool, len(f.TimeFields))
	for _, name := range f.TimeFields {
		timeFields[name] = true
	}

	entries := make([]core.Entry, 0, len(f.Records))
	seen := make(map[string]int, len(f.Records))
	for i, raw := range f.Records {
		rec := make(core.Record, len(raw)+1)
		for k, v := range raw {
			rv, err := resolveValue(v, timeFields[k], now)
			if err != nil {
				return nil, fmt.Errorf("record %d field %q: %w", i, k, err)
			}
			rec[k] = rv
		}

		var id string
		switch strategy {
		case IDSequential:
			id = strconv.Itoa(start + i)
		case IDUUID:
			id = uuid.NewSHA1(uuid.NameSpaceURL, []byte(f.Collection+"/"+strconv.Itoa(i))).String()
		case IDField:
			v, ok := rec[idField]
			if !ok {
				return nil, fmt.Errorf("%w: record %d has no %q field", core.ErrValidation, i, idField)
			}
			fid, err := fieldID(v)
			if err != nil {
				return nil, fmt.Errorf("record %d field %q: %w", i, idField, err)
			}
			id = fid
			delete(rec, idField)
		default:
			return nil, fmt.Errorf("%w: unknown id strategy %q", core.ErrValidation, strategy)
		}

		if err := core.ValidateID(id); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if prev, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: records %d and %d share ID %q", core.ErrValidation, prev, i, id)
		}
		seen[id] = i

		if stamp != nil {
			if _, set := rec[f.Timestamp.Field]; !set {
				rec[f.Timestamp.Field] = stamp
			}
		}

		normalized, err := rec.Normalize()
		if err != nil {
			return nil, fmt.Errorf("record %q: %w", id, err)
		}
		entries = append(entries, core.Entry{ID: id, Record: normalized})
	}

	return entries, nil
}

// fieldID accepts text and integer identifiers.
func fieldID(v any) (string, error) {
	nv, err := core.NormalizeValue(v)
	if err != nil {
		return "", err
	}
	switch x := nv.(type) {
	case string:
		return x, nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	}
	return "", fmt.Errorf("%w: identifier must be text or an integer, got %T", core.ErrValidation, v)
}
