// Package collection provides per-collection key-value metadata for gene set
// catalogs: organism, feature identifier type, URL generators and arbitrary
// tags.
package collection

import (
	"errors"
	"fmt"
)

// Reserved variable names.
const (
	VarIDType      = "id_type"
	VarOrganism    = "org"
	VarURLFunction = "URL_function"
)

// Unknown is the default organism for a new collection.
const Unknown = "unknown"

// ErrUnknownCollection is returned by strict lookups of a collection that
// has no metadata.
var ErrUnknownCollection = errors.New("unknown collection")

// IDType describes the kind of feature identifier a collection uses.
type IDType string

// Common identifier types.
const (
	IDTypeUnknown IDType = "unknown"
	IDTypeEntrez  IDType = "entrez"
	IDTypeEnsembl IDType = "ensembl"
	IDTypeSymbol  IDType = "symbol"
)

// Validator checks a metadata value before it is written.
type Validator func(value any) error

// Entry is one metadata row.
type Entry struct {
	Collection string
	Variable   string
	Value      any
}

type entryKey struct {
	collection string
	variable   string
}

// Metadata stores values keyed by (collection, variable). The zero value is
// not usable; call New.
type Metadata struct {
	entries map[entryKey]any
	order   []entryKey
}

// New creates an empty metadata store.
func New() *Metadata {
	return &Metadata{entries: make(map[entryKey]any)}
}

// Clone returns an independent copy. Values are shared by reference.
func (m *Metadata) Clone() *Metadata {
	out := &Metadata{
		entries: make(map[entryKey]any, len(m.entries)),
		order:   make([]entryKey, len(m.order)),
	}
	copy(out.order, m.order)
	for k, v := range m.entries {
		out.entries[k] = v
	}
	return out
}

// Len returns the number of entries.
func (m *Metadata) Len() int {
	return len(m.order)
}

// Get returns the value stored for (collection, variable). A missing entry
// is reported through ok and is never an error.
func (m *Metadata) Get(collection, variable string) (value any, ok bool) {
	value, ok = m.entries[entryKey{collection, variable}]
	return value, ok
}

// Lookup is Get with an optional strict mode, which fails with
// ErrUnknownCollection when the collection has no metadata at all.
func (m *Metadata) Lookup(collection, variable string, strict bool) (any, error) {
	if v, ok := m.Get(collection, variable); ok {
		return v, nil
	}
	if strict && !m.HasCollection(collection) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
	}
	return nil, nil
}

// HasCollection reports whether any entry exists for the collection.
func (m *Metadata) HasCollection(collection string) bool {
	for _, k := range m.order {
		if k.collection == collection {
			return true
		}
	}
	return false
}

// Collections returns the collections with metadata in first-seen order.
func (m *Metadata) Collections() []string {
	seen := make(map[string]bool)
	var out []string
	for _, k := range m.order {
		if !seen[k.collection] {
			seen[k.collection] = true
			out = append(out, k.collection)
		}
	}
	return out
}

// Entries returns all entries in insertion order.
func (m *Metadata) Entries() []Entry {
	out := make([]Entry, len(m.order))
	for i, k := range m.order {
		out[i] = Entry{Collection: k.collection, Variable: k.variable, Value: m.entries[k]}
	}
	return out
}

// SetOption configures a Set call.
type SetOption func(*setOptions)

type setOptions struct {
	validate Validator
	allowAdd bool
}

// WithValidator runs fn on the value before it is written.
func WithValidator(fn Validator) SetOption {
	return func(o *setOptions) {
		o.validate = fn
	}
}

// WithAllowAdd permits creating a (collection, variable) pair that does not
// exist yet.
func WithAllowAdd() SetOption {
	return func(o *setOptions) {
		o.allowAdd = true
	}
}

// Set writes a value. Without WithAllowAdd the pair must already exist.
// Reserved variables are checked by built-in validators before any
// user-supplied one; a rejected value leaves the store unchanged.
func (m *Metadata) Set(collection, variable string, value any, opts ...SetOption) error {
	var o setOptions
	for _, opt := range opts {
		opt(&o)
	}

	k := entryKey{collection, variable}
	_, exists := m.entries[k]
	if !exists && !o.allowAdd {
		return &UnknownMetadataKeyError{Collection: collection, Variable: variable}
	}
	if collection == "" || variable == "" {
		return &ValidationError{Collection: collection, Variable: variable,
			Err: errors.New("collection and variable must be non-empty")}
	}

	if check, ok := reservedValidators[variable]; ok {
		if err := check(value); err != nil {
			return &ValidationError{Collection: collection, Variable: variable, Err: err}
		}
	}
	if o.validate != nil {
		if err := o.validate(value); err != nil {
			return &ValidationError{Collection: collection, Variable: variable, Err: err}
		}
	}

	if !exists {
		m.order = append(m.order, k)
	}
	m.entries[k] = value
	return nil
}

// Delete removes every entry of a collection.
func (m *Metadata) Delete(collection string) {
	kept := m.order[:0:0]
	for _, k := range m.order {
		if k.collection == collection {
			delete(m.entries, k)
			continue
		}
		kept = append(kept, k)
	}
	m.order = kept
}

// Defaults writes the reserved variables for a collection that does not have
// them yet: unknown organism and id type, and no URL generator.
func (m *Metadata) Defaults(collection string) {
	for _, d := range []struct {
		variable string
		value    any
	}{
		{VarURLFunction, nil},
		{VarIDType, IDTypeUnknown},
		{VarOrganism, Unknown},
	} {
		if _, ok := m.Get(collection, d.variable); !ok {
			_ = m.Set(collection, d.variable, d.value, WithAllowAdd())
		}
	}
}

var reservedValidators = map[string]Validator{
	VarOrganism: func(v any) error {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("organism must be a string, got %T", v)
		}
		if s == "" {
			return errors.New("organism must be non-empty")
		}
		return nil
	},
	VarIDType: func(v any) error {
		t, ok := v.(IDType)
		if !ok {
			return fmt.Errorf("id type must be an IDType, got %T", v)
		}
		if t == "" {
			return errors.New("id type must be non-empty")
		}
		return nil
	},
	VarURLFunction: func(v any) error {
		switch g := v.(type) {
		case nil:
			return nil
		case URLFunc:
			if g == nil {
				return errors.New("URL function is nil")
			}
			return nil
		case URLGenerator:
			return nil
		default:
			return fmt.Errorf("URL function must implement URLGenerator, got %T", v)
		}
	},
}
