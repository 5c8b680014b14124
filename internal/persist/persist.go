// Package persist defines the two persistence ports used by the stores: a
// local key/value cache and a remote document store with change
// subscriptions. Collections are addressed by a (kind, scope) Key.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"maps"
	"time"
)

var ErrNotFound = errors.New("not found")

// Kind names a logical collection. The value doubles as the remote
// collection name.
type Kind string

const (
	KindLayout             Kind = "fieldLayouts"
	KindStationTemplates   Kind = "stationTemplates"
	KindEquipmentTemplates Kind = "equipmentTemplates"
	KindSettings           Kind = "fieldSettings"
)

var namespaces = map[Kind]string{
	KindLayout:             "fieldPlanner_items",
	KindStationTemplates:   "fieldPlanner_stationTemplates",
	KindEquipmentTemplates: "fieldPlanner_equipmentTemplates",
	KindSettings:           "fieldPlanner_settings",
}

func ParseKind(s string) (Kind, bool) {
	k := Kind(s)
	_, ok := namespaces[k]
	return k, ok
}

// Namespace is the local cache prefix for the kind.
func (k Kind) Namespace() string { return namespaces[k] }

type Key struct {
	Kind  Kind
	Scope string
}

// NewKey builds a key, defaulting an empty scope to "default".
func NewKey(kind Kind, scope string) Key {
	if scope == "" {
		scope = "default"
	}
	return Key{Kind: kind, Scope: scope}
}

func (k Key) String() string { return string(k.Kind) + "/" + k.Scope }

// CacheKey is the local cache record name: <namespace>_<scope>.
func (k Key) CacheKey() string { return k.Kind.Namespace() + "_" + k.Scope }

// Document is one remote document. Fields holds the top-level JSON fields;
// UpdatedAt is assigned by the server on every write.
type Document struct {
	Exists    bool                       `json:"exists"`
	UpdatedAt time.Time                  `json:"updatedAt,omitzero"`
	Fields    map[string]json.RawMessage `json:"fields,omitempty"`
}

// Field returns the raw value of a top-level field.
func (d Document) Field(name string) (json.RawMessage, bool) {
	if !d.Exists {
		return nil, false
	}
	v, ok := d.Fields[name]
	return v, ok
}

func (d Document) Clone() Document {
	d.Fields = maps.Clone(d.Fields)
	return d
}

// Cache is the local durable cache. Read returns ErrNotFound for a missing
// key. Implementations are synchronous.
type Cache interface {
	Read(key string) ([]byte, error)
	Write(key string, data []byte) error
}

// Remote is the shared document store.
//
// Merge upserts the given top-level fields, leaving any other fields of the
// document in place. Subscribe calls fn with the current snapshot and again
// on every change until stop is called or ctx ends; transport failures are
// delivered as fn(Document{}, err) and do not end the subscription.
type Remote interface {
	Get(ctx context.Context, key Key) (Document, error)
	Merge(ctx context.Context, key Key, fields map[string]json.RawMessage) error
	Subscribe(ctx context.Context, key Key, fn func(Document, error)) (stop func())
}
