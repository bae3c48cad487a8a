package store

import (
	"fmt"
	"path"
	"strings"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/hupe1980/relate/params"
)

// Namespace is a top-level partition of the store.
type Namespace string

const (
	// Descriptions holds per-entity descriptor results.
	Descriptions Namespace = "Descriptions"
	// Collections holds collection-wide method results.
	Collections Namespace = "Collections"
)

// Valid reports whether ns is a known namespace.
func (ns Namespace) Valid() bool {
	return ns == Descriptions || ns == Collections
}

const (
	recordExt  = ".rec"
	infoPrefix = "info_"
)

// Reference points from a collection result to the description it was
// derived from.
type Reference struct {
	Name   string        `json:"name"`
	Params params.Params `json:"params"`
}

// Ref is a convenience constructor.
func Ref(name string, p params.Params) *Reference {
	return &Reference{Name: name, Params: p}
}

// Equal reports whether both references are absent, or name the same
// descriptor with equal parameters.
func (r *Reference) Equal(o *Reference) bool {
	if r == nil || o == nil {
		return r == nil && o == nil
	}
	return r.Name == o.Name && r.Params.Equal(o.Params)
}

// Key renders the reference for logs and narrowing.
func (r *Reference) Key() string {
	if r == nil {
		return ""
	}
	return r.Name + "(" + r.Params.Key() + ")"
}

// Query identifies a result.
type Query struct {
	Namespace Namespace
	Key1      string
	Key2      string
	BasedOn   *Reference
	Params    params.Params
}

// DescriptionQuery builds the query for a description.
func DescriptionQuery(entityID, descriptor string, p params.Params) Query {
	return Query{Namespace: Descriptions, Key1: entityID, Key2: descriptor, Params: p}
}

// CollectionQuery builds the query for a collection result.
func CollectionQuery(collection, method string, basedOn *Reference, p params.Params) Query {
	return Query{Namespace: Collections, Key1: collection, Key2: method, BasedOn: basedOn, Params: p}
}

func (q Query) validate() error {
	if !q.Namespace.Valid() {
		return &InvalidArgumentError{Field: "namespace", Reason: fmt.Sprintf("unknown namespace %q", q.Namespace)}
	}
	if err := validateName("key1", q.Key1); err != nil {
		return err
	}
	return validateName("key2", q.Key2)
}

// validateName rejects names that cannot be a single path element.
func validateName(field, s string) error {
	switch {
	case s == "":
		return &InvalidArgumentError{Field: field, Reason: "must not be empty"}
	case s == "." || s == "..":
		return &InvalidArgumentError{Field: field, Reason: fmt.Sprintf("%q is reserved", s)}
	case strings.HasPrefix(s, "."):
		return &InvalidArgumentError{Field: field, Reason: fmt.Sprintf("%q must not start with a dot", s)}
	case strings.ContainsAny(s, "/\\\x00"):
		return &InvalidArgumentError{Field: field, Reason: fmt.Sprintf("%q contains a path separator", s)}
	}
	return nil
}

// dir is the key prefix under which all records of (ns, key1, key2) live.
func (q Query) dir() string {
	return path.Join(string(q.Namespace), q.Key1, q.Key2) + "/"
}

func (q Query) lockName() string {
	return path.Join(string(q.Namespace), q.Key1, q.Key2)
}

// Metadata is the committed description of a stored result. It fully
// determines cache-hit equivalence.
type Metadata struct {
	Namespace   Namespace         `json:"namespace"`
	Key1        string            `json:"key1"`
	Key2        string            `json:"key2"`
	Params      params.Params     `json:"params"`
	ParamsKey   string            `json:"params_key"`
	BasedOn     *Reference        `json:"based_on,omitempty"`
	Created     time.Time         `json:"created"`
	Codec       string            `json:"codec"`
	Compression string            `json:"compression"`
	Size        int               `json:"size"`
	Info        gojson.RawMessage `json:"info,omitempty"`
}

// DecodeInfo decodes the caller-supplied info into out.
func (m *Metadata) DecodeInfo(out any) error {
	if len(m.Info) == 0 {
		return nil
	}
	return gojson.Unmarshal(m.Info, out)
}

func (m *Metadata) matches(q Query) bool {
	if m.Namespace != q.Namespace || m.Key1 != q.Key1 || m.Key2 != q.Key2 {
		return false
	}
	// Canonical key equality is necessary for Equal; it narrows cheaply.
	if m.ParamsKey != q.Params.Key() {
		return false
	}
	return m.BasedOn.Equal(q.BasedOn) && m.Params.Equal(q.Params)
}

// Record is a committed result: the payload key, the metadata key and the
// decoded metadata.
type Record struct {
	Key     string
	InfoKey string
	ID      uuid.UUID
	Metadata
}

// recordNames returns the payload and metadata names for a new record.
func recordNames(q Query, id uuid.UUID) (payload, info string) {
	name := q.Key1 + "_" + q.Key2 + "_" + id.String() + recordExt
	return q.dir() + name, q.dir() + infoPrefix + name
}

// parseInfoName reports whether key is a metadata record of q and returns its
// id and payload key.
func parseInfoName(q Query, key string) (uuid.UUID, string, bool) {
	dir := q.dir()
	if !strings.HasPrefix(key, dir) {
		return uuid.UUID{}, "", false
	}
	name := key[len(dir):]

	stem := infoPrefix + q.Key1 + "_" + q.Key2 + "_"
	if !strings.HasPrefix(name, stem) || !strings.HasSuffix(name, recordExt) {
		return uuid.UUID{}, "", false
	}

	id, err := uuid.Parse(strings.TrimSuffix(name[len(stem):], recordExt))
	if err != nil {
		return uuid.UUID{}, "", false
	}
	return id, dir + strings.TrimPrefix(name, infoPrefix), true
}
