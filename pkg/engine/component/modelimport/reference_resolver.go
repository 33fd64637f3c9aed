// Package modelimport resolves cross-references between models imported
// together (process, case, decision and form models), where a referrer may be
// read before the model it points to.
package modelimport

import (
	"fmt"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// ModelKind is the kind of an imported model.
type ModelKind string

const (
	KindProcess  ModelKind = "process"
	KindCase     ModelKind = "case"
	KindDecision ModelKind = "decision"
	KindForm     ModelKind = "form"
)

// ModelRef identifies a registered model.
type ModelRef struct {
	Kind ModelKind
	Key  string
	// ID is the id assigned by this import.
	ID string
	// OldID is the id the model had in its source, if any.
	OldID string
}

// ResolveFunc updates referrer to point at ref.
type ResolveFunc func(referrer string, ref ModelRef) error

type refKey struct {
	kind ModelKind
	key  string
}

// ReferenceResolver resolves references in two phases: references to models
// not yet registered are kept pending, and are resolved and cleared as soon as
// the referenced model is registered.
type ReferenceResolver struct {
	resolve ResolveFunc

	mu         sync.Mutex
	registered map[refKey]ModelRef
	pending    map[refKey][]string
	idsByOld   map[ModelKind]map[string]string
}

// NewReferenceResolver creates a resolver calling resolve for every resolved reference.
func NewReferenceResolver(resolve ResolveFunc) *ReferenceResolver {
	return &ReferenceResolver{
		resolve:    resolve,
		registered: make(map[refKey]ModelRef),
		pending:    make(map[refKey][]string),
		idsByOld:   make(map[ModelKind]map[string]string),
	}
}

// Register records a model and resolves every reference waiting for it.
// Resolution errors are collected; the pending references are cleared either way.
func (r *ReferenceResolver) Register(kind ModelKind, key, id, oldID string) error {
	if key == "" {
		return fmt.Errorf("model key is required to register a %s model", kind)
	}
	ref := ModelRef{Kind: kind, Key: key, ID: id, OldID: oldID}
	k := refKey{kind: kind, key: key}

	r.mu.Lock()
	r.registered[k] = ref
	if oldID != "" {
		if r.idsByOld[kind] == nil {
			r.idsByOld[kind] = make(map[string]string)
		}
		r.idsByOld[kind][oldID] = id
	}
	waiting := r.pending[k]
	delete(r.pending, k)
	r.mu.Unlock()

	var result *multierror.Error
	for _, referrer := range waiting {
		if err := r.resolve(referrer, ref); err != nil {
			result = multierror.Append(result, fmt.Errorf("resolve %s reference of %s to %s: %w", kind, referrer, key, err))
		}
	}
	return result.ErrorOrNil()
}

// Reference records that referrer points at the model kind/key. It is resolved
// immediately when that model is registered already, and reports whether it was.
func (r *ReferenceResolver) Reference(kind ModelKind, key, referrer string) (bool, error) {
	k := refKey{kind: kind, key: key}

	r.mu.Lock()
	ref, ok := r.registered[k]
	if !ok {
		r.pending[k] = append(r.pending[k], referrer)
	}
	r.mu.Unlock()

	if !ok {
		return false, nil
	}
	if err := r.resolve(referrer, ref); err != nil {
		return true, fmt.Errorf("resolve %s reference of %s to %s: %w", kind, referrer, key, err)
	}
	return true, nil
}

// Unresolved returns the keys of kind still referenced but not registered, sorted.
func (r *ReferenceResolver) Unresolved(kind ModelKind) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]string, 0)
	for k := range r.pending {
		if k.kind == kind {
			keys = append(keys, k.key)
		}
	}
	sort.Strings(keys)
	return keys
}

// ResolveID maps the source id of a registered model to its new id.
func (r *ReferenceResolver) ResolveID(kind ModelKind, oldID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.idsByOld[kind][oldID]
	return id, ok
}
