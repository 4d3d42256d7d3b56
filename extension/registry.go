// Package extension resolves named feed extensions for the reader and writer.
//
// An extension is registered under a short, case-insensitive name together with
// its Kind and a Factory. Resolve calls the factory on every lookup, so callers
// always get a fresh instance, and checks the instance against the contract of its
// kind before returning it.
//
// Reader and writer keep separate registries; a registry only accepts the kinds
// of its Role. Registries are plain values handed to reader.New and writer.New,
// there is no package-level table.
package extension

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/coregx/feedkit"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var namePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// Factory creates a new extension instance.
type Factory func() any

// Registration is one entry of a built-in extension table.
type Registration struct {
	Name    string
	Kind    Kind
	Factory Factory
}

type entry struct {
	kind    Kind
	factory Factory
}

// Registry maps extension names to factories for one Role.
//
// Thread safety: Safe for concurrent use.
type Registry struct {
	role       Role
	standalone bool

	mu      sync.RWMutex
	entries map[string]entry
}

// New creates an empty pluggable registry for role.
func New(role Role) *Registry {
	return &Registry{role: role, entries: make(map[string]entry)}
}

// NewStandalone creates a registry fixed to table. Register always fails on it;
// resolution behaves exactly like a pluggable registry.
func NewStandalone(role Role, table []Registration) (*Registry, error) {
	r := New(role)
	for _, reg := range table {
		if err := r.register(reg.Name, reg.Kind, reg.Factory); err != nil {
			return nil, err
		}
	}
	r.standalone = true
	return r, nil
}

// Role returns the role the registry serves.
func (r *Registry) Role() Role {
	return r.role
}

// Register adds or replaces the extension called name.
//
// Returns INVALID_ARGUMENT when the name is not a letter followed by letters,
// digits or underscores, when kind does not belong to the registry's role, when
// factory is nil, or when the registry is standalone.
func (r *Registry) Register(name string, kind Kind, factory Factory) error {
	if r.standalone {
		return feedkit.NewError(feedkit.ErrCodeInvalidArgument,
			fmt.Sprintf("cannot register %q: the %s registry is standalone", name, r.role))
	}
	return r.register(name, kind, factory)
}

// RegisterAll registers every entry of table, stopping at the first failure.
func (r *Registry) RegisterAll(table []Registration) error {
	for _, reg := range table {
		if err := r.Register(reg.Name, reg.Kind, reg.Factory); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) register(name string, kind Kind, factory Factory) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if kind.Role() != r.role {
		return feedkit.NewError(feedkit.ErrCodeInvalidArgument,
			fmt.Sprintf("extension kind %q is not valid for the %s registry", kind, r.role))
	}
	if factory == nil {
		return feedkit.NewError(feedkit.ErrCodeInvalidArgument,
			fmt.Sprintf("extension %q has no factory", name))
	}

	r.mu.Lock()
	r.entries[strings.ToLower(name)] = entry{kind: kind, factory: factory}
	r.mu.Unlock()
	return nil
}

// Resolve returns a fresh instance of the extension called name.
//
// Returns NOT_FOUND when nothing is registered under name and INVALID_EXTENSION
// when the instance does not implement the contract of its declared kind.
func (r *Registry) Resolve(name string) (any, error) {
	r.mu.RLock()
	e, ok := r.entries[strings.ToLower(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, feedkit.NewError(feedkit.ErrCodeNotFound,
			fmt.Sprintf("no %s extension registered as %q", r.role, name))
	}

	instance := e.factory()
	c := contracts[e.kind]
	if isNil(instance) || !c.ok(instance) {
		return nil, feedkit.NewError(feedkit.ErrCodeInvalidExtension,
			fmt.Sprintf("%s extension %q (%T) is declared %s but does not implement %s",
				r.role, name, instance, e.kind, c.name))
	}
	return instance, nil
}

// isNil also catches typed nils such as (*T)(nil) wrapped in an interface.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// ResolveAs resolves name and asserts the instance to T.
// A type mismatch is reported as INVALID_EXTENSION.
func ResolveAs[T any](r *Registry, name string) (T, error) {
	var zero T
	instance, err := r.Resolve(name)
	if err != nil {
		return zero, err
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, feedkit.NewError(feedkit.ErrCodeInvalidExtension,
			fmt.Sprintf("extension %q (%T) is not a %T", name, instance, zero))
	}
	return typed, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Kind(name)
	return ok
}

// Kind returns the declared kind of name.
func (r *Registry) Kind(name string) (Kind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[strings.ToLower(name)]
	return e.kind, ok
}

// Names returns the registered names in sorted order, limited to kinds when any are given.
func (r *Registry) Names(kinds ...Kind) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name, e := range r.entries {
		if len(kinds) > 0 && !containsKind(kinds, e.kind) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateName checks an extension short name.
func ValidateName(name string) error {
	err := validation.Validate(name,
		validation.Required,
		validation.Match(namePattern).Error("must start with a letter and contain only letters, digits and underscores"),
	)
	if err != nil {
		return feedkit.NewErrorWithCause(feedkit.ErrCodeInvalidArgument,
			fmt.Sprintf("invalid extension name %q", name), err)
	}
	return nil
}

func containsKind(kinds []Kind, k Kind) bool {
	for _, kind := range kinds {
		if kind == k {
			return true
		}
	}
	return false
}
