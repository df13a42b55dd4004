package savedata

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// NodeSpec declares a node of a save tree, e.g. in a schema file.
type NodeSpec struct {
	ID       string     `mapstructure:"id" json:"id"`
	Kind     string     `mapstructure:"kind" json:"kind"`
	Default  string     `mapstructure:"default" json:"default,omitempty"`
	Children []NodeSpec `mapstructure:"children" json:"children,omitempty"`
}

// Factory builds a node from its spec. Group-like factories build their
// children through reg.
type Factory func(spec NodeSpec, reg *Registry) (Node, error)

// Registry maps kind tags to node factories, so trees can be declared as
// data and applications can plug in their own node kinds.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns a registry with the built-in kinds registered.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register("group", buildGroup)
	r.Register("bool", scalarFactory(BoolScalar, NewBool))
	r.Register("int", scalarFactory(IntScalar, NewInt))
	r.Register("int64", scalarFactory(Int64Scalar, NewInt64))
	r.Register("float", scalarFactory(FloatScalar, NewFloat))
	r.Register("string", scalarFactory(StringScalar, NewString))
	r.Register("time", buildTime)
	r.Register("big", buildBig)
	r.Register("strings", buildStrings)
	r.Register("ints", buildInts)
	r.Register("object", func(spec NodeSpec, reg *Registry) (Node, error) {
		return NewObject[map[string]any](spec.ID, nil), nil
	})
	r.Register("inventory", func(spec NodeSpec, reg *Registry) (Node, error) {
		return NewInventory[*InventoryRecord](spec.ID), nil
	})
	return r
}

// Register adds or replaces the factory for kind.
func (r *Registry) Register(kind string, f Factory) {
	r.factories[kind] = f
}

// Kinds returns the registered kind tags, sorted.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Build constructs the node declared by spec.
func (r *Registry) Build(spec NodeSpec) (Node, error) {
	if spec.ID == "" && spec.Kind != "group" {
		return nil, fmt.Errorf("node of kind %q has no id", spec.Kind)
	}
	f := r.factories[spec.Kind]
	if f == nil {
		return nil, fmt.Errorf("%s: unknown node kind %q", spec.ID, spec.Kind)
	}
	n, err := f(spec, r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", spec.ID, err)
	}
	return n, nil
}

func buildGroup(spec NodeSpec, reg *Registry) (Node, error) {
	g := NewGroup(spec.ID)
	for _, cs := range spec.Children {
		c, err := reg.Build(cs)
		if err != nil {
			return nil, err
		}
		if err := g.Add(c); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func scalarFactory[T any](codec Scalar[T], ctor func(id string, def T) *Value[T]) Factory {
	return func(spec NodeSpec, reg *Registry) (Node, error) {
		var def T
		if spec.Default != "" {
			v, err := codec.Parse(spec.Default)
			if err != nil {
				return nil, fmt.Errorf("invalid default %q: %w", spec.Default, err)
			}
			def = v
		}
		return ctor(spec.ID, def), nil
	}
}

func buildTime(spec NodeSpec, reg *Registry) (Node, error) {
	var def time.Time
	if spec.Default != "" {
		t, err := time.Parse(time.RFC3339, spec.Default)
		if err != nil {
			return nil, fmt.Errorf("invalid default %q: %w", spec.Default, err)
		}
		def = t
	}
	return NewTime(spec.ID, def), nil
}

func buildBig(spec NodeSpec, reg *Registry) (Node, error) {
	var def Big
	if spec.Default != "" {
		v, err := strconv.ParseFloat(spec.Default, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid default %q: %w", spec.Default, err)
		}
		def = NewBig(v)
	}
	return NewBigNumber(spec.ID, def), nil
}

func buildStrings(spec NodeSpec, reg *Registry) (Node, error) {
	return NewList(spec.ID, splitDefault(spec.Default)...), nil
}

func buildInts(spec NodeSpec, reg *Registry) (Node, error) {
	var def []int
	for _, s := range splitDefault(spec.Default) {
		v, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("invalid default %q: %w", spec.Default, err)
		}
		def = append(def, v)
	}
	return NewList(spec.ID, def...), nil
}

func splitDefault(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}
