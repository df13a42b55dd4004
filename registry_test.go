package savedata

import (
	"strings"
	"testing"
	"time"
)

func TestRegistryBuildsTree(t *testing.T) {
	reg := NewRegistry()
	spec := NodeSpec{Kind: "group", Children: []NodeSpec{
		{ID: "coins", Kind: "int", Default: "5"},
		{ID: "name", Kind: "string", Default: "hero"},
		{ID: "born", Kind: "time", Default: "2020-01-02T03:04:05Z"},
		{ID: "tags", Kind: "strings", Default: "a, b"},
		{ID: "levels", Kind: "ints", Default: "1,2,3"},
		{ID: "wallet", Kind: "group", Children: []NodeSpec{
			{ID: "gold", Kind: "big", Default: "2.5e30"},
		}},
		{ID: "bag", Kind: "inventory"},
		{ID: "extra", Kind: "object"},
	}}
	n := must(reg.Build(spec))
	root := n.(*Group)
	memDB(NewMemStore()).Load(root)

	deepEqual(t, root.Child("coins").(*Value[int]).Get(), 5)
	deepEqual(t, root.Child("name").(*Value[string]).Get(), "hero")
	isTrue(t, root.Child("born").(*Value[time.Time]).Get().Equal(time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)), "born")
	deepEqual(t, root.Child("tags").(*List[string]).Items(), []string{"a", "b"})
	deepEqual(t, root.Child("levels").(*List[int]).Items(), []int{1, 2, 3})
	deepEqual(t, root.Find("wallet.gold").(*BigNumber).Get().Exponent, 30)
	deepEqual(t, root.Child("bag").Key(), "bag")
	deepEqual(t, root.Child("extra").Key(), "extra")
}

func TestRegistryErrors(t *testing.T) {
	reg := NewRegistry()
	tests := []struct {
		spec NodeSpec
		msg  string
	}{
		{NodeSpec{ID: "x", Kind: "nope"}, `unknown node kind "nope"`},
		{NodeSpec{Kind: "int"}, "has no id"},
		{NodeSpec{ID: "x", Kind: "int", Default: "a"}, `invalid default "a"`},
		{NodeSpec{ID: "x", Kind: "time", Default: "yesterday"}, `invalid default "yesterday"`},
		{NodeSpec{Kind: "group", Children: []NodeSpec{{ID: "a", Kind: "int"}, {ID: "a", Kind: "bool"}}}, "duplicate sibling id"},
	}
	for _, tt := range tests {
		_, err := reg.Build(tt.spec)
		if err == nil || !strings.Contains(err.Error(), tt.msg) {
			t.Errorf("** Build(%+v) err = %v, wanted %q", tt.spec, err, tt.msg)
		}
	}
}

func TestRegistryCustomKind(t *testing.T) {
	reg := NewRegistry()
	reg.Register("hp", func(spec NodeSpec, reg *Registry) (Node, error) {
		return NewInt(spec.ID, 100), nil
	})
	n := must(reg.Build(NodeSpec{ID: "health", Kind: "hp"}))
	deepEqual(t, n.(*Value[int]).Default(), 100)
	isTrue(t, strings.Contains(strings.Join(reg.Kinds(), ","), "hp"), "Kinds lists hp")
}
