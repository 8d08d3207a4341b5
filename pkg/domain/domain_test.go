package domain_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/paneltree/pkg/domain"
	"github.com/aretw0/paneltree/pkg/expr"
	"github.com/aretw0/paneltree/pkg/types"
)

func TestNormalize_Shorthands(t *testing.T) {
	in := expr.NewVar("run", nil)

	assert.Equal(t, domain.DefaultNode(), domain.Normalize(nil))
	assert.Equal(t, domain.DefaultNode(), domain.Normalize(domain.Void()))
	assert.Equal(t, domain.DefaultNode(), domain.Normalize(42))

	n := domain.Normalize(in)
	assert.Equal(t, "run", n.Input.String())
	assert.False(t, n.Resolved())

	var nilNode *domain.ConfigNode
	assert.Equal(t, domain.DefaultNode(), domain.Normalize(nilNode))
}

func TestNormalize_IsIdempotent(t *testing.T) {
	raws := []any{
		nil,
		expr.NewVar("x", nil),
		domain.ConfigNode{HandlerID: "", Config: map[string]any{"stale": true}},
		domain.ConfigNode{Input: expr.NewConst(1, nil), HandlerID: "Number", Config: map[string]any{"decimals": 2}},
	}
	for _, raw := range raws {
		once := domain.Normalize(raw)
		twice := domain.Normalize(once)
		assert.Nil(t, domain.Diff(once, twice), "%v", raw)
	}
}

func TestNormalize_UnresolvedDropsConfig(t *testing.T) {
	n := domain.Normalize(domain.ConfigNode{Config: map[string]any{"a": 1}})
	assert.Nil(t, n.Config)
	assert.True(t, domain.IsVoid(n.Input))

	// Children live in the config, so an unresolved node cannot keep them.
	orphan := domain.DefaultNode().WithChild("a", nil)
	assert.Empty(t, domain.Normalize(orphan).ChildKeys())
}

func TestFrame_IsCopyOnWrite(t *testing.T) {
	base := domain.NewFrame(
		domain.Binding{Name: "a", Expr: expr.NewConst(1, nil)},
		domain.Binding{Name: "b", Expr: expr.NewConst(2, nil)},
	)

	child := base.With("c", expr.NewConst(3, nil)).With("a", expr.NewConst(10, nil))
	assert.Equal(t, []string{"a", "b"}, base.Names())
	assert.Equal(t, []string{"a", "b", "c"}, child.Names())
	a, _ := base.Get("a")
	assert.Equal(t, "1", a.String())

	renamed := child.Rename("b", "z")
	assert.Equal(t, []string{"a", "z", "c"}, renamed.Names())
	assert.Equal(t, []string{"a", "c"}, child.Without("b").Names())

	ext := base.Extend(domain.NewFrame(domain.Binding{Name: "b", Expr: expr.NewConst(5, nil)}))
	assert.Equal(t, []string{"a", "b"}, ext.Names())
	b, _ := ext.Get("b")
	assert.Equal(t, "5", b.String())
	assert.False(t, ext.Equal(base))
	assert.True(t, base.Equal(base.Without("missing")))
}

func TestChildFrame_AddsVarsAndInput(t *testing.T) {
	node := domain.ConfigNode{
		Vars:  domain.NewFrame(domain.Binding{Name: "k", Expr: expr.NewConst("v", nil)}),
		Input: expr.NewVar("run", nil),
	}
	visible := domain.NewFrame(domain.Binding{Name: "run", Expr: expr.NewConst(1, nil)})

	f := domain.ChildFrame(visible, node)
	assert.Equal(t, []string{"run", "k", domain.InputVar}, f.Names())
	in, _ := f.Get(domain.InputVar)
	assert.Equal(t, "run", in.String())
	assert.Equal(t, 1, visible.Len())
}

func TestPath_ParseAndString(t *testing.T) {
	assert.Equal(t, domain.Path{}, domain.ParsePath(""))
	assert.Equal(t, domain.Path{}, domain.ParsePath("<root>"))
	assert.Equal(t, domain.Path{"a", "b"}, domain.ParsePath("<root>.a.b"))
	assert.Equal(t, domain.Path{"a", "b"}, domain.ParsePath("a.b"))
	assert.Equal(t, "<root>", domain.Path{}.String())
	assert.Equal(t, "<root>.a.b", domain.Path{"a"}.Child("b").String())
}

func TestPath_EscapedDots(t *testing.T) {
	tests := []struct {
		in   string
		want domain.Path
	}{
		{`x\.y`, domain.Path{`x\.y`}},
		{`<root>.a.x\.y.b`, domain.Path{"a", `x\.y`, "b"}},
		{`\.lead`, domain.Path{`\.lead`}},
		{`a.b\.`, domain.Path{"a", `b\.`}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := domain.ParsePath(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, domain.ParsePath(got.String()))
		})
	}

	assert.Equal(t, `<root>.x\.y`, domain.Path{"x.y"}.String())
	assert.Equal(t, `<root>.x\.y`, domain.Path{`x\.y`}.String())
}

func TestClassifyPath(t *testing.T) {
	sel := domain.Path{"a", "b"}
	tests := []struct {
		node domain.Path
		want domain.Visibility
	}{
		{domain.Path{}, domain.VisibilityAncestor},
		{domain.Path{"a"}, domain.VisibilityAncestor},
		{domain.Path{"a", "b"}, domain.VisibilitySelected},
		{domain.Path{"a", "b", "c"}, domain.VisibilityDescendant},
		{domain.Path{"a", "c"}, domain.VisibilityUnrelated},
		{domain.Path{"ab"}, domain.VisibilityUnrelated},
	}
	for _, tt := range tests {
		got := domain.ClassifyPath(tt.node, sel)
		assert.Equal(t, tt.want, got, tt.node.String())
		assert.Equal(t, tt.want != domain.VisibilityUnrelated, got.ShowsControls())
	}

	assert.Equal(t, domain.VisibilitySelected, domain.ClassifyPath(domain.Path{}, domain.Path{""}))
	assert.Equal(t, domain.VisibilityDescendant, domain.ClassifyPath(domain.Path{"x"}, domain.Path{""}))
}

func TestShowsOwnOptions(t *testing.T) {
	sel := domain.Path{"a"}
	assert.False(t, domain.ShowsOwnOptions(domain.Path{}, sel))
	assert.True(t, domain.ShowsOwnOptions(domain.Path{"a"}, sel))
	assert.True(t, domain.ShowsOwnOptions(domain.Path{"a", "b"}, sel))
	assert.False(t, domain.ShowsOwnOptions(domain.Path{"b"}, sel))
}

// container returns a resolved node that can hold children.
func container() domain.ConfigNode {
	return domain.ConfigNode{Input: expr.NewConst(map[string]any{}, nil), HandlerID: "Object"}
}

func TestTree_ReplaceAtLeavesOriginalUntouched(t *testing.T) {
	leaf := domain.ConfigNode{Input: expr.NewConst("x", nil), HandlerID: "String"}
	root := container().WithChild("a", container().WithChild("b", leaf))

	got, err := domain.At(root, domain.Path{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, "String", got.HandlerID)

	replacement := domain.ConfigNode{Input: expr.NewConst(1, nil), HandlerID: "Number"}
	next, err := domain.ReplaceAt(root, domain.Path{"a", "b"}, replacement)
	require.NoError(t, err)

	after, _ := domain.At(next, domain.Path{"a", "b"})
	assert.Equal(t, "Number", after.HandlerID)
	before, _ := domain.At(root, domain.Path{"a", "b"})
	assert.Equal(t, "String", before.HandlerID)

	_, err = domain.At(root, domain.Path{"a", "missing"})
	assert.True(t, errors.Is(err, domain.ErrPathNotFound))
	_, err = domain.ReplaceAt(root, domain.Path{"zzz"}, replacement)
	assert.True(t, errors.Is(err, domain.ErrPathNotFound))
}

func TestTree_ShorthandChildren(t *testing.T) {
	root := container().
		WithChild("b", expr.NewVar("input", nil)).
		WithChild("a", nil)

	assert.Equal(t, []string{"a", "b"}, root.ChildKeys())
	b, ok := root.Child("b")
	require.True(t, ok)
	assert.Equal(t, "input", b.Input.String())

	full := domain.EnsureFull(root.Children(), "b")
	assert.True(t, domain.IsFull(full["b"]))
	assert.False(t, domain.IsFull(root.Children()["b"]))

	assert.Equal(t, []string{"b"}, root.WithoutChild("a").ChildKeys())
	assert.Equal(t, []string{"a", "b"}, root.ChildKeys())
}

func TestVisibleFrame(t *testing.T) {
	root := container()
	root.Vars = domain.NewFrame(domain.Binding{Name: "run", Expr: expr.NewConst(1, nil)})
	main := domain.ConfigNode{
		Vars:      domain.NewFrame(domain.Binding{Name: "k", Expr: expr.NewConst(2, nil)}),
		Input:     expr.NewVar("run", nil),
		HandlerID: "Expression",
	}
	root = root.WithChild("main", main.WithChild("leaf", nil))

	f, err := domain.VisibleFrame(root, domain.Path{"main", "leaf"})
	require.NoError(t, err)
	assert.Equal(t, []string{"run", domain.InputVar, "k"}, f.Names())
	in, _ := f.Get(domain.InputVar)
	assert.Equal(t, "run", in.String())

	top, err := domain.VisibleFrame(root, domain.Path{})
	require.NoError(t, err)
	assert.Equal(t, 0, top.Len())
}

func TestDiff(t *testing.T) {
	old := domain.ConfigNode{
		Vars:      domain.NewFrame(domain.Binding{Name: "a", Expr: expr.NewConst(1, nil)}),
		Input:     expr.NewVar("x", nil),
		HandlerID: "Number",
		Config:    map[string]any{"decimals": 2},
	}
	assert.Nil(t, domain.Diff(old, old))

	same := old
	same.Config = map[string]any{"decimals": 2.0}
	assert.Nil(t, domain.Diff(old, same), "int and float configs compare by value")

	next := old
	next.HandlerID = "String"
	next.Input = expr.NewVar("y", nil)
	next.Vars = old.Vars.Without("a").With("b", expr.NewConst(2, nil))
	next.Config = nil

	d := domain.Diff(old, next)
	require.NotNil(t, d)
	assert.Equal(t, "String", *d.HandlerID)
	assert.Equal(t, "y", *d.Input)
	assert.Nil(t, d.Vars["a"])
	assert.Contains(t, d.Vars, "a")
	assert.Equal(t, "2", *d.Vars["b"])
	assert.True(t, d.ConfigChanged)

	raw, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"String","input_node":"y","vars":{"a":null,"b":"2"},"config_changed":true}`, string(raw))
}

func TestPlainRoundTrip(t *testing.T) {
	rec := types.MustParse("{loss: number, name: string}")
	root := domain.ConfigNode{
		Vars:      domain.NewFrame(domain.Binding{Name: "run", Expr: expr.NewConst(map[string]any{"loss": 0.5, "name": "x"}, rec)}),
		HandlerID: "Object",
		Input:     expr.NewVar("run", rec),
		Config: map[string]any{
			domain.KeyChildren: map[string]any{
				"loss": domain.ConfigNode{Input: expr.WithType(expr.Pick(expr.NewVar("input", rec), "loss"), types.Number()), HandlerID: "Number"},
			},
		},
	}

	plain, err := root.ToPlain(expr.Codec{})
	require.NoError(t, err)
	raw, err := json.Marshal(plain)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	back, err := domain.FromPlain(decoded, expr.Codec{})
	require.NoError(t, err)

	assert.Nil(t, domain.Diff(root, back))
	loss, ok := back.Child("loss")
	require.True(t, ok)
	assert.Equal(t, `input["loss"]`, loss.Input.String())
	assert.Equal(t, "number", loss.Input.Type().String())
}
