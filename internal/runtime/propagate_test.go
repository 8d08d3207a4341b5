package runtime_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/paneltree/internal/runtime"
	"github.com/aretw0/paneltree/pkg/domain"
	"github.com/aretw0/paneltree/pkg/expr"
	"github.com/aretw0/paneltree/pkg/registry"
	"github.com/aretw0/paneltree/pkg/types"
)

func numberNode() domain.ConfigNode {
	return domain.ConfigNode{
		Input:     constOf(1, nil),
		HandlerID: "Number",
		Config:    map[string]any{"decimals": 2},
	}
}

func TestUpdateInput_Unchanged(t *testing.T) {
	e := runtime.NewEngine(newTestRegistry())
	node := numberNode()

	// Same serialization, different type: still a no-op.
	next, rule, err := e.UpdateInput(context.Background(), node, constOf(1, types.Any()), domain.Frame{})
	require.NoError(t, err)
	assert.Equal(t, domain.RuleUnchanged, rule)
	assert.Equal(t, "Number", next.HandlerID)
	assert.Equal(t, node.Config, next.Config)
	assert.Equal(t, "number", next.Input.Type().String())
}

func TestUpdateInput_AssignableKeepsHandler(t *testing.T) {
	e := runtime.NewEngine(newTestRegistry())
	node := numberNode()

	next, rule, err := e.UpdateInput(context.Background(), node, constOf(7, nil), domain.Frame{})
	require.NoError(t, err)
	assert.Equal(t, domain.RuleAssignable, rule)
	assert.Equal(t, "Number", next.HandlerID)
	assert.Equal(t, map[string]any{"decimals": 2}, next.Config)
	assert.Equal(t, "7", next.Input.String())
	assert.Equal(t, "1", node.Input.String(), "previous value is untouched")
}

func TestUpdateInput_AbsorbingKeepsHandler(t *testing.T) {
	e := runtime.NewEngine(newTestRegistry())
	frame := domain.NewFrame(domain.Binding{Name: "runs", Expr: expr.NewVar("runs", types.MustParse("[{loss: number}]"))})
	node := domain.ConfigNode{
		Input:     expr.NewVar("runs", types.MustParse("[{loss: number}]")),
		HandlerID: "Each",
		Config:    map[string]any{"layout": "grid"},
	}

	next, rule, err := e.UpdateInput(context.Background(), node, expr.MustParse("runs.loss"), frame)
	require.NoError(t, err)
	assert.Equal(t, domain.RuleAbsorbing, rule)
	assert.Equal(t, "Each", next.HandlerID)
	assert.Equal(t, map[string]any{"layout": "grid"}, next.Config)
	assert.Equal(t, "[number]", next.Input.Type().String())
}

func TestUpdateInput_PinnedFallback(t *testing.T) {
	policy := runtime.Policy{PinFallback: "Expression", AllowListActive: true}
	e := runtime.NewEngine(newTestRegistry(), runtime.WithPolicy(policy))
	node := domain.ConfigNode{Input: constOf(1, nil), HandlerID: "Expression", Config: map[string]any{"x": 1}}

	next, rule, err := e.UpdateInput(context.Background(), node, constOf("text", nil), domain.Frame{})
	require.NoError(t, err)
	assert.Equal(t, domain.RulePinned, rule)
	assert.Equal(t, "Expression", next.HandlerID)
	assert.Nil(t, next.Config)

	// Without an active allow-list the pin does not apply.
	e = runtime.NewEngine(newTestRegistry(), runtime.WithPolicy(runtime.Policy{PinFallback: "Expression"}))
	next, rule, err = e.UpdateInput(context.Background(), node, constOf("text", nil), domain.Frame{})
	require.NoError(t, err)
	assert.Equal(t, domain.RuleReinitialized, rule)
	assert.Equal(t, "String", next.HandlerID)
}

func TestUpdateInput_Reinitializes(t *testing.T) {
	e := runtime.NewEngine(newTestRegistry())
	node := numberNode()
	node.Vars = domain.NewFrame(domain.Binding{Name: "a", Expr: constOf(3, nil)})

	next, rule, err := e.UpdateInput(context.Background(), node, constOf("hello", nil), domain.Frame{})
	require.NoError(t, err)
	assert.Equal(t, domain.RuleReinitialized, rule)
	assert.Equal(t, "String", next.HandlerID)
	assert.Equal(t, map[string]any{"format": "plain"}, next.Config)
	assert.Equal(t, `"hello"`, next.Input.String())
	assert.True(t, next.Vars.Has("a"), "variables survive re-resolution")
}

func TestUpdateInput_UnresolvedNodeResolves(t *testing.T) {
	e := runtime.NewEngine(newTestRegistry())

	next, rule, err := e.UpdateInput(context.Background(), domain.DefaultNode(), constOf(5, nil), domain.Frame{})
	require.NoError(t, err)
	assert.Equal(t, domain.RuleReinitialized, rule)
	assert.Equal(t, "Number", next.HandlerID)
}

func TestUpdateInput_RefineFailureIsAtomic(t *testing.T) {
	e := runtime.NewEngine(newTestRegistry())
	node := numberNode()

	next, _, err := e.UpdateInput(context.Background(), node, expr.NewVar("ghost", nil), domain.Frame{})
	assert.ErrorIs(t, err, domain.ErrUnboundVariable)
	assert.Equal(t, node, next)
}

func TestUpdateInput_EmitsTransitions(t *testing.T) {
	var rules []domain.Rule
	e := runtime.NewEngine(newTestRegistry(), runtime.WithLifecycleHooks(domain.LifecycleHooks{
		OnTransition: func(_ context.Context, ev *domain.TransitionEvent) {
			rules = append(rules, ev.Rule)
		},
	}))
	ctx := context.Background()

	node, _, err := e.UpdateInput(ctx, numberNode(), constOf(2, nil), domain.Frame{})
	require.NoError(t, err)
	_, _, err = e.UpdateInput(ctx, node, constOf(2, nil), domain.Frame{})
	require.NoError(t, err)

	assert.Equal(t, []domain.Rule{domain.RuleAssignable, domain.RuleUnchanged}, rules)
}

func TestSwitchHandler(t *testing.T) {
	ctx := context.Background()
	e := runtime.NewEngine(newTestRegistry())
	node := domain.ConfigNode{
		Vars:      domain.NewFrame(domain.Binding{Name: "a", Expr: constOf(1, nil)}),
		Input:     constOf("x", nil),
		HandlerID: "Expression",
	}

	next, err := e.SwitchHandler(ctx, node, "String", domain.Frame{})
	require.NoError(t, err)
	assert.Equal(t, "String", next.HandlerID)
	assert.Equal(t, map[string]any{"format": "plain"}, next.Config)
	assert.Equal(t, node.Input, next.Input)
	assert.True(t, next.Vars.Equal(node.Vars))

	_, err = e.SwitchHandler(ctx, node, "Missing", domain.Frame{})
	assert.ErrorIs(t, err, domain.ErrUnknownHandler)

	// A handler that cannot render the input falls back to the stack head.
	next, err = e.SwitchHandler(ctx, node, "Number", domain.Frame{})
	require.NoError(t, err)
	assert.Equal(t, "String", next.HandlerID)
}

func TestAssignVariable(t *testing.T) {
	ctx := context.Background()
	e := runtime.NewEngine(newTestRegistry())
	node := numberNode()
	node.Vars = domain.NewFrame(
		domain.Binding{Name: "a", Expr: constOf(1, nil)},
		domain.Binding{Name: "b", Expr: constOf(2, nil)},
	)

	next, err := e.AssignVariable(ctx, node, "b", constOf(20, nil))
	require.NoError(t, err)
	got, _ := next.Vars.Get("b")
	assert.Equal(t, "20", got.String())
	assert.Equal(t, []string{"a", "b"}, next.Vars.Names())

	unchanged, err := e.AssignVariable(ctx, node, "z", constOf(0, nil))
	var unknown *domain.UnknownVariableError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "z", unknown.Name)
	assert.ErrorIs(t, err, domain.ErrUnknownVariable)
	assert.True(t, unchanged.Vars.Equal(node.Vars))
	assert.Equal(t, []string{"a", "b"}, node.Vars.Names())
}

func TestMergeConfig(t *testing.T) {
	ctx := context.Background()
	e := runtime.NewEngine(newTestRegistry())
	node := numberNode()

	var seen map[string]any
	next := e.MergeConfig(ctx, node, "Number", func(old map[string]any) map[string]any {
		seen = old
		return map[string]any{"unit": "ms"}
	})
	assert.Equal(t, map[string]any{"decimals": 2}, seen)
	assert.Equal(t, map[string]any{"decimals": 2, "unit": "ms"}, next.Config)
	assert.Equal(t, map[string]any{"decimals": 2}, node.Config, "old config is not mutated")

	// A stale node handler id is corrected by the stamp.
	stale := node
	stale.HandlerID = "String"
	next = e.MergeConfig(ctx, stale, "Number", func(map[string]any) map[string]any { return nil })
	assert.Equal(t, "Number", next.HandlerID)

	type tableConfig struct {
		PageSize int
	}
	structNode := domain.ConfigNode{Input: constOf(1, nil), HandlerID: "Number", Config: tableConfig{PageSize: 10}}
	next = e.MergeConfig(ctx, structNode, "Number", func(map[string]any) map[string]any {
		return map[string]any{"sort": "asc"}
	})
	assert.Equal(t, map[string]any{"PageSize": 10, "sort": "asc"}, next.Config)

	unresolved := e.MergeConfig(ctx, node, "", func(map[string]any) map[string]any { return map[string]any{"a": 1} })
	assert.Nil(t, unresolved.Config)
}

func TestAllowFilterAppliesToReinitialization(t *testing.T) {
	e := runtime.NewEngine(newTestRegistry(), runtime.WithAllowFilter(registry.AllowIDs("Number", "Expression")))

	next, _, err := e.UpdateInput(context.Background(), numberNode(), constOf("s", nil), domain.Frame{})
	require.NoError(t, err)
	assert.Equal(t, "Expression", next.HandlerID)
}
