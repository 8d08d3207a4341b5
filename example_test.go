package paneltree_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/paneltree"
	"github.com/aretw0/paneltree/pkg/domain"
	"github.com/aretw0/paneltree/pkg/expr"
)

// ExampleNew demonstrates resolving a node for a record and folding an input change.
func ExampleNew() {
	engine, err := paneltree.New()
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	frame := domain.NewFrame(domain.Binding{
		Name: "run",
		Expr: expr.NewConst(map[string]any{"name": "baseline", "loss": 0.25}, nil),
	})

	input, err := engine.Parse(ctx, "run", frame)
	if err != nil {
		log.Fatal(err)
	}
	node, err := engine.InitializeNode(ctx, input, "", nil, frame)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("handler: %s\n", node.HandlerID)
	fmt.Printf("children: %v\n", node.ChildKeys())

	stack := engine.ResolveStack(ctx, input.Type(), node.HandlerID, nil)
	fmt.Printf("stack: %v\n", stack.IDs())

	next, rule, err := engine.UpdateInput(ctx, node, expr.MustParse(`run["name"]`), frame)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("rule: %s, handler: %s\n", rule, next.HandlerID)
	// Output:
	// handler: Object
	// children: [loss name]
	// stack: [Object Expression]
	// rule: reinitialized, handler: String
}

// ExampleNew_allowList shows a caller restricting stacks with an allow-list.
func ExampleNew_allowList() {
	engine, err := paneltree.New(paneltree.WithAllowList("Expression"))
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	node, err := engine.InitializeNode(ctx, expr.MustParse(`"hello"`), "", nil, domain.Frame{})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(node.HandlerID)
	// Output:
	// Expression
}
