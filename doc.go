/*
Package paneltree decides which handler ("panel") renders a typed value and
keeps a tree of nested, independently configured handler instances in sync as
their inputs change.

# Concept

Every handler declares the types it can render. Given the type of an input
expression, the engine builds the stack of applicable handlers, ordered from
most to least specific, and picks one. A ConfigNode records that choice
together with the node's input expression, the variables it binds for its
descendants, and the handler-owned config blob. Handlers that compose other
handlers (records, lists) keep their children inside that blob, so a whole
view is a tree of ConfigNodes.

Nodes are values. Every transition (new input, handler switch, variable
assignment, config merge) takes a node and returns a new one, which makes the
tree safe to snapshot, diff and persist.

# Usage

	engine, err := paneltree.New()
	if err != nil {
		log.Fatal(err)
	}

	frame := domain.NewFrame(domain.Binding{Name: "run", Expr: runExpr})
	node, err := engine.InitializeNode(ctx, expr.MustParse("run"), "", nil, frame)

	// Later, when the input changes:
	node, rule, err := engine.UpdateInput(ctx, node, expr.MustParse(`run["summary"]`), frame)

The rule reports why the handler was kept or re-resolved.

# Packages

  - pkg/domain: ConfigNode, Frame, Path, errors and lifecycle hooks.
  - pkg/types and pkg/expr: the reference type oracle and expression language.
  - pkg/registry and pkg/handlers: handler descriptors and the standard catalog.
  - pkg/document: locked, versioned access to persisted trees.
  - pkg/adapters: document stores (memory, file, redis) and the HTTP and MCP servers.
*/
package paneltree
