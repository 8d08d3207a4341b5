package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/paneltree/internal/cli"
	"github.com/aretw0/paneltree/pkg/domain"
	"github.com/aretw0/paneltree/pkg/expr"
	"github.com/aretw0/paneltree/pkg/handlers"
)

// MainPanel is the child of the root that holds the panel created by "new".
const MainPanel = "main"

var newCmd = &cobra.Command{
	Use:   "new ID [EXPR]",
	Short: "Create a document",
	Long: `Creates document ID. The root node takes the --data object as its input
and binds each top-level key as a variable. When EXPR is given, a panel for
it is initialized under <root>.main; it may reference those variables and
the whole object as "input".`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(nil)
		if err != nil {
			return err
		}
		dataPath, _ := cmd.Flags().GetString("data")
		handler, _ := cmd.Flags().GetString("handler")
		ctx := cmd.Context()

		data, err := cli.LoadData(dataPath)
		if err != nil {
			return err
		}
		root, err := a.engine.InitializeNode(ctx, expr.NewConst(data, nil), handlers.Expression, nil, domain.Frame{})
		if err != nil {
			return err
		}
		if !root.Resolved() {
			return fmt.Errorf("no handler can hold the root of %s", args[0])
		}
		root.Vars = cli.BindData(data)

		if len(args) == 2 {
			input, err := expr.Parse(args[1])
			if err != nil {
				return err
			}
			panel, err := a.engine.InitializeNode(ctx, input, handler, nil, domain.ChildFrame(domain.Frame{}, root))
			if err != nil {
				return err
			}
			root = root.WithChild(MainPanel, panel)
		}

		doc, err := a.docs.Save(ctx, domain.NewDocument(args[0], root))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %s (version %d)\n", doc.ID, doc.Version)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored documents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(nil)
		if err != nil {
			return err
		}
		ids, err := a.docs.List(cmd.Context())
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(nil)
		if err != nil {
			return err
		}
		return a.docs.Delete(cmd.Context(), args[0])
	},
}

var setInputCmd = &cobra.Command{
	Use:   "set-input ID EXPR",
	Short: "Change the input expression of a node",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		input, err := expr.Parse(args[1])
		if err != nil {
			return err
		}
		var rule domain.Rule
		return mutate(cmd, args[0], func(ctx context.Context, a *app, node domain.ConfigNode, frame domain.Frame) (domain.ConfigNode, error) {
			next, applied, err := a.engine.UpdateInput(ctx, node, input, frame)
			rule = applied
			return next, err
		}, func() string { return "rule: " + string(rule) })
	},
}

var switchCmd = &cobra.Command{
	Use:   "switch ID HANDLER",
	Short: "Switch the handler of a node",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutate(cmd, args[0], func(ctx context.Context, a *app, node domain.ConfigNode, frame domain.Frame) (domain.ConfigNode, error) {
			return a.engine.SwitchHandler(ctx, node, args[1], frame)
		}, nil)
	},
}

var addVarCmd = &cobra.Command{
	Use:   "add-var ID EXPR",
	Short: "Declare a new variable on a node",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var name string
		return mutate(cmd, args[0], func(ctx context.Context, a *app, node domain.ConfigNode, frame domain.Frame) (domain.ConfigNode, error) {
			value, err := a.engine.Parse(ctx, args[1], frame.Extend(node.Vars))
			if err != nil {
				return node, err
			}
			next, fresh := a.engine.AddVariable(ctx, node, value, frame)
			name = fresh
			return next, nil
		}, func() string { return "variable: " + name })
	},
}

var renameVarCmd = &cobra.Command{
	Use:   "rename-var ID OLD NEW",
	Short: "Rename a variable and every reference to it",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutate(cmd, args[0], func(ctx context.Context, a *app, node domain.ConfigNode, frame domain.Frame) (domain.ConfigNode, error) {
			return a.engine.RenameVariable(ctx, node, args[1], args[2], frame)
		}, nil)
	},
}

var configureCmd = &cobra.Command{
	Use:   "configure ID",
	Short: "Move a child node off the Expression fallback",
	Long:  `Expands the child at --path to a full node and switches it to the best handler of its stack other than Expression.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutateChild(cmd, args[0], func(ctx context.Context, a *app, parent domain.ConfigNode, key string, frame domain.Frame) (domain.ConfigNode, error) {
			return a.engine.ConfigureChild(ctx, parent, key, frame)
		})
	},
}

var removeChildCmd = &cobra.Command{
	Use:   "remove-child ID",
	Short: "Remove the child node at --path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutateChild(cmd, args[0], func(ctx context.Context, a *app, parent domain.ConfigNode, key string, _ domain.Frame) (domain.ConfigNode, error) {
			return a.engine.RemoveChild(ctx, parent, key)
		})
	},
}

var undoCmd = &cobra.Command{
	Use:   "undo ID",
	Short: "Restore the previous version of a document",
	Long:  `Restores the previous root of a document. History lives in memory, so undo only reaches changes made by the same process (for example through "serve").`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(nil)
		if err != nil {
			return err
		}
		doc, err := a.docs.Undo(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is now at version %d\n", doc.ID, doc.Version)
		return nil
	},
}

type nodeFunc func(ctx context.Context, a *app, node domain.ConfigNode, frame domain.Frame) (domain.ConfigNode, error)

// mutate applies fn to the node at --path and reports the new version.
func mutate(cmd *cobra.Command, id string, fn nodeFunc, summary func() string) error {
	pathFlag, _ := cmd.Flags().GetString("path")
	return mutateAt(cmd, id, domain.ParsePath(pathFlag), fn, summary)
}

func mutateAt(cmd *cobra.Command, id string, path domain.Path, fn nodeFunc, summary func() string) error {
	a, err := newApp(nil)
	if err != nil {
		return err
	}

	doc, err := a.docs.Update(cmd.Context(), id, path, func(ctx context.Context, node domain.ConfigNode, frame domain.Frame) (domain.ConfigNode, error) {
		return fn(ctx, a, node, frame)
	})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s is now at version %d\n", doc.ID, path, doc.Version)
	if summary != nil {
		fmt.Fprintln(out, summary())
	}
	return nil
}

// mutateChild applies fn to the parent of the node at --path.
func mutateChild(cmd *cobra.Command, id string, fn func(ctx context.Context, a *app, parent domain.ConfigNode, key string, frame domain.Frame) (domain.ConfigNode, error)) error {
	pathFlag, _ := cmd.Flags().GetString("path")
	path := domain.ParsePath(pathFlag)
	if len(path) == 0 {
		return fmt.Errorf("--path must address a child node")
	}
	key := path[len(path)-1]
	return mutateAt(cmd, id, path[:len(path)-1], func(ctx context.Context, a *app, node domain.ConfigNode, frame domain.Frame) (domain.ConfigNode, error) {
		return fn(ctx, a, node, key, frame)
	}, nil)
}

func init() {
	newCmd.Flags().String("data", "", "JSON or YAML object used as the root input; its top-level keys become variables")
	newCmd.Flags().String("handler", "", "Handler id to prefer for the main panel")

	for _, c := range []*cobra.Command{setInputCmd, switchCmd, addVarCmd, renameVarCmd, configureCmd, removeChildCmd} {
		c.Flags().String("path", MainPanel, "Dotted path of the node to change")
	}

	rootCmd.AddCommand(newCmd, listCmd, deleteCmd, setInputCmd, switchCmd, addVarCmd, renameVarCmd, configureCmd, removeChildCmd, undoCmd)
}
