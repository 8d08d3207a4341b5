package main

import (
	"context"
	"fmt"
	"os"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/aretw0/paneltree"
	"github.com/aretw0/paneltree/internal/presentation/tree"
	"github.com/aretw0/paneltree/internal/presentation/tui"
	"github.com/aretw0/paneltree/pkg/domain"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect ID",
	Short: "Render a document as a configuration outline",
	Long: `Prints the configuration tree of a document. Nodes on the path to --path
show their variables; the selected node and the nodes below it list the
handlers they can switch to.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(nil)
		if err != nil {
			return err
		}
		pathFlag, _ := cmd.Flags().GetString("path")
		selected := domain.ParsePath(pathFlag)

		doc, err := a.docs.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		md := tree.Markdown(doc.Root, tree.MarkdownOptions{
			Selected: selected,
			Options:  stackLabels(cmd.Context(), a.engine),
		})
		rendered, err := tui.NewRenderer(os.Stdout)(md)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprint(out, rendered)

		profile := termenv.EnvColorProfile()
		fmt.Fprintf(out, "\nversion %d\n", doc.Version)
		domain.Walk(doc.Root, func(path domain.Path, _ domain.ConfigNode) bool {
			fmt.Fprintf(out, "%s %s\n", tui.Marker(profile, domain.ClassifyPath(path, selected)), path)
			return true
		})
		return nil
	},
}

var graphCmd = &cobra.Command{
	Use:   "graph ID",
	Short: "Export the configuration tree as a Mermaid diagram",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(nil)
		if err != nil {
			return err
		}
		doc, err := a.docs.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		var overlay *tree.Overlay
		if cmd.Flags().Changed("path") {
			pathFlag, _ := cmd.Flags().GetString("path")
			overlay = &tree.Overlay{Selected: domain.ParsePath(pathFlag)}
		}
		fmt.Fprint(cmd.OutOrStdout(), tree.GenerateMermaid(doc.Root, overlay))
		return nil
	},
}

// stackLabels lists the display names of the stack a node's input resolves to,
// marking the active handler.
func stackLabels(ctx context.Context, engine *paneltree.Engine) tree.OptionsFunc {
	return func(_ domain.Path, node domain.ConfigNode) []string {
		if !node.Resolved() {
			return nil
		}
		res := engine.ResolveStack(ctx, node.Input.Type(), node.HandlerID, nil)
		labels := make([]string, 0, len(res.Stack))
		for _, o := range res.Options() {
			label := o.DisplayName
			if o.Active {
				label = "**" + label + "**"
			}
			labels = append(labels, label)
		}
		return labels
	}
}

func init() {
	inspectCmd.Flags().String("path", MainPanel, "Dotted path of the selected node")
	graphCmd.Flags().String("path", "", "Highlight the path to this node")
	rootCmd.AddCommand(inspectCmd, graphCmd)
}
