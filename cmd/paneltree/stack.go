package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/paneltree/pkg/types"
)

// stackCmd prints the handler stack of a type.
var stackCmd = &cobra.Command{
	Use:   "stack TYPE",
	Short: "Resolve the handler stack of a type",
	Long: `Lists the handlers that can render TYPE, most specific first, and marks
the one that would be chosen. TYPE uses the type notation, for example
"{loss: number, name: string}" or "[string]".`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		typ, err := types.ParseType(args[0])
		if err != nil {
			return err
		}
		requested, _ := cmd.Flags().GetString("handler")

		logger, err := opts.Logger()
		if err != nil {
			return err
		}
		engine, err := opts.Engine(logger, nil)
		if err != nil {
			return err
		}

		res := engine.ResolveStack(context.Background(), typ, requested, nil)
		out := cmd.OutOrStdout()
		if res.ChosenID == "" {
			fmt.Fprintf(out, "no handler can render %s\n", typ)
			return nil
		}
		for _, o := range res.Options() {
			mark := " "
			if o.Active {
				mark = "*"
			}
			fmt.Fprintf(out, "%s %-24s %s\n", mark, o.ID, o.DisplayName)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stackCmd)
	stackCmd.Flags().String("handler", "", "Handler id to prefer when it is in the stack")
}
