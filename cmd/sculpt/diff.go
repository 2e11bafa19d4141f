package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aretw0/sculpt/internal/cli"
	"github.com/aretw0/sculpt/internal/presentation/graph"
	"github.com/aretw0/sculpt/internal/presentation/tui"
	"github.com/aretw0/sculpt/pkg/domain"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var diffCmd = &cobra.Command{
	Use:   "diff <old> <new>",
	Short: "Show the changes between two documents",
	Long: `Compares two JSON or YAML state trees and lists the changes that turn
<old> into <new>. Output is rendered as a table on a terminal and as plain
lines otherwise. --json prints the change list, --mermaid a diagram of <new>
with the changed branches highlighted.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		asMermaid, _ := cmd.Flags().GetBool("mermaid")

		oldState, err := cli.ReadValue(args[0], cmd.InOrStdin())
		if err != nil {
			return err
		}
		newState, err := cli.ReadValue(args[1], cmd.InOrStdin())
		if err != nil {
			return err
		}
		changes := domain.Diff(oldState, newState)
		out := cmd.OutOrStdout()

		switch {
		case asMermaid:
			fmt.Fprint(out, graph.GenerateMermaid(newState, &graph.Overlay{Changes: changes}))
			return nil
		case asJSON:
			if changes == nil {
				changes = []domain.Change{}
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(changes)
		}

		if f, ok := out.(*os.File); ok && isTerminal(f) {
			render, err := tui.NewRenderer(100)
			if err != nil {
				return err
			}
			rendered, err := render(tui.ChangesMarkdown(fmt.Sprintf("%s → %s", args[0], args[1]), changes))
			if err != nil {
				return err
			}
			fmt.Fprint(out, rendered)
			return nil
		}

		fmt.Fprint(out, tui.FormatChanges(changes, termenv.Ascii))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(diffCmd)
	diffCmd.Flags().Bool("json", false, "Print the changes as JSON")
	diffCmd.Flags().Bool("mermaid", false, "Print a Mermaid diagram of the new document")
}
