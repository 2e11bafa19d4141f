package main

import (
	"fmt"

	"github.com/aretw0/sculpt"
	"github.com/aretw0/sculpt/internal/cli"
	"github.com/aretw0/sculpt/pkg/draft"
	"github.com/spf13/cobra"
)

var applyCmd = &cobra.Command{
	Use:   "apply <file>",
	Short: "Apply edits to a JSON or YAML document",
	Long: `Reads a state tree from <file> ("-" for stdin), applies every --set and
--delete in order as one edit, and writes the result to stdout.

Values given to --set are read as YAML, so "count=3" stores a number and
"tags=[a, b]" stores a list.

--changes replays a change list written by "sculpt diff --json" before the
other edits run.`,
	Example: `  sculpt apply board.yaml --set todos.0.done=true --delete draft -o yaml
  sculpt diff old.json new.json --json > changes.json
  sculpt apply old.json --changes changes.json`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sets, _ := cmd.Flags().GetStringArray("set")
		deletes, _ := cmd.Flags().GetStringArray("delete")
		format, _ := cmd.Flags().GetString("output")
		changesFile, _ := cmd.Flags().GetString("changes")

		_, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		base, err := cli.ReadValue(args[0], cmd.InOrStdin())
		if err != nil {
			return err
		}

		if changesFile != "" {
			changes, err := cli.ReadChanges(changesFile)
			if err != nil {
				return err
			}
			if base, err = draft.Apply(base, changes); err != nil {
				return fmt.Errorf("failed to apply %s: %w", changesFile, err)
			}
			logger.Debug("changes replayed", "file", changesFile, "count", len(changes))
		}

		edits := make([]cli.Edit, 0, len(sets)+len(deletes))
		for _, s := range sets {
			e, err := cli.ParseAssignment(s)
			if err != nil {
				return err
			}
			edits = append(edits, e)
		}
		for _, p := range deletes {
			edits = append(edits, cli.Edit{Path: p, Delete: true})
		}

		eng := sculpt.New(
			sculpt.WithLogger(logger),
			sculpt.WithLifecycleHooks(cli.DebugHooks(logger)),
			sculpt.WithName("sculpt-apply"),
		)
		next, err := cli.ApplyEdits(cmd.Context(), eng, base, edits)
		if err != nil {
			return err
		}
		return cli.WriteValue(cmd.OutOrStdout(), next, format)
	},
}

func init() {
	rootCmd.AddCommand(applyCmd)
	applyCmd.Flags().StringArray("set", nil, "Set path=value (repeatable)")
	applyCmd.Flags().StringArray("delete", nil, "Delete a path (repeatable)")
	applyCmd.Flags().String("changes", "", "JSON change list to replay first")
	applyCmd.Flags().StringP("output", "o", "json", "Output format: json or yaml")
}
