package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aretw0/sculpt/internal/cli"
	"github.com/aretw0/sculpt/internal/presentation/tui"
	"github.com/aretw0/sculpt/pkg/domain"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch <slot> <action>",
	Short: "Dispatch an action to a persistent slot",
	Long: `Loads the slot (creating it from the initial state when missing), runs the
action and saves the result to the configured store.`,
	Example: `  sculpt dispatch board add_todo --payload '{"title": "ship it"}'`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetString("payload")
		format, _ := cmd.Flags().GetString("output")

		var payload any
		if raw != "" {
			v, err := domain.ParseJSON([]byte(raw))
			if err != nil {
				return fmt.Errorf("invalid payload: %w", err)
			}
			payload = v
		}

		rt, _, err := openRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		t, err := rt.Manager.Dispatch(cmd.Context(), args[0], args[1], payload)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		switch format {
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(t)
		case "yaml":
			return cli.WriteValue(out, t.After, "yaml")
		case "changes":
			profile := termenv.Ascii
			if f, ok := out.(*os.File); ok {
				profile = termenv.NewOutput(f).Profile
			}
			fmt.Fprint(out, tui.FormatChanges(t.Changes, profile))
			return nil
		}
		return fmt.Errorf("unknown output format %q", format)
	},
}

func init() {
	rootCmd.AddCommand(dispatchCmd)
	dispatchCmd.Flags().String("payload", "", "Action payload as JSON")
	dispatchCmd.Flags().StringP("output", "o", "changes", "Output: changes, json (transition) or yaml (new state)")
}
