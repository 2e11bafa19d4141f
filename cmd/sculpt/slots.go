package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/aretw0/sculpt/internal/cli"
	"github.com/spf13/cobra"
)

var slotsCmd = &cobra.Command{
	Use:   "slots",
	Short: "Manage persistent slots",
	Long:  `List, inspect, reset and remove the slots held by the configured store.`,
}

var slotsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all slots",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, _, err := openRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		ids, err := rt.Manager.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing slots: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(ids) == 0 {
			fmt.Fprintln(out, "No slots found.")
			return nil
		}
		fmt.Fprintln(out, "Slots:")
		for _, id := range ids {
			fmt.Fprintln(out, "- "+id)
		}
		return nil
	},
}

var slotsInspectCmd = &cobra.Command{
	Use:   "inspect <slot>",
	Short: "Print the state of a slot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("output")

		rt, _, err := openRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		state, err := rt.Manager.Load(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("loading slot '%s': %w", args[0], err)
		}
		return cli.WriteValue(cmd.OutOrStdout(), state, format)
	},
}

var slotsResetCmd = &cobra.Command{
	Use:   "reset <slot>",
	Short: "Restore a slot to the initial state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, _, err := openRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		if _, err := rt.Manager.Reset(cmd.Context(), args[0]); err != nil {
			return err
		}
		cli.PrintSystemMessage(cmd.OutOrStdout(), "Slot '%s' reset", args[0])
		return nil
	},
}

var slotsRmCmd = &cobra.Command{
	Use:   "rm <slot>...",
	Short: "Remove one or more slots",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		rt, _, err := openRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		if !force {
			fmt.Fprintf(cmd.OutOrStdout(), "Remove %s? [y/N] ", strings.Join(args, ", "))
			answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
				return nil
			}
		}

		for _, id := range args {
			if err := rt.Manager.Delete(cmd.Context(), id); err != nil {
				return fmt.Errorf("removing slot '%s': %w", id, err)
			}
			cli.PrintSystemMessage(cmd.OutOrStdout(), "Slot '%s' removed", id)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(slotsCmd)
	slotsCmd.AddCommand(slotsLsCmd, slotsInspectCmd, slotsResetCmd, slotsRmCmd)

	slotsInspectCmd.Flags().StringP("output", "o", "json", "Output format: json or yaml")
	slotsRmCmd.Flags().BoolP("force", "f", false, "Do not ask for confirmation")
}
