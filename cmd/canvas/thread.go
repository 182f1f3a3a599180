package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/aretw0/canvas/internal/cli"
	"github.com/aretw0/canvas/internal/llm"
	"github.com/aretw0/canvas/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var threadCmd = &cobra.Command{
	Use:   "thread",
	Short: "Manage persisted threads",
	Long:  `List, inspect, and remove threads in the configured store.`,
}

// openStore builds an engine that never reaches a model; thread commands
// only read and write the store.
func openStore(cmd *cobra.Command) (*cli.App, error) {
	return cli.Build(cmd.Context(), cfg, logger, cli.WithModel(llm.NewFake("offline")))
}

var threadLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all threads",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		ids, err := app.Engine.Threads(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list threads: %w", err)
		}
		if len(ids) == 0 {
			fmt.Println("No threads found.")
			return nil
		}

		fmt.Println("Threads:")
		for _, id := range ids {
			st, err := app.Engine.Thread(cmd.Context(), id)
			if err != nil || st.Title == "" {
				fmt.Println("- " + id)
				continue
			}
			fmt.Printf("- %s (%s)\n", id, st.Title)
		}
		return nil
	},
}

var threadShowCmd = &cobra.Command{
	Use:   "show <thread-id>",
	Short: "Print the state of a thread",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		state, err := app.Engine.Thread(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to load thread '%s': %w", args[0], err)
		}

		if raw, _ := cmd.Flags().GetBool("json"); raw {
			data, err := json.MarshalIndent(state, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}

		if state.Title != "" {
			fmt.Printf("# %s\n\n", state.Title)
		}
		for _, m := range state.Messages {
			fmt.Printf("[%s] %s\n", m.Role, m.Content)
		}
		fmt.Println()
		if state.Artifact.Len() > 0 {
			fmt.Println(tui.RevisionLine(state.Artifact))
		}
		render := tui.NewRenderer(tui.Width(os.Stdout), !tui.IsTerminal(os.Stdout))
		out, err := render(tui.ArtifactMarkdown(state.Artifact))
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}

var threadRevCmd = &cobra.Command{
	Use:   "rev <thread-id> <index>",
	Short: "Point a thread's artifact at another revision",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid revision %q", args[1])
		}
		app, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		state, err := app.Engine.SelectRevision(cmd.Context(), args[0], index)
		if err != nil {
			return err
		}
		fmt.Println(tui.RevisionLine(state.Artifact))
		return nil
	},
}

var threadRmCmd = &cobra.Command{
	Use:   "rm <thread-id>...",
	Short: "Remove one or more threads",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		hasError := false
		for _, id := range args {
			if err := app.Engine.DeleteThread(cmd.Context(), id); err != nil {
				fmt.Printf("Error removing '%s': %v\n", id, err)
				hasError = true
				continue
			}
			fmt.Printf("Removed thread '%s'\n", id)
		}
		if hasError {
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(threadCmd)
	threadCmd.AddCommand(threadLsCmd, threadShowCmd, threadRevCmd, threadRmCmd)
	threadShowCmd.Flags().Bool("json", false, "Print the raw state as JSON")
}
