package main

import (
	"os"

	"github.com/aretw0/canvas"
	"github.com/aretw0/canvas/internal/cli"
	"github.com/aretw0/canvas/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive session",
	Long: `Chat with the engine from the terminal. The current artifact is rendered after
every turn that changes it. Type /help inside the session for the commands.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		threadID, _ := cmd.Flags().GetString("thread")
		search, _ := cmd.Flags().GetBool("search")
		plain, _ := cmd.Flags().GetBool("plain")

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		app, err := cli.Build(sigCtx, cfg, logger)
		if err != nil {
			return err
		}
		defer app.Close()

		plain = plain || !tui.IsTerminal(os.Stdout)
		if !plain {
			tui.PrintBanner(os.Stdout, canvas.Version)
		}

		err = cli.Chat(sigCtx, app.Engine, cli.ChatOptions{
			ThreadID:  threadID,
			In:        os.Stdin,
			Out:       os.Stdout,
			Render:    tui.NewRenderer(tui.Width(os.Stdout), plain),
			WebSearch: search,
		})
		return cli.HandleExecutionError(err)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringP("thread", "t", "", "Resume a thread (default: a new one)")
	chatCmd.Flags().Bool("search", false, "Enable web search for plain messages")
	chatCmd.Flags().Bool("plain", false, "Print markdown without styling")
}
