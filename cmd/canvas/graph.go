package main

import (
	"fmt"

	"github.com/aretw0/canvas/internal/cli"
	"github.com/aretw0/canvas/internal/config"
	"github.com/aretw0/canvas/internal/llm"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the conversation graph visualization",
	Long:  `Outputs a Mermaid diagram (graph TD) of the steps a turn can take.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// The graph depends on neither the provider nor the stores.
		offline := *cfg
		offline.Store.Backend = config.StoreMemory
		offline.Audit.Backend = config.AuditNone
		offline.LLMLogDir = ""
		app, err := cli.Build(cmd.Context(), &offline, logger, cli.WithModel(llm.NewFake("graph")))
		if err != nil {
			return err
		}
		defer app.Close()

		fmt.Print(app.Engine.Describe())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
