package main

import (
	"context"
	"os"

	"github.com/aretw0/plotforge/internal/cli"
	"github.com/aretw0/plotforge/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play the story in the terminal",
	Long: `Starts or resumes the configured session. Pick a choice by number or
ID; type 'quit' to leave. Progress is saved after every scene.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()

		app, err := openApp(sigCtx, cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		fresh, _ := cmd.Flags().GetBool("fresh")
		headless, _ := cmd.Flags().GetBool("headless")
		if !cmd.Flags().Changed("headless") && !tui.IsTerminal(os.Stdout) {
			headless = true
		}

		return cli.Play(sigCtx, app, cli.PlayOptions{
			In:       cli.NewInterruptibleReader(os.Stdin, sigCtx.Done()),
			Out:      os.Stdout,
			Fresh:    fresh,
			Headless: headless,
		})
	},
}

func init() {
	rootCmd.AddCommand(playCmd)
	playCmd.Flags().Bool("fresh", false, "Discard saved progress and start over")
	playCmd.Flags().Bool("headless", false, "Plain output without banner or markdown rendering")
}
