package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/plotforge/internal/cli"
	"github.com/aretw0/plotforge/internal/config"
	"github.com/aretw0/plotforge/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "plotforge",
	Short: "Plotforge is an interactive fiction engine with generated scenes",
	Long: `Plotforge walks a story graph of authored and generated nodes.
Generative nodes are written on demand by a language model; every choice
changes the narrative state that feeds the next scene.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "Path to a YAML config file")
	flags.String("dir", "", "Story directory (nodes.json or Loam markdown); empty uses the built-in story")
	flags.StringP("session", "s", "", "Session ID")
	flags.String("storage", "", "Content store driver: memory, file, redis, sqlite or postgres")
	flags.String("log-level", "", "Log level: debug, info, warn or error")
}

// loadConfig reads the config file and environment, then applies flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	if v, _ := cmd.Flags().GetString("dir"); cmd.Flags().Changed("dir") {
		cfg.Graph.Path = v
	}
	if v, _ := cmd.Flags().GetString("session"); cmd.Flags().Changed("session") {
		cfg.Story.Session = v
	}
	if v, _ := cmd.Flags().GetString("storage"); cmd.Flags().Changed("storage") {
		cfg.Storage.Driver = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = v
	}
	return cfg, cfg.Validate()
}

// openApp builds the application for a command. Callers must Close it.
func openApp(ctx context.Context, cmd *cobra.Command) (*cli.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	return cli.NewApp(ctx, cfg, logging.New(level, cfg.Logging.Format))
}
