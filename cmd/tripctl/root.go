package main

import (
	"context"

	"github.com/spf13/cobra"

	"travelchat/internal/bootstrap"
	"travelchat/internal/config"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tripctl",
		Short:         "Inspect and sync travel chat sessions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to config file")
	rootCmd.PersistentFlags().String("owner", "", "user id whose sessions are synced; empty for local only")

	rootCmd.AddCommand(newSessionsCmd())
	return rootCmd
}

// openApp builds the same service graph as the server, without consuming the
// sync queue.
func openApp(cmd *cobra.Command) (*bootstrap.App, error) {
	configPath, _ := cmd.Flags().GetString("config")

	var (
		cfg *config.Config
		err error
	)
	if configPath == "" {
		cfg, err = config.Load()
	} else {
		cfg, err = config.LoadFile(configPath)
	}
	if err != nil {
		return nil, err
	}
	return bootstrap.NewWithConfig(commandContext(cmd), cfg, bootstrap.Options{})
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func ownerFlag(cmd *cobra.Command) string {
	owner, _ := cmd.Flags().GetString("owner")
	return owner
}
