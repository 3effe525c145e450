package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/liquidtasks/core/cmd/liquidtasks/commands"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "liquidtasks",
		Short: "LiquidTasks sync server",
		Long:  `LiquidTasks keeps a local task list, a remote document store and connected clients in sync, with chat, auth and media upload on the side.`,
	}

	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewMigrateCommand())
	rootCmd.AddCommand(commands.NewUserCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
