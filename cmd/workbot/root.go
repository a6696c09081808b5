package main

import (
	"errors"
	"io/fs"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "workbot",
		Short:         "Telegram work assistant for Gmail, Redmine and OTRS",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				log.Printf("workbot: failed to load .env: %v", err)
			}
		},
	}
	cmd.AddCommand(newBotCmd())
	cmd.AddCommand(newUnitCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}
