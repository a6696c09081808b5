package main

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

type unitParams struct {
	Description string
	User        string
	WorkDir     string
	Exec        string
	ConfigPath  string
}

func renderUnit(p unitParams) string {
	exec := p.Exec + " bot"
	if p.ConfigPath != "" {
		exec += " --config " + p.ConfigPath
	}
	lines := []string{
		"[Unit]",
		"Description=" + p.Description,
		"After=network-online.target",
		"Wants=network-online.target",
		"",
		"[Service]",
		"User=" + p.User,
		"WorkingDirectory=" + p.WorkDir,
		"ExecStart=" + exec,
		"Restart=always",
		"",
		"[Install]",
		"WantedBy=multi-user.target",
		"",
	}
	return strings.Join(lines, "\n")
}

func newUnitCmd() *cobra.Command {
	var (
		output     string
		unitUser   string
		configPath string
	)
	cmd := &cobra.Command{
		Use:   "unit",
		Short: "Write a systemd unit that runs the bot from the current directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			exe, err := os.Executable()
			if err != nil {
				return err
			}
			if unitUser == "" {
				u, err := user.Current()
				if err != nil {
					return fmt.Errorf("resolve current user: %w", err)
				}
				unitUser = u.Username
			}
			if configPath != "" {
				if configPath, err = filepath.Abs(configPath); err != nil {
					return err
				}
			}
			content := renderUnit(unitParams{
				Description: "Telegram work assistant bot",
				User:        unitUser,
				WorkDir:     wd,
				Exec:        exe,
				ConfigPath:  configPath,
			})
			if err := os.WriteFile(output, []byte(content), 0o644); err != nil {
				return fmt.Errorf("write unit: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "unit written to %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "workbot.service", "unit file to write")
	cmd.Flags().StringVar(&unitUser, "user", "", "system user running the bot (default current user)")
	cmd.Flags().StringVar(&configPath, "config", "", "config file passed to the bot")
	return cmd
}
