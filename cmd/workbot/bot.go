package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/m3rciful/workbot/core/bootstrap"
	corecmd "github.com/m3rciful/workbot/core/cmd"
	coreconfig "github.com/m3rciful/workbot/core/config"
	"github.com/m3rciful/workbot/internal/assistant"
)

const (
	configEnvVar      = "CONFIG_PATH"
	defaultConfigPath = "conf.yml"
)

func newBotCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram bot until interrupted or stopped with /die",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return corecmd.Run(corecmd.Options{
				ConfigPath:        configPath,
				ConfigEnvVar:      configEnvVar,
				DefaultConfigPath: defaultConfigPath,
				Bootstrap:         bootstrapBot,
			})
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "config file path (default $"+configEnvVar+" or "+defaultConfigPath+")")
	return cmd
}

// botApp ties the assistant to the storage it runs on.
type botApp struct {
	*assistant.App
	infra *bootstrap.Result
}

func (b *botApp) Close() error {
	return b.infra.Close()
}

func bootstrapBot(ctx context.Context, cfg *coreconfig.Config) (corecmd.TelegramApp, error) {
	infra, err := bootstrap.Run(ctx, bootstrap.Options{Config: cfg})
	if err != nil {
		return nil, err
	}
	app, err := assistant.New(assistant.Options{Config: cfg, Store: infra.Store})
	if err != nil {
		_ = infra.Close()
		return nil, fmt.Errorf("assistant: %w", err)
	}
	return &botApp{App: app, infra: infra}, nil
}
