// Package cli команды административной утилиты directoryctl.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/direct-tree/internal/app/infra"
	"github.com/magabrotheeeer/direct-tree/internal/config"
	"github.com/magabrotheeeer/direct-tree/internal/lib/sl"
	"github.com/magabrotheeeer/direct-tree/internal/storage/repository"
)

// Execute разбирает аргументы и выполняет команду.
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "directoryctl",
		Short:        "Administration tool for The Direct Tree",
		Long:         "directoryctl applies database migrations, grants the admin role and seeds sample businesses.",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (defaults to $CONFIG_PATH)")

	env := &env{configPath: &configPath}
	rootCmd.AddCommand(
		newMigrateCmd(env),
		newPromoteCmd(env),
		newSeedCmd(env),
	)
	return rootCmd
}

// env лениво читает конфиг и подключается к базе, чтобы --help работал без них.
type env struct {
	configPath *string
}

func (e *env) load() (*config.Config, *slog.Logger, error) {
	var (
		cfg *config.Config
		err error
	)
	if *e.configPath != "" {
		cfg, err = config.Load(*e.configPath)
		if err != nil {
			return nil, nil, err
		}
	} else {
		cfg = config.MustLoad()
	}
	return cfg, sl.New(cfg.Env), nil
}

// storage подключается к базе. Если migrated, дополнительно ждёт схему.
func (e *env) storage(ctx context.Context, migrated bool) (*repository.Storage, *config.Config, *slog.Logger, error) {
	cfg, log, err := e.load()
	if err != nil {
		return nil, nil, nil, err
	}
	connect := infra.Connect
	if migrated {
		connect = infra.Storage
	}
	db, err := connect(ctx, cfg, log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	return db, cfg, log, nil
}
