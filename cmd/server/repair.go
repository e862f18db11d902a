package main

import (
	"log/slog"

	"github.com/socialgraph/backend/internal/repositories"
	"github.com/socialgraph/backend/internal/services"
	"github.com/socialgraph/backend/pkg/config"
	"github.com/socialgraph/backend/pkg/logger"
	"github.com/spf13/cobra"
)

var repairGraphCmd = &cobra.Command{
	Use:   "repair-graph",
	Short: "Deduplicate every user's following and followers lists",
	Long: `Rewrites follow lists that contain repeated entries or identifiers
stored as ObjectIDs instead of strings. Safe to run repeatedly.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		log := logger.New(cfg.LogFormat, cfg.LogLevel)
		slog.SetDefault(log)

		ctx := cmd.Context()
		client, err := config.ConnectMongo(ctx, cfg)
		if err != nil {
			return err
		}
		defer config.DisconnectMongo(client, log)

		users := repositories.NewMongoUserRepository(client.Database(cfg.MongoDatabase), false)
		n, err := services.NewGraphService(users, nil, log).Repair(ctx)
		if err != nil {
			return err
		}
		cmd.Printf("repaired follow lists of %d users\n", n)
		return nil
	},
}
