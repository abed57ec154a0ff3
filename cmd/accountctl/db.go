package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/qs3c/aipara_account_server/internal/database"
	"github.com/qs3c/aipara_account_server/internal/model"
	"github.com/qs3c/aipara_account_server/internal/pkg/cron"
	"github.com/qs3c/aipara_account_server/internal/repository"
	"github.com/qs3c/aipara_account_server/internal/service"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update account tables.",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(true)
		if err != nil {
			return err
		}
		if err := database.AutoMigrate(e.db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		e.log.Info("tables migrated", zap.Int("models", len(database.Models())))
		return nil
	},
}

var seedCatalogCmd = &cobra.Command{
	Use:   "seed-catalog",
	Short: "Write the default free/pro plan quotas.",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(true)
		if err != nil {
			return err
		}
		plans := model.DefaultCatalog()
		if err := repository.NewPlanRepository(e.db).Seed(cmd.Context(), plans); err != nil {
			return fmt.Errorf("seed catalog: %w", err)
		}
		for _, p := range plans {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\tpoints=%d\tchat=%d\tpro=%d\n", p.PlanTier, p.PointsLimit, p.ChatLimit, p.ProLimit)
		}
		return nil
	},
}

var resetPointsCmd = &cobra.Command{
	Use:   "reset-points",
	Short: "Reset monthly points for every profile that is due.",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(true)
		if err != nil {
			return err
		}
		points := service.NewPointsService(
			repository.NewProfileRepository(e.db),
			repository.NewPlanRepository(e.db),
			nil,
			e.cfg.Cron.BatchSize,
			e.log,
		)
		n, err := cron.NewService(points, e.cfg.Cron.PointsResetMinutes, e.log).RunNow(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "reset %d profiles\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd, seedCatalogCmd, resetPointsCmd)
}
