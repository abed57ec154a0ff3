package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qs3c/aipara_account_server/config"
	"github.com/qs3c/aipara_account_server/internal/database"
	"github.com/qs3c/aipara_account_server/internal/pkg/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "accountctl",
	Short:         "Account service operations.",
	Long:          `Operate the account service: call actions, migrate tables, seed plans, reset points.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	defaultPath := os.Getenv("CONFIG_PATH")
	if defaultPath == "" {
		defaultPath = "config.yaml"
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultPath, "config file")
}

// env 命令共用的配置、日志与数据库
type env struct {
	cfg *config.Config
	log *zap.Logger
	db  *gorm.DB
}

func loadEnv(withDB bool) (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	zlog, err := logger.New(cfg.Server.Mode, cfg.Log)
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg, log: zlog}
	if withDB {
		if e.db, err = database.Open(&cfg.Database); err != nil {
			return nil, err
		}
	}
	return e, nil
}
