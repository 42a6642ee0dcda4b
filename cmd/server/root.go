package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dairy-service/internal/config"
	"dairy-service/internal/logger"
	"dairy-service/internal/telemetry"
)

var (
	cfgFile string
	cfg     config.Config
	log     *zap.SugaredLogger
	tel     telemetry.Telemetry
	Version = "dev" // go build -ldflags "-X main.Version=v1.0.0"
)

var RootCmd = &cobra.Command{
	Use:           "dairy-service",
	Short:         "Dairy delivery backend",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		log, err = logger.New(cfg.Log)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		tel, err = telemetry.New(cmd.Context(), cfg.Telemetry, cfg.Env, log)
		if err != nil {
			return fmt.Errorf("init telemetry: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if tel != nil {
			if err := tel.Shutdown(ctx); err != nil {
				log.Errorw("telemetry shutdown error", "error", err)
			}
		}
		if log != nil {
			_ = log.Sync()
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of dairy-service",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), Version)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Config operations",
}

var printConfigCmd = &cobra.Command{
	Use:   "print",
	Short: "Print the current loaded configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		redacted := cfg
		redacted.Auth.JWTSecret = redact(redacted.Auth.JWTSecret)
		redacted.Payment.SecretKey = redact(redacted.Payment.SecretKey)
		redacted.Payment.WebhookSecret = redact(redacted.Payment.WebhookSecret)
		redacted.Database.Password = redact(redacted.Database.Password)
		redacted.Redis.Password = redact(redacted.Redis.Password)

		data, err := json.MarshalIndent(redacted, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "****"
}

func init() {
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to config file (yaml/json/toml)")

	configCmd.AddCommand(printConfigCmd)

	RootCmd.AddCommand(serveCmd)
	RootCmd.AddCommand(recurringCmd)
	RootCmd.AddCommand(migrateCmd)
	RootCmd.AddCommand(versionCmd)
	RootCmd.AddCommand(configCmd)
}
