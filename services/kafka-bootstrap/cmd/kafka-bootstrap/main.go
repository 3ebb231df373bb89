package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/Mahamadovich/practicing--microservice-architecture/common/configloader"
	"github.com/Mahamadovich/practicing--microservice-architecture/common/logger"
	"github.com/Mahamadovich/practicing--microservice-architecture/services/kafka-bootstrap/internal/app"
	"github.com/Mahamadovich/practicing--microservice-architecture/services/kafka-bootstrap/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "kafka-bootstrap: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:           "kafka-bootstrap",
		Short:         "Creates Kafka topics and waits for the schema registry before downstream services start",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// 1. Конфиг
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}

			// 2. Логгер
			log, err := logger.New(cfg.Logging)
			if err != nil {
				return fmt.Errorf("logger init: %w", err)
			}
			defer log.Sync()

			if cfg.Logging.DevMode {
				if err := configloader.PrintConfig(os.Stdout, cfg); err != nil {
					log.Warn("failed to print config", zap.Error(err))
				}
			}

			// 3. Контекст с отменой по сигналам
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			log.Sugar().Infow("starting service",
				"service.name", cfg.ServiceName,
				"service.version", cfg.ServiceVersion,
				"topics", cfg.Kafka.TopicNames,
			)

			// 4. Гейт
			if err := app.Run(ctx, cfg, log); err != nil {
				log.Error("bootstrap failed", zap.Error(err))
				return err
			}
			log.Info("shutdown complete")
			return nil
		},
	}

	bindFlags(root.Flags(), &cfgFile)
	return root
}

func bindFlags(fs *pflag.FlagSet, cfgFile *string) {
	fs.StringVarP(cfgFile, "config", "c", "", "path to YAML config file (empty: defaults and BOOTSTRAP_* env only)")
}
