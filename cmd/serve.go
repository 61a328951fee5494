package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rafaelccorrea/back-plugin-sub000/internal/config"
	"github.com/rafaelccorrea/back-plugin-sub000/internal/db"
	httpSrv "github.com/rafaelccorrea/back-plugin-sub000/internal/http"
	"github.com/rafaelccorrea/back-plugin-sub000/internal/logger"
	"github.com/rafaelccorrea/back-plugin-sub000/internal/notify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logger.Init(cfg.Log.Level)
		defer func() { _ = logger.Log.Sync() }()

		mysqlDB, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
			PingTimeout:     cfg.MySQL.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer mysqlDB.Close()

		redisClient, err := db.NewRedisClient(db.RedisOpts{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			DialTimeout: cfg.Redis.DialTimeout,
		})
		if err != nil {
			return fmt.Errorf("redis connect: %w", err)
		}
		defer func() { _ = redisClient.Close() }()

		var notifier notify.Notifier = notify.Noop{}
		if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.NotificationsTopic != "" {
			emitter := notify.NewKafkaEmitter(notify.KafkaConfig{
				Brokers:      cfg.Kafka.Brokers,
				Topic:        cfg.Kafka.NotificationsTopic,
				WriteTimeout: cfg.Kafka.WriteTimeout,
			})
			defer func() { _ = emitter.Close() }()
			notifier = emitter
		}

		server := httpSrv.NewServer(cfg, mysqlDB, redisClient, notifier)

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start(cfg.HTTP.Addr)
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			logger.Log.Info("signal received, shutting down", zap.String("signal", sig.String()))
		case err := <-errCh:
			if err != nil {
				logger.Log.Error("http server exited", zap.Error(err))
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)

		return nil
	},
}
