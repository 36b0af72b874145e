package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"TaskManager/Config"
	"TaskManager/CronJobs"
	"TaskManager/FiberConfig"
	"TaskManager/Logging"
	"TaskManager/Metrics"
	"TaskManager/Models"
	"TaskManager/Slack"
	"TaskManager/Workflow"
	"TaskManager/email"

	"gorm.io/gorm"
)

func main() {
	cfg, err := Config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, logSink, err := Logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logSink.Close()
	slog.SetDefault(logger)

	db, err := Models.Connect(cfg.Database)
	if err != nil {
		logger.Error("database connection failed", "error", err)
		os.Exit(1)
	}

	metrics := Metrics.New()
	service := Workflow.NewService(db, Workflow.Options{
		Logger:   logger,
		Metrics:  metrics,
		Notifier: notifiers(cfg, db, logger),
	})

	retention := CronJobs.NewLogRetention(cfg.Log.RetentionSchedule, cfg.Log.RetentionDays, logSink, logger)
	if err := retention.Start(); err != nil {
		logger.Error("failed to start log retention", "error", err)
	}

	app := FiberConfig.New(FiberConfig.Deps{
		Service:        service,
		Metrics:        metrics,
		Logger:         logger,
		JWTSecret:      cfg.JWTSecret,
		RequestTimeout: cfg.RequestTimeout,
		LogFile:        cfg.Log.File,
	})

	go func() {
		logger.Info("server up", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Error("server stopped", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	retention.Stop()
	service.Wait()
}

// notifiers builds the review notification channels that are configured
func notifiers(cfg *Config.Config, db *gorm.DB, logger *slog.Logger) Workflow.Notifier {
	var n Workflow.Notifiers
	if cfg.SlackEnabled() {
		n = append(n, Slack.NewNotifier(cfg.Slack.BotToken, cfg.Slack.ChannelID, db))
		logger.Info("slack notifications enabled", "channel", cfg.Slack.ChannelID)
	}
	if cfg.SMTPEnabled() {
		n = append(n, email.NewNotifier(Models.EmailConfig{
			SMTPServer: cfg.SMTP.Server,
			SMTPPort:   cfg.SMTP.Port,
			Username:   cfg.SMTP.Username,
			Password:   cfg.SMTP.Password,
			FromEmail:  cfg.SMTP.FromEmail,
			FromName:   cfg.SMTP.FromName,
			TLSEnabled: cfg.SMTP.TLS,
		}, db))
		logger.Info("email notifications enabled", "server", cfg.SMTP.Server)
	}
	if len(n) == 0 {
		return nil
	}
	return n
}
