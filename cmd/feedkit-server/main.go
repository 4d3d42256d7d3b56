// Package main provides the feedkit callback server: a PubSubHubbub subscriber
// with an HTTP API for managing subscriptions and a background purge worker.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"
	apexJSON "github.com/apex/log/handlers/json"
	"github.com/coregx/feedkit"
	"github.com/coregx/feedkit/cmd/feedkit-server/internal/api"
	"github.com/coregx/feedkit/cmd/feedkit-server/internal/config"
	"github.com/coregx/feedkit/model"
	"github.com/coregx/feedkit/reader"
	"github.com/go-playground/validator/v10"
	"github.com/urfave/cli/v2"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/time/rate"
)

type cliArgs struct {
	JSONLog    bool
	LogLevel   string `validate:"required,oneof=debug info warn error"`
	ConfigFile string `validate:"omitempty,file"`
}

var cmdArgs cliArgs

var logTags = log.Fields{"module": "main", "component": "main"}

func main() {
	app := &cli.App{
		Version:     api.Version,
		Usage:       "PubSubHubbub subscriber callback server",
		Description: "Subscribes to WebSub hubs and receives feed updates on a public callback",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json-log",
				Usage:       "Whether to log in JSON format",
				Aliases:     []string{"j"},
				EnvVars:     []string{"LOG_AS_JSON"},
				Value:       false,
				Destination: &cmdArgs.JSONLog,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "Logging level: [debug info warn error]",
				Aliases:     []string{"l"},
				EnvVars:     []string{"LOG_LEVEL"},
				Value:       "info",
				Destination: &cmdArgs.LogLevel,
			},
			&cli.StringFlag{
				Name:        "config-file",
				Usage:       "Application config file. Defaults and FEEDKIT_* variables apply without it.",
				Aliases:     []string{"c"},
				EnvVars:     []string{"CONFIG_FILE"},
				Destination: &cmdArgs.ConfigFile,
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).WithFields(logTags).Fatal("Program shutdown")
	}
}

// setupLogging helper function to prepare the app logging
func setupLogging() {
	if cmdArgs.JSONLog {
		log.SetHandler(apexJSON.New(os.Stderr))
	}
	switch cmdArgs.LogLevel {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	default:
		log.SetLevel(log.ErrorLevel)
	}
}

func loadConfig() (*config.Config, error) {
	if err := validator.New().Struct(&cmdArgs); err != nil {
		log.WithError(err).WithFields(logTags).Error("Invalid CMD args")
		return nil, err
	}
	setupLogging()

	cfg, err := config.Load(cmdArgs.ConfigFile)
	if err != nil {
		log.WithError(err).WithFields(logTags).Error("Invalid config")
		return nil, err
	}
	if tmp, err := json.MarshalIndent(cfg, "", "  "); err == nil {
		log.Debugf("Config\n%s", tmp)
	}
	return cfg, nil
}

func run(_ *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, closeStore, err := openRepository(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	store, err := feedkit.NewStore(
		feedkit.WithStoreRepository(repo),
		feedkit.WithStoreClock(feedkit.SystemClock{}),
		feedkit.WithStoreLogger(newApexLogger("store")),
	)
	if err != nil {
		return err
	}

	var notifications feedkit.NotificationService = &feedkit.NoOpNotificationService{}
	if cfg.Notifications {
		notifications = feedkit.NewLoggingNotificationService(newApexLogger("notifications"))
	}

	feedReader, err := reader.New(reader.WithLogger(newApexLogger("reader")))
	if err != nil {
		return err
	}
	processorLogger := newApexLogger("processor")
	processor, err := reader.NewProcessor(feedReader,
		reader.WithProcessorLogger(processorLogger),
		reader.WithHandler(reader.HandlerFunc(func(_ context.Context, update model.FeedUpdate, feed *reader.Feed) error {
			for _, entry := range feed.Entries {
				processorLogger.Infof("Entry from %s: %q <%s>", update.TopicURL, entry.Title, entry.Link)
			}
			return nil
		})),
	)
	if err != nil {
		return err
	}

	callback, err := feedkit.NewCallback(
		feedkit.WithCallbackStore(store),
		feedkit.WithCallbackLogger(newApexLogger("callback")),
		feedkit.WithFeedProcessor(processor),
		feedkit.WithSubscriberCount(cfg.Callback.SubscriberCount),
		feedkit.WithNotifications(notifications),
	)
	if err != nil {
		return err
	}

	subscriber, err := feedkit.NewSubscriber(
		feedkit.WithSubscriberStore(store),
		feedkit.WithCallbackBaseURL(cfg.Callback.BaseURL),
		feedkit.WithSubscriberLogger(newApexLogger("subscriber")),
	)
	if err != nil {
		return err
	}

	worker, err := feedkit.NewPurgeWorker(
		feedkit.WithPurgeStore(store),
		feedkit.WithPurgeLogger(newApexLogger("purge")),
		feedkit.WithPurgeBatchSize(cfg.Purge.BatchSize),
		feedkit.WithPurgeNotifications(notifications),
	)
	if err != nil {
		return err
	}
	go worker.Run(ctx, time.Duration(cfg.Purge.IntervalSec)*time.Second)

	var limiter *rate.Limiter
	if cfg.Server.APIRateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Server.APIRateLimit), cfg.Server.APIRateBurst)
	}
	handler := api.NewHandler(callback, subscriber, store, feedReader, limiter, newApexLogger("api"))
	router := api.WithCORS(handler.Router(), cfg.Server.CORSAllowedOrigins)

	addr := fmt.Sprintf("%s:%d", cfg.Server.ListenOn, cfg.Server.Port)
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      h2c.NewHandler(router, &http2.Server{}),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).WithFields(logTags).Error("HTTP Server Failure")
			stop()
		}
	}()
	log.WithFields(logTags).Infof("Started HTTP server on http://%s (callback %s)", addr, cfg.Callback.BaseURL)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).WithFields(logTags).Error("Failure during HTTP shutdown")
	}
	log.WithFields(logTags).Info("Server stopped")
	return nil
}
