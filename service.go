package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"

	"go-mod.ewintr.nl/mediasync/bus"
	"go-mod.ewintr.nl/mediasync/handler"
	"go-mod.ewintr.nl/mediasync/provider"
	"go-mod.ewintr.nl/mediasync/storage"
	"go-mod.ewintr.nl/mediasync/sync"
	"go-mod.ewintr.nl/mediasync/transport"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

func main() {

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	postgres, err := storage.NewPostgres(storage.PostgresInfo{
		Host:     getParam("POSTGRES_HOST", "localhost"),
		Port:     getParam("POSTGRES_PORT", "5432"),
		User:     getParam("POSTGRES_USER", "mediasync"),
		Password: getParam("POSTGRES_PASSWORD", "mediasync"),
		Database: getParam("POSTGRES_DB", "mediasync"),
	})
	if err != nil {
		logger.Error("unable to connect to postgres", "error", err)
		os.Exit(1)
	}
	subRepo := storage.NewPostgresSubscriptionRepository(postgres)
	videoRepo := storage.NewPostgresVideoRepository(postgres)
	jobRepo := storage.NewPostgresJobRepository(postgres)

	tclient := transport.NewClient(transport.DefaultConfig())

	providers := []provider.Provider{provider.NewRSS(tclient)}
	if apiKey := getParam("YOUTUBE_API_KEY", ""); apiKey != "" {
		ytClient, err := youtube.NewService(ctx, option.WithAPIKey(apiKey))
		if err != nil {
			logger.Error("unable to create youtube service", "error", err)
			os.Exit(1)
		}
		providers = append(providers, provider.NewYoutube(ytClient, tclient))
	}
	if endpoint := getParam("SONARR_ENDPOINT", ""); endpoint != "" {
		providers = append(providers, provider.NewSonarr(tclient, endpoint, getParam("SONARR_APIKEY", "")))
	}
	if endpoint := getParam("MINIFLUX_ENDPOINT", ""); endpoint != "" {
		providers = append(providers, provider.NewMiniflux(provider.MinifluxInfo{
			Endpoint: endpoint,
			ApiKey:   getParam("MINIFLUX_APIKEY", ""),
		}, tclient))
	}
	registry := provider.NewRegistry(providers...)

	msgBus, err := bus.New(logger)
	if err != nil {
		logger.Error("unable to create message bus", "error", err)
		os.Exit(1)
	}
	tracker := sync.NewTracker(jobRepo, logger)
	worker := sync.NewWorker(registry, subRepo, videoRepo, tracker, msgBus, logger)
	orchestrator := sync.NewOrchestrator(msgBus, subRepo, worker, tracker, logger)
	orchestrator.Register(msgBus)

	go func() {
		if err := msgBus.Run(ctx); err != nil {
			logger.Error("message bus stopped", "error", err)
			os.Exit(1)
		}
	}()
	<-msgBus.Running()
	logger.Info("sync service started")

	port, err := strconv.Atoi(getParam("API_PORT", "8080"))
	if err != nil {
		logger.Error("invalid port", "error", err)
		os.Exit(1)
	}
	go http.ListenAndServe(fmt.Sprintf(":%d", port), handler.NewServer(subRepo, videoRepo, jobRepo, msgBus, logger))
	logger.Info("http server started")

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt)
	<-done

	msgBus.Close()
	logger.Info("service stopped")
}

func getParam(param, def string) string {
	if val, ok := os.LookupEnv(param); ok {
		return val
	}
	return def
}
