package main

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"eth_history_api/internal/adapter/ethresearch"
	"eth_history_api/internal/adapter/github"
	"eth_history_api/internal/adapter/rpc"
	"eth_history_api/internal/blocktime"
	"eth_history_api/internal/cache"
	"eth_history_api/internal/domain"
	"eth_history_api/internal/handler"
	"eth_history_api/internal/usecase"
	"eth_history_api/pkg/config"
	httpPkg "eth_history_api/pkg/http"
	"eth_history_api/pkg/logger"
)

func runServe(cmd *cobra.Command, _ []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() {
		if err := log.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "error syncing logger: %v\n", err)
		}
	}()
	zap.ReplaceGlobals(log)

	ghClient := github.NewClient(
		cfg.GitHub.APIURL,
		cfg.GitHub.Token,
		cfg.Upstream.Timeout,
		cfg.Upstream.MaxRetries,
		cfg.Upstream.Backoff,
	)
	researchClient := ethresearch.NewClient(
		cfg.EthResearch.URL,
		cfg.Upstream.Timeout,
		cfg.Upstream.MaxRetries,
		cfg.Upstream.Backoff,
	)
	rpcClient, err := rpc.NewClient(cfg.Ethereum.RPCURL, cfg.Upstream.Timeout)
	if err != nil {
		zap.L().Fatal("dial rpc", zap.Error(err))
	}
	defer rpcClient.Close()

	cacheOpts := cache.Options{
		TTL:         cfg.Cache.TTL,
		MaxCapacity: cfg.Cache.MaxEntries,
	}
	timelineCache, err := cache.New[string, []domain.TimelineEvent](cacheOpts)
	if err != nil {
		zap.L().Fatal("init timeline cache", zap.Error(err))
	}
	eipCache, err := cache.New[string, []domain.Eip](cacheOpts)
	if err != nil {
		zap.L().Fatal("init eip cache", zap.Error(err))
	}

	agg := usecase.NewAggregator(ghClient, researchClient, rpcClient, timelineCache, eipCache, usecase.AggregatorConfig{
		FetchTimeout:       cfg.Upstream.Timeout,
		ResearchTopicLimit: cfg.EthResearch.TopicLimit,
		ResearchCategories: ethresearch.ImportantCategories,
	})

	h := handler.NewHandler(agg, blocktime.Default(), cfg.Live.PollInterval)
	r := httpPkg.NewRouter(h)

	srv := &stdhttp.Server{
		Addr:              cfg.Server.Address,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv.RegisterOnShutdown(h.CloseLive)

	go func() {
		zap.L().Info("starting server",
			zap.String("address", cfg.Server.Address),
			zap.String("version", version),
			zap.Duration("cache_ttl", cfg.Cache.TTL))
		if err := srv.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			zap.L().Fatal("listen error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	zap.L().Info("shutting down…")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zap.L().Error("shutdown error", zap.Error(err))
	}
	zap.L().Info("server stopped")
	return nil
}
