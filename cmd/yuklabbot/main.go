package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yuklab/yuklab-bot/internal/bot"
	"github.com/yuklab/yuklab-bot/internal/cache"
	"github.com/yuklab/yuklab-bot/internal/config"
	"github.com/yuklab/yuklab-bot/internal/extract"
	"github.com/yuklab/yuklab-bot/internal/heartbeat"
	"github.com/yuklab/yuklab-bot/internal/logging"
	"github.com/yuklab/yuklab-bot/internal/procrun"
	"github.com/yuklab/yuklab-bot/internal/ratelimit"
	"github.com/yuklab/yuklab-bot/internal/storage"
	"github.com/yuklab/yuklab-bot/internal/transport/telegram"
	"github.com/yuklab/yuklab-bot/internal/workflow"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:   "yuklabbot",
		Short: "Chat bot that downloads media from YouTube, Instagram and TikTok links",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), configPath)
		},
		SilenceUsage: true,
	}
	root.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config (env vars override)")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	if err := os.MkdirAll(cfg.DownloadDir, 0o755); err != nil {
		return fmt.Errorf("create download root: %w", err)
	}

	mongoClient, err := storage.Connect(ctx, cfg.Mongo.URI)
	if err != nil {
		return err
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Warn("mongo disconnect failed", zap.Error(err))
		}
	}()

	store := storage.NewMongo(mongoClient.Database(cfg.Mongo.Database), log)
	if err := store.EnsureIndexes(ctx); err != nil {
		return err
	}

	client := telegram.New(cfg.BotToken, log)
	beats := heartbeat.New(client, heartbeat.DefaultInterval, log)
	defer beats.StopAll()

	runner := procrun.New(log)
	extractCfg := extract.Config{
		DownloadRoot:     cfg.DownloadDir,
		MaxFileSize:      cfg.MaxFileSize,
		YtdlpPath:        cfg.Tools.Ytdlp,
		GalleryDlPath:    cfg.Tools.GalleryDl,
		FfmpegPath:       cfg.Tools.Ffmpeg,
		TiktokProxy:      cfg.TiktokProxy,
		InstagramCookies: cfg.InstagramCookies,
		Timeout:          cfg.ProcessTimeout,
	}

	flows := workflow.NewManager(workflow.Deps{
		Client:      client,
		Cache:       cache.New(store, client, log),
		Heartbeats:  beats,
		YouTube:     extract.NewYouTube(runner, extractCfg, log),
		Instagram:   extract.NewInstagram(runner, extractCfg, log),
		TikTok:      extract.NewTikTok(runner, extractCfg, log),
		MaxFileSize: cfg.MaxFileSize,
	}, log)

	router := bot.New(bot.Deps{
		Client:   client,
		Flows:    flows,
		Limiter:  ratelimit.New(ratelimit.DefaultMaxRequests, ratelimit.DefaultWindow),
		WarnOnce: ratelimit.NewActivityThrottle(ratelimit.DefaultActivityThrottle),
		Activity: ratelimit.NewActivityThrottle(ratelimit.DefaultActivityThrottle),
		Users:    store,
		Log:      log,
	})

	sweeper := extract.NewSweeper(cfg.DownloadDir, extract.DefaultMaxFolderAge, extract.DefaultSweepInterval, log)

	log.Info("bot starting",
		zap.String("download_dir", cfg.DownloadDir),
		zap.Int64("max_file_size", cfg.MaxFileSize))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return router.Run(ctx, telegram.NewPoller(client, log))
	})
	g.Go(func() error {
		return sweeper.Run(ctx)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	log.Info("bot stopped")
	return nil
}
