package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"memebot/internal/bot"
	"memebot/internal/channel"
	"memebot/internal/config"
	"memebot/internal/domain"
	"memebot/internal/gallery"
	"memebot/internal/history"
	"memebot/internal/imgflip"
	"memebot/internal/metadata"

	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "memebot",
		Short: "MemeBot: a WhatsApp meme-generation bot",
		Long:  "MemeBot bridges a messaging conversation and the Imgflip API: chat commands in, memes out, with a web gallery of everything generated.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.memebot/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(runCmd())
	root.AddCommand(galleryCmd())
	root.AddCommand(historyCmd())
	root.AddCommand(configCmd())
	root.AddCommand(doctorCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize config and workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := config.DefaultConfigPath()
			if err := os.MkdirAll(config.DefaultConfigDir(), 0o755); err != nil {
				return err
			}
			cfg := config.Defaults()
			if err := config.Save(cfgPath, cfg); err != nil {
				return err
			}
			if err := os.MkdirAll(config.ExpandPath(cfg.General.Workspace), 0o755); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath, "workspace", cfg.General.Workspace)
			return nil
		},
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the bot session",
		RunE:  runBot,
	}
}

func runBot(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return err
	}
	logger = buildLogger(cfg)

	if cfg.Imgflip.Username == "" || cfg.Imgflip.Password == "" {
		return fmt.Errorf("imgflip credentials missing; set imgflip.username and imgflip.password in %s", resolveConfigPath())
	}

	if err := os.MkdirAll(cfg.General.Workspace, 0o755); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	memeLog, err := metadata.NewLog(cfg.General.Workspace, logger)
	if err != nil {
		return err
	}

	var historyStore domain.HistoryStore
	if cfg.History.Enabled {
		store, err := history.NewStore(cfg.History.DBPath, logger)
		if err != nil {
			return err
		}
		defer store.Close()
		historyStore = store
	}

	memes := imgflip.New(imgflip.Config{
		Username:    cfg.Imgflip.Username,
		Password:    cfg.Imgflip.Password,
		APIBase:     cfg.Imgflip.APIBase,
		NoWatermark: cfg.Imgflip.NoWatermark,
		Logger:      logger,
	})

	gateway, err := channel.New(cfg, logger)
	if err != nil {
		return err
	}
	logger.Info("connecting gateway", "channel", gateway.Name())
	if err := gateway.Connect(ctx); err != nil {
		return fmt.Errorf("gateway connect: %w", err)
	}

	if cfg.Gallery.Enabled {
		srv, err := gallery.NewServer(gallery.Config{
			Host:   cfg.Gallery.Host,
			Port:   cfg.Gallery.Port,
			Log:    memeLog,
			Logger: logger,
		})
		if err != nil {
			return err
		}
		go func() {
			if err := srv.Start(ctx); err != nil {
				logger.Error("gallery stopped", "err", err)
			}
		}()
	}

	session := bot.NewSession(bot.SessionConfig{
		Gateway:   gateway,
		Memes:     memes,
		Recorder:  memeLog,
		History:   historyStore,
		Logger:    logger,
		ListLimit: cfg.General.ListLimit,
	})

	logger.Info("memebot running, awaiting messages", "version", version)
	if err := session.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func galleryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gallery",
		Short: "Serve the meme gallery without running the bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return err
			}
			logger = buildLogger(cfg)

			memeLog, err := metadata.NewLog(cfg.General.Workspace, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv, err := gallery.NewServer(gallery.Config{
				Host:   cfg.Gallery.Host,
				Port:   cfg.Gallery.Port,
				Log:    memeLog,
				Logger: logger,
			})
			if err != nil {
				return err
			}
			return srv.Start(ctx)
		},
	}
}

func historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently dispatched commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return err
			}
			if !cfg.History.Enabled {
				return fmt.Errorf("history is disabled in config")
			}

			store, err := history.NewStore(cfg.History.DBPath, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.RecentCommands(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Println("No commands recorded yet.")
				return nil
			}
			for _, rec := range records {
				line := rec.Keyword
				if rec.Argument != "" {
					line += " " + rec.Argument
				}
				fmt.Printf("%s  %s\n", rec.CreatedAt.Format("2006-01-02 15:04:05"), line)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of commands to show")
	return cmd
}

// buildLogger applies the configured level and optional log file.
func buildLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.General.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var out io.Writer = os.Stderr
	if cfg.General.LogFile != "" {
		f, err := os.OpenFile(cfg.General.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			logger.Warn("cannot open log file, logging to stderr", "path", cfg.General.LogFile, "err", err)
		} else {
			out = io.MultiWriter(os.Stderr, f)
		}
	}

	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
}
