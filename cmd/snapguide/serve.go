package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/snapguide/snapguide/internal/config"
	"github.com/snapguide/snapguide/internal/dispatch"
	"github.com/snapguide/snapguide/internal/gemini"
	"github.com/snapguide/snapguide/internal/handlers"
	"github.com/snapguide/snapguide/internal/langpref"
	"github.com/snapguide/snapguide/internal/line"
	"github.com/snapguide/snapguide/internal/logger"
	"github.com/snapguide/snapguide/internal/server"
)

func runServe() {
	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideLineClient,
			provideGeminiClient,
			providePreferenceStore,
			provideResolver,
			provideDispatcher,
			provideServerHandler(handlers.NewPingHandler),
			provideServerHandler(provideWebhookHandler),
			provideServer,
		),
		fx.Invoke(
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

func provideConfig() (config.Config, error) {
	cfgPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideLineClient(log *slog.Logger, cfg config.Config) (*line.Client, error) {
	return line.New(log, cfg.Line.ChannelSecret, cfg.Line.ChannelAccessToken, cfg.Line.MaxContentBytes)
}

func provideGeminiClient(lc fx.Lifecycle, log *slog.Logger, cfg config.Config) (*gemini.Client, error) {
	client, err := gemini.New(context.Background(), log, cfg.Gemini.APIKey, cfg.Gemini.VisionModel, cfg.Gemini.DetectModel)
	if err != nil {
		return nil, fmt.Errorf("init gemini client: %w", err)
	}
	lc.Append(fx.Hook{OnStop: func(ctx context.Context) error { return client.Close() }})
	return client, nil
}

func providePreferenceStore(lc fx.Lifecycle, log *slog.Logger, cfg config.Config) (langpref.Store, error) {
	if cfg.LangPref.Store != config.StorePostgres {
		return langpref.NewMemoryStore(), nil
	}
	pool, err := pgxpool.New(context.Background(), cfg.Postgres.DSN())
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	store := langpref.NewPostgresStore(log, pool)
	if err := store.Init(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db init: %w", err)
	}
	lc.Append(fx.Hook{OnStop: func(ctx context.Context) error { pool.Close(); return nil }})
	return store, nil
}

func provideResolver(log *slog.Logger, cfg config.Config, store langpref.Store, lineClient *line.Client) *langpref.Resolver {
	var profiles langpref.ProfileClient
	if cfg.LangPref.ProfileLookup {
		profiles = lineClient
	}
	return langpref.NewResolver(log, store, profiles, cfg.LangPref.DefaultLanguage)
}

func provideDispatcher(log *slog.Logger, lineClient *line.Client, geminiClient *gemini.Client, store langpref.Store, resolver *langpref.Resolver) *dispatch.Dispatcher {
	return dispatch.New(log, lineClient, lineClient, geminiClient, store, resolver)
}

func provideWebhookHandler(log *slog.Logger, lineClient *line.Client, dispatcher *dispatch.Dispatcher) *handlers.WebhookHandler {
	return handlers.NewWebhookHandler(log, lineClient, dispatcher)
}

type serverParams struct {
	fx.In
	Logger         *slog.Logger
	Config         config.Config
	ServerHandlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.NewServer(params.Logger, params.Config.Server.Addr, params.ServerHandlers...)
}

func startServer(lc fx.Lifecycle, logger *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
