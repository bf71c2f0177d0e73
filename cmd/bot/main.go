package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/emberware/ticketbot/internal/api/http"
	"github.com/emberware/ticketbot/internal/api/http/handlers"
	"github.com/emberware/ticketbot/internal/archive"
	"github.com/emberware/ticketbot/internal/bot"
	"github.com/emberware/ticketbot/internal/config"
	"github.com/emberware/ticketbot/internal/observability"
	"github.com/emberware/ticketbot/internal/persistence"
	"github.com/emberware/ticketbot/internal/platform"
	"github.com/emberware/ticketbot/internal/ratelimit"
	"github.com/emberware/ticketbot/internal/repository"
	"github.com/emberware/ticketbot/internal/roles"
	"github.com/emberware/ticketbot/internal/service"
	"github.com/emberware/ticketbot/internal/transcript"
	"github.com/emberware/ticketbot/internal/worker"
)

func main() {
	registerCommands := flag.Bool("register-commands", false, "overwrite guild slash commands and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		logger.Fatal("failed to build discord session", zap.Error(err))
	}

	if *registerCommands {
		if err := bot.RegisterCommands(session, cfg.Discord.AppID, cfg.Discord.GuildID); err != nil {
			logger.Fatal("failed to register commands", zap.Error(err))
		}
		logger.Info("commands registered", zap.String("guild_id", cfg.Discord.GuildID))
		return
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	rdb := persistence.NewRedis(cfg.Redis, logger)
	defer rdb.Close()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	configRepo := repository.NewGuildConfigRepository(pool)
	outboxRepo := repository.NewOutboxRepository(pool)

	var cooldownStore ratelimit.Store
	if cfg.RateLimit.UseRedis {
		cooldownStore = ratelimit.NewRedisStore(rdb.Client)
	} else {
		cooldownStore = ratelimit.NewMemoryStore()
	}
	limiter := ratelimit.NewLimiter(cooldownStore, cfg.RateLimit.Window(), nil)

	resolver := roles.NewResolver(configRepo, cfg.Discord.DefaultManagerRoleIDs)
	metrics := observability.NewMetrics()
	discord := platform.NewDiscord(session, cfg.Discord.TicketsCategoryID)

	var objectStore archive.ObjectStore
	if store, err := archive.NewMinioStore(cfg.Storage); err != nil {
		logger.Fatal("failed to init object storage", zap.Error(err))
	} else if store != nil {
		objectStore = store
		logger.Info("attachment archival enabled", zap.String("bucket", cfg.Storage.Bucket))
	} else {
		logger.Warn("object storage not configured, transcripts keep original attachment links")
	}
	archiver := archive.NewArchiver(objectStore, nil, logger)

	loc, err := time.LoadLocation(cfg.App.TranscriptTimezone)
	if err != nil {
		logger.Warn("invalid transcript timezone, using UTC",
			zap.String("timezone", cfg.App.TranscriptTimezone))
		loc = time.UTC
	}
	renderer := transcript.NewRenderer(loc)

	postClose := worker.NewPostCloseWorker(outboxRepo, ticketRepo, discord, logger, metrics, cfg.App.BaseURL)

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: ticketRepo,
		Resolver:   resolver,
		Limiter:    limiter,
		Client:     discord,
		Logger:     logger,
		Metrics:    metrics,
	})
	closeService := service.NewCloseService(service.CloseDependencies{
		TicketRepo: ticketRepo,
		Client:     discord,
		Archiver:   archiver,
		Renderer:   renderer,
		Logger:     logger,
		Metrics:    metrics,
		BaseURL:    cfg.App.BaseURL,
		Notify:     postClose.Notify,
	})

	go postClose.Run(ctx)

	b := bot.New(bot.Dependencies{
		Session:        session,
		Discord:        discord,
		Tickets:        ticketService,
		Closer:         closeService,
		Resolver:       resolver,
		Configs:        configRepo,
		Logger:         logger,
		PanelChannelID: cfg.Discord.PanelChannelID,
	})
	if err := b.Start(); err != nil {
		logger.Fatal("failed to open gateway connection", zap.Error(err))
	}
	defer b.Stop()

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:      handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, rdb),
		Tickets:     handlers.NewTicketsHandler(ticketService, closeService),
		Transcripts: handlers.NewTranscriptHandler(ticketService),
		APIKey:      cfg.App.APIKey,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
