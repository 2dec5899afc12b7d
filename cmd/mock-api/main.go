package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"chat-widget/internal/api"
	"chat-widget/internal/api/router"
	"chat-widget/internal/config"
	"chat-widget/internal/database"
	internaljwt "chat-widget/internal/jwt"
	"chat-widget/internal/logging"
	"chat-widget/internal/queue"
	authsvc "chat-widget/internal/service/auth"
	chatsvc "chat-widget/internal/service/chat"
	leadsvc "chat-widget/internal/service/lead"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "mock-api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	fs := pflag.NewFlagSet("mock-api", pflag.ContinueOnError)
	configPath := fs.String("config", "", "path to a YAML config file")
	fs.String("listen", "", "listen address")
	fs.String("lead-store", "", "lead repository (memory|dynamodb)")
	fs.Int("capture-after", 0, "visitor messages before lead capture is requested")
	fs.String("log-level", "", "log level")
	fs.String("log-file", "", "log file (default stderr)")
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(*configPath, fs)
	if err != nil {
		return err
	}
	logger, closeLog, err := logging.Open(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mcfg := cfg.MockAPI

	var repo leadsvc.Repository
	switch mcfg.LeadStore {
	case "", config.DriverMemory:
		repo = leadsvc.NewMemoryRepository()
	case config.DriverDynamoDB:
		client, err := database.NewDynamoDBClient(ctx, cfg.AWS)
		if err != nil {
			return fmt.Errorf("db init failed: %w", err)
		}
		repo = leadsvc.NewDynamoRepository(client, mcfg.LeadsTable)
	default:
		return fmt.Errorf("%w: lead store %q", config.ErrUnknownDriver, mcfg.LeadStore)
	}

	issuer, err := internaljwt.NewIssuer(mcfg.JWTSecret, mcfg.TokenTTL, nil)
	if err != nil {
		return err
	}
	auth, err := authsvc.New(mcfg.AdminEmail, mcfg.AdminPassword, issuer)
	if err != nil {
		return err
	}
	leads := leadsvc.NewWithRepository(repo, nil)
	chat := chatsvc.New(leads, mcfg.LeadCaptureAfter, mcfg.Suggestions,
		chatsvc.WithLogger(logger),
		chatsvc.WithLimits(mcfg.MaxSessions, mcfg.MaxMessages),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	queueManager := queue.NewRequestQueueManager(mcfg.QueueSize, mcfg.Workers, logger)
	defer queueManager.Shutdown()

	server := api.NewAPIServer(
		api.Config{
			ListenAddr:     mcfg.ListenAddr,
			AllowedOrigins: mcfg.AllowedOrigins,
			Registry:       reg,
		},
		queueManager,
		logger,
		router.UtilsRoutes(""),
		router.WidgetRoutes("/api", chat, leads),
		router.AuthRoutes("/api", auth, leads, issuer),
	)

	logger.Info().
		Str("lead_store", mcfg.LeadStore).
		Int("capture_after", mcfg.LeadCaptureAfter).
		Msg("mock api starting")
	return server.Run(ctx)
}
