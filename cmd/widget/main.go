package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"chat-widget/internal/chatapi"
	"chat-widget/internal/config"
	"chat-widget/internal/logging"
	"chat-widget/internal/session"
	"chat-widget/internal/storage"
	"chat-widget/internal/tui"
	"chat-widget/internal/widget"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", config.AppName, err)
		os.Exit(1)
	}
}

func run() error {
	fs := pflag.NewFlagSet("widget", pflag.ContinueOnError)
	configPath := fs.String("config", "", "path to a YAML config file")
	fs.String("widget-id", "", "widget identifier")
	fs.String("api-url", "", "chat backend base URL")
	fs.String("display-name", "", "name shown in the window header")
	fs.String("storage", "", "session storage driver (memory|sqlite|redis|dynamodb)")
	fs.String("sqlite-path", "", "sqlite storage file")
	fs.String("redis-addr", "", "redis address for the redis driver")
	fs.String("log-level", "", "log level")
	fs.String("log-file", "", "log file (default chat-widget.log in the temp dir)")
	fs.String("metrics-addr", "", "serve client metrics on this address")
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
	if err := cfg.Widget.Validate(); err != nil {
		return err
	}
	if err := cfg.Storage.Validate(); err != nil {
		return err
	}

	// stderr belongs to the terminal UI.
	if cfg.Log.File == "" {
		cfg.Log.File = filepath.Join(os.TempDir(), config.AppName+".log")
	}
	logger, closeLog, err := logging.Open(cfg.Log)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := storage.NewStorage(ctx, cfg.Storage, cfg.AWS)
	if err != nil {
		// Same as a browser with storage disabled: sessions live in memory.
		logger.Warn().Err(err).Str("driver", cfg.Storage.Driver).Msg("storage unavailable")
		st = storage.Unavailable{}
	}
	defer st.Close()

	reg := prometheus.NewRegistry()
	client, err := chatapi.New(cfg.Widget.APIURL,
		chatapi.WithTimeout(cfg.HTTP.Timeout),
		chatapi.WithRegisterer(reg),
		chatapi.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	if cfg.HTTP.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.HTTP.MetricsAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Str("addr", cfg.HTTP.MetricsAddr).Msg("metrics server stopped")
			}
		}()
		defer srv.Close()
	}

	sessions := session.NewStore(st, logger)
	ctrl := widget.New(cfg.Widget, client, sessions, logger)
	defer ctrl.Detach()

	logger.Info().
		Str("widget_id", cfg.Widget.ID).
		Str("api_url", cfg.Widget.APIURL).
		Str("storage", cfg.Storage.Driver).
		Msg("widget starting")

	p := tea.NewProgram(tui.New(ctx, ctrl, logger), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}
