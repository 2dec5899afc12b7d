package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"chat-widget/internal/chatapi"
	"chat-widget/internal/config"
	"chat-widget/internal/dto"
	"chat-widget/internal/logging"
	"chat-widget/internal/storage"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/pflag"
)

const usage = `usage: admin [flags] <command>

commands:
  login    store an access token (--email, --password)
  logout   forget the stored token
  leads    list captured leads (--widget-id filters)
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "admin: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet("admin", pflag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fs.PrintDefaults()
	}
	configPath := fs.String("config", "", "path to a YAML config file")
	fs.String("api-url", "", "chat backend base URL")
	fs.String("widget-id", "", "widget identifier")
	fs.String("storage", "", "token storage driver (memory|sqlite|redis|dynamodb)")
	fs.String("sqlite-path", "", "sqlite storage file")
	fs.String("log-level", "", "log level")
	email := fs.String("email", "", "admin email for login")
	password := fs.String("password", "", "admin password for login")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errors.New("expected exactly one command")
	}

	cfg, err := config.Load(*configPath, fs)
	if err != nil {
		return err
	}
	if err := cfg.Storage.Validate(); err != nil {
		return err
	}
	logger, closeLog, err := logging.Open(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := storage.NewStorage(ctx, cfg.Storage, cfg.AWS)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer st.Close()

	admin, err := chatapi.NewAdmin(cfg.Widget.APIURL, st,
		chatapi.WithTimeout(cfg.HTTP.Timeout),
		chatapi.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	switch cmd := fs.Arg(0); cmd {
	case "login":
		if *email == "" || *password == "" {
			return errors.New("login needs --email and --password")
		}
		out, err := admin.Login(ctx, *email, *password)
		if err != nil {
			return err
		}
		fmt.Printf("logged in, token valid for %ds\n", out.ExpiresIn)
		return nil

	case "logout":
		return admin.Logout(ctx)

	case "leads":
		leads, err := admin.ListLeads(ctx, cfg.Widget.ID)
		if err != nil {
			return err
		}
		fmt.Println(leadTable(leads))
		return nil

	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func leadTable(leads []dto.LeadResponse) string {
	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("CREATED", "NAME", "EMAIL", "PHONE", "COMPANY", "SESSION").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
	for _, l := range leads {
		t.Row(l.CreatedAt, l.Name, l.Email, l.Phone, l.Company, l.SessionID)
	}
	return t.String()
}
