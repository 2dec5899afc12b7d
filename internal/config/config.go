package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"chat-widget/internal/env"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const AppName = "chat-widget"

var (
	ErrMissingWidgetID = errors.New("config: widget id is required")
	ErrInvalidAPIURL   = errors.New("config: api url must be an absolute http(s) url")
	ErrInvalidPosition = errors.New("config: position must be bottom-right or bottom-left")
	ErrUnknownDriver   = errors.New("config: unknown storage driver")
)

const (
	PositionBottomRight = "bottom-right"
	PositionBottomLeft  = "bottom-left"
)

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"
	DriverDynamoDB = "dynamodb"
)

// Config is everything the widget host and the mock API read at start-up.
// It is loaded once and passed down by value.
type Config struct {
	Widget  Widget  `mapstructure:"widget"`
	Storage Storage `mapstructure:"storage"`
	AWS     AWS     `mapstructure:"aws"`
	HTTP    HTTP    `mapstructure:"http"`
	Log     Log     `mapstructure:"log"`
	MockAPI MockAPI `mapstructure:"mockapi"`
}

// Widget is the configuration an embedding host hands to a widget instance.
type Widget struct {
	ID             string `mapstructure:"id"`
	APIURL         string `mapstructure:"api_url"`
	DisplayName    string `mapstructure:"display_name"`
	WelcomeMessage string `mapstructure:"welcome_message"`
	AccentColor    string `mapstructure:"accent_color"`
	Position       string `mapstructure:"position"`
	ShopDomain     string `mapstructure:"shop_domain"`
	CustomerID     string `mapstructure:"customer_id"`
}

type Storage struct {
	Driver        string `mapstructure:"driver"`
	SQLitePath    string `mapstructure:"sqlite_path"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	DynamoTable   string `mapstructure:"dynamo_table"`
}

type AWS struct {
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	SessionToken    string `mapstructure:"session_token"`
	Endpoint        string `mapstructure:"endpoint"`
}

type HTTP struct {
	// Timeout of zero leaves failure latency to the backend.
	Timeout     time.Duration `mapstructure:"timeout"`
	MetricsAddr string        `mapstructure:"metrics_addr"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
	File   string `mapstructure:"file"`
}

type MockAPI struct {
	ListenAddr       string        `mapstructure:"listen_addr"`
	AllowedOrigins   []string      `mapstructure:"allowed_origins"`
	LeadCaptureAfter int           `mapstructure:"lead_capture_after"`
	Suggestions      []string      `mapstructure:"suggestions"`
	AdminEmail       string        `mapstructure:"admin_email"`
	AdminPassword    string        `mapstructure:"admin_password"`
	JWTSecret        string        `mapstructure:"jwt_secret"`
	TokenTTL         time.Duration `mapstructure:"token_ttl"`
	LeadStore        string        `mapstructure:"lead_store"`
	LeadsTable       string        `mapstructure:"leads_table"`
	MaxSessions      int           `mapstructure:"max_sessions"`
	MaxMessages      int           `mapstructure:"max_messages"`
	QueueSize        int           `mapstructure:"queue_size"`
	Workers          int           `mapstructure:"workers"`
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"widget-id":     "widget.id",
	"api-url":       "widget.api_url",
	"display-name":  "widget.display_name",
	"storage":       "storage.driver",
	"sqlite-path":   "storage.sqlite_path",
	"redis-addr":    "storage.redis_addr",
	"log-level":     "log.level",
	"log-file":      "log.file",
	"metrics-addr":  "http.metrics_addr",
	"listen":        "mockapi.listen_addr",
	"lead-store":    "mockapi.lead_store",
	"capture-after": "mockapi.lead_capture_after",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("widget.id", "")
	v.SetDefault("widget.api_url", "http://localhost:8000")
	v.SetDefault("widget.display_name", "AI Assistant")
	v.SetDefault("widget.welcome_message", "Hi! How can I help you today?")
	v.SetDefault("widget.accent_color", "#4F46E5")
	v.SetDefault("widget.position", PositionBottomRight)
	v.SetDefault("widget.shop_domain", "")
	v.SetDefault("widget.customer_id", "")

	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("storage.sqlite_path", defaultDataPath("storage.db"))
	v.SetDefault("storage.redis_addr", "localhost:6379")
	v.SetDefault("storage.redis_password", "")
	v.SetDefault("storage.redis_db", 0)
	v.SetDefault("storage.dynamo_table", "ChatWidgetStorage")

	v.SetDefault("aws.region", "us-east-1")
	v.SetDefault("aws.access_key_id", "")
	v.SetDefault("aws.secret_access_key", "")
	v.SetDefault("aws.session_token", "")
	v.SetDefault("aws.endpoint", "")

	v.SetDefault("http.timeout", "0s")
	v.SetDefault("http.metrics_addr", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.file", "")

	v.SetDefault("mockapi.listen_addr", ":8000")
	v.SetDefault("mockapi.allowed_origins", []string{"*"})
	v.SetDefault("mockapi.lead_capture_after", 3)
	v.SetDefault("mockapi.suggestions", []string{
		"What services do you offer?",
		"How much does it cost?",
		"Can I talk to a human?",
	})
	v.SetDefault("mockapi.admin_email", "admin@example.com")
	v.SetDefault("mockapi.admin_password", "admin")
	v.SetDefault("mockapi.jwt_secret", "dev-secret")
	v.SetDefault("mockapi.token_ttl", "1h")
	v.SetDefault("mockapi.lead_store", "memory")
	v.SetDefault("mockapi.leads_table", "Leads")
	v.SetDefault("mockapi.max_sessions", 1000)
	v.SetDefault("mockapi.max_messages", 200)
	v.SetDefault("mockapi.queue_size", 10)
	v.SetDefault("mockapi.workers", 10)
}

// Load reads configuration from an optional YAML file, the environment and,
// when fs is non-nil, command-line flags. Later sources win.
func Load(configPath string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath == "" {
		configPath = env.Get(env.ConfigFile)
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath(defaultDataPath(""))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configPath != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix(env.Prefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, name := range env.Bindings {
		if err := v.BindEnv(key, env.Prefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), name); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", name, err)
		}
	}

	if fs != nil {
		for name, key := range flagKeys {
			flag := fs.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.Widget.APIURL = strings.TrimRight(strings.TrimSpace(cfg.Widget.APIURL), "/")
	return &cfg, nil
}

// Validate reports the first problem that would stop a widget from mounting.
func (w Widget) Validate() error {
	if strings.TrimSpace(w.ID) == "" {
		return ErrMissingWidgetID
	}
	u, err := url.Parse(w.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidAPIURL
	}
	switch w.Position {
	case PositionBottomRight, PositionBottomLeft:
	default:
		return ErrInvalidPosition
	}
	return nil
}

func (s Storage) Validate() error {
	switch s.Driver {
	case DriverMemory, DriverSQLite, DriverRedis, DriverDynamoDB:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownDriver, s.Driver)
}

func defaultDataPath(name string) string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, AppName, name)
}
