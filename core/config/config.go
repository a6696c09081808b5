package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// GoogleAPIConfig holds OAuth2 client settings for Google APIs.
type GoogleAPIConfig struct {
	// OAuthSecretFile points to the client secrets JSON downloaded from the Google console.
	OAuthSecretFile string   `yaml:"oauth20_secret_file" envconfig:"GOOGLE_OAUTH_SECRET_FILE"`
	RedirectURL     string   `yaml:"redirect_url" envconfig:"GOOGLE_REDIRECT_URL"`
	Scopes          []string `yaml:"scopes"`
}

// AccessConfig groups credentials and privileges of the bot itself.
type AccessConfig struct {
	Token     string          `yaml:"token" envconfig:"BOT_TOKEN"`
	GodIDList []int64         `yaml:"god_id_list" envconfig:"GOD_ID_LIST"`
	GoogleAPI GoogleAPIConfig `yaml:"google_api"`
}

// Privileged reports whether the user may invoke privileged commands.
func (a AccessConfig) Privileged(userID int64) bool {
	for _, id := range a.GodIDList {
		if id == userID {
			return true
		}
	}
	return false
}

// TelegramConfig holds transport settings.
type TelegramConfig struct {
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
	// BotLink is the t.me link used to direct group users to a private chat.
	BotLink string `yaml:"bot_link" envconfig:"TELEGRAM_BOT_LINK"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir" envconfig:"LOG_DIR"`
	BotFile     string `yaml:"bot_file"`
	// UnknownFile receives the diagnostic records for messages the bot could not route.
	UnknownFile string `yaml:"unknown_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
	// ComponentSample overrides DebugSample per component, e.g. "tg: 1/100".
	ComponentSample map[string]string `yaml:"component_sample"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// UpdateCallback identifies callback updates for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
	// UpdateInlineQuery identifies inline query updates for rate limit exclusions.
	UpdateInlineQuery = "inline_query"
)

// RateLimitConfig holds settings for rate limiting.
// ExcludeUpdates accepts update types to bypass limiting:
// - "callback": Telegram callback button presses
// - "message": standard text messages
// - "inline_query": inline query updates
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

const (
	// StorageSQLite keeps per-user state in a local SQLite file.
	StorageSQLite = "sqlite"
	// StoragePostgres keeps per-user state in PostgreSQL.
	StoragePostgres = "postgres"
	// StorageMemory keeps per-user state in process memory only.
	StorageMemory = "memory"
)

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
}

// StorageConfig selects where per-user state is persisted.
type StorageConfig struct {
	Driver   string         `yaml:"driver" envconfig:"STORAGE_DRIVER"`
	Path     string         `yaml:"path" envconfig:"STORAGE_PATH"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// OTRSConfig holds OTRS GenericInterface settings.
type OTRSConfig struct {
	Webservice string `yaml:"webservice" envconfig:"OTRS_WEBSERVICE"`
}

// ServicesConfig holds settings shared by remote service clients.
type ServicesConfig struct {
	TimeoutSeconds int        `yaml:"timeout_seconds" envconfig:"SERVICES_TIMEOUT_SECONDS"`
	OTRS           OTRSConfig `yaml:"otrs"`
}

// Config aggregates the whole bot configuration.
type Config struct {
	Access    AccessConfig    `yaml:"access"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Storage   StorageConfig   `yaml:"storage"`
	Services  ServicesConfig  `yaml:"services"`
}

// Defaults returns the built-in configuration every override file is merged onto.
func Defaults() *Config {
	return &Config{
		Access: AccessConfig{
			GodIDList: []int64{},
			GoogleAPI: GoogleAPIConfig{
				RedirectURL: "urn:ietf:wg:oauth:2.0:oob",
				Scopes:      []string{"https://www.googleapis.com/auth/gmail.modify"},
			},
		},
		Telegram: TelegramConfig{
			RunMode:                RunModeLongpoll,
			LongPollTimeoutSeconds: 10,
		},
		Logging: LoggingConfig{
			Level:       "info",
			Dir:         ".",
			BotFile:     "bot.log",
			UnknownFile: "unknown_messages.log",
		},
		RateLimit: RateLimitConfig{ExcludeUpdates: []string{}},
		Storage: StorageConfig{
			Driver: StorageSQLite,
			Path:   "bot.db",
			Postgres: PostgresConfig{
				Host:           "localhost",
				Port:           "5432",
				SSLMode:        "disable",
				MaxConnections: 5,
			},
		},
		Services: ServicesConfig{
			TimeoutSeconds: 15,
			OTRS:           OTRSConfig{Webservice: "GenericTicketConnectorREST"},
		},
	}
}

// Load merges the YAML file at path onto Defaults, applies environment
// overrides and validates the result. A missing file is created from the
// defaults so operators get a template to fill in.
func Load(path string) (*Config, error) {
	base, err := toMap(Defaults())
	if err != nil {
		return nil, fmt.Errorf("failed to encode defaults: %w", err)
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := WriteDefaults(path); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		override := map[string]any{}
		if err := yaml.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
		base = DeepMerge(base, override)
	}

	var cfg Config
	if err := fromMap(base, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode merged config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// WriteDefaults stores the default configuration as YAML at path.
func WriteDefaults(path string) error {
	data, err := yaml.Marshal(Defaults())
	if err != nil {
		return fmt.Errorf("failed to encode defaults: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write default config: %w", err)
	}
	return nil
}

// DeepMerge copies override onto target recursively. Nested mappings are
// merged key by key, any other value in override replaces the target leaf.
// Keys missing from override keep their target values. target is modified
// in place and returned.
func DeepMerge(target, override map[string]any) map[string]any {
	if target == nil {
		target = map[string]any{}
	}
	for key, value := range override {
		sub, ok := value.(map[string]any)
		if !ok {
			target[key] = value
			continue
		}
		existing, ok := target[key].(map[string]any)
		if !ok {
			existing = map[string]any{}
		}
		target[key] = DeepMerge(existing, sub)
	}
	return target
}

func toMap(cfg *Config) (map[string]any, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func fromMap(m map[string]any, cfg *Config) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Normalize performs basic validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if strings.TrimSpace(cfg.Access.Token) == "" {
		return fmt.Errorf("empty bot token (access.token)")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" || rm == "polling" {
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	allowed := map[string]struct{}{
		UpdateCallback:    {},
		UpdateMessage:     {},
		UpdateInlineQuery: {},
	}
	for i, v := range cfg.RateLimit.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message, inline_query", v)
		}
		cfg.RateLimit.ExcludeUpdates[i] = key
	}

	driver := strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	switch driver {
	case "":
		driver = StorageSQLite
	case "sqlite3":
		driver = StorageSQLite
	case "postgresql", "pg":
		driver = StoragePostgres
	}
	switch driver {
	case StorageSQLite:
		if strings.TrimSpace(cfg.Storage.Path) == "" {
			return fmt.Errorf("storage.path is required for the sqlite driver")
		}
	case StoragePostgres:
		if strings.TrimSpace(cfg.Storage.Postgres.Host) == "" || strings.TrimSpace(cfg.Storage.Postgres.Name) == "" {
			return fmt.Errorf("storage.postgres.host and storage.postgres.name are required for the postgres driver")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("invalid storage.driver %q; allowed: sqlite, postgres, memory", cfg.Storage.Driver)
	}
	cfg.Storage.Driver = driver

	if cfg.Services.TimeoutSeconds < 0 {
		return fmt.Errorf("services.timeout_seconds must be >= 0")
	}
	if cfg.Services.TimeoutSeconds == 0 {
		cfg.Services.TimeoutSeconds = 15
	}
	if strings.TrimSpace(cfg.Services.OTRS.Webservice) == "" {
		cfg.Services.OTRS.Webservice = "GenericTicketConnectorREST"
	}
	return nil
}
