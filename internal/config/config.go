package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ilyakaznacheev/cleanenv"
)

const appName = "fbsweep"

// Locator strategies
const (
	StrategyAnchor     = "anchor"
	StrategyStructural = "structural"
	StrategyVision     = "vision"
)

// ErrInvalid is returned by Validate for unusable settings.
var ErrInvalid = errors.New("invalid config")

// Config holds all application configuration
type Config struct {
	Version  int            `toml:"version"`
	Search   SearchConfig   `toml:"search"`
	Auth     AuthConfig     `toml:"auth"`
	Browser  BrowserConfig  `toml:"browser"`
	Vision   VisionConfig   `toml:"vision"`
	Store    StoreConfig    `toml:"store"`
	Debug    DebugConfig    `toml:"debug"`
	Notify   NotifyConfig   `toml:"notify"`
	Schedule ScheduleConfig `toml:"schedule"`
	Log      LogConfig      `toml:"log"`
}

type SearchConfig struct {
	Query          string `toml:"query" env:"FBSWEEP_QUERY"`
	ScrollBudget   int    `toml:"scroll_budget" env:"FBSWEEP_SCROLL_BUDGET"`
	Stabilize      bool   `toml:"stabilize" env:"FBSWEEP_STABILIZE"`
	Strategy       string `toml:"strategy" env:"FBSWEEP_STRATEGY"`
	ScrollStep     int    `toml:"scroll_step"`
	ScrollDelayMS  int    `toml:"scroll_delay_ms"`
	SettleDelayMS  int    `toml:"settle_delay_ms"`
	HoverTimeoutMS int    `toml:"hover_timeout_ms"`
	RequireAuthor  bool   `toml:"require_author" env:"FBSWEEP_REQUIRE_AUTHOR"`
	SwitchToAllTab bool   `toml:"switch_to_all_tab"`
}

type AuthConfig struct {
	CredentialPath string `toml:"credential_path" env:"FBSWEEP_CREDENTIAL_PATH"`
	KeyStorePath   string `toml:"key_store_path" env:"FBSWEEP_KEY_STORE_PATH"`
	KeyField       string `toml:"key_field"`
}

type BrowserConfig struct {
	Headless bool `toml:"headless" env:"FBSWEEP_HEADLESS"`
}

type VisionConfig struct {
	Provider    string `toml:"provider" env:"FBSWEEP_VISION_PROVIDER"`
	Model       string `toml:"model" env:"FBSWEEP_VISION_MODEL"`
	APIKey      string `toml:"api_key" env:"FBSWEEP_VISION_API_KEY"`
	BaseURL     string `toml:"base_url"`
	BatchSize   int    `toml:"batch_size"`
	Concurrency int    `toml:"concurrency"`
	MaxRetries  int    `toml:"max_retries"`
}

type StoreConfig struct {
	Enabled bool   `toml:"enabled" env:"FBSWEEP_STORE_ENABLED"`
	Path    string `toml:"path" env:"FBSWEEP_STORE_PATH"`
}

type DebugConfig struct {
	SaveSnapshots   bool   `toml:"save_snapshots" env:"FBSWEEP_SAVE_SNAPSHOTS"`
	SaveScreenshots bool   `toml:"save_screenshots"`
	CacheDir        string `toml:"cache_dir" env:"FBSWEEP_CACHE_DIR"` // Empty uses the user cache directory
}

type NotifyConfig struct {
	Provider       string `toml:"provider" env:"FBSWEEP_NOTIFY_PROVIDER"`
	TelegramToken  string `toml:"telegram_token" env:"FBSWEEP_TELEGRAM_TOKEN"`
	TelegramChatID int64  `toml:"telegram_chat_id" env:"FBSWEEP_TELEGRAM_CHAT_ID"`
	SMTPHost       string `toml:"smtp_host"`
	SMTPPort       int    `toml:"smtp_port"`
	SMTPUser       string `toml:"smtp_user"`
	SMTPPass       string `toml:"smtp_pass" env:"FBSWEEP_SMTP_PASS"`
	FromAddr       string `toml:"from_address"`
	ToAddr         string `toml:"to_address"`
	MaxPosts       int    `toml:"max_posts"`
}

type ScheduleConfig struct {
	Cron     string `toml:"cron" env:"FBSWEEP_CRON"`
	Timezone string `toml:"timezone"`
}

type LogConfig struct {
	Level  string `toml:"level" env:"FBSWEEP_LOG_LEVEL"`
	Format string `toml:"format" env:"FBSWEEP_LOG_FORMAT"`
	File   string `toml:"file"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	dir, err := ConfigDir()
	if err != nil {
		dir = "."
	}
	return &Config{
		Version: 1,
		Search: SearchConfig{
			Query:          "iso web designer",
			ScrollBudget:   6,
			Stabilize:      true,
			Strategy:       StrategyAnchor,
			ScrollStep:     3000,
			ScrollDelayMS:  1500,
			SettleDelayMS:  3000,
			HoverTimeoutMS: 3000,
			SwitchToAllTab: true,
		},
		Auth: AuthConfig{
			CredentialPath: filepath.Join(dir, "cookies.json"),
			KeyStorePath:   filepath.Join(dir, "service_account.json"),
			KeyField:       "openai_key",
		},
		Browser: BrowserConfig{
			Headless: true,
		},
		Vision: VisionConfig{
			Provider:    "openai",
			BatchSize:   4,
			Concurrency: 1,
			MaxRetries:  2,
		},
		Store: StoreConfig{
			Path: filepath.Join(dir, "fbsweep.db"),
		},
		Notify: NotifyConfig{
			SMTPPort: 587,
			MaxPosts: 20,
		},
		Schedule: ScheduleConfig{
			Cron:     "0 */2 * * *",
			Timezone: "Local",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// ConfigDir returns the platform-appropriate config directory
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, appName), nil
}

// ConfigPath returns the full path to the config file
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// CacheDir returns the platform-appropriate cache directory
func CacheDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, appName), nil
}

// Load reads config from path (the default location when empty), then applies
// FBSWEEP_* environment overrides. A missing file is created with defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := Default()
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := cfg.Save(path); err != nil {
			return nil, fmt.Errorf("failed to write default config: %w", err)
		}
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
		return cfg, nil
	}

	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes config to path
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}

// Validate checks settings that would make a run meaningless.
func (c *Config) Validate() error {
	if c.Search.Query == "" {
		return fmt.Errorf("%w: search.query is empty", ErrInvalid)
	}
	if c.Search.ScrollBudget < 1 {
		return fmt.Errorf("%w: search.scroll_budget must be at least 1, got %d", ErrInvalid, c.Search.ScrollBudget)
	}
	switch c.Search.Strategy {
	case StrategyAnchor, StrategyStructural, StrategyVision:
	default:
		return fmt.Errorf("%w: unknown search.strategy %q", ErrInvalid, c.Search.Strategy)
	}
	if c.Search.Strategy == StrategyVision {
		switch c.Vision.Provider {
		case "openai", "anthropic":
		default:
			return fmt.Errorf("%w: unknown vision.provider %q", ErrInvalid, c.Vision.Provider)
		}
		if c.Vision.BatchSize < 1 {
			return fmt.Errorf("%w: vision.batch_size must be at least 1", ErrInvalid)
		}
	}
	switch c.Notify.Provider {
	case "", "telegram", "smtp":
	default:
		return fmt.Errorf("%w: unknown notify.provider %q", ErrInvalid, c.Notify.Provider)
	}
	if c.Auth.CredentialPath == "" {
		return fmt.Errorf("%w: auth.credential_path is empty", ErrInvalid)
	}
	return nil
}

func (s SearchConfig) ScrollDelay() time.Duration {
	return time.Duration(s.ScrollDelayMS) * time.Millisecond
}

func (s SearchConfig) SettleDelay() time.Duration {
	return time.Duration(s.SettleDelayMS) * time.Millisecond
}

func (s SearchConfig) HoverTimeout() time.Duration {
	return time.Duration(s.HoverTimeoutMS) * time.Millisecond
}
