package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment variable read by LoadFromEnv.
const EnvPrefix = "CLIPHARVEST_"

// Config holds all configuration options for clipharvest
type Config struct {
	// Data file locations
	Data DataConfig `yaml:"data" json:"data"`

	// Scroll harvesting bounds
	Harvest HarvestConfig `yaml:"harvest" json:"harvest"`

	// Human-like pacing delays
	Pacing PacingConfig `yaml:"pacing" json:"pacing"`

	// Browser session
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Metadata sources
	YouTube YouTubeConfig `yaml:"youtube" json:"youtube"`
	TikTok  TikTokConfig  `yaml:"tiktok" json:"tiktok"`

	// Label classification pass
	Classifier ClassifierConfig `yaml:"classifier" json:"classifier"`

	// Optional cross-process run lock
	Lock LockConfig `yaml:"lock" json:"lock"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// DataConfig holds the on-disk layout
type DataConfig struct {
	Root         string   `yaml:"root" json:"root"`
	RegistryFile string   `yaml:"registry_file" json:"registry_file"`
	LedgerFile   string   `yaml:"ledger_file" json:"ledger_file"`
	Countries    []string `yaml:"countries" json:"countries"`
}

// HarvestConfig bounds the scroll harvester
type HarvestConfig struct {
	TargetCount       int `yaml:"target_count" json:"target_count"`
	MaxScrollAttempts int `yaml:"max_scroll_attempts" json:"max_scroll_attempts"`
	// Stagnation thresholds per platform; 0 means the platform default.
	TikTokStagnation  int `yaml:"tiktok_stagnation" json:"tiktok_stagnation"`
	YouTubeStagnation int `yaml:"youtube_stagnation" json:"youtube_stagnation"`
}

// PacingConfig holds the delay distributions used while driving the browser
type PacingConfig struct {
	Enabled    bool          `yaml:"enabled" json:"enabled"`
	StepSpeed  int           `yaml:"step_speed" json:"step_speed"`
	StepMin    time.Duration `yaml:"step_min" json:"step_min"`
	StepMax    time.Duration `yaml:"step_max" json:"step_max"`
	SettleMin  time.Duration `yaml:"settle_min" json:"settle_min"`
	SettleMax  time.Duration `yaml:"settle_max" json:"settle_max"`
	RestEvery  int           `yaml:"rest_every" json:"rest_every"`
	RestMin    time.Duration `yaml:"rest_min" json:"rest_min"`
	RestMax    time.Duration `yaml:"rest_max" json:"rest_max"`
	VisitMin   time.Duration `yaml:"visit_min" json:"visit_min"`
	VisitMax   time.Duration `yaml:"visit_max" json:"visit_max"`
	CaptchaFor time.Duration `yaml:"captcha_grace" json:"captcha_grace"`
}

// BrowserConfig holds browser launch settings
type BrowserConfig struct {
	Bin             string        `yaml:"bin" json:"bin"`
	Headless        bool          `yaml:"headless" json:"headless"`
	UserDataDir     string        `yaml:"user_data_dir" json:"user_data_dir"`
	CookiesFile     string        `yaml:"cookies_file" json:"cookies_file"`
	Zoom            float64       `yaml:"zoom" json:"zoom"`
	NavigateTimeout time.Duration `yaml:"navigate_timeout" json:"navigate_timeout"`
}

// YouTubeConfig holds the Data API settings. The key is only checked when a
// batch fetch actually runs.
type YouTubeConfig struct {
	APIKey            string        `yaml:"api_key" json:"-"`
	BaseURL           string        `yaml:"base_url" json:"base_url"`
	BatchSize         int           `yaml:"batch_size" json:"batch_size"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
}

// TikTokConfig holds the per-item session settings
type TikTokConfig struct {
	MSToken       string        `yaml:"ms_token" json:"-"`
	DetailTimeout time.Duration `yaml:"detail_timeout" json:"detail_timeout"`
}

// ClassifierConfig holds label pass settings
type ClassifierConfig struct {
	WaitTimeout   time.Duration `yaml:"wait_timeout" json:"wait_timeout"`
	ProgressEvery int           `yaml:"progress_every" json:"progress_every"`
}

// LockConfig configures the Redis run lock. An empty Addr disables locking.
type LockConfig struct {
	Addr     string        `yaml:"addr" json:"addr"`
	Password string        `yaml:"password" json:"-"`
	DB       int           `yaml:"db" json:"db"`
	TTL      time.Duration `yaml:"ttl" json:"ttl"`
	Key      string        `yaml:"key" json:"key"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
	JSON  bool   `yaml:"json" json:"json"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			Root:         "./data",
			RegistryFile: "hashtag_set.json",
			LedgerFile:   "invalid_urls.json",
			Countries:    []string{"NL", "US", "UK"},
		},
		Harvest: HarvestConfig{
			TargetCount:       250,
			MaxScrollAttempts: 100,
		},
		Pacing: PacingConfig{
			Enabled:    true,
			StepSpeed:  10,
			StepMin:    20 * time.Millisecond,
			StepMax:    100 * time.Millisecond,
			SettleMin:  2 * time.Second,
			SettleMax:  4 * time.Second,
			RestEvery:  5,
			RestMin:    5 * time.Second,
			RestMax:    8 * time.Second,
			VisitMin:   1 * time.Second,
			VisitMax:   3 * time.Second,
			CaptchaFor: 30 * time.Second,
		},
		Browser: BrowserConfig{
			Headless:        false,
			Zoom:            0.5,
			NavigateTimeout: 60 * time.Second,
		},
		YouTube: YouTubeConfig{
			BaseURL:           "https://www.googleapis.com/youtube/v3",
			BatchSize:         50,
			RequestsPerMinute: 60,
			Timeout:           30 * time.Second,
		},
		TikTok: TikTokConfig{
			DetailTimeout: 30 * time.Second,
		},
		Classifier: ClassifierConfig{
			WaitTimeout:   20 * time.Second,
			ProgressEvery: 50,
		},
		Lock: LockConfig{
			TTL: 6 * time.Hour,
			Key: "clipharvest:lock",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// RegistryPath returns the hashtag registry file path.
func (c *Config) RegistryPath() string {
	return resolve(c.Data.Root, c.Data.RegistryFile)
}

// LedgerPath returns the invalid-url ledger file path.
func (c *Config) LedgerPath() string {
	return resolve(c.Data.Root, c.Data.LedgerFile)
}

func resolve(root, name string) string {
	if filepath.IsAbs(name) || strings.HasPrefix(name, "."+string(filepath.Separator)) {
		return name
	}
	return filepath.Join(root, name)
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := env("DATA_DIR"); v != "" {
		c.Data.Root = v
	}
	if v := env("COUNTRIES"); v != "" {
		c.Data.Countries = splitList(v)
	}
	if v := env("TARGET_COUNT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sTARGET_COUNT: %w", EnvPrefix, err))
		} else {
			c.Harvest.TargetCount = n
		}
	}
	if v := env("MAX_SCROLL_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sMAX_SCROLL_ATTEMPTS: %w", EnvPrefix, err))
		} else {
			c.Harvest.MaxScrollAttempts = n
		}
	}
	if v := env("PACING"); v != "" {
		c.Pacing.Enabled = parseBool(v)
	}
	if v := env("HEADLESS"); v != "" {
		c.Browser.Headless = parseBool(v)
	}
	if v := env("BROWSER_BIN"); v != "" {
		c.Browser.Bin = v
	}
	if v := env("COOKIES_FILE"); v != "" {
		c.Browser.CookiesFile = v
	}

	// Credentials keep their historical unprefixed names as a fallback.
	if v := firstNonEmpty(env("YOUTUBE_API_KEY"), os.Getenv("YOUTUBE_API_KEY"), os.Getenv("API_KEY")); v != "" {
		c.YouTube.APIKey = v
	}
	if v := firstNonEmpty(env("TIKTOK_MS_TOKEN"), os.Getenv("ms_token")); v != "" {
		c.TikTok.MSToken = v
	}

	if v := env("REDIS_ADDR"); v != "" {
		c.Lock.Addr = v
	}
	if v := env("REDIS_PASSWORD"); v != "" {
		c.Lock.Password = v
	}
	if v := env("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := env("LOG_FILE"); v != "" {
		c.Logging.File = v
	}

	return errors.Join(errs...)
}

func env(name string) string {
	return os.Getenv(EnvPrefix + name)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".clipharvest.yaml",
		".clipharvest.yml",
		filepath.Join(home, ".config", "clipharvest", "config.yaml"),
		filepath.Join(home, ".config", "clipharvest", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Data.Root == "" {
		errs = append(errs, errors.New("data root directory is required"))
	}
	if len(c.Data.Countries) == 0 {
		errs = append(errs, errors.New("at least one country is required"))
	}

	if c.Harvest.TargetCount <= 0 {
		errs = append(errs, errors.New("target count must be positive"))
	}
	if c.Harvest.MaxScrollAttempts <= 0 {
		errs = append(errs, errors.New("max scroll attempts must be positive"))
	}
	if c.Harvest.TikTokStagnation < 0 || c.Harvest.YouTubeStagnation < 0 {
		errs = append(errs, errors.New("stagnation thresholds cannot be negative"))
	}

	if c.Pacing.StepMin > c.Pacing.StepMax ||
		c.Pacing.SettleMin > c.Pacing.SettleMax ||
		c.Pacing.RestMin > c.Pacing.RestMax ||
		c.Pacing.VisitMin > c.Pacing.VisitMax {
		errs = append(errs, errors.New("pacing minimums must not exceed maximums"))
	}
	if c.Pacing.StepSpeed <= 0 {
		errs = append(errs, errors.New("step speed must be positive"))
	}

	if c.Browser.Zoom <= 0 || c.Browser.Zoom > 1 {
		errs = append(errs, errors.New("browser zoom must be in (0, 1]"))
	}

	if c.YouTube.BatchSize <= 0 || c.YouTube.BatchSize > 50 {
		errs = append(errs, errors.New("youtube batch size must be between 1 and 50"))
	}
	if c.YouTube.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("youtube requests per minute must be positive"))
	}

	if c.Classifier.WaitTimeout <= 0 {
		errs = append(errs, errors.New("classifier wait timeout must be positive"))
	}
	if c.Classifier.ProgressEvery <= 0 {
		errs = append(errs, errors.New("classifier progress cadence must be positive"))
	}

	if c.Lock.Addr != "" && c.Lock.TTL <= 0 {
		errs = append(errs, errors.New("lock ttl must be positive when a redis address is set"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if dataDir, ok := flags["data-dir"].(string); ok && dataDir != "" {
		c.Data.Root = dataDir
	}
	if target, ok := flags["target"].(int); ok && target > 0 {
		c.Harvest.TargetCount = target
	}
	if attempts, ok := flags["max-scrolls"].(int); ok && attempts > 0 {
		c.Harvest.MaxScrollAttempts = attempts
	}
	if headless, ok := flags["headless"].(bool); ok && headless {
		c.Browser.Headless = true
	}
	if noPacing, ok := flags["no-pacing"].(bool); ok && noPacing {
		c.Pacing.Enabled = false
	}
	if cookies, ok := flags["cookies"].(string); ok && cookies != "" {
		c.Browser.CookiesFile = cookies
	}
	if apiKey, ok := flags["api-key"].(string); ok && apiKey != "" {
		c.YouTube.APIKey = apiKey
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Missing .env files are fine
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".clipharvest.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
