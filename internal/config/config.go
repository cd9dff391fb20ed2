package config

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"TrendSentinel/internal/model"
	"TrendSentinel/internal/pattern"
	"TrendSentinel/internal/strategy"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id" validate:"required_with=BotToken"`
	} `yaml:"telegram"`
	DataSource struct {
		Provider     string        `yaml:"provider" validate:"oneof=yahoo rest mock"`
		BaseURL      string        `yaml:"base_url" validate:"required_if=Provider rest"`
		APIKey       string        `yaml:"api_key"`
		RateLimit    float64       `yaml:"rate_limit" validate:"gte=0"`
		Retries      int           `yaml:"retries" validate:"min=1,max=10"`
		RetryBackoff time.Duration `yaml:"retry_backoff" validate:"gte=0"`
	} `yaml:"data_source"`
	Cache struct {
		RedisAddr     string        `yaml:"redis_addr"`
		RedisPassword string        `yaml:"redis_password"`
		RedisDB       int           `yaml:"redis_db" validate:"gte=0"`
		TTL           time.Duration `yaml:"ttl" validate:"gte=0"`
	} `yaml:"cache"`
	Scan struct {
		Profile      string                   `yaml:"profile" validate:"required"`
		ProfilesFile string                   `yaml:"profiles_file"`
		Symbols      []string                 `yaml:"symbols"`
		SymbolsFile  string                   `yaml:"symbols_file"`
		ETFs         []string                 `yaml:"etfs"`
		BatchSize    int                      `yaml:"batch_size" validate:"min=1,max=500"`
		DailyBars    int                      `yaml:"daily_bars" validate:"min=260"`
		ReportTop    int                      `yaml:"report_top" validate:"gte=0"`
		Pattern      pattern.Config           `yaml:"pattern"`
		Extension    strategy.ExtensionConfig `yaml:"extension"`
	} `yaml:"scan"`
	Schedule struct {
		ScanCron   string `yaml:"scan_cron" validate:"required"`
		RunOnStart bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath  string `yaml:"sqlite_path"`
		HistoryFile string `yaml:"history_file" validate:"required"`
	} `yaml:"database"`
	Log struct {
		Level  string `yaml:"level" validate:"omitempty,oneof=trace debug info warn error"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

var validate = validator.New()

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := base()
	cfg.applyDefaults()
	return cfg
}

// base seeds the nested parameter blocks so YAML only overrides what it sets.
func base() *Config {
	cfg := &Config{}
	cfg.Scan.Pattern = pattern.DefaultConfig()
	cfg.Scan.Extension = strategy.DefaultExtensionConfig()
	return cfg
}

// Load reads .env (if present) and config from a YAML file, then applies
// environment variable overrides and defaults. A missing YAML file is not an
// error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: load .env: %v", model.ErrConfiguration, err)
	}

	cfg := base()
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: parse %s: %v", model.ErrConfiguration, path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	str := map[string]*string{
		"TELEGRAM_BOT_TOKEN": &c.Telegram.BotToken,
		"TELEGRAM_CHAT_ID":   &c.Telegram.ChatID,
		"DATA_PROVIDER":      &c.DataSource.Provider,
		"REST_BASE_URL":      &c.DataSource.BaseURL,
		"REST_API_KEY":       &c.DataSource.APIKey,
		"HTTPS_PROXY":        &c.Proxy,
		"REDIS_ADDR":         &c.Cache.RedisAddr,
		"REDIS_PASSWORD":     &c.Cache.RedisPassword,
		"SCAN_PROFILE":       &c.Scan.Profile,
		"PROFILES_FILE":      &c.Scan.ProfilesFile,
		"SYMBOLS_FILE":       &c.Scan.SymbolsFile,
		"CRON_SCAN":          &c.Schedule.ScanCron,
		"SQLITE_PATH":        &c.Database.SQLitePath,
		"HISTORY_FILE":       &c.Database.HistoryFile,
		"LOG_LEVEL":          &c.Log.Level,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Scan.Symbols = splitSymbols(v)
	}
	if v := os.Getenv("ETFS"); v != "" {
		c.Scan.ETFs = splitSymbols(v)
	}
	if v, err := strconv.ParseBool(os.Getenv("RUN_ON_START")); err == nil {
		c.Schedule.RunOnStart = v
	}
	if v, err := strconv.ParseBool(os.Getenv("LOG_PRETTY")); err == nil {
		c.Log.Pretty = v
	}
}

func (c *Config) applyDefaults() {
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = "yahoo"
		if c.DataSource.BaseURL != "" {
			c.DataSource.Provider = "rest"
		}
	}
	if c.DataSource.Retries == 0 {
		c.DataSource.Retries = 2
	}
	if c.DataSource.RetryBackoff == 0 {
		c.DataSource.RetryBackoff = 2 * time.Second
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 12 * time.Hour
	}
	if c.Scan.Profile == "" {
		c.Scan.Profile = "enhanced"
	}
	if c.Scan.BatchSize == 0 {
		c.Scan.BatchSize = 50
	}
	if c.Scan.DailyBars == 0 {
		c.Scan.DailyBars = 300
	}
	if c.Scan.ReportTop == 0 {
		c.Scan.ReportTop = 25
	}
	if c.Schedule.ScanCron == "" {
		c.Schedule.ScanCron = "0 30 22 * * 1-5"
	}
	if c.Database.HistoryFile == "" {
		c.Database.HistoryFile = "data/score_history.json"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	c.Scan.ETFs = normalizeSymbols(nil, c.Scan.ETFs)
}

// Validate checks field constraints, the pattern parameters and the selected
// profile. Every failure wraps model.ErrConfiguration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", model.ErrConfiguration, err)
	}
	if err := c.Scan.Pattern.Check(); err != nil {
		return fmt.Errorf("%w: scan.pattern: %v", model.ErrConfiguration, err)
	}
	if len(c.Scan.Symbols) == 0 && c.Scan.SymbolsFile == "" {
		return fmt.Errorf("%w: scan.symbols or scan.symbols_file is required", model.ErrConfiguration)
	}
	if _, err := c.Profile(); err != nil {
		return err
	}
	return nil
}

// Profiles returns the built-in profiles overlaid with those in the profiles
// file. A file profile replaces a built-in one of the same name.
func (c *Config) Profiles() (map[string]strategy.Profile, error) {
	profiles := strategy.BuiltinProfiles()
	if c.Scan.ProfilesFile == "" {
		return profiles, nil
	}
	data, err := os.ReadFile(c.Scan.ProfilesFile)
	if err != nil {
		return nil, fmt.Errorf("%w: read profiles: %v", model.ErrConfiguration, err)
	}
	var file struct {
		Profiles []strategy.Profile `yaml:"profiles"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: parse profiles %s: %v", model.ErrConfiguration, c.Scan.ProfilesFile, err)
	}
	for _, p := range file.Profiles {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		profiles[p.Name] = p
	}
	return profiles, nil
}

// Profile returns the validated profile selected by scan.profile.
func (c *Config) Profile() (strategy.Profile, error) {
	profiles, err := c.Profiles()
	if err != nil {
		return strategy.Profile{}, err
	}
	p, ok := profiles[c.Scan.Profile]
	if !ok {
		return strategy.Profile{}, fmt.Errorf("%w: unknown profile %q", model.ErrConfiguration, c.Scan.Profile)
	}
	if err := p.Validate(); err != nil {
		return strategy.Profile{}, err
	}
	return p, nil
}

// Universe returns the inline symbols followed by those of the symbols file,
// upper-cased and de-duplicated in first-seen order. The file holds symbols
// separated by whitespace or commas; '#' starts a comment.
func (c *Config) Universe() ([]string, error) {
	out := normalizeSymbols(nil, c.Scan.Symbols)
	if c.Scan.SymbolsFile == "" {
		return out, nil
	}
	f, err := os.Open(c.Scan.SymbolsFile)
	if err != nil {
		return nil, fmt.Errorf("open symbols file: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line, _, _ := strings.Cut(sc.Text(), "#")
		out = normalizeSymbols(out, splitSymbols(line))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read symbols file: %w", err)
	}
	return out, nil
}

// normalizeSymbols appends the upper-cased symbols missing from dst.
func normalizeSymbols(dst, symbols []string) []string {
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" && !slices.Contains(dst, s) {
			dst = append(dst, s)
		}
	}
	return dst
}

func splitSymbols(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == ';'
	})
}
