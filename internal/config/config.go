package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/encoding/ini"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var ErrInvalidConfig = errors.New("invalid config")

const DefaultPath = "config/config.ini"

// Keys of the [DEFAULT] section and their environment overrides.
const (
	keyBotToken         = "default.bottoken"
	keyAdminID          = "default.adminid"
	keyFilesChannelID   = "default.fileschannelid"
	keyFilesChannelName = "default.fileschannelname"
	keyWebHookURL       = "default.webhookurl"
	keyListenAddr       = "default.listenaddr"
	keyDatabaseFilepath = "default.databasefilepath"
	keyDefaultSemester  = "default.defaultsemester"
	keyWorkers          = "default.workers"
	keyRequestTimeout   = "default.requesttimeout"
	keyHandlerTimeout   = "default.handlertimeout"
	keyDedupTTL         = "default.dedupttl"
	keyVerbose          = "default.verbose"
	keyTgBotEndpoint    = "default.tgbotendpoint"
)

var envs = map[string]string{
	keyBotToken:         "BOT_TOKEN",
	keyAdminID:          "ADMIN_ID",
	keyFilesChannelID:   "FILES_CHANNEL_ID",
	keyFilesChannelName: "FILES_CHANNEL_NAME",
	keyWebHookURL:       "WEBHOOK_URL",
	keyListenAddr:       "LISTEN_ADDR",
	keyDatabaseFilepath: "DATABASE_FILEPATH",
	keyDefaultSemester:  "DEFAULT_SEMESTER",
	keyWorkers:          "WORKERS",
	keyRequestTimeout:   "REQUEST_TIMEOUT",
	keyHandlerTimeout:   "HANDLER_TIMEOUT",
	keyDedupTTL:         "DEDUP_TTL",
	keyVerbose:          "VERBOSE",
	keyTgBotEndpoint:    "TG_BOT_ENDPOINT",
}

//nolint:govet // disable field aligment for better reading
type Config struct {
	Verbose          bool
	BotToken         string
	TgBotEndpoint    string
	AdminID          int64
	FilesChannelID   int64
	FilesChannelName string
	WebHookURL       string
	ListenAddr       string
	DatabaseFilepath string
	DefaultSemester  string
	Workers          int
	// Timeout of a single outbound call to the bot api.
	RequestTimeout time.Duration
	// Timeout of handling a single update.
	HandlerTimeout time.Duration
	// How long an admin upload is remembered to skip redelivered updates.
	DedupTTL time.Duration
}

// WebHookPath is a path of the public webhook url which is served locally.
func (c *Config) WebHookPath() string {
	u, err := url.Parse(c.WebHookURL)
	if err != nil || u.Path == "" {
		return "/"
	}
	return u.Path
}

// Read reads config from the ini file (if it exists), .env and environment variables.
// Environment variables take precedence.
func Read(path string) (*Config, error) {
	// .env is optional.
	_ = godotenv.Load()

	codecs := viper.NewCodecRegistry()
	if err := codecs.RegisterCodec("ini", ini.Codec{}); err != nil {
		return nil, fmt.Errorf("failed to register ini codec: %w", err)
	}
	v := viper.NewWithOptions(viper.WithCodecRegistry(codecs))
	v.SetDefault(keyListenAddr, "localhost:4219")
	v.SetDefault(keyDatabaseFilepath, "config/wattle.sqlite")
	v.SetDefault(keyDefaultSemester, "Sem 2 2018")
	v.SetDefault(keyWorkers, "10")
	v.SetDefault(keyRequestTimeout, "10s")
	v.SetDefault(keyHandlerTimeout, "30s")
	v.SetDefault(keyDedupTTL, "1h")
	for key, env := range envs {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s env: %w", env, err)
		}
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("ini")
			if err = v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %s: %w", err, ErrInvalidConfig)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	cfg := &Config{
		Verbose:          v.GetBool(keyVerbose),
		BotToken:         v.GetString(keyBotToken),
		TgBotEndpoint:    v.GetString(keyTgBotEndpoint),
		FilesChannelName: strings.TrimPrefix(v.GetString(keyFilesChannelName), "@"),
		WebHookURL:       v.GetString(keyWebHookURL),
		ListenAddr:       v.GetString(keyListenAddr),
		DatabaseFilepath: v.GetString(keyDatabaseFilepath),
		DefaultSemester:  v.GetString(keyDefaultSemester),
	}
	var err error
	if cfg.AdminID, err = getInt64(v, keyAdminID); err != nil {
		return nil, err
	}
	if cfg.FilesChannelID, err = getInt64(v, keyFilesChannelID); err != nil {
		return nil, err
	}
	if cfg.Workers, err = getInt(v, keyWorkers); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = getDuration(v, keyRequestTimeout); err != nil {
		return nil, err
	}
	if cfg.HandlerTimeout, err = getDuration(v, keyHandlerTimeout); err != nil {
		return nil, err
	}
	if cfg.DedupTTL, err = getDuration(v, keyDedupTTL); err != nil {
		return nil, err
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.BotToken == "":
		return fmt.Errorf("%s is required: %w", envs[keyBotToken], ErrInvalidConfig)
	case c.AdminID == 0:
		return fmt.Errorf("%s is required: %w", envs[keyAdminID], ErrInvalidConfig)
	case c.FilesChannelID == 0:
		return fmt.Errorf("%s is required: %w", envs[keyFilesChannelID], ErrInvalidConfig)
	case c.FilesChannelName == "":
		return fmt.Errorf("%s is required: %w", envs[keyFilesChannelName], ErrInvalidConfig)
	case c.WebHookURL == "":
		return fmt.Errorf("%s is required: %w", envs[keyWebHookURL], ErrInvalidConfig)
	case c.Workers <= 0:
		return fmt.Errorf("%s should be positive: %w", envs[keyWorkers], ErrInvalidConfig)
	case c.RequestTimeout <= 0 || c.HandlerTimeout <= 0:
		return fmt.Errorf("timeouts should be positive: %w", ErrInvalidConfig)
	// Dedup cache counts expiration in whole seconds, zero means forever.
	case c.DedupTTL < time.Second:
		return fmt.Errorf("%s should be at least 1s: %w", envs[keyDedupTTL], ErrInvalidConfig)
	}
	if _, err := url.ParseRequestURI(c.WebHookURL); err != nil {
		return fmt.Errorf("failed to parse %s: %s: %w", envs[keyWebHookURL], err, ErrInvalidConfig)
	}
	return nil
}

func getInt64(v *viper.Viper, key string) (int64, error) {
	raw := v.GetString(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s env: %w", envs[key], ErrInvalidConfig)
	}
	return n, nil
}

func getInt(v *viper.Viper, key string) (int, error) {
	n, err := getInt64(v, key)
	return int(n), err
}

func getDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s env: %w", envs[key], ErrInvalidConfig)
	}
	return d, nil
}
