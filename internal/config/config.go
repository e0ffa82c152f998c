// Package config loads process configuration from the environment.
//
// Secrets may be absent at load time: the publish workflow validates them per
// invocation so a misconfigured deployment answers with a config error instead
// of failing to boot.
package config

import (
	"cmp"
	"fmt"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

const (
	BackendSheets = "sheets"
	BackendSQLite = "sqlite"
)

type rawConfig struct {
	// Platform credentials
	ConsumerKey    string `long:"consumer-key" env:"TWITTER_CONSUMER_KEY" description:"OAuth1 consumer key"`
	ConsumerSecret string `long:"consumer-secret" env:"TWITTER_CONSUMER_SECRET" description:"OAuth1 consumer secret"`
	AccessToken    string `long:"access-token" env:"TWITTER_ACCESS_TOKEN" description:"OAuth1 access token"`
	AccessSecret   string `long:"access-secret" env:"TWITTER_ACCESS_TOKEN_SECRET" description:"OAuth1 access token secret"`
	TwitterAPIURL  string `long:"twitter-api-url" env:"TWITTER_API_URL" default:"https://api.twitter.com" description:"Base URL for the v2 posting API"`
	UploadAPIURL   string `long:"upload-api-url" env:"TWITTER_UPLOAD_URL" default:"https://upload.twitter.com" description:"Base URL for the v1.1 media upload API"`

	// Row store
	StoreBackend string `long:"store-backend" env:"STORE_BACKEND" default:"sheets" choice:"sheets" choice:"sqlite" description:"Row store backend"`
	SheetsJSON   string `long:"sheets-credentials" env:"GOOGLE_SHEETS_CREDENTIALS" description:"Google service-account credentials (JSON)"`
	SheetName    string `long:"sheet-name" env:"SHEET_NAME" default:"TwitterBotContent" description:"Spreadsheet title"`
	SheetID      string `long:"sheet-id" env:"SHEET_ID" description:"Spreadsheet ID; skips the title lookup when set"`
	Worksheet    string `long:"worksheet" env:"WORKSHEET" description:"Worksheet title (default: first sheet)"`
	SQLitePath   string `long:"sqlite-path" env:"SQLITE_PATH" default:"./content.sqlite" description:"SQLite database path"`

	// Content-read API
	ContentAPIURL string `long:"content-api-url" env:"CONTENT_API_URL" description:"Base URL of the content-read API"`

	// Transport
	MediaMaxBytes int64         `long:"media-max-bytes" env:"MEDIA_MAX_BYTES" default:"5242880" description:"Maximum bytes downloaded per image"`
	HTTPTimeout   time.Duration `long:"http-timeout" env:"HTTP_TIMEOUT" default:"30s" description:"Timeout for outbound HTTP calls"`
	ScratchDir    string        `long:"scratch-dir" env:"SCRATCH_DIR" description:"Directory for staged media (default: OS temp dir)"`

	// Application
	Port           string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	LogLevel       string `long:"log-level" env:"LOG_LEVEL" default:"info" description:"trace, debug, info, warn or error"`
	LogFormat      string `long:"log-format" env:"LOG_FORMAT" default:"console" description:"console or json"`
	SSMParamPrefix string `long:"ssm-param-prefix" env:"SSM_PARAM_PREFIX" description:"Load missing secrets from SSM under this prefix"`
	DryRun         bool   `long:"dry-run" env:"DRY_RUN" description:"Fetch media but do not upload or post"`
}

type Config struct {
	Credentials Credentials

	TwitterAPIURL string
	UploadAPIURL  string

	SheetName string
	SheetID   string
	Worksheet string

	ContentAPIURL string

	MediaMaxBytes int64
	HTTPTimeout   time.Duration
	ScratchDir    string

	Port           string
	LogLevel       string
	LogFormat      string
	SSMParamPrefix string
	DryRun         bool
	Version        string
}

// Load reads configuration from environment variables, applying defaults.
// Command-line flags belong to the CLI layer and are not parsed here.
func Load() (*Config, error) {
	var raw rawConfig

	parser := flags.NewParser(&raw, flags.IgnoreUnknown)
	if _, err := parser.ParseArgs([]string{}); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Config{
		Credentials: Credentials{
			ConsumerKey:    strings.TrimSpace(raw.ConsumerKey),
			ConsumerSecret: strings.TrimSpace(raw.ConsumerSecret),
			AccessToken:    strings.TrimSpace(raw.AccessToken),
			AccessSecret:   strings.TrimSpace(raw.AccessSecret),
			StoreBackend:   strings.ToLower(strings.TrimSpace(raw.StoreBackend)),
			SheetsJSON:     strings.TrimSpace(raw.SheetsJSON),
			SQLitePath:     strings.TrimSpace(raw.SQLitePath),
		},
		TwitterAPIURL:  strings.TrimRight(raw.TwitterAPIURL, "/"),
		UploadAPIURL:   strings.TrimRight(raw.UploadAPIURL, "/"),
		SheetName:      strings.TrimSpace(raw.SheetName),
		SheetID:        strings.TrimSpace(raw.SheetID),
		Worksheet:      strings.TrimSpace(raw.Worksheet),
		ContentAPIURL:  strings.TrimRight(strings.TrimSpace(raw.ContentAPIURL), "/"),
		MediaMaxBytes:  raw.MediaMaxBytes,
		HTTPTimeout:    raw.HTTPTimeout,
		ScratchDir:     raw.ScratchDir,
		Port:           raw.Port,
		LogLevel:       raw.LogLevel,
		LogFormat:      raw.LogFormat,
		SSMParamPrefix: strings.TrimRight(strings.TrimSpace(raw.SSMParamPrefix), "/"),
		DryRun:         raw.DryRun,
		Version:        cmp.Or(Version, "unknown"),
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}
	return cfg, nil
}
