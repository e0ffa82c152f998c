// Package app wires configuration into the row store, clients and
// workflows shared by every entry point.
package app

import (
	"cmp"
	"context"
	"fmt"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/mikequentel/sheetposter/internal/api"
	"github.com/mikequentel/sheetposter/internal/config"
	"github.com/mikequentel/sheetposter/internal/contentapi"
	"github.com/mikequentel/sheetposter/internal/media"
	"github.com/mikequentel/sheetposter/internal/rowstore"
	"github.com/mikequentel/sheetposter/internal/rowstore/sheets"
	"github.com/mikequentel/sheetposter/internal/rowstore/sqlite"
	"github.com/mikequentel/sheetposter/internal/twitter"
	"github.com/mikequentel/sheetposter/internal/usecase"
)

type App struct {
	Config  *config.Config
	Store   rowstore.Store
	Twitter *twitter.Client
	Publish *usecase.PublishService
	Ingest  *usecase.IngestService

	closers []io.Closer
}

// New builds every dependency from cfg. Missing secrets do not fail here;
// the workflows report them per call.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}
	a.Store = a.openStore(ctx)

	a.Twitter = twitter.NewClient(twitter.Credentials{
		ConsumerKey:    cfg.Credentials.ConsumerKey,
		ConsumerSecret: cfg.Credentials.ConsumerSecret,
		AccessToken:    cfg.Credentials.AccessToken,
		AccessSecret:   cfg.Credentials.AccessSecret,
	},
		twitter.WithAPIURL(cfg.TwitterAPIURL),
		twitter.WithUploadURL(cfg.UploadAPIURL),
		twitter.WithTimeout(cfg.HTTPTimeout),
	)

	fetcher := media.NewFetcher(
		media.WithTimeout(cfg.HTTPTimeout),
		media.WithMaxBytes(cfg.MediaMaxBytes),
	)

	var (
		platform usecase.Publisher = a.Twitter
		opts                       = []usecase.PublishOption{usecase.WithScratchRoot(cfg.ScratchDir)}
	)
	if cfg.DryRun {
		log.Warn().Msg("DRY RUN: nothing will be uploaded or posted")
		platform = &twitter.DryRun{}
		opts = append(opts, usecase.WithDryRun())
	}

	var err error
	a.Publish, err = usecase.NewPublishService(cfg.Credentials, a.Store, fetcher, platform, opts...)
	if err != nil {
		return nil, fmt.Errorf("publish service: %w", err)
	}

	var content usecase.ContentReader
	if cfg.ContentAPIURL != "" {
		c, err := contentapi.NewClient(cfg.ContentAPIURL, contentapi.WithTimeout(cfg.HTTPTimeout))
		if err != nil {
			return nil, fmt.Errorf("content API client: %w", err)
		}
		content = c
	} else {
		log.Warn().Msg("CONTENT_API_URL is not set; ingest is disabled")
	}
	a.Ingest, err = usecase.NewIngestService(cfg.Credentials, a.Store, content)
	if err != nil {
		return nil, fmt.Errorf("ingest service: %w", err)
	}
	return a, nil
}

func (a *App) openStore(ctx context.Context) rowstore.Store {
	creds := a.Config.Credentials
	switch creds.StoreBackend {
	case config.BackendSQLite:
		if creds.SQLitePath == "" {
			return rowstore.Unavailable{Err: &rowstore.ConfigError{Reason: "SQLITE_PATH is empty"}}
		}
		s, err := sqlite.Open(ctx, creds.SQLitePath)
		if err != nil {
			log.Error().Err(err).Str("path", creds.SQLitePath).Msg("SQLite row store unavailable")
			return rowstore.Unavailable{Err: err}
		}
		a.closers = append(a.closers, s)
		log.Info().Str("path", creds.SQLitePath).Msg("Using SQLite row store")
		return s
	default:
		log.Info().Str("sheet", cmp.Or(a.Config.SheetID, a.Config.SheetName)).Msg("Using Google Sheets row store")
		return sheets.New(sheets.Config{
			CredentialsJSON: creds.SheetsJSON,
			SpreadsheetID:   a.Config.SheetID,
			SpreadsheetName: a.Config.SheetName,
			Worksheet:       a.Config.Worksheet,
		})
	}
}

// Handler returns the HTTP engine serving both workflows.
func (a *App) Handler() *gin.Engine {
	return api.NewServer(api.NewHandler(a.Publish, a.Ingest, a.Config.Version))
}

func (a *App) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

