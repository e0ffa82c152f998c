package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mikequentel/sheetposter/internal/config"
	"github.com/mikequentel/sheetposter/internal/model"
)

type RowAppender interface {
	AppendRow(ctx context.Context, imageURLs, caption string) error
}

type ContentReader interface {
	GetPost(ctx context.Context, id string) (*model.SourcePostResp, error)
}

type IngestService struct {
	creds   config.Credentials
	rows    RowAppender
	content ContentReader
}

type IngestInput struct {
	SourceURL string
	Caption   string // replaces the source text when non-empty
}

type IngestResult struct {
	ID         string
	Caption    string
	ImageField string
}

// NewIngestService accepts a nil content reader; Ingest then reports a
// configuration error.
func NewIngestService(creds config.Credentials, rows RowAppender, content ContentReader) (*IngestService, error) {
	if rows == nil {
		return nil, errors.New("usecase: row store must not be nil")
	}
	return &IngestService{creds: creds, rows: rows, content: content}, nil
}

// Ingest copies an existing public post into the row store.
func (s *IngestService) Ingest(ctx context.Context, in IngestInput) (IngestResult, error) {
	sourceURL := strings.TrimSpace(in.SourceURL)
	if sourceURL == "" {
		return IngestResult{}, newError(ErrorValidation, "missing_url", nil)
	}
	id, err := ExtractID(sourceURL)
	if err != nil {
		return IngestResult{}, newError(ErrorValidation, "invalid_url", err)
	}

	if s.content == nil {
		return IngestResult{}, newError(ErrorConfig, "content_api_not_configured", nil)
	}
	if missing := s.creds.MissingStore(); len(missing) > 0 {
		return IngestResult{}, newError(ErrorConfig, "missing_credentials", &config.MissingError{Vars: missing})
	}

	post, err := s.content.GetPost(ctx, id)
	if err != nil {
		return IngestResult{}, newError(ErrorUpstream, "content_fetch_error", err)
	}
	if !post.Success {
		return IngestResult{}, newError(ErrorUpstream, "content_unsuccessful",
			fmt.Errorf("content API reported failure for %s", id))
	}

	var images []string
	for _, u := range post.Tweet.Images {
		if u = strings.TrimSpace(u); u != "" {
			images = append(images, u)
		}
	}
	if len(images) == 0 {
		return IngestResult{}, newError(ErrorUpstream, "content_without_images",
			fmt.Errorf("source post %s has no images", id))
	}

	// Source text keeps its markup and entities; only outer whitespace goes.
	text := strings.TrimSpace(in.Caption)
	if text == "" {
		text = strings.TrimSpace(post.Tweet.Text)
	}
	res := IngestResult{
		ID:         id,
		Caption:    text,
		ImageField: model.JoinImageURLs(images),
	}

	if err := s.rows.AppendRow(ctx, res.ImageField, res.Caption); err != nil {
		return res, storeError("append_row_error", err)
	}
	log.Info().Str("sourceId", id).Int("images", len(images)).Msg("Source post ingested")
	return res, nil
}

// ExtractID returns the last path segment of a source URL, ignoring any
// query or fragment and a trailing slash.
func ExtractID(sourceURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(sourceURL))
	if err != nil {
		return "", fmt.Errorf("parse source URL: %w", err)
	}
	p := strings.TrimRight(u.Path, "/")
	if p == "" {
		return "", fmt.Errorf("no identifier in %q", sourceURL)
	}
	return path.Base(p), nil
}
