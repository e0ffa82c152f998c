package usecase

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mikequentel/sheetposter/internal/caption"
	"github.com/mikequentel/sheetposter/internal/config"
	"github.com/mikequentel/sheetposter/internal/media"
	"github.com/mikequentel/sheetposter/internal/model"
	"github.com/mikequentel/sheetposter/internal/rowstore"
)

// MaxMedia is the platform's per-post attachment limit.
const MaxMedia = 4

const reasonMediaLimit = "media limit reached"

type RowLister interface {
	ListRows(ctx context.Context) ([]model.ContentRow, error)
}

type MediaFetcher interface {
	Fetch(ctx context.Context, scratch *media.Scratch, url string) (*media.Staged, error)
}

type Publisher interface {
	UploadMedia(ctx context.Context, path string) (string, error)
	CreatePost(ctx context.Context, text string, mediaIDs []string) (string, error)
}

type PublishService struct {
	creds       config.Credentials
	rows        RowLister
	fetcher     MediaFetcher
	platform    Publisher
	scratchRoot string

	checkCreds func() error
	pick       func(n int) int
	newID      func() string
}

type UploadedMedia struct {
	URL     string
	MediaID string
}

// SkippedMedia records one image left out of the post. Code is ErrorFetch
// for download failures, ErrorUpstream for rejected uploads and
// ErrorContent for images beyond MaxMedia.
type SkippedMedia struct {
	URL    string
	Code   ErrorCode
	Reason string
}

type PublishResult struct {
	AttemptID string
	Row       model.ContentRow
	Caption   string
	Uploaded  []UploadedMedia
	Skipped   []SkippedMedia
	PostID    string
}

type PublishOption func(*PublishService)

// WithPicker replaces the uniform random row choice. pick must return a
// value in [0, n).
func WithPicker(pick func(n int) int) PublishOption {
	return func(s *PublishService) {
		if pick != nil {
			s.pick = pick
		}
	}
}

// WithDryRun only requires the row-store credential, for use with a
// publisher that never reaches the platform.
func WithDryRun() PublishOption {
	return func(s *PublishService) {
		s.checkCreds = func() error {
			if missing := s.creds.MissingStore(); len(missing) > 0 {
				return &config.MissingError{Vars: missing}
			}
			return nil
		}
	}
}

// WithScratchRoot sets where per-attempt scratch directories are created.
func WithScratchRoot(dir string) PublishOption {
	return func(s *PublishService) { s.scratchRoot = dir }
}

func NewPublishService(creds config.Credentials, rows RowLister, fetcher MediaFetcher, platform Publisher, opts ...PublishOption) (*PublishService, error) {
	if rows == nil {
		return nil, errors.New("usecase: row store must not be nil")
	}
	if fetcher == nil {
		return nil, errors.New("usecase: media fetcher must not be nil")
	}
	if platform == nil {
		return nil, errors.New("usecase: publisher must not be nil")
	}
	s := &PublishService{
		creds:    creds,
		rows:     rows,
		fetcher:  fetcher,
		platform: platform,
		pick:     rand.IntN,
		newID:    uuid.NewString,
	}
	s.checkCreds = s.creds.ValidateForPublish
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Publish posts one randomly chosen row with every image that could be
// fetched and uploaded. The post is created only if at least one upload
// succeeded.
func (s *PublishService) Publish(ctx context.Context) (PublishResult, error) {
	if err := s.checkCreds(); err != nil {
		return PublishResult{}, newError(ErrorConfig, "missing_credentials", err)
	}

	rows, err := s.rows.ListRows(ctx)
	if err != nil {
		return PublishResult{}, storeError("list_rows_error", err)
	}
	if len(rows) == 0 {
		return PublishResult{}, newError(ErrorStore, "empty_store", rowstore.ErrNoRows)
	}

	res := PublishResult{AttemptID: s.newID(), Row: rows[s.pick(len(rows))]}
	logger := log.With().Str("attemptId", res.AttemptID).Int("row", res.Row.Row).Logger()

	text := strings.TrimSpace(res.Row.Caption)
	if text == "" {
		return res, newError(ErrorContent, "empty_caption", nil)
	}
	if len(res.Row.ImageURLs) == 0 {
		return res, newError(ErrorContent, "no_image_urls", nil)
	}
	res.Caption = caption.Fit(text, caption.MaxWeight)

	scratch, err := media.NewScratch(s.scratchRoot)
	if err != nil {
		return res, newError(ErrorInternal, "scratch_error", err)
	}
	defer scratch.Close()

	start := time.Now()
	for i, u := range res.Row.ImageURLs {
		if len(res.Uploaded) == MaxMedia {
			for _, rest := range res.Row.ImageURLs[i:] {
				res.Skipped = append(res.Skipped, SkippedMedia{URL: rest, Code: ErrorContent, Reason: reasonMediaLimit})
			}
			logger.Warn().Int("dropped", len(res.Row.ImageURLs)-i).Msg("Media limit reached, remaining images skipped")
			break
		}

		staged, err := s.fetcher.Fetch(ctx, scratch, u)
		if err != nil {
			logger.Warn().Err(err).Str("url", u).Msg("Skipping image: fetch failed")
			res.Skipped = append(res.Skipped, SkippedMedia{URL: u, Code: ErrorFetch, Reason: err.Error()})
			continue
		}
		id, err := s.platform.UploadMedia(ctx, staged.Path)
		if err != nil {
			logger.Warn().Err(err).Str("url", u).Msg("Skipping image: upload failed")
			res.Skipped = append(res.Skipped, SkippedMedia{URL: u, Code: ErrorUpstream, Reason: err.Error()})
			continue
		}
		res.Uploaded = append(res.Uploaded, UploadedMedia{URL: u, MediaID: id})
	}

	if len(res.Uploaded) == 0 {
		logger.Error().Int("skipped", len(res.Skipped)).Msg("No image could be fetched and uploaded")
		return res, newError(ErrorContent, "no_valid_images", nil)
	}
	if err := ctx.Err(); err != nil {
		return res, newError(ErrorInternal, "attempt_cancelled", err)
	}

	ids := make([]string, len(res.Uploaded))
	for i, m := range res.Uploaded {
		ids[i] = m.MediaID
	}
	postID, err := s.platform.CreatePost(ctx, res.Caption, ids)
	if err != nil {
		return res, newError(ErrorUpstream, "publish_error", err)
	}
	res.PostID = postID

	logger.Info().
		Str("postId", postID).
		Int("uploaded", len(res.Uploaded)).
		Int("skipped", len(res.Skipped)).
		Dur("duration", time.Since(start)).
		Msg("Row published")
	return res, nil
}
