// Package media downloads remote images into a scoped scratch directory so
// they can be uploaded from disk.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/webp"
)

const (
	DefaultMaxBytes = 5 << 20
	defaultTimeout  = 30 * time.Second
)

var (
	ErrTooLarge    = errors.New("body exceeds size limit")
	ErrNotAnImage  = errors.New("body is not a supported image")
	ErrUnsupported = errors.New("unsupported URL scheme")
)

// formats the platform accepts, with their staged extension and MIME type.
var formats = map[string]struct{ ext, mime string }{
	"jpeg": {".jpg", "image/jpeg"},
	"png":  {".png", "image/png"},
	"gif":  {".gif", "image/gif"},
	"webp": {".webp", "image/webp"},
}

// FetchError reports why one URL could not be staged.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Staged is one downloaded image on disk.
type Staged struct {
	URL      string
	Path     string
	Format   string
	MIMEType string
	Size     int64
	Width    int
	Height   int
}

type Fetcher struct {
	client   *http.Client
	maxBytes int64
}

type Option func(*Fetcher)

func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.client.Timeout = d
		}
	}
}

func WithMaxBytes(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:   &http.Client{Timeout: defaultTimeout},
		maxBytes: DefaultMaxBytes,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads rawURL and stages it inside scratch. Every failure is a
// *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, scratch *Scratch, rawURL string) (*Staged, error) {
	fail := func(err error) (*Staged, error) {
		return nil, &FetchError{URL: rawURL, Err: err}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fail(err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fail(fmt.Errorf("%w: %q", ErrUnsupported, u.Scheme))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fail(err)
	}
	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fail(fmt.Errorf("HTTP %d", resp.StatusCode))
	}
	if resp.ContentLength > f.maxBytes {
		return fail(fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, resp.ContentLength, f.maxBytes))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return fail(fmt.Errorf("read body: %w", err))
	}
	if int64(len(body)) > f.maxBytes {
		return fail(fmt.Errorf("%w: more than %d bytes", ErrTooLarge, f.maxBytes))
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(body))
	if err != nil {
		return fail(fmt.Errorf("%w: %v", ErrNotAnImage, err))
	}
	kind, ok := formats[format]
	if !ok {
		return fail(fmt.Errorf("%w: %s", ErrNotAnImage, format))
	}

	path, err := stage(scratch, kind.ext, body)
	if err != nil {
		return fail(err)
	}

	log.Debug().
		Str("url", rawURL).
		Str("format", format).
		Int("bytes", len(body)).
		Dur("duration", time.Since(start)).
		Msg("Media staged")

	return &Staged{
		URL:      rawURL,
		Path:     path,
		Format:   format,
		MIMEType: kind.mime,
		Size:     int64(len(body)),
		Width:    cfg.Width,
		Height:   cfg.Height,
	}, nil
}

// stage writes body under a unique name so repeated URLs never collide.
func stage(scratch *Scratch, ext string, body []byte) (string, error) {
	f, err := os.CreateTemp(scratch.Dir(), fmt.Sprintf("%02d-*%s", scratch.next(), ext))
	if err != nil {
		return "", fmt.Errorf("create staged file: %w", err)
	}
	if _, err := f.Write(body); err != nil {
		f.Close()
		return "", fmt.Errorf("write staged file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close staged file: %w", err)
	}
	return f.Name(), nil
}
