package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mikequentel/sheetposter/internal/config"
	"github.com/mikequentel/sheetposter/internal/contentapi"
	"github.com/mikequentel/sheetposter/internal/model"
	"github.com/mikequentel/sheetposter/internal/rowstore"
)

type stubContent struct {
	resp  *model.SourcePostResp
	err   error
	calls []string
}

func (c *stubContent) GetPost(_ context.Context, id string) (*model.SourcePostResp, error) {
	c.calls = append(c.calls, id)
	if c.err != nil {
		return nil, c.err
	}
	return c.resp, nil
}

func helloPost() *stubContent {
	return &stubContent{resp: &model.SourcePostResp{
		Success: true,
		Tweet:   model.SourcePost{Text: "hello", Images: []string{"a.jpg", "b.jpg"}},
	}}
}

func newIngest(t *testing.T, store *stubStore, content ContentReader) *IngestService {
	t.Helper()
	svc, err := NewIngestService(fullCreds(), store, content)
	require.NoError(t, err)
	return svc
}

func TestIngest_AppendsSourcePost(t *testing.T) {
	store := &stubStore{}
	content := helloPost()

	res, err := newIngest(t, store, content).Ingest(context.Background(), IngestInput{
		SourceURL: "https://x.com/someone/status/123",
	})
	require.NoError(t, err)
	require.Equal(t, []string{"123"}, content.calls)
	require.Equal(t, IngestResult{ID: "123", Caption: "hello", ImageField: "a.jpg, b.jpg"}, res)
	require.Equal(t, [][2]string{{"a.jpg, b.jpg", "hello"}}, store.appended)
}

func TestIngest_CaptionOverride(t *testing.T) {
	store := &stubStore{}

	res, err := newIngest(t, store, helloPost()).Ingest(context.Background(), IngestInput{
		SourceURL: "https://x.com/someone/status/123",
		Caption:   "  custom ",
	})
	require.NoError(t, err)
	require.Equal(t, "custom", res.Caption)
	require.Equal(t, "custom", store.appended[0][1])
}

func TestIngest_WhitespaceOverrideKeepsSourceText(t *testing.T) {
	store := &stubStore{}

	res, err := newIngest(t, store, helloPost()).Ingest(context.Background(), IngestInput{
		SourceURL: "https://x.com/s/status/9",
		Caption:   "   ",
	})
	require.NoError(t, err)
	require.Equal(t, "hello", res.Caption)
}

func TestIngest_SourceTextStoredVerbatim(t *testing.T) {
	for _, text := range []string{
		"if x<y and y>z then x<z",
		"use <b>bold</b> tags",
		"fish &amp; chips",
		"line one\nline two",
	} {
		store := &stubStore{}
		content := &stubContent{resp: &model.SourcePostResp{
			Success: true,
			Tweet:   model.SourcePost{Text: "  " + text + "\n", Images: []string{"a.jpg"}},
		}}

		res, err := newIngest(t, store, content).Ingest(context.Background(), IngestInput{SourceURL: "https://x.com/s/status/9"})
		require.NoError(t, err)
		require.Equal(t, text, res.Caption)
		require.Equal(t, [][2]string{{"a.jpg", text}}, store.appended)
	}
}

func TestIngest_SourceWithoutImagesIsRejected(t *testing.T) {
	for _, images := range [][]string{nil, {"", "  "}} {
		store := &stubStore{}
		content := &stubContent{resp: &model.SourcePostResp{
			Success: true,
			Tweet:   model.SourcePost{Text: "t", Images: images},
		}}

		_, err := newIngest(t, store, content).Ingest(context.Background(), IngestInput{SourceURL: "https://x.com/s/status/9"})
		ucErr := requireCode(t, err, ErrorUpstream)
		require.Equal(t, "content_without_images", ucErr.Reason)
		require.Zero(t, store.appendCalls)
	}
}

func TestIngest_BlankImageEntriesDropped(t *testing.T) {
	store := &stubStore{}
	content := &stubContent{resp: &model.SourcePostResp{
		Success: true,
		Tweet:   model.SourcePost{Text: "t", Images: []string{" a.jpg ", "", "b.jpg"}},
	}}

	res, err := newIngest(t, store, content).Ingest(context.Background(), IngestInput{SourceURL: "https://x.com/s/status/9"})
	require.NoError(t, err)
	require.Equal(t, "a.jpg, b.jpg", res.ImageField)
}

func TestIngest_MissingURLIsValidation(t *testing.T) {
	store := &stubStore{}
	content := helloPost()

	_, err := newIngest(t, store, content).Ingest(context.Background(), IngestInput{})
	requireCode(t, err, ErrorValidation)
	require.Empty(t, content.calls)
	require.Zero(t, store.appendCalls)
}

func TestIngest_EmptyIdentifierIsValidation(t *testing.T) {
	for _, u := range []string{"https://x.com/", "https://x.com", "/"} {
		_, err := newIngest(t, &stubStore{}, helloPost()).Ingest(context.Background(), IngestInput{SourceURL: u})
		requireCode(t, err, ErrorValidation)
	}
}

func TestIngest_UpstreamFailures(t *testing.T) {
	cases := []struct {
		name    string
		content *stubContent
		reason  string
	}{
		{"http error", &stubContent{err: &contentapi.HTTPStatusError{StatusCode: 502}}, "content_fetch_error"},
		{"unsuccessful", &stubContent{resp: &model.SourcePostResp{Success: false}}, "content_unsuccessful"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &stubStore{}
			_, err := newIngest(t, store, tc.content).Ingest(context.Background(), IngestInput{SourceURL: "https://x.com/a/status/1"})
			ucErr := requireCode(t, err, ErrorUpstream)
			require.Equal(t, tc.reason, ucErr.Reason)
			require.Zero(t, store.appendCalls)
		})
	}
}

func TestIngest_StoreFailure(t *testing.T) {
	store := &stubStore{appendErr: &rowstore.StoreError{Op: "append", Err: errors.New("quota exceeded")}}
	_, err := newIngest(t, store, helloPost()).Ingest(context.Background(), IngestInput{SourceURL: "https://x.com/a/status/1"})
	requireCode(t, err, ErrorStore)
}

func TestIngest_ConfigErrors(t *testing.T) {
	svc, err := NewIngestService(fullCreds(), &stubStore{}, nil)
	require.NoError(t, err)
	_, err = svc.Ingest(context.Background(), IngestInput{SourceURL: "https://x.com/a/status/1"})
	requireCode(t, err, ErrorConfig)

	creds := fullCreds()
	creds.SheetsJSON = ""
	content := helloPost()
	svc, err = NewIngestService(creds, &stubStore{}, content)
	require.NoError(t, err)
	_, err = svc.Ingest(context.Background(), IngestInput{SourceURL: "https://x.com/a/status/1"})
	ucErr := requireCode(t, err, ErrorConfig)
	var missing *config.MissingError
	require.True(t, errors.As(ucErr, &missing))
	require.Empty(t, content.calls)
}

func TestExtractID(t *testing.T) {
	cases := map[string]string{
		"https://x.com/someone/status/123":         "123",
		"https://x.com/someone/status/123/":        "123",
		"https://x.com/someone/status/123?s=20#top": "123",
		"123": "123",
	}
	for in, want := range cases {
		got, err := ExtractID(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
}
