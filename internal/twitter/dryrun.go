package twitter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// DryRun stands in for Client when nothing may be sent to the platform. It
// checks staged files are readable and logs what would have been posted.
type DryRun struct {
	seq atomic.Int64
}

func (d *DryRun) UploadMedia(_ context.Context, path string) (string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("open media: %w", err)
	}
	id := fmt.Sprintf("dry-run-%d", d.seq.Add(1))
	log.Info().Str("mediaId", id).Str("file", filepath.Base(path)).Int64("bytes", fi.Size()).Msg("DRY RUN: media not uploaded")
	return id, nil
}

func (d *DryRun) CreatePost(_ context.Context, text string, mediaIDs []string) (string, error) {
	log.Info().Str("text", text).Strs("mediaIds", mediaIDs).Msg("DRY RUN: post not created")
	return "dry-run", nil
}
