package media

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Scratch is a per-attempt staging directory. Close removes it with
// everything staged inside.
type Scratch struct {
	dir string
	seq atomic.Int32
}

// NewScratch creates a fresh directory under root (the OS temp dir when
// root is empty).
func NewScratch(root string) (*Scratch, error) {
	dir, err := os.MkdirTemp(root, "sheetposter-"+uuid.NewString()[:8]+"-")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	return &Scratch{dir: dir}, nil
}

func (s *Scratch) Dir() string { return s.dir }

// next returns the 1-based position of the next staged file.
func (s *Scratch) next() int {
	return int(s.seq.Add(1))
}

func (s *Scratch) Close() error {
	if err := os.RemoveAll(s.dir); err != nil {
		log.Warn().Err(err).Str("dir", s.dir).Msg("Failed to remove scratch dir")
		return err
	}
	return nil
}
