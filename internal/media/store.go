package media

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Asset is a local media file owned by exactly one job.
type Asset struct {
	Path string
	MIME string
}

// Store hands out per-job scratch directories under a shared root.
type Store struct {
	root string
}

func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch root: %w", err)
	}
	return &Store{root: root}, nil
}

func (s *Store) Root() string { return s.root }

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// Acquire creates a uniquely named directory for one job. The caller must
// defer Release.
func (s *Store) Acquire(jobID string) (*Scratch, error) {
	prefix := unsafeName.ReplaceAllString(jobID, "_")
	if len(prefix) > 40 {
		prefix = prefix[:40]
	}
	dir := filepath.Join(s.root, strings.Trim(prefix+"-"+uuid.NewString(), "-"))
	if err := os.Mkdir(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create job scratch: %w", err)
	}
	return &Scratch{dir: dir}, nil
}

// Scratch is a job's private area. It is used from the owning job's
// goroutine only.
type Scratch struct {
	dir  string
	live map[string]struct{}
}

func (s *Scratch) Dir() string { return s.dir }

// NewPath reserves a unique file path with the given extension (".mp4").
func (s *Scratch) NewPath(ext string) string {
	if s.live == nil {
		s.live = map[string]struct{}{}
	}
	p := filepath.Join(s.dir, uuid.NewString()+ext)
	s.live[p] = struct{}{}
	return p
}

// Drop deletes one asset immediately. Paths not handed out by NewPath are
// left alone.
func (s *Scratch) Drop(a Asset) {
	if _, ok := s.live[a.Path]; !ok {
		return
	}
	delete(s.live, a.Path)
	_ = os.Remove(a.Path)
}

// Live is the number of reserved paths not yet dropped.
func (s *Scratch) Live() int { return len(s.live) }

// Release deletes everything the job left behind, then the directory itself.
func (s *Scratch) Release() error {
	s.live = nil
	return os.RemoveAll(s.dir)
}
