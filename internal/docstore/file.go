package docstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/kgcurator/internal/cache"
	"github.com/ppiankov/kgcurator/internal/extract"
)

// Extensions are tried in order when resolving a document id to a file
var Extensions = []string{".txt", ".md", ".html", ".htm"}

// FileStore serves documents from a directory, one file per document id.
// HTML files are reduced to their visible text before hashing.
type FileStore struct {
	dir   string
	texts *cache.MemoryCache
}

// NewFileStore creates a store over dir; text is cached for ttl
func NewFileStore(dir string, ttl time.Duration) *FileStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &FileStore{
		dir:   dir,
		texts: cache.NewMemoryCache(ttl, 2*ttl),
	}
}

// ContentHash returns the hash of the document's current text
func (s *FileStore) ContentHash(ctx context.Context, docID string) (string, error) {
	text, err := s.Load(ctx, docID)
	if err != nil {
		return "", err
	}
	return HashText(text), nil
}

// Text returns the characters in [start, end), clamped to the document
func (s *FileStore) Text(ctx context.Context, docID string, start, end int) (string, error) {
	text, err := s.Load(ctx, docID)
	if err != nil {
		return "", err
	}
	return slice(text, start, end), nil
}

// Load returns the full text of a document. Entries are keyed by file
// size and modification time, so a re-ingested file is re-read.
func (s *FileStore) Load(ctx context.Context, docID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path, info, err := s.resolve(docID)
	if err != nil {
		return "", err
	}

	key := cache.Key("doc", path, strconv.FormatInt(info.Size(), 10), info.ModTime().UTC().Format(time.RFC3339Nano))
	if data, ok := s.texts.Get(key); ok {
		return string(data), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", docID, err)
	}

	text := string(raw)
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".html" || ext == ".htm" {
		text, err = extract.VisibleText(text)
		if err != nil {
			return "", fmt.Errorf("parse %s: %w", docID, err)
		}
	}

	_ = s.texts.Set(key, []byte(text), 0)
	return text, nil
}

// IDs lists the document ids available in the directory
func (s *FileStore) IDs() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read document dir: %w", err)
	}

	seen := make(map[string]bool)
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !supported(ext) {
			continue
		}
		id := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// LoadDir hashes every document in the directory using up to workers
// goroutines and returns doc id -> content hash
func (s *FileStore) LoadDir(ctx context.Context, workers int) (map[string]string, error) {
	ids, err := s.IDs()
	if err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = 4
	}

	var mu sync.Mutex
	hashes := make(map[string]string, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, id := range ids {
		g.Go(func() error {
			h, err := s.ContentHash(gctx, id)
			if err != nil {
				return err
			}
			mu.Lock()
			hashes[id] = h
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return hashes, nil
}

func (s *FileStore) resolve(docID string) (string, os.FileInfo, error) {
	if docID == "" || docID != filepath.Base(docID) || strings.HasPrefix(docID, ".") {
		return "", nil, fmt.Errorf("%w: invalid id %q", ErrNotFound, docID)
	}
	for _, ext := range Extensions {
		path := filepath.Join(s.dir, docID+ext)
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, info, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", nil, fmt.Errorf("stat %s: %w", docID, err)
		}
	}
	return "", nil, fmt.Errorf("%w: %s", ErrNotFound, docID)
}

func supported(ext string) bool {
	for _, e := range Extensions {
		if e == ext {
			return true
		}
	}
	return false
}
