// Package fs implements the store port on the local file system.
//
// Documents are plain files under a root directory. Writes go to a fsynced
// temp file in the destination directory followed by an atomic rename, so
// readers never observe a torn value, and saves to the same key are
// serialized. Entries whose name starts with a dot are reserved for
// store internals (journal logs, the instance lock) and are invisible to the
// document API.
package fs

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/yukihamada/wasmix-sub003/internal/domain"
)

const tmpSuffix = ".tmp"

// Store implements ports.Store using a directory of plain files.
type Store struct {
	root string

	mu    sync.Mutex
	paths map[string]*sync.Mutex
}

// NewStore creates a Store rooted at the given directory. The directory is
// created on first save.
func NewStore(root string) *Store {
	return &Store{
		root:  filepath.Clean(root),
		paths: make(map[string]*sync.Mutex),
	}
}

// pathLock returns the mutex guarding writes to the cleaned key rel.
func (s *Store) pathLock(rel string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.paths[rel]
	if !ok {
		l = &sync.Mutex{}
		s.paths[rel] = l
	}
	return l
}

// Root returns the directory the store persists into.
func (s *Store) Root() string {
	return s.root
}

// Save persists value under key, creating parent directories as needed.
// An existing value is replaced atomically; concurrent saves to the same key
// are serialized so they cannot race each other's temp file or rename.
func (s *Store) Save(ctx context.Context, key string, value []byte) error {
	rel, err := domain.CleanDocKey(key)
	if err != nil {
		return err
	}

	l := s.pathLock(rel)
	l.Lock()
	defer l.Unlock()

	full := filepath.Join(s.root, filepath.FromSlash(rel))
	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	// The dot prefix keeps in-flight temps out of List; the random suffix
	// keeps writers to distinct keys in one directory apart.
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(full)+tmpSuffix)
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), full)
}

// Load retrieves the value stored under key.
// Returns domain.ErrNotFound when the key has no stored value.
func (s *Store) Load(ctx context.Context, key string) ([]byte, error) {
	rel, err := domain.CleanDocKey(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(rel)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %q", domain.ErrNotFound, rel)
		}
		return nil, err
	}
	return data, nil
}

// List returns every stored key beginning with prefix, in lexicographic
// order. An empty prefix lists the whole store; a store whose root does not
// exist yet lists as empty.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string

	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == s.root && os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		if strings.HasPrefix(d.Name(), ".") && p != s.root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || strings.HasSuffix(d.Name(), tmpSuffix) {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		if k := filepath.ToSlash(rel); strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(keys)
	return keys, nil
}
