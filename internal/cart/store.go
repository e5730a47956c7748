package cart

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sync"
)

// Persister stores the latest cart snapshot per owner. Load returns nil bytes
// when nothing was saved yet.
type Persister interface {
	Load(ctx context.Context, owner string) ([]byte, error)
	Save(ctx context.Context, owner string, snapshot []byte) error
}

// Updater is a Persister that can run a load-modify-save for one owner
// without interleaving with other updates of the same owner. fn gets the
// current snapshot (nil when none) and returns the one to save; nil means
// nothing to write.
type Updater interface {
	Persister
	Update(ctx context.Context, owner string, fn func(current []byte) ([]byte, error)) error
}

// stagedStore holds the last snapshot a cart tried to save.
type stagedStore struct{ snapshot []byte }

func (s *stagedStore) Load(context.Context, string) ([]byte, error) { return s.snapshot, nil }
func (s *stagedStore) Save(_ context.Context, _ string, b []byte) error {
	s.snapshot = b
	return nil
}

type NopStore struct{}

func (NopStore) Load(context.Context, string) ([]byte, error) { return nil, nil }
func (NopStore) Save(context.Context, string, []byte) error   { return nil }

type MemoryStore struct {
	mu    sync.RWMutex
	carts map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: make(map[string][]byte)}
}

func (m *MemoryStore) Load(_ context.Context, owner string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	raw, ok := m.carts[owner]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), raw...), nil
}

func (m *MemoryStore) Save(_ context.Context, owner string, snapshot []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[owner] = append([]byte(nil), snapshot...)
	return nil
}

func (m *MemoryStore) Update(_ context.Context, owner string, fn func([]byte) ([]byte, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var current []byte
	if raw, ok := m.carts[owner]; ok {
		current = append([]byte(nil), raw...)
	}
	next, err := fn(current)
	if err != nil || next == nil {
		return err
	}
	m.carts[owner] = append([]byte(nil), next...)
	return nil
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// FileStore keeps one JSON file per owner under dir. Saves replace the file
// atomically via rename.
// Update serializes writers within this process only.
type FileStore struct {
	dir   string
	locks sync.Map // owner -> *sync.Mutex
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create cart dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) lock(owner string) func() {
	v, _ := f.locks.LoadOrStore(owner, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (f *FileStore) Update(ctx context.Context, owner string, fn func([]byte) ([]byte, error)) error {
	defer f.lock(owner)()
	current, err := f.Load(ctx, owner)
	if err != nil {
		return err
	}
	next, err := fn(current)
	if err != nil || next == nil {
		return err
	}
	return f.Save(ctx, owner, next)
}

func (f *FileStore) path(owner string) string {
	return filepath.Join(f.dir, unsafeName.ReplaceAllString(owner, "_")+".json")
}

func (f *FileStore) Load(_ context.Context, owner string) ([]byte, error) {
	raw, err := os.ReadFile(f.path(owner))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return raw, err
}

func (f *FileStore) Save(_ context.Context, owner string, snapshot []byte) error {
	tmp, err := os.CreateTemp(f.dir, "cart-*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(snapshot); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), f.path(owner))
}
