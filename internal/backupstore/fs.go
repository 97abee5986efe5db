package backupstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"crate/internal/fileutil"
	"crate/internal/services"
)

const lockFileName = ".crate.lock"

// FS stores artifacts in a directory tree rooted at Root.
type FS struct {
	root string
	lock *flock.Flock
}

// NewFS returns a store rooted at root. The directory is created on first write.
func NewFS(root string) *FS {
	return &FS{root: root, lock: flock.New(filepath.Join(root, lockFileName))}
}

// Root returns the directory backing the store.
func (s *FS) Root() string {
	return s.root
}

// Lock takes an exclusive, non-blocking lock on the backup root.
func (s *FS) Lock() error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("%w: create backup root: %w", services.ErrPersistence, err)
	}
	ok, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrLocked
	}
	return nil
}

// Unlock releases the lock taken by Lock.
func (s *FS) Unlock() error {
	return s.lock.Unlock()
}

func (s *FS) resolve(folder, name string) (string, error) {
	if err := validateFolder(folder); err != nil {
		return "", err
	}
	if err := validateName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(folder), name), nil
}

func (s *FS) FindOrCreateFolder(parent, name string) (string, error) {
	dir, err := s.resolve(parent, name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create folder %s: %w", services.ErrPersistence, Join(parent, name), err)
	}
	return Join(parent, name), nil
}

func (s *FS) CreateOrUpdate(folder, filename string, content []byte) error {
	target, err := s.resolve(folder, filename)
	if err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(target, content, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %w", services.ErrPersistence, Join(folder, filename), err)
	}
	return nil
}

func (s *FS) CreateOrGet(folder, filename string, defaultContent []byte) (Handle, error) {
	target, err := s.resolve(folder, filename)
	if err != nil {
		return Handle{}, err
	}
	handle := Handle{Folder: folder, Name: filename}
	if _, err := os.Stat(target); err == nil {
		return handle, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return Handle{}, fmt.Errorf("%w: stat %s: %w", services.ErrPersistence, handle.Path(), err)
	}
	if err := fileutil.WriteFileAtomic(target, defaultContent, 0o644); err != nil {
		return Handle{}, fmt.Errorf("%w: create %s: %w", services.ErrPersistence, handle.Path(), err)
	}
	return handle, nil
}

func (s *FS) ReadContent(h Handle) ([]byte, error) {
	target, err := s.resolve(h.Folder, h.Name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(target)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", services.ErrPersistence, h.Path(), err)
	}
	return data, nil
}

func (s *FS) SetContent(h Handle, content []byte) error {
	return s.CreateOrUpdate(h.Folder, h.Name, content)
}

func (s *FS) DeleteFile(folder, filename string) error {
	target, err := s.resolve(folder, filename)
	if err != nil {
		return err
	}
	if err := fileutil.RemoveIfExists(target); err != nil {
		return fmt.Errorf("%w: delete %s: %w", services.ErrPersistence, Join(folder, filename), err)
	}
	return nil
}
