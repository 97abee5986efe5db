package backupstore

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"crate/internal/services"
)

// ErrLocked reports that another run holds the backup root.
var ErrLocked = errors.New("backup root is locked by another crate run")

// Handle identifies a file returned by CreateOrGet.
type Handle struct {
	Folder string
	Name   string
}

// Path returns the slash-separated path of the file relative to the root.
func (h Handle) Path() string {
	return Join(h.Folder, h.Name)
}

// Store is the backup medium used by the exporter and the list sync.
type Store interface {
	// FindOrCreateFolder returns the folder name inside parent, creating it if needed.
	FindOrCreateFolder(parent, name string) (string, error)
	// CreateOrUpdate replaces the content of folder/filename.
	CreateOrUpdate(folder, filename string, content []byte) error
	// CreateOrGet returns a handle to folder/filename, creating it with
	// defaultContent when it does not exist.
	CreateOrGet(folder, filename string, defaultContent []byte) (Handle, error)
	ReadContent(h Handle) ([]byte, error)
	SetContent(h Handle, content []byte) error
	// DeleteFile removes folder/filename. A missing file is not an error.
	DeleteFile(folder, filename string) error
}

// Join builds a slash-separated relative path.
func Join(folder, name string) string {
	if folder == "" {
		return name
	}
	return path.Join(folder, name)
}

func validateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: empty name", services.ErrPersistence)
	case name == "." || name == "..":
		return fmt.Errorf("%w: invalid name %q", services.ErrPersistence, name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: name %q must not contain a path separator", services.ErrPersistence, name)
	}
	return nil
}

func validateFolder(folder string) error {
	if folder == "" {
		return nil
	}
	for _, part := range strings.Split(folder, "/") {
		if err := validateName(part); err != nil {
			return err
		}
	}
	return nil
}
