package backupstore

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"crate/internal/services"
)

// Memory is an in-process Store. It records how often each path was written.
type Memory struct {
	mu      sync.Mutex
	files   map[string][]byte
	folders map[string]struct{}
	writes  map[string]int
	deletes []string
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		files:   make(map[string][]byte),
		folders: map[string]struct{}{"": {}},
		writes:  make(map[string]int),
	}
}

func (m *Memory) FindOrCreateFolder(parent, name string) (string, error) {
	if err := validateFolder(parent); err != nil {
		return "", err
	}
	if err := validateName(name); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	folder := Join(parent, name)
	m.folders[folder] = struct{}{}
	return folder, nil
}

func (m *Memory) CreateOrUpdate(folder, filename string, content []byte) error {
	if err := validateFolder(folder); err != nil {
		return err
	}
	if err := validateName(filename); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(Join(folder, filename), content)
	return nil
}

func (m *Memory) CreateOrGet(folder, filename string, defaultContent []byte) (Handle, error) {
	if err := validateFolder(folder); err != nil {
		return Handle{}, err
	}
	if err := validateName(filename); err != nil {
		return Handle{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	handle := Handle{Folder: folder, Name: filename}
	if _, ok := m.files[handle.Path()]; !ok {
		m.put(handle.Path(), defaultContent)
	}
	return handle, nil
}

func (m *Memory) ReadContent(h Handle) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[h.Path()]
	if !ok {
		return nil, fmt.Errorf("%w: read %s: file does not exist", services.ErrPersistence, h.Path())
	}
	return slices.Clone(data), nil
}

func (m *Memory) SetContent(h Handle, content []byte) error {
	return m.CreateOrUpdate(h.Folder, h.Name, content)
}

func (m *Memory) DeleteFile(folder, filename string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := Join(folder, filename)
	if _, ok := m.files[key]; ok {
		delete(m.files, key)
		m.deletes = append(m.deletes, key)
	}
	return nil
}

func (m *Memory) put(key string, content []byte) {
	m.files[key] = slices.Clone(content)
	m.writes[key]++
}

// Seed stores content at path without counting a write, so a dry run can
// start from existing backup state.
func (m *Memory) Seed(path string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = slices.Clone(content)
}

// Written lists the paths written at least once, sorted. Seeded paths that
// were never rewritten are left out.
func (m *Memory) Written() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var paths []string
	for path, count := range m.writes {
		if count > 0 {
			paths = append(paths, path)
		}
	}
	slices.Sort(paths)
	return paths
}

// File returns the content stored at path.
func (m *Memory) File(path string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[path]
	return slices.Clone(data), ok
}

// Paths lists every stored file, sorted.
func (m *Memory) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Sorted(maps.Keys(m.files))
}

// Writes returns how many times path has been written.
func (m *Memory) Writes(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes[path]
}

// TotalWrites returns the number of writes across all paths.
func (m *Memory) TotalWrites() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, count := range m.writes {
		total += count
	}
	return total
}

// ResetWrites clears the write counters but keeps stored content.
func (m *Memory) ResetWrites() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.writes)
	m.deletes = nil
}

// Deleted lists the paths removed by DeleteFile in call order.
func (m *Memory) Deleted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.deletes)
}
