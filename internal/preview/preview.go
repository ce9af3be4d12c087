// Package preview turns the selected file into a thumbnail on disk and
// tracks the single handle that is live at any time.
package preview

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/ai-disease/internal/classifier"
	"github.com/example/ai-disease/internal/logging"
)

// Handle is one acquired thumbnail. Path is valid until the handle is released.
type Handle struct {
	ID       string
	Path     string
	Filename string
	Width    int
	Height   int
}

// Stats counts handle lifecycle events.
type Stats struct {
	Acquired uint64
	Released uint64
}

// Manager owns at most one live preview handle.
type Manager struct {
	dir     string
	ownsDir bool
	maxEdge int
	logger  *zap.Logger

	mu      sync.Mutex
	current *Handle
	stats   Stats
}

// NewManager writes thumbnails under dir. An empty dir creates a private
// temporary directory which Close removes.
func NewManager(dir string, maxEdge int, logger *zap.Logger) (*Manager, error) {
	ownsDir := false
	if dir == "" {
		tmp, err := os.MkdirTemp("", "ai-disease-preview-")
		if err != nil {
			return nil, logging.NewOperationError("preview.new_manager", "", err)
		}
		dir, ownsDir = tmp, true
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, logging.NewOperationError("preview.new_manager", "", err)
	}
	return &Manager{dir: dir, ownsDir: ownsDir, maxEdge: maxEdge, logger: logger.Named("preview")}, nil
}

// Swap releases the current handle and, when image is non-nil, acquires a
// thumbnail for it. The old handle is always released first.
func (m *Manager) Swap(image *classifier.Image) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.releaseLocked()
	if image == nil {
		return nil, nil
	}

	handle, err := m.acquire(image)
	if err != nil {
		m.logger.Warn("preview unavailable", zap.String("filename", image.Filename), zap.Error(err))
		return nil, err
	}
	m.current = handle
	m.stats.Acquired++
	return handle, nil
}

// Current returns a copy of the live handle, or nil.
func (m *Manager) Current() *Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	h := *m.current
	return &h
}

// Live reports how many handles are held (0 or 1).
func (m *Manager) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int(m.stats.Acquired - m.stats.Released)
}

// Stats returns lifecycle counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// Close releases the live handle and removes a directory the manager created.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.releaseLocked()
	if m.ownsDir {
		return os.RemoveAll(m.dir)
	}
	return nil
}

func (m *Manager) acquire(image *classifier.Image) (*Handle, error) {
	img, err := imaging.Decode(bytes.NewReader(image.Data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", image.Filename, err)
	}
	thumb := imaging.Fit(img, m.maxEdge, m.maxEdge, imaging.Lanczos)

	id := uuid.NewString()
	path := filepath.Join(m.dir, id+".png")
	if err := imaging.Save(thumb, path); err != nil {
		return nil, fmt.Errorf("write thumbnail: %w", err)
	}

	bounds := thumb.Bounds()
	return &Handle{
		ID:       id,
		Path:     path,
		Filename: image.Filename,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
	}, nil
}

func (m *Manager) releaseLocked() {
	if m.current == nil {
		return
	}
	if err := os.Remove(m.current.Path); err != nil && !os.IsNotExist(err) {
		m.logger.Warn("failed to remove preview", zap.String("path", m.current.Path), zap.Error(err))
	}
	m.current = nil
	m.stats.Released++
}
