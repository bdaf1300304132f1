package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	errs "notefetch/pkg/errors"
	"notefetch/pkg/media"
	"notefetch/pkg/notestore"
)

var guidReplacer = strings.NewReplacer("/", "_", `\`, "_")

// ResolveName returns the local file name for a resource: "{guid}_{name}"
// when a usable file name is declared, "{guid}" plus the extension of its
// media type otherwise. Only the last path element of the declared name is
// kept, so a name can never escape the output directory.
func ResolveName(guid, fileName, mime string) string {
	guid = guidReplacer.Replace(guid)
	name := baseName(fileName)
	if name == "" {
		return guid + media.Extension(mime)
	}
	return guid + "_" + name
}

func baseName(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if name == "." || name == ".." {
		return ""
	}
	return name
}

// Manager writes resource bytes into one output directory
type Manager struct {
	outputDir string

	dirOnce sync.Once
	dirErr  error

	mu    sync.Mutex
	saved int
}

// NewManager creates a storage manager. The directory is not touched until
// the first Save.
func NewManager(outputDir string) *Manager {
	return &Manager{outputDir: outputDir}
}

// PathFor returns where the resource will be written
func (m *Manager) PathFor(r notestore.Resource) string {
	return filepath.Join(m.outputDir, ResolveName(r.GUID, r.Attributes.FileName, r.Mime))
}

// ensureDir creates the output directory once per Manager; an existing
// directory is fine
func (m *Manager) ensureDir() error {
	m.dirOnce.Do(func() {
		if err := os.MkdirAll(m.outputDir, 0755); err != nil {
			m.dirErr = errs.Wrap(errs.KindLocalWrite, err, "failed to create output directory")
		}
	})
	return m.dirErr
}

// Save writes data for r and returns the final path. The bytes go to a
// temporary file in the output directory that is renamed over the target,
// so an existing file is replaced whole or not at all.
func (m *Manager) Save(r notestore.Resource, data []byte) (string, error) {
	if err := m.ensureDir(); err != nil {
		return "", err
	}

	target := m.PathFor(r)
	tempFile := filepath.Join(m.outputDir, fmt.Sprintf(".%s.tmp", uuid.NewString()))

	out, err := os.OpenFile(tempFile, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return "", errs.Wrap(errs.KindLocalWrite, err, "failed to create temporary file")
	}
	defer out.Close()

	if _, err := out.Write(data); err != nil {
		os.Remove(tempFile)
		return "", errs.Wrap(errs.KindLocalWrite, err, "failed to write resource data")
	}

	if err := out.Close(); err != nil {
		os.Remove(tempFile)
		return "", errs.Wrap(errs.KindLocalWrite, err, "failed to close file")
	}

	if err := os.Rename(tempFile, target); err != nil {
		os.Remove(tempFile)
		return "", errs.Wrap(errs.KindLocalWrite, err, "failed to move file into place")
	}

	m.mu.Lock()
	m.saved++
	m.mu.Unlock()

	return target, nil
}

// GetOutputDir returns the output directory path
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}

// GetSavedCount returns the number of successful saves
func (m *Manager) GetSavedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved
}
