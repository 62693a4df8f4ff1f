package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/yousuf/builder-typegen/internal/codegen"
)

const (
	// IndexFile re-exports every generated interface pair.
	IndexFile = "index.ts"
	// ManifestFile lists what was generated and when.
	ManifestFile = "generated-types.json"
)

// Writer persists generated TypeScript files under a single directory.
type Writer struct {
	dir string
	log logrus.FieldLogger
}

// NewWriter creates a writer rooted at dir.
func NewWriter(dir string, log logrus.FieldLogger) *Writer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Writer{dir: dir, log: log}
}

// Dir returns the output directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Clean removes previously generated .ts files. A missing directory is not an error.
func (w *Writer) Clean() error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		if os.IsNotExist(err) {
			w.log.Debugf("Generated directory %s does not exist", w.dir)
			return nil
		}
		return fmt.Errorf("failed to read output directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".ts") {
			continue
		}
		if err := os.Remove(filepath.Join(w.dir, entry.Name())); err != nil {
			return fmt.Errorf("failed to remove %s: %w", entry.Name(), err)
		}
	}

	w.log.Infof("Cleaned generated directory %s", w.dir)
	return nil
}

// WriteInterface writes one generated interface. Its file name is taken from
// FilePath so that the writer's directory decides the final location.
func (w *Writer) WriteInterface(gi *codegen.GeneratedInterface) (string, error) {
	path := filepath.Join(w.dir, filepath.Base(gi.FilePath))
	if err := w.write(path, []byte(gi.Content)); err != nil {
		return "", err
	}

	w.log.WithField("interface", gi.InterfaceName).Infof("Generated interface: %s", path)
	return path, nil
}

// WriteIndex writes the barrel file.
func (w *Writer) WriteIndex(content string) (string, error) {
	path := filepath.Join(w.dir, IndexFile)
	if err := w.write(path, []byte(content)); err != nil {
		return "", err
	}

	w.log.Infof("Generated index file: %s", path)
	return path, nil
}

// WriteManifest writes the inventory of a batch as JSON.
func (w *Writer) WriteManifest(entries []codegen.InventoryEntry) (string, error) {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode manifest: %w", err)
	}

	path := filepath.Join(w.dir, ManifestFile)
	if err := w.write(path, append(data, '\n')); err != nil {
		return "", err
	}
	return path, nil
}

// WriteBatch writes every interface of a batch, the index and the manifest.
// It returns the paths written.
func (w *Writer) WriteBatch(batch *codegen.BatchResult) ([]string, error) {
	paths := make([]string, 0, len(batch.Interfaces)+2)

	for _, gi := range batch.Interfaces {
		path, err := w.WriteInterface(gi)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	path, err := w.WriteIndex(batch.Index)
	if err != nil {
		return paths, err
	}
	paths = append(paths, path)

	path, err = w.WriteManifest(batch.Inventory())
	if err != nil {
		return paths, err
	}
	return append(paths, path), nil
}

func (w *Writer) write(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
