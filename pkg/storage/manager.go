package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"feedbot/pkg/models"
)

// Manager writes collection and run results as JSON files under a base
// directory, one subdirectory per account.
type Manager struct {
	baseDir    string
	prettyJSON bool
	mu         sync.Mutex
}

// NewManager creates a storage manager rooted at baseDir
func NewManager(baseDir string, prettyJSON bool) (*Manager, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Manager{
		baseDir:    baseDir,
		prettyJSON: prettyJSON,
	}, nil
}

// SaveCollection writes a collection result for account and returns the
// file path.
func (m *Manager) SaveCollection(account string, result *models.CollectionResult) (string, error) {
	return m.save(account, "collection", result)
}

// SaveRun writes a session run result for account and returns the file path.
func (m *Manager) SaveRun(account, actionName string, result *models.RunResult) (string, error) {
	return m.save(account, actionName, result)
}

// save marshals v into <baseDir>/<account>/<kind>-<timestamp>.json using a
// temp-file-and-rename write so readers never observe a partial file.
func (m *Manager) save(account, kind string, v interface{}) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dir := filepath.Join(m.baseDir, account)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create account directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	if m.prettyJSON {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return "", fmt.Errorf("failed to marshal result: %w", err)
	}

	name := fmt.Sprintf("%s-%s.json", kind, time.Now().Format("20060102-150405"))
	path := filepath.Join(dir, name)

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write result file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return "", fmt.Errorf("failed to rename result file: %w", err)
	}

	return path, nil
}

// BaseDir returns the base output directory
func (m *Manager) BaseDir() string {
	return m.baseDir
}

// ListResults returns the result files saved for account, newest last.
func (m *Manager) ListResults(account string) ([]string, error) {
	dir := filepath.Join(m.baseDir, account)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read results directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".json" {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	return files, nil
}
