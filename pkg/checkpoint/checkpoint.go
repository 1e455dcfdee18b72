package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"feedbot/pkg/logger"
)

// Checkpoint carries the resumable state of an automation run: which items
// have been seen, which have been acted on, and the running tallies.
type Checkpoint struct {
	Account      string          `json:"account"`
	ActionName   string          `json:"action_name"`
	SeenIDs      map[string]bool `json:"seen_ids"`
	ActedIDs     []string        `json:"acted_ids"`
	SuccessCount int             `json:"success_count"`
	FailedCount  int             `json:"failed_count"`
	SkippedCount int             `json:"skipped_count"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	Version      int             `json:"version"`
}

// Manager handles checkpoint operations
type Manager struct {
	checkpointPath string
	logger         logger.Logger
}

// NewManager creates a checkpoint manager for one account and action pair
func NewManager(account, actionName string) (*Manager, error) {
	dataDir, err := getDataDirectory()
	if err != nil {
		return nil, fmt.Errorf("failed to get data directory: %w", err)
	}

	checkpointsDir := filepath.Join(dataDir, "checkpoints")
	if err := os.MkdirAll(checkpointsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}

	checkpointPath := filepath.Join(checkpointsDir,
		fmt.Sprintf("%s.%s.checkpoint.json", account, actionName))

	return &Manager{
		checkpointPath: checkpointPath,
		logger:         logger.GetLogger(),
	}, nil
}

// NewManagerAt creates a manager with an explicit checkpoint path
func NewManagerAt(path string) *Manager {
	return &Manager{
		checkpointPath: path,
		logger:         logger.GetLogger(),
	}
}

// Create creates and saves a fresh checkpoint
func (m *Manager) Create(account, actionName string) (*Checkpoint, error) {
	checkpoint := &Checkpoint{
		Account:    account,
		ActionName: actionName,
		SeenIDs:    make(map[string]bool),
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
		Version:    1,
	}

	if err := m.Save(checkpoint); err != nil {
		return nil, fmt.Errorf("failed to save initial checkpoint: %w", err)
	}

	m.logger.InfoWithFields("checkpoint created", map[string]interface{}{
		"account": account,
		"action":  actionName,
		"path":    m.checkpointPath,
	})

	return checkpoint, nil
}

// Load loads an existing checkpoint. A missing file returns (nil, nil).
func (m *Manager) Load() (*Checkpoint, error) {
	file, err := os.Open(m.checkpointPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open checkpoint file: %w", err)
	}
	defer file.Close()

	var checkpoint Checkpoint
	if err := json.NewDecoder(file).Decode(&checkpoint); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	if checkpoint.SeenIDs == nil {
		checkpoint.SeenIDs = make(map[string]bool)
	}

	m.logger.InfoWithFields("checkpoint loaded", map[string]interface{}{
		"account":    checkpoint.Account,
		"action":     checkpoint.ActionName,
		"seen":       len(checkpoint.SeenIDs),
		"acted":      len(checkpoint.ActedIDs),
		"updated_at": checkpoint.UpdatedAt,
	})

	return &checkpoint, nil
}

// Save saves the checkpoint to disk atomically
func (m *Manager) Save(checkpoint *Checkpoint) error {
	checkpoint.UpdatedAt = time.Now()

	tempPath := m.checkpointPath + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(checkpoint); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync checkpoint file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}

	// Atomically replace the old checkpoint file
	if err := os.Rename(tempPath, m.checkpointPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}

	m.logger.DebugWithFields("checkpoint saved", map[string]interface{}{
		"account": checkpoint.Account,
		"acted":   len(checkpoint.ActedIDs),
	})

	return nil
}

// Delete removes the checkpoint file
func (m *Manager) Delete() error {
	if err := os.Remove(m.checkpointPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}

	m.logger.Info("checkpoint deleted")
	return nil
}

// Exists checks if a checkpoint file exists
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.checkpointPath)
	return err == nil
}

// RecordSeen marks item IDs as seen and persists the checkpoint
func (m *Manager) RecordSeen(checkpoint *Checkpoint, ids ...string) error {
	for _, id := range ids {
		checkpoint.SeenIDs[id] = true
	}
	return m.Save(checkpoint)
}

// RecordAction records one completed action against an item
func (m *Manager) RecordAction(checkpoint *Checkpoint, id string) error {
	checkpoint.SeenIDs[id] = true
	checkpoint.ActedIDs = append(checkpoint.ActedIDs, id)
	checkpoint.SuccessCount++
	return m.Save(checkpoint)
}

// HasActed reports whether an item was already acted on in this run
func (c *Checkpoint) HasActed(id string) bool {
	for _, acted := range c.ActedIDs {
		if acted == id {
			return true
		}
	}
	return false
}

// HasSeen reports whether an item was already seen in this run
func (c *Checkpoint) HasSeen(id string) bool {
	return c.SeenIDs[id]
}

// getDataDirectory returns the appropriate data directory for the current OS
func getDataDirectory() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "linux":
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			dataDir = filepath.Join(xdgDataHome, "feedbot")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share", "feedbot")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support", "feedbot")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		dataDir = filepath.Join(appData, "feedbot")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	return dataDir, nil
}
