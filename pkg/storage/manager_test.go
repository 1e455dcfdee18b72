package storage

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"feedbot/pkg/models"
)

func TestManagerSaveAndList(t *testing.T) {
	tempDir := t.TempDir()

	manager, err := NewManager(tempDir, true)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	files, err := manager.ListResults("alice")
	if err != nil {
		t.Fatalf("Failed to list results: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("Expected no results for a fresh account, got %d", len(files))
	}

	collection := &models.CollectionResult{
		Items: []models.CandidateItem{
			{ID: "1", Text: "first"},
			{ID: "2", Text: "second"},
		},
		TotalFound:  5,
		StartedAt:   time.Now().Add(-time.Minute),
		CompletedAt: time.Now(),
	}

	path, err := manager.SaveCollection("alice", collection)
	if err != nil {
		t.Fatalf("Failed to save collection: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read saved file: %v", err)
	}

	var loaded models.CollectionResult
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("Saved file is not valid JSON: %v", err)
	}
	if len(loaded.Items) != 2 {
		t.Errorf("Expected 2 items, got %d", len(loaded.Items))
	}
	if loaded.TotalFound != 5 {
		t.Errorf("Expected TotalFound 5, got %d", loaded.TotalFound)
	}

	run := &models.RunResult{SuccessCount: 3, ActedIDs: []string{"1", "2", "3"}}
	if _, err := manager.SaveRun("alice", "like", run); err != nil {
		t.Fatalf("Failed to save run: %v", err)
	}

	files, err = manager.ListResults("alice")
	if err != nil {
		t.Fatalf("Failed to list results: %v", err)
	}
	if len(files) != 2 {
		t.Errorf("Expected 2 result files, got %d", len(files))
	}
}

func TestManagerCompactJSON(t *testing.T) {
	manager, err := NewManager(t.TempDir(), false)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	path, err := manager.SaveRun("bob", "follow", &models.RunResult{SuccessCount: 1})
	if err != nil {
		t.Fatalf("Failed to save run: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read saved file: %v", err)
	}
	for _, b := range data {
		if b == '\n' {
			t.Fatal("Compact JSON should not contain newlines")
		}
	}
}

func TestManagerSeparatesAccounts(t *testing.T) {
	manager, err := NewManager(t.TempDir(), true)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	if _, err := manager.SaveRun("alice", "like", &models.RunResult{}); err != nil {
		t.Fatal(err)
	}
	if _, err := manager.SaveRun("bob", "like", &models.RunResult{}); err != nil {
		t.Fatal(err)
	}

	aliceFiles, _ := manager.ListResults("alice")
	bobFiles, _ := manager.ListResults("bob")
	if len(aliceFiles) != 1 || len(bobFiles) != 1 {
		t.Errorf("Expected one file per account, got %d and %d", len(aliceFiles), len(bobFiles))
	}
}
