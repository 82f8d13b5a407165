package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dlabonte15/investment-emailer/models"
)

// InvestmentStore persists the uploaded investment dataset as a single
// JSON snapshot on disk. Each upload replaces the previous snapshot
// wholesale; there is no per-row mutation.
type InvestmentStore struct {
	mu     sync.RWMutex
	path   string
	logger *log.Logger
}

func NewInvestmentStore(dataDir string, logger *log.Logger) (*InvestmentStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &InvestmentStore{
		path:   filepath.Join(dataDir, "investments.json"),
		logger: logger,
	}, nil
}

// Save replaces the current snapshot. The write goes through a temp
// file and rename so a crash never leaves a half-written snapshot.
func (s *InvestmentStore) Save(rows []models.InvestmentRecord, rawColumns []string) (*models.DatasetSnapshot, error) {
	snapshot := &models.DatasetSnapshot{
		Rows:       rows,
		RawColumns: rawColumns,
		ParsedAt:   time.Now(),
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return nil, fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return nil, fmt.Errorf("replace snapshot: %w", err)
	}

	s.logger.Printf("saved investment snapshot: %d rows, %d columns", len(rows), len(rawColumns))
	return snapshot, nil
}

// Snapshot returns the current dataset, or (nil, nil) when no dataset
// has been uploaded yet.
func (s *InvestmentStore) Snapshot() (*models.DatasetSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot models.DatasetSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snapshot, nil
}

// Clear removes the stored snapshot.
func (s *InvestmentStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
