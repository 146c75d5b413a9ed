package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"dex-sentinel/internal/domain"

	"go.uber.org/zap"
)

// WeeklyStore persists one JSON document per token key under dir. Each Save
// replaces the previous document. Failures are logged, never returned.
type WeeklyStore struct {
	dir    string
	logger *zap.Logger
}

func NewWeeklyStore(dir string, logger *zap.Logger) *WeeklyStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WeeklyStore{dir: dir, logger: logger}
}

func (w *WeeklyStore) path(key domain.TokenKey) string {
	return filepath.Join(w.dir, key.FileName())
}

// Save writes v for key. It reports whether the write succeeded.
func (w *WeeklyStore) Save(key domain.TokenKey, v any) bool {
	if err := w.save(key, v); err != nil {
		w.logger.Warn("weekly snapshot save failed", zap.String("token_key", key.String()), zap.Error(err))
		return false
	}
	w.logger.Debug("saved weekly snapshot", zap.String("token_key", key.String()))
	return true
}

func (w *WeeklyStore) save(key domain.TokenKey, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmp, err := os.CreateTemp(w.dir, ".weekly-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return os.Rename(tmp.Name(), w.path(key))
}

// Load returns the last document written for key as generic JSON. A missing
// or malformed file yields false.
func (w *WeeklyStore) Load(key domain.TokenKey) (map[string]any, bool) {
	var doc map[string]any
	if !w.decode(key, &doc) || doc == nil {
		return nil, false
	}
	return doc, true
}

// LoadReport decodes the last document for key as an analytics report.
func (w *WeeklyStore) LoadReport(key domain.TokenKey) (*domain.AnalyticsReport, bool) {
	var report domain.AnalyticsReport
	if !w.decode(key, &report) {
		return nil, false
	}
	return &report, true
}

func (w *WeeklyStore) decode(key domain.TokenKey, v any) bool {
	data, err := os.ReadFile(w.path(key))
	if err != nil {
		if !os.IsNotExist(err) {
			w.logger.Warn("weekly snapshot read failed", zap.String("token_key", key.String()), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		w.logger.Warn("weekly snapshot malformed", zap.String("token_key", key.String()), zap.Error(err))
		return false
	}
	return true
}
