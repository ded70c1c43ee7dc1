// Package store persists per-disease state as whole-file JSON documents:
// one search configuration, one organization collection, and one stats
// document per disease. Documents are always read and written whole; there
// is no append-in-place or indexed access.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/nando-support/discovery-cli/internal/model"
)

// ErrNotFound reports a missing document, distinguishable from I/O failure
// so callers can map it to a 404.
var ErrNotFound = eris.New("store: not found")

const (
	searchTermsDir   = "search_terms"
	organizationsDir = "organizations"
	statsDir         = "stats"
)

// Store owns the on-disk JSON layout under one data directory.
type Store struct {
	dir string
}

// New creates the data subdirectories if needed.
func New(dir string) (*Store, error) {
	for _, sub := range []string{searchTermsDir, organizationsDir, statsDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, eris.Wrapf(err, "store: create %s dir", sub)
		}
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(sub, diseaseID string) string {
	// NANDO IDs contain colons; keep filenames portable.
	name := strings.ReplaceAll(diseaseID, ":", "_")
	return filepath.Join(s.dir, sub, name+".json")
}

func (s *Store) load(sub, diseaseID string, v any) error {
	data, err := os.ReadFile(s.path(sub, diseaseID))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return eris.Wrapf(err, "store: read %s/%s", sub, diseaseID)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return eris.Wrapf(err, "store: decode %s/%s", sub, diseaseID)
	}
	return nil
}

func (s *Store) save(sub, diseaseID string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrapf(err, "store: encode %s/%s", sub, diseaseID)
	}
	if err := os.WriteFile(s.path(sub, diseaseID), data, 0o644); err != nil {
		return eris.Wrapf(err, "store: write %s/%s", sub, diseaseID)
	}
	return nil
}

// LoadSearchConfig returns the persisted search configuration for a disease,
// or ErrNotFound.
func (s *Store) LoadSearchConfig(diseaseID string) (*model.SearchConfig, error) {
	var cfg model.SearchConfig
	if err := s.load(searchTermsDir, diseaseID, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveSearchConfig writes a disease's search configuration.
func (s *Store) SaveSearchConfig(cfg *model.SearchConfig) error {
	return s.save(searchTermsDir, cfg.DiseaseID, cfg)
}

// LoadCollection returns a disease's organization collection, or ErrNotFound.
func (s *Store) LoadCollection(diseaseID string) (*model.OrganizationCollection, error) {
	var col model.OrganizationCollection
	if err := s.load(organizationsDir, diseaseID, &col); err != nil {
		return nil, err
	}
	return &col, nil
}

// SaveCollection writes a disease's organization collection as one unit.
func (s *Store) SaveCollection(col *model.OrganizationCollection) error {
	return s.save(organizationsDir, col.DiseaseID, col)
}

// LoadStats returns a disease's search statistics, or ErrNotFound.
func (s *Store) LoadStats(diseaseID string) (*model.SearchStats, error) {
	var st model.SearchStats
	if err := s.load(statsDir, diseaseID, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// SaveStats writes a disease's search statistics.
func (s *Store) SaveStats(st *model.SearchStats) error {
	return s.save(statsDir, st.DiseaseID, st)
}

// AllStats loads every persisted stats document. Corrupt entries are logged
// and skipped rather than failing the whole listing.
func (s *Store) AllStats() ([]model.SearchStats, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, statsDir))
	if err != nil {
		return nil, eris.Wrap(err, "store: list stats")
	}

	var out []model.SearchStats
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, statsDir, e.Name()))
		if err != nil {
			zap.L().Warn("store: read stats file", zap.String("file", e.Name()), zap.Error(err))
			continue
		}
		var st model.SearchStats
		if err := json.Unmarshal(data, &st); err != nil {
			zap.L().Warn("store: corrupt stats file", zap.String("file", e.Name()), zap.Error(err))
			continue
		}
		out = append(out, st)
	}
	return out, nil
}

// AllCollections loads every persisted organization collection.
func (s *Store) AllCollections() ([]model.OrganizationCollection, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, organizationsDir))
	if err != nil {
		return nil, eris.Wrap(err, "store: list collections")
	}

	var out []model.OrganizationCollection
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, organizationsDir, e.Name()))
		if err != nil {
			zap.L().Warn("store: read collection file", zap.String("file", e.Name()), zap.Error(err))
			continue
		}
		var col model.OrganizationCollection
		if err := json.Unmarshal(data, &col); err != nil {
			zap.L().Warn("store: corrupt collection file", zap.String("file", e.Name()), zap.Error(err))
			continue
		}
		out = append(out, col)
	}
	return out, nil
}
