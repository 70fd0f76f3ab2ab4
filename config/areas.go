package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// SearchArea is a saved polygon boundary users filter listings with.
// Vertices are {lat,lng} pairs.
type SearchArea struct {
	Name     string       `json:"name"`
	Vertices [][2]float64 `json:"vertices"`
}

// AreaStore loads and saves named search-area polygons from a JSON file.
type AreaStore struct {
	mu    sync.RWMutex
	path  string
	areas []SearchArea
}

// NewAreaStore creates a store backed by the given file. A missing file is
// an empty store, not an error.
func NewAreaStore(path string) (*AreaStore, error) {
	store := &AreaStore{path: path}
	if err := store.load(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *AreaStore) load() error {
	absPath, err := filepath.Abs(s.path)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %v", err)
	}

	data, err := os.ReadFile(absPath)
	if os.IsNotExist(err) {
		s.areas = nil
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read areas file: %v", err)
	}

	var areas []SearchArea
	if err := json.Unmarshal(data, &areas); err != nil {
		return fmt.Errorf("failed to parse areas file: %v", err)
	}
	s.areas = areas
	return nil
}

func (s *AreaStore) save() error {
	absPath, err := filepath.Abs(s.path)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %v", err)
	}

	data, err := json.MarshalIndent(s.areas, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal areas: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return fmt.Errorf("failed to create areas directory: %v", err)
	}
	if err := os.WriteFile(absPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write areas file: %v", err)
	}
	return nil
}

// GetAreas returns every saved search area.
func (s *AreaStore) GetAreas() []SearchArea {
	s.mu.RLock()
	defer s.mu.RUnlock()

	areas := make([]SearchArea, len(s.areas))
	copy(areas, s.areas)
	return areas
}

// GetAreaByName returns one saved area, or nil when unknown.
func (s *AreaStore) GetAreaByName(name string) *SearchArea {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, area := range s.areas {
		if area.Name == name {
			copied := area
			return &copied
		}
	}
	return nil
}

// UpdateArea saves or replaces a named search area.
func (s *AreaStore) UpdateArea(area SearchArea) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	for i, existing := range s.areas {
		if existing.Name == area.Name {
			s.areas[i] = area
			found = true
			break
		}
	}
	if !found {
		s.areas = append(s.areas, area)
	}
	return s.save()
}

// DeleteArea removes a named search area.
func (s *AreaStore) DeleteArea(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, area := range s.areas {
		if area.Name == name {
			s.areas = append(s.areas[:i], s.areas[i+1:]...)
			return s.save()
		}
	}
	return fmt.Errorf("search area not found: %s", name)
}
