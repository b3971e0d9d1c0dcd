package mlenc

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Unknown is the canonical value for empty/blank categoricals.
const Unknown = "UNKNOWN"

// Registry assigns and persists stable positive integer ids for
// categorical fields (side, style, horizon, sector, universe, mode).
// Each field has an independent map and id space, stored as
// ml/meta/<field>_map.json.
//
// Ids grow monotonically and are never renumbered: a model trained
// against an older registry stays decodable against a newer one.
//
// Single-writer contract: the registry is safe for one pipeline run at a
// time. Concurrent runs must serialize through Lock/Unlock because id
// allocation is read-modify-write.
type Registry struct {
	dir string
	log zerolog.Logger

	mu   sync.Mutex
	maps map[string]map[string]int
}

// Open creates a registry rooted at <dataDir>/ml/meta. Maps are loaded
// lazily per field.
func Open(dataDir string, log zerolog.Logger) (*Registry, error) {
	dir := filepath.Join(dataDir, "ml", "meta")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create meta dir: %w", err)
	}
	return &Registry{
		dir:  dir,
		log:  log.With().Str("component", "mlenc.registry").Logger(),
		maps: make(map[string]map[string]int),
	}, nil
}

// GetID returns the stable id for a raw categorical value, allocating
// max(existing)+1 and persisting when the value is new. Safe to call
// repeatedly across process restarts without collision or renumbering.
func (r *Registry) GetID(field, raw string) (int, error) {
	value := Normalize(raw)

	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.loadLocked(field)
	if err != nil {
		return 0, err
	}

	if id, ok := m[value]; ok {
		return id, nil
	}

	maxID := 0
	for _, id := range m {
		if id > maxID {
			maxID = id
		}
	}
	id := maxID + 1
	m[value] = id

	if err := r.saveLocked(field, m); err != nil {
		delete(m, value)
		return 0, err
	}

	r.log.Debug().Str("field", field).Str("value", value).Int("id", id).Msg("allocated categorical id")
	return id, nil
}

// Normalize canonicalizes a raw categorical value: trimmed, empty mapped
// to UNKNOWN.
func Normalize(raw string) string {
	v := strings.TrimSpace(raw)
	if v == "" {
		return Unknown
	}
	return v
}

func (r *Registry) mapPath(field string) string {
	return filepath.Join(r.dir, field+"_map.json")
}

func (r *Registry) loadLocked(field string) (map[string]int, error) {
	if m, ok := r.maps[field]; ok {
		return m, nil
	}

	m := make(map[string]int)
	data, err := os.ReadFile(r.mapPath(field))
	if err == nil {
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parse %s map: %w", field, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s map: %w", field, err)
	}

	r.maps[field] = m
	return m, nil
}

func (r *Registry) saveLocked(field string, m map[string]int) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s map: %w", field, err)
	}

	path := r.mapPath(field)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s map: %w", field, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("publish %s map: %w", field, err)
	}
	return nil
}

// lockStaleAfter bounds how long a crashed run can hold the registry.
const lockStaleAfter = 10 * time.Minute

// Lock takes the cross-process single-writer lock. A lock file older
// than lockStaleAfter is treated as left behind by a killed run and
// broken.
func (r *Registry) Lock() error {
	path := filepath.Join(r.dir, ".registry.lock")
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			return f.Close()
		}
		if !os.IsExist(err) {
			return fmt.Errorf("acquire registry lock: %w", err)
		}
		info, statErr := os.Stat(path)
		if statErr == nil && time.Since(info.ModTime()) > lockStaleAfter {
			r.log.Warn().Str("lock", path).Msg("breaking stale registry lock")
			os.Remove(path)
			continue
		}
		return fmt.Errorf("registry locked by another run: %s", path)
	}
	return fmt.Errorf("registry locked by another run: %s", path)
}

// Unlock releases the single-writer lock.
func (r *Registry) Unlock() {
	os.Remove(filepath.Join(r.dir, ".registry.lock"))
}
